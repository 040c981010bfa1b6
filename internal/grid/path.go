package grid

// Direction is a cardinal move code. The numeric values match the
// classifier labels: 0 up, 1 right, 2 down, 3 left.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// NeighborOrder is the canonical enumeration order of Maze.Neighbors.
var NeighborOrder = [4]Direction{Down, Right, Up, Left}

// LegalityOrder is the order of the move-legality features.
var LegalityOrder = [4]Direction{Up, Right, Down, Left}

var directionNames = [4]string{"UP", "RIGHT", "DOWN", "LEFT"}

func (d Direction) Valid() bool {
	return d >= Up && d <= Left
}

func (d Direction) String() string {
	if !d.Valid() {
		return "INVALID"
	}
	return directionNames[d]
}

// Delta returns the (dx, dy) offset of d; y grows downward.
func (d Direction) Delta() (int, int) {
	switch d {
	case Up:
		return 0, -1
	case Right:
		return 1, 0
	case Down:
		return 0, 1
	case Left:
		return -1, 0
	default:
		return 0, 0
	}
}

func Step(p Position, d Direction) Position {
	dx, dy := d.Delta()
	return p.Add(dx, dy)
}

// DirectionBetween returns the cardinal direction from a to an adjacent b.
func DirectionBetween(a, b Position) (Direction, bool) {
	switch dx, dy := b.X-a.X, b.Y-a.Y; {
	case dx == 0 && dy == -1:
		return Up, true
	case dx == 1 && dy == 0:
		return Right, true
	case dx == 0 && dy == 1:
		return Down, true
	case dx == -1 && dy == 0:
		return Left, true
	default:
		return 0, false
	}
}

// Path is an ordered list of positions starting at the query start.
// An empty path means no route was found.
type Path []Position

// NoOp returns the single-element path that keeps the agent in place.
func NoOp(start Position) Path {
	return Path{start}
}

// Next returns the first move of the path, if any.
func (p Path) Next() (Position, bool) {
	if len(p) < 2 {
		return Position{}, false
	}
	return p[1], true
}

// Valid reports whether every step is one cardinal move over open cells.
func (p Path) Valid(m *Maze) bool {
	for i, pos := range p {
		if !m.IsOpen(pos) {
			return false
		}
		if i > 0 && Manhattan(p[i-1], pos) != 1 {
			return false
		}
	}
	return true
}

func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}
