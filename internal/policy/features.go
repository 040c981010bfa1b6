package policy

import (
	"pacplan/internal/grid"
)

// NoPursuerDistance stands in for the nearest-pursuer distance when there
// are no pursuers.
const NoPursuerDistance = 99

const (
	FeatureGoalDX = iota
	FeatureGoalDY
	FeaturePursuerDistance
	FeaturePursuerDX
	FeaturePursuerDY
	FeatureCanMoveUp
	FeatureCanMoveRight
	FeatureCanMoveDown
	FeatureCanMoveLeft
	featureCount
)

// FeatureNames is the persisted column order of Features.
var FeatureNames = []string{
	"goal_distance_x",
	"goal_distance_y",
	"closest_ghost_distance",
	"closest_ghost_direction_x",
	"closest_ghost_direction_y",
	"can_move_up",
	"can_move_right",
	"can_move_down",
	"can_move_left",
}

// ClassNames labels move codes 0..3.
var ClassNames = []string{"UP", "RIGHT", "DOWN", "LEFT"}

type Features [featureCount]float64

// Extract builds the feature vector for an agent at current heading to goal.
func Extract(m *grid.Maze, current, goal grid.Position, pursuers []grid.Position) Features {
	var f Features
	f[FeatureGoalDX] = float64(goal.X - current.X)
	f[FeatureGoalDY] = float64(goal.Y - current.Y)

	f[FeaturePursuerDistance] = NoPursuerDistance
	best := -1
	for _, p := range pursuers {
		d := grid.Manhattan(current, p)
		if best < 0 || d < best {
			best = d
			f[FeaturePursuerDistance] = float64(d)
			f[FeaturePursuerDX] = float64(p.X - current.X)
			f[FeaturePursuerDY] = float64(p.Y - current.Y)
		}
	}

	for i, dir := range grid.LegalityOrder {
		if m.IsOpen(grid.Step(current, dir)) {
			f[FeatureCanMoveUp+i] = 1
		}
	}
	return f
}

// Legal reports whether the move-legality feature for dir is set.
func (f Features) Legal(dir grid.Direction) bool {
	if !dir.Valid() {
		return false
	}
	return f[FeatureCanMoveUp+int(dir)] > 0
}

// FirstLegal returns the first legal move in up, right, down, left order.
func (f Features) FirstLegal() (grid.Direction, bool) {
	for _, dir := range grid.LegalityOrder {
		if f.Legal(dir) {
			return dir, true
		}
	}
	return 0, false
}

func (f Features) Slice() []float64 {
	out := make([]float64, len(f))
	copy(out, f[:])
	return out
}
