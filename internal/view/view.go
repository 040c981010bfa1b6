// Package view renders a maze with its agents and a planned path, either as
// plain text or onto a tcell screen.
package view

import (
	"github.com/gdamore/tcell/v2"

	"pacplan/internal/grid"
)

const (
	runeWall        = '#'
	runeOpen        = ' '
	runeCollectible = '.'
	runePath        = '*'
	runePursued     = 'P'
	runePursuer     = 'G'
)

var (
	styleWall        = tcell.StyleDefault.Foreground(tcell.ColorBlue)
	styleOpen        = tcell.StyleDefault
	styleCollectible = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	stylePath        = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	stylePursued     = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	stylePursuer     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleStatus      = tcell.StyleDefault.Reverse(true)
)

// Scene is everything drawn for one frame.
type Scene struct {
	Maze         *grid.Maze
	Pursued      *grid.Position
	Pursuers     []grid.Position
	Collectibles []grid.Position
	Path         grid.Path
	Status       string
}

type cell struct {
	r     rune
	style tcell.Style
}

// layers resolves each maze cell to a glyph. Agents sit above the path, the
// path above collectibles.
func (s Scene) layers() [][]cell {
	m := s.Maze
	out := make([][]cell, m.Height())
	for y := range out {
		out[y] = make([]cell, m.Width())
		for x := range out[y] {
			if m.IsOpen(grid.Position{X: x, Y: y}) {
				out[y][x] = cell{runeOpen, styleOpen}
			} else {
				out[y][x] = cell{runeWall, styleWall}
			}
		}
	}
	put := func(p grid.Position, c cell) {
		if m.InBounds(p) {
			out[p.Y][p.X] = c
		}
	}
	for _, p := range s.Collectibles {
		put(p, cell{runeCollectible, styleCollectible})
	}
	for _, p := range s.Path {
		put(p, cell{runePath, stylePath})
	}
	for _, p := range s.Pursuers {
		put(p, cell{runePursuer, stylePursuer})
	}
	if s.Pursued != nil {
		put(*s.Pursued, cell{runePursued, stylePursued})
	}
	return out
}

// Render returns the scene as text, one string per row.
func Render(s Scene) []string {
	if s.Maze == nil {
		return nil
	}
	rows := s.layers()
	lines := make([]string, len(rows))
	for y, row := range rows {
		buf := make([]rune, len(row))
		for x, c := range row {
			buf[x] = c.r
		}
		lines[y] = string(buf)
	}
	if s.Status != "" {
		lines = append(lines, s.Status)
	}
	return lines
}

// Draw paints the scene with its top-left corner at (ox, oy). Cells outside
// the screen are clipped. It does not call Show.
func Draw(screen tcell.Screen, s Scene, ox, oy int) {
	if s.Maze == nil {
		return
	}
	w, h := screen.Size()
	for y, row := range s.layers() {
		for x, c := range row {
			sx, sy := ox+x, oy+y
			if sx < 0 || sy < 0 || sx >= w || sy >= h {
				continue
			}
			screen.SetContent(sx, sy, c.r, nil, c.style)
		}
	}
	if s.Status == "" {
		return
	}
	sy := oy + s.Maze.Height()
	if sy < 0 || sy >= h {
		return
	}
	for i, r := range []rune(s.Status) {
		if sx := ox + i; sx >= 0 && sx < w {
			screen.SetContent(sx, sy, r, nil, styleStatus)
		}
	}
}

// Run draws the scene and blocks until Escape, Enter, Ctrl-C or 'q'. The
// screen must already be initialized; the caller owns Fini.
func Run(screen tcell.Screen, s Scene) {
	redraw := func() {
		screen.Clear()
		Draw(screen, s, 0, 0)
		screen.Show()
	}
	redraw()
	for {
		switch ev := screen.PollEvent().(type) {
		case nil:
			return
		case *tcell.EventResize:
			screen.Sync()
			redraw()
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEscape, tcell.KeyEnter, tcell.KeyCtrlC:
				return
			case tcell.KeyRune:
				if ev.Rune() == 'q' {
					return
				}
			}
		}
	}
}
