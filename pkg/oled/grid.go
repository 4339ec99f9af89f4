// Package oled renders the keyboard status screen onto a character cell display.
package oled

import (
	"strings"
)

const (
	// 128x32 panel with a 6x8 font.
	DefaultCols = 21
	DefaultRows = 4
)

// Grid is an in-memory character cell display. The cursor wraps to the next
// row at the end of a row and back to the top after the last row.
type Grid struct {
	cols, rows int
	cells      [][]byte
	col, row   int
}

func NewGrid(cols, rows int) *Grid {
	g := &Grid{
		cols:  cols,
		rows:  rows,
		cells: make([][]byte, rows),
	}
	for i := range g.cells {
		g.cells[i] = make([]byte, cols)
	}
	g.Clear()
	return g
}

func (g *Grid) Cols() int {
	return g.cols
}

func (g *Grid) Rows() int {
	return g.rows
}

func (g *Grid) Clear() {
	for _, row := range g.cells {
		for i := range row {
			row[i] = ' '
		}
	}
	g.col, g.row = 0, 0
}

// SetCursor moves the cursor. Positions outside the grid are ignored.
func (g *Grid) SetCursor(col, row uint8) {
	if int(col) >= g.cols || int(row) >= g.rows {
		return
	}
	g.col, g.row = int(col), int(row)
}

func (g *Grid) Write(s string) {
	for i := 0; i < len(s); i++ {
		g.WriteChar(s[i])
	}
}

func (g *Grid) WriteLine(s string) {
	g.Write(s)
	g.advanceRow()
}

func (g *Grid) WriteChar(c byte) {
	if c == '\n' {
		g.advanceRow()
		return
	}
	if c < ' ' || c > '~' {
		c = ' '
	}
	g.cells[g.row][g.col] = c
	g.col++
	if g.col >= g.cols {
		g.col = 0
		g.row = (g.row + 1) % g.rows
	}
}

// advanceRow clears the rest of the current row and moves to the next one.
func (g *Grid) advanceRow() {
	for i := g.col; i < g.cols; i++ {
		g.cells[g.row][i] = ' '
	}
	g.col = 0
	g.row = (g.row + 1) % g.rows
}

func (g *Grid) Lines() []string {
	lines := make([]string, g.rows)
	for i, row := range g.cells {
		lines[i] = string(row)
	}
	return lines
}

func (g *Grid) String() string {
	return strings.Join(g.Lines(), "\n")
}
