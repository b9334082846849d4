/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package mask tracks what part of the base image is hidden from players
// and draws the hiding layer over a rendered frame.
package mask

import (
	"encoding/json"
	"slices"
)

const defaultCells = 3

// BlockMask covers the base image with a rows×cols grid of blocks that
// are opened one at a time. It is not safe for concurrent use.
type BlockMask struct {
	rows, cols int
	opened     map[int]bool
}

func NewBlockMask(rows, cols int) *BlockMask {
	m := &BlockMask{opened: make(map[int]bool)}
	m.Resize(rows, cols)

	return m
}

// Resize changes the grid. Changing the dimensions closes every block.
func (m *BlockMask) Resize(rows, cols int) {
	if rows <= 0 {
		rows = defaultCells
	}
	if cols <= 0 {
		cols = defaultCells
	}

	if rows != m.rows || cols != m.cols {
		m.rows, m.cols = rows, cols
		m.Reset()
	}
}

func (m *BlockMask) Rows() int { return m.rows }

func (m *BlockMask) Cols() int { return m.cols }

func (m *BlockMask) Len() int { return m.rows * m.cols }

func (m *BlockMask) valid(i int) bool {
	return i >= 0 && i < m.Len()
}

// Open reports whether block i was closed before.
func (m *BlockMask) Open(i int) bool {
	if !m.valid(i) || m.opened[i] {
		return false
	}

	m.opened[i] = true

	return true
}

// Close reports whether block i was open before.
func (m *BlockMask) Close(i int) bool {
	if !m.opened[i] {
		return false
	}

	delete(m.opened, i)

	return true
}

// Toggle flips block i and returns whether it is now open.
func (m *BlockMask) Toggle(i int) bool {
	if m.opened[i] {
		m.Close(i)

		return false
	}

	return m.Open(i)
}

func (m *BlockMask) IsOpen(i int) bool {
	return m.opened[i]
}

// OpenAll opens every block.
func (m *BlockMask) OpenAll() {
	for i := range m.Len() {
		m.opened[i] = true
	}
}

func (m *BlockMask) Reset() {
	m.opened = make(map[int]bool)
}

// AllOpen reports whether no block is left closed.
func (m *BlockMask) AllOpen() bool {
	return len(m.opened) == m.Len()
}

// Opened returns the open block indices in ascending order.
func (m *BlockMask) Opened() []int {
	out := make([]int, 0, len(m.opened))
	for i := range m.opened {
		out = append(out, i)
	}

	slices.Sort(out)

	return out
}

func (m *BlockMask) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rows   int   `json:"rows"`
		Cols   int   `json:"cols"`
		Opened []int `json:"opened"`
	}{m.rows, m.cols, m.Opened()})
}

// Clone returns an independent copy of m.
func (m *BlockMask) Clone() *BlockMask {
	c := &BlockMask{rows: m.rows, cols: m.cols, opened: make(map[int]bool, len(m.opened))}
	for i := range m.opened {
		c.opened[i] = true
	}

	return c
}
