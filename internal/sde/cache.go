package sde

import (
	"sync/atomic"

	"github.com/san-kum/sdekit/internal/symbolic"
)

var tagCounter atomic.Uint64

func nextTag() uint64 { return tagCounter.Add(1) }

// cell is a write-once slot. Concurrent first reads may both compute; the
// values are equal so whichever store lands first is kept.
type cell[T any] struct {
	p atomic.Pointer[T]
}

func (c *cell[T]) get(compute func() T) T {
	if v := c.p.Load(); v != nil {
		return *v
	}
	v := compute()
	c.p.CompareAndSwap(nil, &v)
	return *c.p.Load()
}

func (c *cell[T]) loaded() bool { return c.p.Load() != nil }

type derived struct {
	tgrad   cell[[]symbolic.Expr]
	jac     cell[*symbolic.Matrix]
	ctrlJac cell[*symbolic.Matrix]
	mass    cell[*symbolic.Matrix]
	w       cell[*symbolic.Matrix]
	wt      cell[*symbolic.Matrix]
}
