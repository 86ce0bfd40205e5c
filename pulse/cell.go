package pulse

// cell carries a request's result from its completion callback to its
// future. The callback writes; the future takes the value once after the
// request is done.
type cell[T any] struct {
	failed bool
	value  T
	full   bool
	taken  bool
}

// seeded starts full: list, optional and mutation requests always have a
// value to hand back unless they fail.
func seeded[T any](v T) *cell[T] {
	return &cell[T]{value: v, full: true}
}

// empty starts without a value; the callback must put one.
func empty[T any]() *cell[T] {
	return &cell[T]{}
}

func (c *cell[T]) fail() { c.failed = true }

func (c *cell[T]) put(v T) {
	c.value, c.full = v, true
}

// take moves the value out. A second take is a contract violation.
func (c *cell[T]) take() (T, bool) {
	if c.taken {
		panic("pulse: result taken twice")
	}
	c.taken = true
	var zero T
	v, ok := c.value, c.full
	c.value, c.full = zero, false
	return v, ok
}
