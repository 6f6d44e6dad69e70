package data

import "iter"

// Container is the type erased view of a result collection. The execution
// engine calls Manufacture once per fetched row and Trim to roll back a row it
// could not populate.
type Container interface {
	// Manufacture appends a new element and returns it for population.
	Manufacture() Set
	// Trim removes the most recently appended element.
	Trim()
	Len() int
	Empty() bool
}

type element[T any] struct {
	rec T
	set Set
}

// SetContainer is an append-only ordered collection of records of one concrete
// type. It has a single writer (the worker executing the fetch) and may only be
// read once the caller has observed completion.
type SetContainer[T any] struct {
	items   []element[T]
	factory func() T
	bind    func(T) Set
}

// NewContainer returns a collection of records that implement Set themselves.
func NewContainer[T Set](factory func() T) *SetContainer[T] {
	return &SetContainer[T]{
		factory: factory,
		bind:    func(rec T) Set { return rec },
	}
}

// NewDescribedContainer returns a collection of records that publish a
// descriptor table.
func NewDescribedContainer[T Describer](factory func() T) *SetContainer[T] {
	return &SetContainer[T]{
		factory: factory,
		bind:    func(rec T) Set { return Bind(rec) },
	}
}

func (c *SetContainer[T]) Manufacture() Set {
	rec := c.factory()
	set := c.bind(rec)
	c.items = append(c.items, element[T]{rec: rec, set: set})
	return set
}

func (c *SetContainer[T]) Trim() {
	if len(c.items) == 0 {
		return
	}
	var zero element[T]
	c.items[len(c.items)-1] = zero
	c.items = c.items[:len(c.items)-1]
}

func (c *SetContainer[T]) Len() int { return len(c.items) }

func (c *SetContainer[T]) Empty() bool { return len(c.items) == 0 }

// All iterates the records in append order.
func (c *SetContainer[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, e := range c.items {
			if !yield(e.rec) {
				return
			}
		}
	}
}

// Backward iterates the records from the most recently appended one.
func (c *SetContainer[T]) Backward() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := len(c.items) - 1; i >= 0; i-- {
			if !yield(c.items[i].rec) {
				return
			}
		}
	}
}

// Front returns the first record. ok is false when c is empty.
func (c *SetContainer[T]) Front() (rec T, ok bool) {
	if len(c.items) == 0 {
		return rec, false
	}
	return c.items[0].rec, true
}

// Back returns the most recently appended record.
func (c *SetContainer[T]) Back() (rec T, ok bool) {
	if len(c.items) == 0 {
		return rec, false
	}
	return c.items[len(c.items)-1].rec, true
}
