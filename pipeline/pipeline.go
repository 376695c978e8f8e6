package pipeline

import "context"

// Iterator yields values on demand. Next returns ok=false once exhausted.
type Iterator[T any] interface {
	Next(ctx context.Context) (T, bool, error)
	Close() error
}

// Pipeline is a lazy stream: stages are built when a terminal such as
// Collect pulls from it.
type Pipeline[T any] struct {
	create func(ctx context.Context) Iterator[T]
}

// Indexed pairs a value with its position in the source.
type Indexed[T any] struct {
	Index int
	Value T
}

// FromSlice streams items in order.
func FromSlice[T any](items []T) *Pipeline[T] {
	return &Pipeline[T]{create: func(context.Context) Iterator[T] {
		return &sliceIter[T]{items: items}
	}}
}

// Enumerate tags each value with its zero-based source position so order
// can be restored after Parallel.
func Enumerate[T any](p *Pipeline[T]) *Pipeline[Indexed[T]] {
	return &Pipeline[Indexed[T]]{create: func(ctx context.Context) Iterator[Indexed[T]] {
		return &enumerateIter[T]{src: p.create(ctx)}
	}}
}

// Map applies fn to each value in order. The first error ends the stream.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		return &mapIter[I, O]{src: p.create(ctx), fn: fn}
	}}
}

// Collect drains p. On error it returns the values produced so far.
func Collect[T any](ctx context.Context, p *Pipeline[T]) ([]T, error) {
	it := p.create(ctx)
	defer it.Close()
	var out []T
	for {
		v, ok, err := it.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, v)
	}
}

type sliceIter[T any] struct {
	items []T
	pos   int
}

func (it *sliceIter[T]) Next(context.Context) (T, bool, error) {
	if it.pos >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	it.pos++
	return it.items[it.pos-1], true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type enumerateIter[T any] struct {
	src Iterator[T]
	n   int
}

func (it *enumerateIter[T]) Next(ctx context.Context) (Indexed[T], bool, error) {
	v, ok, err := it.src.Next(ctx)
	if err != nil || !ok {
		return Indexed[T]{}, false, err
	}
	it.n++
	return Indexed[T]{Index: it.n - 1, Value: v}, true, nil
}

func (it *enumerateIter[T]) Close() error { return it.src.Close() }

type mapIter[I, O any] struct {
	src Iterator[I]
	fn  func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	var zero O
	v, ok, err := it.src.Next(ctx)
	if err != nil || !ok {
		return zero, false, err
	}
	out, err := it.fn(ctx, v)
	if err != nil {
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.src.Close() }
