package pipeline

import (
	"context"
	"sync"
)

type item[T any] struct {
	val T
	err error
}

// Parallel applies fn with n workers. Output order follows completion, not
// input; pair it with Enumerate to restore order. The first error cancels
// the remaining work and is returned from Next.
func Parallel[I, O any](p *Pipeline[I], n int, fn func(context.Context, I) (O, error)) *Pipeline[O] {
	if n < 1 {
		n = 1
	}
	return &Pipeline[O]{create: func(ctx context.Context) Iterator[O] {
		ctx, cancel := context.WithCancel(ctx)
		src := p.create(ctx)
		in := make(chan I)
		out := make(chan item[O], n)

		send := func(it item[O]) bool {
			select {
			case out <- it:
				return true
			case <-ctx.Done():
				return false
			}
		}

		go func() {
			defer close(in)
			for {
				v, ok, err := src.Next(ctx)
				if err != nil {
					send(item[O]{err: err})
					return
				}
				if !ok {
					return
				}
				select {
				case in <- v:
				case <-ctx.Done():
					return
				}
			}
		}()

		var wg sync.WaitGroup
		wg.Add(n)
		for range n {
			go func() {
				defer wg.Done()
				for v := range in {
					o, err := fn(ctx, v)
					if err != nil {
						send(item[O]{err: err})
						cancel()
						return
					}
					if !send(item[O]{val: o}) {
						return
					}
				}
			}()
		}
		go func() {
			wg.Wait()
			close(out)
		}()

		return &chanIter[O]{ch: out, stop: func() error {
			cancel()
			return src.Close()
		}}
	}}
}

type chanIter[T any] struct {
	ch   <-chan item[T]
	stop func() error
}

func (it *chanIter[T]) Next(ctx context.Context) (T, bool, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, false, err
	}
	select {
	case r, open := <-it.ch:
		if !open {
			return zero, false, nil
		}
		if r.err != nil {
			return zero, false, r.err
		}
		return r.val, true, nil
	case <-ctx.Done():
		return zero, false, ctx.Err()
	}
}

func (it *chanIter[T]) Close() error { return it.stop() }
