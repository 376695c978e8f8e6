package provider

// Middleware wraps a RequestResponse provider with extra behavior.
type Middleware[I, O any] func(RequestResponse[I, O]) RequestResponse[I, O]

// Chain composes middlewares so the first one listed is outermost:
// Chain(a, b, c)(p) == a(b(c(p))).
func Chain[I, O any](mws ...Middleware[I, O]) Middleware[I, O] {
	return func(p RequestResponse[I, O]) RequestResponse[I, O] {
		for i := len(mws) - 1; i >= 0; i-- {
			p = mws[i](p)
		}
		return p
	}
}
