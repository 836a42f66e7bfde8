package processor

import (
	"context"

	"github.com/fxsml/fop/fop"
	"github.com/fxsml/fop/middleware"
)

// Middleware is the fop specialization of the generic middleware shape:
// a wrapper around a per-item 1→N transform.
type Middleware = middleware.Middleware[fop.Fop, fop.Fop]

// Wrap applies middleware to p's ProcessOne, outermost first: Wrap(p, a, b)
// runs a around b around p. The wrapped value keeps p's name, so error
// attribution still points at the underlying stage.
func Wrap(p Processor, mw ...Middleware) Processor {
	fn := middleware.ProcessFunc[fop.Fop, fop.Fop](p.ProcessOne)
	for i := len(mw) - 1; i >= 0; i-- {
		fn = mw[i](fn)
	}
	return wrapped{name: p.Name(), fn: fn}
}

type wrapped struct {
	name string
	fn   middleware.ProcessFunc[fop.Fop, fop.Fop]
}

func (w wrapped) Name() string { return w.name }

func (w wrapped) ProcessOne(ctx context.Context, f fop.Fop) ([]fop.Fop, error) {
	return w.fn(ctx, f)
}
