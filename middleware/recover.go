package middleware

import (
	"context"
	"fmt"
	"runtime/debug"
)

// RecoveryError carries a recovered panic value and the stack trace at
// the point of panic, so a panicking stage surfaces as an attached fop
// error instead of tearing down the whole pipeline.
type RecoveryError struct {
	// PanicValue is the original value that was passed to panic().
	PanicValue any
	// StackTrace is the goroutine stack captured at recovery time.
	StackTrace string
}

func (e *RecoveryError) Error() string {
	return fmt.Sprintf("panic recovered: %v", e.PanicValue)
}

// Recover converts a panic inside the wrapped transform into a returned
// *RecoveryError. It is the outermost wrapper in the standard stack, so
// even a panic in another middleware is caught.
func Recover[In, Out any]() Middleware[In, Out] {
	return func(next ProcessFunc[In, Out]) ProcessFunc[In, Out] {
		return func(ctx context.Context, in In) (out []Out, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &RecoveryError{
						PanicValue: r,
						StackTrace: string(debug.Stack()),
					}
				}
			}()
			return next(ctx, in)
		}
	}
}
