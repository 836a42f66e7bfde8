// Package middleware provides composable wrappers around the per-item
// transform at the heart of every pipeline stage: panic recovery, retry
// with backoff, per-call timeouts, context management, metadata
// enrichment, metrics collection, and outcome logging.
//
// The wrappers are generic over the item types so they compose with any
// ProcessFunc-shaped transform; the pipeline recipes specialize them to
// fop-to-fop stages and apply a standard stack around every processor.
package middleware

import "context"

// ProcessFunc is the transform shape every wrapper composes around: one
// input in, zero or more outputs or an error out.
type ProcessFunc[In, Out any] func(context.Context, In) ([]Out, error)

// Middleware wraps a ProcessFunc with additional behavior.
type Middleware[In, Out any] func(ProcessFunc[In, Out]) ProcessFunc[In, Out]
