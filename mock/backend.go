// Package mock provides test doubles for repochat interfaces using function
// fields.
package mock

import (
	"context"

	"repochat"
)

// Interface compliance check.
var _ repochat.Backend = (*Backend)(nil)

// Backend is a test double for repochat.Backend.
// Set SendFn before calling Send.
type Backend struct {
	SendFn func(ctx context.Context, req repochat.Request) (repochat.Stream, error)
}

// Send delegates to SendFn.
func (b *Backend) Send(ctx context.Context, req repochat.Request) (repochat.Stream, error) {
	return b.SendFn(ctx, req)
}
