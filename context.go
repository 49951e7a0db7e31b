package ftpkit

import (
	"context"
	"time"
)

// contextWithOptionalTimeout applies d as a deadline on ctx when d is
// positive; otherwise it returns ctx unchanged with a no-op cancel.
func contextWithOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
