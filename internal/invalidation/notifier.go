// Package invalidation tells the rest of the store that a product page is
// stale after a cart mutation.
package invalidation

import (
	"context"

	"go.uber.org/zap"
)

// Notifier is fire-and-forget: failures are the notifier's to log.
type Notifier interface {
	Invalidate(ctx context.Context, path string)
}

// ProductPath is the page that shows a product's cart state.
func ProductPath(slug string) string {
	return "/products/" + slug
}

// LogNotifier only logs. It is used when no broker is configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Invalidate(_ context.Context, path string) {
	if n.Logger != nil {
		n.Logger.Debug("invalidate path", zap.String("path", path))
	}
}
