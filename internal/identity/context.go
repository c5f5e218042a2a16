package identity

import "context"

type ctxKey int

const (
	sessionTokenKey ctxKey = iota
	userIDKey
)

func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenKey, token)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// ContextSource reads the values placed on the request context by the HTTP
// middleware. It implements both SessionSource and AuthSource.
type ContextSource struct{}

func (ContextSource) SessionToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(sessionTokenKey).(string)
	return token, ok && token != ""
}

func (ContextSource) UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
