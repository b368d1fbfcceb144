package testutil

import "context"

type ctxKey int

const (
	bodyKey ctxKey = iota
	tokenKey
)

func withBody(ctx context.Context, body []byte) context.Context {
	return context.WithValue(ctx, bodyKey, body)
}

func bodyFrom(ctx context.Context) []byte {
	b, _ := ctx.Value(bodyKey).([]byte)
	return b
}

func withToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func tokenFrom(ctx context.Context) string {
	t, _ := ctx.Value(tokenKey).(string)
	return t
}
