package auth

import (
	"context"

	"hackernews/errs"
)

type ctxKey struct{}

type caller struct {
	payload *AuthTokenPayload
	err     error
}

// WithHeader 解析请求头并将结果（身份或解析错误）放入 ctx。
// 请求头为空时 ctx 保持未认证状态，不算错误。
func WithHeader(ctx context.Context, d *Decoder, header string) context.Context {
	if header == "" {
		return ctx
	}
	payload, err := d.DecodeAuthHeader(header)
	return context.WithValue(ctx, ctxKey{}, caller{payload: payload, err: err})
}

// WithUser 直接放入已知身份
func WithUser(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, ctxKey{}, caller{payload: &AuthTokenPayload{UserID: userID}})
}

// UserID 返回调用者 id。未携带请求头返回 UNAUTHENTICATED，请求头无效返回解析时的错误。
func UserID(ctx context.Context) (uint, error) {
	c, ok := ctx.Value(ctxKey{}).(caller)
	if !ok {
		return 0, errs.Authentication("Not authenticated")
	}
	if c.err != nil {
		return 0, c.err
	}
	return c.payload.UserID, nil
}
