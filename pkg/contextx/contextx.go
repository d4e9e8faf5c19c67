// Package contextx 提供跨层传递事务句柄的 context 工具
package contextx

import "context"

type txKey struct{}

// WithTx 将事务句柄放入 context
func WithTx(ctx context.Context, tx any) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// GetTx 从 context 中取出事务句柄，不存在时返回 nil
func GetTx(ctx context.Context) any {
	return ctx.Value(txKey{})
}
