package contract

import "context"

// Source: payload 生成器（exhaustive/random/file）。
// 约束：
// 1) 惰性、有限、顺序确定；
// 2) 每个 payload 只调用一次 yield；yield 返回错误时立即停止并上抛；
// 3) 不在内部起并发。
type Source interface {
	Iterate(ctx context.Context, yield func(payload string) error) error
}

// SourceFunc 将普通函数适配为 Source。
type SourceFunc func(ctx context.Context, yield func(payload string) error) error

func (f SourceFunc) Iterate(ctx context.Context, yield func(payload string) error) error {
	return f(ctx, yield)
}
