package contract

import (
	"context"
	"io"
)

// ArtifactID: 持久化工件标识（规范化后的文件路径）。
type ArtifactID string

// Writer: 覆盖写整份工件（"latest" 快照）。
// 约束：
//  1. 同一 ArtifactID 单写者；不对读者做并发保护；
//  2. 按字节透传，不读取/修改业务内容；
//  3. 错误直接上抛（不做重试/回退）。
type Writer interface {
	Write(ctx context.Context, id ArtifactID, r io.Reader) error
}

// Appender: 追加写单行到只追加日志。
// 约束：跨进程写者必须按路径互斥，整行写入，不得交错出半行。
type Appender interface {
	Append(ctx context.Context, id ArtifactID, line []byte) error
}
