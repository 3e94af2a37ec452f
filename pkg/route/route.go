// Package route 将规范字符串哈希并归约到固定数量的 bin。
package route

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"

	"binharness/pkg/contract"
)

// SHA256Hex 返回 s 的 UTF-8 字节的 SHA-256 十六进制摘要（小写）。
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Bin 返回摘要 hexID（按大端无符号整数解释）对 nBins 取模的结果。
func Bin(hexID string, nBins int) (int, error) {
	if nBins <= 0 {
		return 0, fmt.Errorf("%w: n_bins must be > 0, got %d", contract.ErrInvalidArgument, nBins)
	}
	v, ok := new(big.Int).SetString(hexID, 16)
	if !ok || v.Sign() < 0 {
		return 0, fmt.Errorf("%w: identifier %q is not hex", contract.ErrInvalidArgument, hexID)
	}
	return int(v.Mod(v, big.NewInt(int64(nBins))).Int64()), nil
}

// Route 计算 (identifier, bin)。无内部状态，可并发调用。
func Route(canon string, nBins int) (string, int, error) {
	id := SHA256Hex(canon)
	bin, err := Bin(id, nBins)
	if err != nil {
		return "", 0, err
	}
	return id, bin, nil
}
