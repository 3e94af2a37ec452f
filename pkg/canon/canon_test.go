package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	got := String("HEB72_TRIPLET_GRID", "bin_harness_384", "TRIPLET", "  א-ב-ג \n", "v1")
	assert.Equal(t, "CANON|v1|HEB72_TRIPLET_GRID|bin_harness_384|TRIPLET|א-ב-ג", got)
}

// 全角/兼容字符应与其 NFKC 形式折叠为同一规范串。
func TestNormalizeCollapsesCompatibilityForms(t *testing.T) {
	assert.Equal(t, "ABC-1", Normalize("\tＡＢＣ-１ "))
	assert.Equal(t, "fi", Normalize("ﬁ"))
	// 组合字符序列与预组字符一致。
	assert.Equal(t, "\u00e9", Normalize("e\u0301"))

	a := String("D", "s", "T", "ＡＢＣ", "v1")
	b := String("D", "s", "T", " ABC", "v1")
	assert.Equal(t, a, b)
}

// 非 payload 字段不做归一。
func TestOnlyPayloadIsNormalized(t *testing.T) {
	got := String(" D ", "s", "T", "x", "v1")
	assert.Equal(t, "CANON|v1| D |s|T|x", got)
}
