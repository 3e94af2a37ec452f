// Package canon 构造单元的规范字符串（哈希输入）。
//
// 格式："CANON|<version>|<dataset_id>|<script>|<unit_type>|<payload>"。
// 仅 payload 做去首尾空白 + NFKC 归一；其余字段由调用方保证已是干净标识。
package canon

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Tag 为规范字符串的固定前缀。
const Tag = "CANON"

// Delim 为字段分隔符。
const Delim = "|"

// Normalize 去首尾空白后做 NFKC 归一。
func Normalize(s string) string {
	return norm.NFKC.String(strings.TrimSpace(s))
}

// String 按固定顺序拼接规范字符串。
func String(datasetID, script, unitType, payload, version string) string {
	var b strings.Builder
	p := Normalize(payload)
	b.Grow(len(Tag) + len(version) + len(datasetID) + len(script) + len(unitType) + len(p) + 5*len(Delim))
	b.WriteString(Tag)
	for _, f := range [...]string{version, datasetID, script, unitType, p} {
		b.WriteString(Delim)
		b.WriteString(f)
	}
	return b.String()
}
