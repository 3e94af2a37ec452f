package msq

import (
	"fmt"
	"strconv"
	"strings"

	"binharness/pkg/contract"
)

// ParseTiles 解析逗号分隔的格子值；"_" 或空项表示空格。
func ParseTiles(s string) ([]*int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]*int, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || p == Blank {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("%w: tile %d: %q", contract.ErrInvalidArgument, i, p)
		}
		out[i] = &v
	}
	return out, nil
}

// ParseLocks 解析 0/1 串；空串按 n 个未锁定处理。
func ParseLocks(s string, n int) ([]bool, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return make([]bool, n), nil
	}
	out := make([]bool, len(s))
	for i, r := range s {
		switch r {
		case '0':
		case '1':
			out[i] = true
		default:
			return nil, fmt.Errorf("%w: lock %d: %q", contract.ErrInvalidArgument, i, r)
		}
	}
	return out, nil
}
