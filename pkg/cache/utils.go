package cache

import (
	"fmt"
	"strings"
)

// GenerateKey joins a prefix and id into a cache key.
func GenerateKey(prefix, id string) string {
	return prefix + ":" + id
}

// GenerateKeyWithParams builds a cache key from a prefix and any number
// of parameters, "report:cpu.load:1h:168" style.
func GenerateKeyWithParams(prefix string, params ...any) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, p := range params {
		fmt.Fprintf(&b, ":%v", p)
	}
	return b.String()
}

// BuildPattern turns a key prefix into a match-all pattern for
// DeleteByPattern.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
