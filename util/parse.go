package util

import (
	"strings"

	"github.com/docker/go-units"
)

// ParseSize parses a binary size such as "1GB", "512kb" or "64MiB" into
// bytes. Empty or malformed input yields def.
func ParseSize(s string, def int64) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	n, err := units.RAMInBytes(s)
	if err != nil || n < 0 {
		return def
	}
	return n
}
