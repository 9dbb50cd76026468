package spec

import (
	"fmt"
	"strconv"
	"strings"
)

// Disk sizes use binary suffixes (K=2^10, M=2^20, G=2^30, T=2^40),
// matching Ganeti's own unit handling. A bare number is taken as
// megabytes, which is what RAPI expects on the wire.
var sizeSuffixes = map[byte]int64{
	'K': 1 << 10,
	'M': 1 << 20,
	'G': 1 << 30,
	'T': 1 << 40,
}

// ParseSize converts a human disk-size string such as "20G" or "512M"
// into a canonical byte count. A suffix-less value is megabytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	mult := int64(1 << 20)
	last := s[len(s)-1]
	if m, ok := sizeSuffixes[last]; ok {
		mult = m
		s = s[:len(s)-1]
	} else if last < '0' || last > '9' {
		return 0, fmt.Errorf("unknown size suffix %q", string(last))
	}

	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("size must be positive, got %d", n)
	}
	return n * mult, nil
}

// BytesToMB converts a canonical byte count to the megabyte value RAPI
// carries in disk parameters. Sizes below 1MB round up to 1.
func BytesToMB(b int64) int64 {
	mb := b >> 20
	if mb == 0 && b > 0 {
		return 1
	}
	return mb
}
