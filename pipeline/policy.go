package pipeline

import (
	"fmt"
	"strings"
)

// EmptyPolicy decides what a stage does when its upstream Get expires.
type EmptyPolicy int

const (
	// EmptyFail terminates the stage through its failure path.
	EmptyFail EmptyPolicy = iota
	// EmptyRetry ends the iteration without error and tries again.
	EmptyRetry
)

func (p EmptyPolicy) String() string {
	if p == EmptyRetry {
		return "retry"
	}
	return "fail"
}

// ParseEmptyPolicy parses "fail" or "retry".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail":
		return EmptyFail, nil
	case "retry":
		return EmptyRetry, nil
	default:
		return EmptyFail, fmt.Errorf("unknown empty policy %q", s)
	}
}
