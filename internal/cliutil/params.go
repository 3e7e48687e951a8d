package cliutil

import (
	"fmt"
	"sort"
	"strings"
)

// Assignments collects repeated name=value flags, keyed by lower-case name.
type Assignments map[string]string

// String implements flag.Value.
func (a Assignments) String() string {
	parts := make([]string, 0, len(a))
	for k, v := range a {
		parts = append(parts, k+"="+v)
	}

	sort.Strings(parts)

	return strings.Join(parts, ",")
}

// Set implements flag.Value. Later assignments to a name win.
func (a Assignments) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)

	if !ok || name == "" {
		return fmt.Errorf("expected name=value: %q", s)
	}

	a[strings.ToLower(name)] = strings.TrimSpace(value)

	return nil
}
