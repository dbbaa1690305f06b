package dram

import (
	"fmt"
	"strings"
)

// PagePolicy decides whether a row stays open after an access.
type PagePolicy int

const (
	// OpenPage keeps the accessed row latched in the bank's row buffer.
	OpenPage PagePolicy = iota
	// ClosePage precharges the bank after every access.
	ClosePage
)

// String returns the canonical policy name.
func (p PagePolicy) String() string {
	switch p {
	case OpenPage:
		return "open"
	case ClosePage:
		return "close"
	default:
		return fmt.Sprintf("PagePolicy(%d)", int(p))
	}
}

// Valid reports whether p is a known policy.
func (p PagePolicy) Valid() bool {
	return p == OpenPage || p == ClosePage
}

// ParsePagePolicy converts a policy name into a PagePolicy.
func ParsePagePolicy(name string) (PagePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "open", "open_page", "0":
		return OpenPage, nil
	case "close", "closed", "close_page", "1":
		return ClosePage, nil
	default:
		return 0, fmt.Errorf("%w: unknown page policy %q", ErrInvalidConfig, name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p PagePolicy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("%w: unknown page policy %d", ErrInvalidConfig, int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *PagePolicy) UnmarshalText(text []byte) error {
	parsed, err := ParsePagePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
