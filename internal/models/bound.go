package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Bound is one of the two travel directions of a route.
type Bound string

const (
	Outbound Bound = "outbound"
	Inbound  Bound = "inbound"
)

// ParseBound accepts the path form ("outbound"/"inbound"), the single-letter
// form the upstream uses inside payloads ("O"/"I"), and the upper-case enum names.
func ParseBound(s string) (Bound, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "outbound", "o":
		return Outbound, nil
	case "inbound", "i":
		return Inbound, nil
	}
	return "", fmt.Errorf("unknown bound %q", s)
}

// Opposite returns the other direction.
func (b Bound) Opposite() Bound {
	if b == Inbound {
		return Outbound
	}
	return Inbound
}

// Code is the single-letter upstream form.
func (b Bound) Code() string {
	if b == Inbound {
		return "I"
	}
	return "O"
}

func (b Bound) Valid() bool {
	return b == Outbound || b == Inbound
}

func (b Bound) String() string {
	return string(b)
}

func (b *Bound) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("bound must be a string: %w", err)
	}
	parsed, err := ParseBound(s)
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}
