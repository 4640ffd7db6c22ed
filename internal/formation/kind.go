package formation

import (
	"errors"
	"fmt"
)

// ErrUnknownFormation is returned by ParseKind for names outside the closed set.
var ErrUnknownFormation = errors.New("unknown formation")

// Kind is the closed set of target shapes.
type Kind int

const (
	// None is the rest formation: every particle returns to its original position.
	None Kind = iota
	Heart
	// Love spells out LoveText.
	Love
	Scatter
	Gather
)

// LoveText is the string rendered by the Love formation.
const LoveText = "I LOVE YOU"

var kindNames = [...]string{
	None:    "none",
	Heart:   "heart",
	Love:    "love",
	Scatter: "scatter",
	Gather:  "gather",
}

var kindLabels = [...]string{
	None:    "None",
	Heart:   "Heart",
	Love:    "I LOVE YOU",
	Scatter: "Scatter",
	Gather:  "Gather",
}

// Kinds lists every formation in declaration order.
func Kinds() []Kind {
	return []Kind{None, Heart, Love, Scatter, Gather}
}

// String returns the lowercase identifier used on the wire.
func (k Kind) String() string {
	if !k.valid() {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Label returns the human readable name shown in status displays.
func (k Kind) Label() string {
	if !k.valid() {
		return k.String()
	}
	return kindLabels[k]
}

// Active reports whether k is a named shape rather than rest.
func (k Kind) Active() bool {
	return k != None
}

func (k Kind) valid() bool {
	return k >= None && int(k) < len(kindNames)
}

// ParseKind maps a wire identifier to a Kind. The empty string is rest.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return None, nil
	}
	for i, name := range kindNames {
		if name == s {
			return Kind(i), nil
		}
	}
	return None, fmt.Errorf("%q: %w", s, ErrUnknownFormation)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, fmt.Errorf("%d: %w", int(k), ErrUnknownFormation)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
