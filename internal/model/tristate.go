package model

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/rotisserie/eris"
)

// TriState is a decision that may not have been made yet. The zero value is
// Pending, which is distinct from False.
type TriState int8

const (
	Pending TriState = iota
	True
	False
)

// FromBool converts a decided boolean to a TriState.
func FromBool(b bool) TriState {
	if b {
		return True
	}
	return False
}

// FromBoolPtr converts a nullable boolean; nil maps to Pending.
func FromBoolPtr(b *bool) TriState {
	if b == nil {
		return Pending
	}
	return FromBool(*b)
}

// Bool returns the decided value and whether a decision exists.
func (t TriState) Bool() (value bool, ok bool) {
	switch t {
	case True:
		return true, true
	case False:
		return false, true
	default:
		return false, false
	}
}

// IsPending reports whether no decision has been recorded.
func (t TriState) IsPending() bool { return t != True && t != False }

func (t TriState) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "pending"
	}
}

// ParseTriState accepts "true", "false", "pending" and "" (pending).
func ParseTriState(s string) (TriState, error) {
	switch s {
	case "true":
		return True, nil
	case "false":
		return False, nil
	case "", "pending", "null":
		return Pending, nil
	}
	return Pending, eris.Errorf("model: invalid tri-state %q", s)
}

func (t TriState) MarshalJSON() ([]byte, error) {
	if v, ok := t.Bool(); ok {
		return json.Marshal(v)
	}
	return []byte("null"), nil
}

func (t *TriState) UnmarshalJSON(data []byte) error {
	var b *bool
	if err := json.Unmarshal(data, &b); err != nil {
		return eris.Wrap(err, "model: tri-state")
	}
	*t = FromBoolPtr(b)
	return nil
}

// Value stores Pending as SQL NULL.
func (t TriState) Value() (driver.Value, error) {
	if v, ok := t.Bool(); ok {
		return v, nil
	}
	return nil, nil
}

// Scan accepts NULL, booleans, and the 0/1 integers SQLite hands back.
func (t *TriState) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*t = Pending
	case bool:
		*t = FromBool(v)
	case int64:
		*t = FromBool(v != 0)
	case int:
		*t = FromBool(v != 0)
	case []byte:
		return t.scanString(string(v))
	case string:
		return t.scanString(v)
	default:
		return eris.Errorf("model: cannot scan %T into TriState", src)
	}
	return nil
}

func (t *TriState) scanString(s string) error {
	switch s {
	case "1", "t", "true", "TRUE":
		*t = True
	case "0", "f", "false", "FALSE":
		*t = False
	case "":
		*t = Pending
	default:
		return eris.Errorf("model: cannot scan %q into TriState", s)
	}
	return nil
}
