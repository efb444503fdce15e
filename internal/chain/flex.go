package chain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Flex captures a raw provider field that may arrive as a JSON string, a
// JSON number or null. Objects, arrays and booleans fail to decode, which
// drops the enclosing record.
type Flex struct {
	text    string
	present bool
}

// FlexOf builds a present Flex holding s.
func FlexOf(s string) Flex {
	return Flex{text: s, present: true}
}

func (f *Flex) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		*f = Flex{}
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = Flex{text: strings.TrimSpace(s), present: true}
		return nil
	case b[0] == '-' || (b[0] >= '0' && b[0] <= '9'):
		*f = Flex{text: string(b), present: true}
		return nil
	default:
		return fmt.Errorf("unsupported JSON value %s", b)
	}
}

// Empty reports whether the field was absent, null or blank.
func (f Flex) Empty() bool {
	return !f.present || f.text == ""
}

func (f Flex) String() string {
	return f.text
}

// Decimal parses the field, defaulting to zero when empty.
func (f Flex) Decimal() (decimal.Decimal, error) {
	if f.Empty() {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(f.text)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing decimal %q: %w", f.text, err)
	}
	return d, nil
}

// Count parses a whole-number field, defaulting to zero when empty.
func (f Flex) Count() (int64, error) {
	d, err := f.Decimal()
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("expected whole number, got %q", f.text)
	}
	return d.IntPart(), nil
}
