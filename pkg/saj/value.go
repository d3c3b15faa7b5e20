package saj

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Value is either an exact decimal reading or a state label.
type Value struct {
	number decimal.Decimal
	text   string
	isText bool
}

func NumberValue(d decimal.Decimal) Value {
	return Value{number: d}
}

func TextValue(s string) Value {
	return Value{text: s, isText: true}
}

func (v Value) IsText() bool {
	return v.isText
}

func (v Value) Decimal() decimal.Decimal {
	return v.number
}

func (v Value) Float64() float64 {
	return v.number.InexactFloat64()
}

func (v Value) Text() string {
	if v.isText {
		return v.text
	}
	return v.number.String()
}

func (v Value) IsZero() bool {
	return !v.isText && v.number.IsZero()
}

// Decimals is the number of fractional digits carried by the reading's scale.
func (v Value) Decimals() uint {
	if v.isText {
		return 0
	}
	if exp := v.number.Exponent(); exp < 0 {
		return uint(-exp)
	}
	return 0
}

func (v Value) Equal(o Value) bool {
	if v.isText != o.isText {
		return false
	}
	if v.isText {
		return v.text == o.text
	}
	return v.number.Equal(o.number)
}

func (v Value) String() string {
	return v.Text()
}

// MarshalJSON writes numbers as JSON numbers at their exact scale and state
// labels as strings.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.isText {
		return json.Marshal(v.text)
	}
	return []byte(v.number.String()), nil
}
