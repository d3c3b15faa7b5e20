package saj

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const NoColumn = -1

type layout int

const (
	layoutShort layout = iota
	layoutLong
	layoutCount
)

// Locator tells where a sensor's raw field lives. Ethernet documents are
// addressed by element name, wifi records by column index, one per status
// layout.
type Locator struct {
	Element string
	Columns [layoutCount]int
}

var NoLocator = Locator{Columns: [layoutCount]int{NoColumn, NoColumn}}

func ElementLocator(element string) Locator {
	return Locator{
		Element: element,
		Columns: [layoutCount]int{NoColumn, NoColumn},
	}
}

func ColumnLocator(short, long int) Locator {
	return Locator{
		Columns: [layoutCount]int{short, long},
	}
}

func (l Locator) String() string {
	if l.Element != "" {
		return l.Element
	}
	return fmt.Sprintf("col[%d,%d]", l.Columns[layoutShort], l.Columns[layoutLong])
}

// Transform is a power-of-ten divisor applied to a raw reading.
type Transform int32

const (
	Unscaled Transform = 0
	Div10    Transform = 1
	Div100   Transform = 2
)

func (t Transform) Apply(raw decimal.Decimal) decimal.Decimal {
	if t == Unscaled {
		return raw
	}
	return raw.Shift(-int32(t))
}

func (t Transform) String() string {
	switch t {
	case Unscaled:
		return ""
	case Div10:
		return "/10"
	case Div100:
		return "/100"
	default:
		return fmt.Sprintf("/1e%d", int32(t))
	}
}

type Range struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

func (r Range) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(r.Min) && v.LessThanOrEqual(r.Max)
}

type Kind int

const (
	KindNumber Kind = iota
	KindText
)

// Sensor is one telemetry channel. Everything but the value and the enabled
// flag is fixed at construction.
type Sensor struct {
	key         string
	name        string
	unit        string
	locator     Locator
	transform   Transform
	bounds      *Range
	states      map[int64]string
	kind        Kind
	perDayBasis bool
	monotonic   bool

	value   *Value
	enabled bool
}

type SensorOption func(*Sensor)

func WithTransform(t Transform) SensorOption {
	return func(s *Sensor) {
		s.transform = t
	}
}

func WithRange(min, max int64) SensorOption {
	return func(s *Sensor) {
		s.bounds = &Range{Min: decimal.NewFromInt(min), Max: decimal.NewFromInt(max)}
	}
}

// WithStates maps integer codes to state labels.
func WithStates(states map[int64]string) SensorOption {
	return func(s *Sensor) {
		s.states = states
		s.kind = KindText
	}
}

func AsText() SensorOption {
	return func(s *Sensor) {
		s.kind = KindText
	}
}

func PerDayBasis() SensorOption {
	return func(s *Sensor) {
		s.perDayBasis = true
	}
}

func Monotonic() SensorOption {
	return func(s *Sensor) {
		s.monotonic = true
	}
}

func NewSensor(key, name, unit string, locator Locator, opts ...SensorOption) *Sensor {
	s := &Sensor{
		key:     key,
		name:    name,
		unit:    unit,
		locator: locator,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sensor) Key() string          { return s.key }
func (s *Sensor) Name() string         { return s.name }
func (s *Sensor) Unit() string         { return s.unit }
func (s *Sensor) Locator() Locator     { return s.locator }
func (s *Sensor) Transform() Transform { return s.transform }
func (s *Sensor) Kind() Kind           { return s.kind }
func (s *Sensor) PerDayBasis() bool    { return s.perDayBasis }
func (s *Sensor) Monotonic() bool      { return s.monotonic }
func (s *Sensor) Enabled() bool        { return s.enabled }

// Value returns the last scaled reading. ok is false when the sensor has
// never been read or its last read was invalid.
func (s *Sensor) Value() (v Value, ok bool) {
	if s.value == nil {
		return Value{}, false
	}
	return *s.value, true
}

// Set stores a reading and enables the sensor.
func (s *Sensor) Set(v Value) {
	s.value = &v
	s.enabled = true
}

// Disable clears the reading.
func (s *Sensor) Disable() {
	s.value = nil
	s.enabled = false
}

func (s *Sensor) String() string {
	if v, ok := s.Value(); ok {
		return fmt.Sprintf("%s:%s", s.name, v)
	}
	return fmt.Sprintf("%s:none", s.name)
}

func (s *Sensor) update(p Payload) error {
	v, err := s.decode(p)
	if err != nil {
		s.Disable()
		return err
	}
	s.Set(v)
	return nil
}

func (s *Sensor) decode(p Payload) (Value, error) {
	raw, ok := p.Field(s.locator)
	if !ok || raw == "" {
		return Value{}, fmt.Errorf("%w: %s (%s) not present", ErrField, s.key, s.locator)
	}
	if s.kind == KindText && s.states == nil {
		return TextValue(raw), nil
	}

	n, err := p.Number(raw)
	if err != nil {
		return Value{}, fmt.Errorf("%w: %s: %v", ErrField, s.key, err)
	}

	if s.states != nil {
		if !n.IsInteger() {
			return Value{}, fmt.Errorf("%w: %s: state code %s is not an integer", ErrField, s.key, n)
		}
		label, ok := s.states[n.IntPart()]
		if !ok {
			return Value{}, fmt.Errorf("%w: %s: unknown state code %s", ErrField, s.key, n)
		}
		return TextValue(label), nil
	}

	n = s.transform.Apply(n)
	if s.bounds != nil && !s.bounds.Contains(n) {
		return Value{}, fmt.Errorf("%w: %s: %s out of range [%s, %s]", ErrField, s.key, n, s.bounds.Min, s.bounds.Max)
	}
	return NumberValue(n), nil
}
