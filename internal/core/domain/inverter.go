package domain

import (
	"time"

	"github.com/berfenger/saj2mqtt/pkg/saj"
)

type SensorDefinition struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	Text        bool   `json:"-"`
	PerDayBasis bool   `json:"per_day_basis,omitempty"`
	Monotonic   bool   `json:"monotonic,omitempty"`
}

type SensorReading struct {
	SensorDefinition
	Enabled bool       `json:"enabled"`
	Value   *saj.Value `json:"value"`
}

// InverterSnapshot is a copy of the coordinator state that can cross actor
// boundaries.
type InverterSnapshot struct {
	SerialNumber        string          `json:"serial_number,omitempty"`
	LastUpdateSuccess   bool            `json:"last_update_success"`
	LastSuccess         time.Time       `json:"last_success,omitempty"`
	ConsecutiveFailures uint32          `json:"consecutive_failures"`
	Sensors             []SensorReading `json:"sensors"`
}

type InverterInfo struct {
	Name             string             `json:"name"`
	Host             string             `json:"host"`
	Dialect          string             `json:"dialect"`
	Identity         saj.Identity       `json:"identity"`
	ConfigurationURL string             `json:"-"`
	Sensors          []SensorDefinition `json:"sensors"`
}

func NewSensorDefinition(s *saj.Sensor) SensorDefinition {
	return SensorDefinition{
		Key:         s.Key(),
		Name:        s.Name(),
		Unit:        s.Unit(),
		Text:        s.Kind() == saj.KindText,
		PerDayBasis: s.PerDayBasis(),
		Monotonic:   s.Monotonic(),
	}
}

func NewSensorReading(s *saj.Sensor) SensorReading {
	r := SensorReading{
		SensorDefinition: NewSensorDefinition(s),
		Enabled:          s.Enabled(),
	}
	if v, ok := s.Value(); ok {
		r.Value = &v
	}
	return r
}

func (s InverterSnapshot) Reading(name string) (SensorReading, bool) {
	for _, r := range s.Sensors {
		if r.Name == name || r.Key == name {
			return r, true
		}
	}
	return SensorReading{}, false
}
