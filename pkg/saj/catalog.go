package saj

import (
	"errors"
	"iter"
)

const (
	SensorCurrentPower  = "current_power"
	SensorTodayYield    = "today_yield"
	SensorTotalYield    = "total_yield"
	SensorTodayTime     = "today_time"
	SensorTotalTime     = "total_time"
	SensorPV1Voltage    = "pv1_voltage"
	SensorPV1Current    = "pv1_current"
	SensorPV2Voltage    = "pv2_voltage"
	SensorPV2Current    = "pv2_current"
	SensorGridVoltage   = "grid_voltage"
	SensorGridCurrent   = "grid_current"
	SensorGridFrequency = "grid_frequency"
	SensorTemperature   = "temperature"
	SensorCO2Reduction  = "CO2_reduction"
	SensorState         = "state"
)

var wifiStates = map[int64]string{
	0: "Not connected",
	1: "Waiting",
	2: "Normal",
	3: "Error",
	4: "Upgrading",
}

// Catalog is the ordered set of sensors for one dialect. It is not safe for
// concurrent use; a single owner applies updates.
type Catalog struct {
	dialect Dialect
	sensors []*Sensor
	index   map[string]*Sensor
}

func NewCatalog(dialect Dialect) *Catalog {
	var sensors []*Sensor
	if dialect == WiFi {
		sensors = wifiSensors()
	} else {
		sensors = ethernetSensors()
	}
	c := &Catalog{
		dialect: dialect,
		sensors: sensors,
		index:   make(map[string]*Sensor, len(sensors)),
	}
	for _, s := range sensors {
		c.index[s.key] = s
		c.index[s.name] = s
	}
	return c
}

func ethernetSensors() []*Sensor {
	return []*Sensor{
		NewSensor("p-ac", SensorCurrentPower, "W", ElementLocator("p-ac")),
		NewSensor("e-today", SensorTodayYield, "kWh", ElementLocator("e-today"), PerDayBasis()),
		NewSensor("e-total", SensorTotalYield, "kWh", ElementLocator("e-total"), Monotonic()),
		NewSensor("h-today", SensorTodayTime, "h", ElementLocator("t-today"), PerDayBasis()),
		NewSensor("h-total", SensorTotalTime, "h", ElementLocator("t-total"), Monotonic()),
		NewSensor("v-pv1", SensorPV1Voltage, "V", ElementLocator("v-pv1")),
		NewSensor("i-pv1", SensorPV1Current, "A", ElementLocator("i-pv1")),
		NewSensor("v-pv2", SensorPV2Voltage, "V", ElementLocator("v-pv2")),
		NewSensor("i-pv2", SensorPV2Current, "A", ElementLocator("i-pv2")),
		NewSensor("v-grid", SensorGridVoltage, "V", ElementLocator("v-grid")),
		NewSensor("i-grid", SensorGridCurrent, "A", ElementLocator("i-grid")),
		NewSensor("f-grid", SensorGridFrequency, "Hz", ElementLocator("f-grid"), WithRange(0, 100)),
		NewSensor("temp", SensorTemperature, "°C", ElementLocator("temp"), WithRange(-50, 150)),
		NewSensor("CO2", SensorCO2Reduction, "kg", ElementLocator("CO2")),
		NewSensor("state", SensorState, "", ElementLocator("state"), AsText()),
	}
}

func wifiSensors() []*Sensor {
	return []*Sensor{
		NewSensor("p-ac", SensorCurrentPower, "W", ColumnLocator(11, 23)),
		NewSensor("e-today", SensorTodayYield, "kWh", ColumnLocator(3, 3), WithTransform(Div100), PerDayBasis()),
		NewSensor("e-total", SensorTotalYield, "kWh", ColumnLocator(1, 1), WithTransform(Div100), Monotonic()),
		NewSensor("h-today", SensorTodayTime, "h", ColumnLocator(4, 4), PerDayBasis()),
		NewSensor("h-total", SensorTotalTime, "h", ColumnLocator(2, 2), Monotonic()),
		NewSensor("v-pv1", SensorPV1Voltage, "V", NoLocator),
		NewSensor("i-pv1", SensorPV1Current, "A", NoLocator),
		NewSensor("v-pv2", SensorPV2Voltage, "V", NoLocator),
		NewSensor("i-pv2", SensorPV2Current, "A", NoLocator),
		NewSensor("v-grid", SensorGridVoltage, "V", ColumnLocator(9, 21), WithTransform(Div10)),
		NewSensor("i-grid", SensorGridCurrent, "A", NoLocator),
		NewSensor("f-grid", SensorGridFrequency, "Hz", NoLocator, WithRange(0, 100)),
		NewSensor("temp", SensorTemperature, "°C", ColumnLocator(20, 32), WithTransform(Div10), WithRange(-50, 150)),
		NewSensor("CO2", SensorCO2Reduction, "kg", ColumnLocator(21, 33), WithTransform(Div10)),
		NewSensor("state", SensorState, "", ColumnLocator(22, 34), WithStates(wifiStates)),
	}
}

func (c *Catalog) Dialect() Dialect {
	return c.dialect
}

func (c *Catalog) Len() int {
	return len(c.sensors)
}

// Sensors yields every definition in display order. The sequence can be
// ranged over any number of times.
func (c *Catalog) Sensors() iter.Seq[*Sensor] {
	return func(yield func(*Sensor) bool) {
		for _, s := range c.sensors {
			if !yield(s) {
				return
			}
		}
	}
}

func (c *Catalog) EnabledSensors() iter.Seq[*Sensor] {
	return func(yield func(*Sensor) bool) {
		for _, s := range c.sensors {
			if s.enabled && !yield(s) {
				return
			}
		}
	}
}

func (c *Catalog) EnabledCount() int {
	n := 0
	for range c.EnabledSensors() {
		n++
	}
	return n
}

// Sensor looks a definition up by key or by name.
func (c *Catalog) Sensor(keyOrName string) (*Sensor, bool) {
	s, ok := c.index[keyOrName]
	return s, ok
}

// ApplyUpdate decodes every sensor from the payload and returns the number of
// sensors left enabled. Per-field failures are joined into the returned error;
// they disable only the failing sensor.
func (c *Catalog) ApplyUpdate(p Payload) (int, error) {
	enabled := 0
	var errs []error
	for _, s := range c.sensors {
		if err := s.update(p); err != nil {
			errs = append(errs, err)
			continue
		}
		enabled++
	}
	return enabled, errors.Join(errs...)
}
