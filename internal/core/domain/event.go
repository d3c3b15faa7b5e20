package domain

// SensorUpdateEvent is published on the event stream for the mqtt actor.
// Retained events describe a state that must survive a Home Assistant restart.
type SensorUpdateEvent interface {
	SensorId() string
	Retained() bool
}

type SensorUpdateEventMixIn struct {
	Id string
}

func (e SensorUpdateEventMixIn) SensorId() string {
	return e.Id
}

func (e SensorUpdateEventMixIn) Retained() bool {
	return false
}

// FloatSensorUpdateEvent carries a numeric reading; Decimals is the scale the
// inverter reported it with.
type FloatSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value    float64
	Decimals uint
}

type TextSensorUpdateEvent struct {
	SensorUpdateEventMixIn
	Value string
}

type BridgeStateUpdateEvent struct {
	SensorUpdateEventMixIn
	Value bool
}

func (e BridgeStateUpdateEvent) Retained() bool {
	return true
}

type SensorAvailabilityUpdateEvent struct {
	SensorUpdateEventMixIn
	Available bool
}

func (e SensorAvailabilityUpdateEvent) Retained() bool {
	return true
}
