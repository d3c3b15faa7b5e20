package events

import (
	. "github.com/berfenger/saj2mqtt/internal/core/domain"
)

// SnapshotToUpdateEvents turns a read result into availability events for every
// sensor and value events for the enabled ones.
func SnapshotToUpdateEvents(snapshot InverterSnapshot) []any {
	events := make([]any, 0, 2*len(snapshot.Sensors))
	for _, r := range snapshot.Sensors {
		events = append(events, SensorAvailabilityUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: r.Name,
			},
			Available: Available(snapshot.LastUpdateSuccess, r),
		})
		if ev := ReadingToUpdateEvent(r); ev != nil {
			events = append(events, ev)
		}
	}
	return events
}

// ReadingToUpdateEvent returns nil for disabled sensors.
func ReadingToUpdateEvent(r SensorReading) any {
	if !r.Enabled || r.Value == nil {
		return nil
	}
	if r.Value.IsText() {
		return TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: r.Name,
			},
			Value: r.Value.Text(),
		}
	}
	return FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: r.Name,
		},
		Value:    r.Value.Float64(),
		Decimals: r.Value.Decimals(),
	}
}

// UnavailableEvents marks every sensor of the inverter unavailable.
func UnavailableEvents(sensors []SensorDefinition) []any {
	events := make([]any, 0, len(sensors))
	for _, def := range sensors {
		events = append(events, SensorAvailabilityUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: def.Name,
			},
			Available: false,
		})
	}
	return events
}

func BridgeStateEvent(online bool) BridgeStateUpdateEvent {
	return BridgeStateUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_BRIDGE_STATE,
		},
		Value: online,
	}
}
