package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE       = "bridge"
	STATE_CLASS_MEASUREMENT      = "measurement"
	STATE_CLASS_TOTAL_INCREASING = "total_increasing"
	DEVICE_CLASS_CURRENT         = "current"
	DEVICE_CLASS_DURATION        = "duration"
	DEVICE_CLASS_ENERGY          = "energy"
	DEVICE_CLASS_FREQUENCY       = "frequency"
	DEVICE_CLASS_POWER           = "power"
	DEVICE_CLASS_TEMPERATURE     = "temperature"
	DEVICE_CLASS_VOLTAGE         = "voltage"
	DEVICE_CLASS_WEIGHT          = "weight"
	DEVICE_CLASS_CONNECTIVITY    = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC      = "diagnostic"
	SENSOR_TYPE_SENSOR           = "sensor"
	SENSOR_TYPE_BINARY           = "binary_sensor"

	INVERTER_MANUFACTURER = "SAJ"
	INVERTER_DEVICE_NAME  = "SAJ Solar inverter"
)

var deviceClassByUnit = map[string]string{
	"W":   DEVICE_CLASS_POWER,
	"kWh": DEVICE_CLASS_ENERGY,
	"V":   DEVICE_CLASS_VOLTAGE,
	"A":   DEVICE_CLASS_CURRENT,
	"Hz":  DEVICE_CLASS_FREQUENCY,
	"°C":  DEVICE_CLASS_TEMPERATURE,
	"h":   DEVICE_CLASS_DURATION,
	"kg":  DEVICE_CLASS_WEIGHT,
}

var sensorIcons = map[string]string{
	"state":         "mdi:solar-power",
	"CO2_reduction": "mdi:molecule-co2",
}

func EntityName(inverterName string, def SensorDefinition) string {
	return fmt.Sprintf("%s %s", inverterName, def.Name)
}

func UniqueId(serial string, def SensorDefinition) string {
	return fmt.Sprintf("%s_%s", serial, def.Name)
}

func DeviceClass(def SensorDefinition) string {
	return deviceClassByUnit[def.Unit]
}

func StateClass(def SensorDefinition) string {
	switch {
	case def.Text:
		return ""
	case def.Monotonic || def.PerDayBasis:
		return STATE_CLASS_TOTAL_INCREASING
	default:
		return STATE_CLASS_MEASUREMENT
	}
}

// Available reports whether a reading should be shown. A monotonic counter
// that reads zero is a device glitch and is hidden instead of resetting the
// total.
func Available(lastUpdateSuccess bool, r SensorReading) bool {
	if !lastUpdateSuccess || !r.Enabled {
		return false
	}
	if !r.Monotonic {
		return true
	}
	return r.Value != nil && !r.Value.IsZero()
}

func InverterDevice(info InverterInfo) Device {
	return Device{
		Id:               fmt.Sprintf("saj_%s", info.Identity.SerialNumber),
		Name:             INVERTER_DEVICE_NAME,
		Manufacturer:     INVERTER_MANUFACTURER,
		Model:            info.Identity.Model,
		Version:          info.Identity.SoftwareVersion,
		ConfigurationURL: info.ConfigurationURL,
	}
}

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("saj2mqtt_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "saj2mqtt",
		Model:        "saj2mqtt bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("saj2mqtt %s", md5HashShort(baseTopic)),
	}
}

func InverterSensors(info InverterInfo) []GenericSensor {
	device := InverterDevice(info)
	sensors := make([]GenericSensor, 0, len(info.Sensors))
	for _, def := range info.Sensors {
		sensors = append(sensors, GenericSensor{
			Device:            device,
			Id:                def.Name,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              EntityName(info.Name, def),
			UniqueId:          UniqueId(info.Identity.SerialNumber, def),
			UnitOfMeasurement: def.Unit,
			StateClass:        StateClass(def),
			DeviceClass:       DeviceClass(def),
			Icon:              sensorIcons[def.Name],
			HasAvailability:   true,
		})
	}
	return sensors
}

func InverterButtons(info InverterInfo) []GenericButton {
	device := InverterDevice(info)
	return []GenericButton{
		{
			Device:   device,
			Id:       BUTTON_ID_REFRESH,
			Name:     fmt.Sprintf("%s refresh", info.Name),
			UniqueId: fmt.Sprintf("%s_%s", info.Identity.SerialNumber, BUTTON_ID_REFRESH),
			Icon:     "mdi:refresh",
		},
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {
	return []GenericSensor{
		{
			Device:         bridgeDevice,
			Id:             SENSOR_ID_BRIDGE_STATE,
			SensorType:     SENSOR_TYPE_BINARY,
			Name:           "Connection state",
			DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
			EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
			UniqueId:       fmt.Sprintf("uid_%s_%s", bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
		},
	}
}

func md5HashShort(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])[0:8]
}
