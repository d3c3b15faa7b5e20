package domain

type Device struct {
	Id               string
	Name             string
	Version          string
	Model            string
	Manufacturer     string
	ViaDevice        string
	ConfigurationURL string
}

type GenericSensor struct {
	Device            Device
	Id                string
	SensorType        string
	Name              string
	UniqueId          string
	UnitOfMeasurement string
	StateClass        string // measurement, total_increasing
	DeviceClass       string // voltage, current, power, energy...
	EntityCategory    string // diagnostic, config, nil
	EnabledByDefault  *bool
	Icon              string
	Decimals          *uint
	// sensors with their own availability topic on top of the bridge state
	HasAvailability bool
}

type GenericButton struct {
	Device   Device
	Id       string
	Name     string
	UniqueId string
	Icon     string
}
