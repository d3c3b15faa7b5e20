package port

import (
	"context"

	"github.com/berfenger/saj2mqtt/pkg/saj"
)

// InverterReader is the protocol client as seen by the coordinator.
type InverterReader interface {
	Read(ctx context.Context, catalog *saj.Catalog) bool
	Host() string
	Dialect() saj.Dialect
	SerialNumber() string
	Identity() saj.Identity
	ConfigurationURL() string
	LastError() error
}

type ReadObserver interface {
	ObserveRead(success bool, enabledSensors int)
}

var _ InverterReader = (*saj.Client)(nil)
