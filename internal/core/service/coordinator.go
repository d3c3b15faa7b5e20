package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/port"
	"github.com/berfenger/saj2mqtt/pkg/saj"
	"go.uber.org/zap"
)

var ErrCannotConnect = errors.New("cannot connect to inverter")

// Coordinator owns one inverter's client and catalog. A read holds the
// catalog lock, so accessors block until an in-flight refresh is done.
type Coordinator struct {
	name     string
	reader   port.InverterReader
	catalog  *saj.Catalog
	observer port.ReadObserver
	logger   *zap.Logger

	catalogMu           sync.Mutex
	mu                  sync.RWMutex
	lastUpdateSuccess   bool
	lastSuccess         time.Time
	consecutiveFailures uint32
}

func NewCoordinator(name string, reader port.InverterReader, observer port.ReadObserver, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		name:     name,
		reader:   reader,
		catalog:  saj.NewCatalog(reader.Dialect()),
		observer: observer,
		logger:   logger,
	}
}

func (c *Coordinator) Name() string {
	return c.name
}

// Connect performs the first read. It fails fast so the caller can retry setup.
func (c *Coordinator) Connect(ctx context.Context) error {
	if err := c.Refresh(ctx); err != nil {
		return err
	}
	c.logger.Info("connected to inverter",
		zap.String("serial", c.reader.SerialNumber()),
		zap.String("model", c.reader.Identity().Model),
		zap.Int("enabled_sensors", len(c.enabled())))
	return nil
}

func (c *Coordinator) Refresh(ctx context.Context) error {
	c.catalogMu.Lock()
	ok := c.reader.Read(ctx, c.catalog)
	enabled := c.catalog.EnabledCount()

	c.mu.Lock()
	c.lastUpdateSuccess = ok
	if ok {
		c.lastSuccess = time.Now()
		c.consecutiveFailures = 0
	} else {
		c.consecutiveFailures++
	}
	failures := c.consecutiveFailures
	c.mu.Unlock()
	c.catalogMu.Unlock()

	if c.observer != nil {
		c.observer.ObserveRead(ok, enabled)
	}
	if !ok {
		c.logger.Debug("inverter read failed", zap.Uint32("consecutive_failures", failures), zap.Error(c.reader.LastError()))
		return fmt.Errorf("%w at %s: %v", ErrCannotConnect, c.reader.Host(), c.reader.LastError())
	}
	return nil
}

// EnabledSensors lists the sensors the last read could decode. Entities are
// set up from this list.
func (c *Coordinator) EnabledSensors() iter.Seq[*saj.Sensor] {
	return slices.Values(c.enabled())
}

func (c *Coordinator) enabled() []*saj.Sensor {
	c.catalogMu.Lock()
	defer c.catalogMu.Unlock()
	return slices.Collect(c.catalog.EnabledSensors())
}

func (c *Coordinator) LastUpdateSuccess() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastUpdateSuccess
}

func (c *Coordinator) ConsecutiveFailures() uint32 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.consecutiveFailures
}

func (c *Coordinator) SerialNumber() string {
	return c.reader.SerialNumber()
}

// Snapshot copies the catalog.
func (c *Coordinator) Snapshot() domain.InverterSnapshot {
	c.catalogMu.Lock()
	defer c.catalogMu.Unlock()

	c.mu.RLock()
	snapshot := domain.InverterSnapshot{
		SerialNumber:        c.reader.SerialNumber(),
		LastUpdateSuccess:   c.lastUpdateSuccess,
		LastSuccess:         c.lastSuccess,
		ConsecutiveFailures: c.consecutiveFailures,
	}
	c.mu.RUnlock()

	snapshot.Sensors = make([]domain.SensorReading, 0, c.catalog.Len())
	for s := range c.catalog.Sensors() {
		snapshot.Sensors = append(snapshot.Sensors, domain.NewSensorReading(s))
	}
	return snapshot
}

func (c *Coordinator) Info() domain.InverterInfo {
	info := domain.InverterInfo{
		Name:             c.name,
		Host:             c.reader.Host(),
		Dialect:          c.reader.Dialect().String(),
		Identity:         c.reader.Identity(),
		ConfigurationURL: c.reader.ConfigurationURL(),
	}
	for _, s := range c.enabled() {
		info.Sensors = append(info.Sensors, domain.NewSensorDefinition(s))
	}
	return info
}
