package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/pkg/saj"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	fail bool
	err  error
}

func (r *fakeReader) Read(_ context.Context, catalog *saj.Catalog) bool {
	if r.fail {
		r.err = saj.ErrNetwork
		return false
	}
	r.err = nil
	power, _ := catalog.Sensor(saj.SensorCurrentPower)
	power.Set(saj.NumberValue(decimal.NewFromInt(1500)))
	state, _ := catalog.Sensor(saj.SensorState)
	state.Set(saj.TextValue("Normal"))
	return true
}

func (r *fakeReader) Host() string             { return "inverter.local" }
func (r *fakeReader) Dialect() saj.Dialect     { return saj.Ethernet }
func (r *fakeReader) SerialNumber() string     { return "mock_serial_123" }
func (r *fakeReader) Identity() saj.Identity   { return saj.Identity{SerialNumber: "mock_serial_123"} }
func (r *fakeReader) ConfigurationURL() string { return "http://inverter.local/" }
func (r *fakeReader) LastError() error         { return r.err }

type readCounter struct {
	ok, failed int
	enabled    int
}

func (c *readCounter) ObserveRead(success bool, enabled int) {
	if success {
		c.ok++
	} else {
		c.failed++
	}
	c.enabled = enabled
}

func enabledKeys(c *Coordinator) []string {
	var keys []string
	for s := range c.EnabledSensors() {
		keys = append(keys, s.Key())
	}
	return keys
}

func TestCoordinatorConnect(t *testing.T) {
	assert := assert.New(t)
	counter := &readCounter{}
	c := NewCoordinator("mock inverter name", &fakeReader{}, counter, nil)

	assert.NoError(c.Connect(context.Background()))
	assert.Equal([]string{"p-ac", "state"}, enabledKeys(c))
	assert.True(c.LastUpdateSuccess())
	assert.Equal("mock_serial_123", c.SerialNumber())
	assert.Equal(1, counter.ok)
	assert.Equal(2, counter.enabled)

	snapshot := c.Snapshot()
	assert.Len(snapshot.Sensors, 15)
	power, ok := snapshot.Reading(saj.SensorCurrentPower)
	assert.True(ok)
	assert.Equal("1500", power.Value.String())
	assert.False(snapshot.LastSuccess.IsZero())
}

func TestCoordinatorCannotConnect(t *testing.T) {
	assert := assert.New(t)
	counter := &readCounter{}
	c := NewCoordinator("mock inverter name", &fakeReader{fail: true}, counter, nil)

	err := c.Connect(context.Background())
	assert.Error(err)
	assert.True(errors.Is(err, ErrCannotConnect))
	assert.False(c.LastUpdateSuccess())
	assert.Equal(uint32(1), c.ConsecutiveFailures())
	assert.Equal(1, counter.failed)
}

func TestCoordinatorFailureCounting(t *testing.T) {
	assert := assert.New(t)
	reader := &fakeReader{fail: true}
	c := NewCoordinator("mock inverter name", reader, nil, nil)

	for i := 0; i < 3; i++ {
		assert.ErrorIs(c.Refresh(context.Background()), ErrCannotConnect)
	}
	assert.Equal(uint32(3), c.ConsecutiveFailures())

	reader.fail = false
	assert.NoError(c.Refresh(context.Background()))
	assert.Equal(uint32(0), c.ConsecutiveFailures())
	assert.True(c.Snapshot().LastUpdateSuccess)
}

func TestCoordinatorWithDevice(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.Ethernet, 3)
	defer device.Close()

	client := saj.CreateClient(device.Host(), saj.Ethernet, saj.Credentials{}, time.Second, nil, nil)
	c := NewCoordinator("SAJ Inverter", client, nil, nil)
	require.NoError(t, c.Connect(context.Background()))

	info := c.Info()
	assert.Equal("13020J2020EN09010", info.Identity.SerialNumber)
	assert.Equal("ethernet", info.Dialect)
	assert.Equal("http://"+device.Host()+"/", info.ConfigurationURL)
	assert.Len(info.Sensors, 12)

	count := 0
	for range c.EnabledSensors() {
		count++
	}
	assert.Equal(12, count)

	device.Close()
	assert.ErrorIs(c.Refresh(context.Background()), ErrCannotConnect)
	assert.Equal(12, len(enabledKeys(c)))
}

func TestCoordinatorInfoOnlyHasEnabledSensors(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.WiFi, 0)
	defer device.Close()

	client := saj.CreateClient(device.Host(), saj.WiFi, saj.Credentials{Username: saj.TestUsername, Password: saj.TestPassword}, time.Second, nil, nil)
	c := NewCoordinator("SAJ Inverter", client, nil, nil)
	require.NoError(t, c.Connect(context.Background()))

	info := c.Info()
	assert.Len(info.Sensors, 9)
	sensors := domain.InverterSensors(info)
	assert.Len(sensors, 9)
	for _, s := range sensors {
		assert.NotEqual(saj.SensorPV1Voltage, s.Id)
	}

	snapshot := c.Snapshot()
	pv1, ok := snapshot.Reading(saj.SensorPV1Voltage)
	require.True(t, ok)
	assert.False(pv1.Enabled)
	assert.False(domain.Available(snapshot.LastUpdateSuccess, pv1))
}

type blockingReader struct {
	fakeReader
	started chan struct{}
	release chan struct{}
}

func (r *blockingReader) Read(ctx context.Context, catalog *saj.Catalog) bool {
	close(r.started)
	<-r.release
	return r.fakeReader.Read(ctx, catalog)
}

func TestSnapshotWaitsForRefresh(t *testing.T) {
	assert := assert.New(t)
	reader := &blockingReader{started: make(chan struct{}), release: make(chan struct{})}
	c := NewCoordinator("mock inverter name", reader, nil, nil)

	refreshed := make(chan error, 1)
	go func() { refreshed <- c.Refresh(context.Background()) }()
	<-reader.started

	snapshots := make(chan domain.InverterSnapshot, 1)
	go func() { snapshots <- c.Snapshot() }()

	select {
	case <-snapshots:
		t.Fatal("snapshot taken while a read was in flight")
	case <-time.After(100 * time.Millisecond):
	}

	close(reader.release)
	assert.NoError(<-refreshed)
	snapshot := <-snapshots
	assert.True(snapshot.LastUpdateSuccess)
	power, ok := snapshot.Reading(saj.SensorCurrentPower)
	require.True(t, ok)
	assert.Equal("1500", power.Value.String())
}

func TestRegistry(t *testing.T) {
	assert := assert.New(t)
	r := NewRegistry()
	c := NewCoordinator("mock inverter name", &fakeReader{}, nil, nil)

	assert.NoError(r.Add("entry_1", c))
	assert.Error(r.Add("entry_1", c))
	assert.Equal(1, r.Len())

	got, ok := r.Get("entry_1")
	assert.True(ok)
	assert.Same(c, got)

	assert.True(r.Remove("entry_1"))
	assert.False(r.Remove("entry_1"))
	_, ok = r.Get("entry_1")
	assert.False(ok)
	assert.Equal(0, r.Len())
}
