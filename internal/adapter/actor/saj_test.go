package actor

import (
	"testing"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/service"
	"github.com/berfenger/saj2mqtt/internal/util/actorutil"
	"github.com/berfenger/saj2mqtt/pkg/saj"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func spawnSAJActor(t *testing.T, device *saj.TestDevice, dialect saj.Dialect) (*actor.ActorSystem, *actor.PID) {
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)

	creds := saj.Credentials{Username: saj.TestUsername, Password: saj.TestPassword}
	client := saj.CreateClient(device.Host(), dialect, creds, time.Second, logger, nil)
	coordinator := service.NewCoordinator("SAJ Inverter", client, nil, logger)

	props := actor.PropsFromProducer(func() actor.Actor { return NewSAJActor(coordinator, time.Second, logger) })
	pid, err := as.Root.SpawnNamed(props, domain.ACTOR_ID_SAJ)
	require.NoError(t, err)
	return as, pid
}

func TestSAJActorInfo(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.Ethernet, 1)
	defer device.Close()

	as, pid := spawnSAJActor(t, device, saj.Ethernet)
	defer as.Shutdown()

	result, err := as.Root.RequestFuture(pid, domain.GetInverterInfoRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.GetInverterInfoResponse)

	assert.Equal("13020J2020EN09010", resp.Info.Identity.SerialNumber)
	assert.Equal("SAJ Inverter", resp.Info.Name)
	assert.Equal(saj.DialectEthernetStr, resp.Info.Dialect)
	assert.Len(resp.Info.Sensors, 15)

	result, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	health := result.(domain.ActorHealthResponse)
	assert.True(health.Healthy)
	assert.Equal(SAJ_STATE_ONLINE, health.State)
}

func TestSAJActorRead(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.WiFi, 0)
	defer device.Close()

	as, pid := spawnSAJActor(t, device, saj.WiFi)
	defer as.Shutdown()

	device.SetFixture(1)
	result, err := as.Root.RequestFuture(pid, domain.ReadInverterRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ReadInverterResponse)
	assert.False(resp.HasResponseError())
	assert.True(resp.Snapshot.LastUpdateSuccess)
	assert.Equal("21030G1628XXYYYYY", resp.Snapshot.SerialNumber)

	power, ok := resp.Snapshot.Reading(saj.SensorCurrentPower)
	require.True(t, ok)
	assert.Equal("3000", power.Value.String())

	state, ok := resp.Snapshot.Reading(saj.SensorState)
	require.True(t, ok)
	assert.Equal("Waiting", state.Value.Text())
}

func TestSAJActorReadFailure(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.Ethernet, 1)
	defer device.Close()

	as, pid := spawnSAJActor(t, device, saj.Ethernet)
	defer as.Shutdown()

	// the actor connects on start, fail only later reads
	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	require.Equal(t, SAJ_STATE_ONLINE, result.(domain.ActorHealthResponse).State)

	device.FailWith(500)
	result, err = as.Root.RequestFuture(pid, domain.ReadInverterRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	resp := result.(domain.ReadInverterResponse)
	assert.ErrorIs(resp.GetResponseError(), service.ErrCannotConnect)
	assert.False(resp.Snapshot.LastUpdateSuccess)
	assert.Equal(uint32(1), resp.Snapshot.ConsecutiveFailures)

	// previous values survive a network failure
	power, ok := resp.Snapshot.Reading(saj.SensorCurrentPower)
	require.True(t, ok)
	assert.True(power.Enabled)

	result, err = as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.Equal(SAJ_STATE_OFFLINE, result.(domain.ActorHealthResponse).State)
}

func TestSAJActorStashesWhileReading(t *testing.T) {
	assert := assert.New(t)
	device := saj.NewTestDevice(saj.Ethernet, 1)
	defer device.Close()

	as, pid := spawnSAJActor(t, device, saj.Ethernet)
	defer as.Shutdown()

	read := as.Root.RequestFuture(pid, domain.ReadInverterRequest{}, 5*time.Second)
	snap := as.Root.RequestFuture(pid, domain.GetInverterSnapshotRequest{}, 5*time.Second)

	_, err := read.Result()
	require.NoError(t, err)
	result, err := snap.Result()
	require.NoError(t, err)
	resp := result.(domain.GetInverterSnapshotResponse)
	assert.True(resp.Snapshot.LastUpdateSuccess)
	assert.Len(resp.Snapshot.Sensors, 15)
}
