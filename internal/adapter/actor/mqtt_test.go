package actor

import (
	"testing"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/events"
	"github.com/berfenger/saj2mqtt/internal/util"
	"github.com/berfenger/saj2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	es := &eventstream.EventStream{}
	mqttActor := NewTestMQTTActor(&cfg, es, logger)
	props := actor.PropsFromProducer(func() actor.Actor { return mqttActor })
	pid := as.Root.Spawn(props)

	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(ok)
	assert.True(resp.Healthy)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "total_yield"},
		Value:                  4569.27,
		Decimals:               2,
	})
	es.Publish(domain.TextSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "state"},
		Value:                  "Normal",
	})
	es.Publish(domain.SensorAvailabilityUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{Id: "total_yield"},
		Available:              false,
	})
	es.Publish(events.BridgeStateEvent(true))
	// not a sensor event
	es.Publish("ignored")

	assert.Eventually(func() bool {
		return len(mqttActor.Published()) == 4
	}, 2*time.Second, 20*time.Millisecond)

	published := mqttActor.Published()
	assert.Equal("4569.27", published["saj2mqtt/sensor/total_yield/state"])
	assert.Equal("Normal", published["saj2mqtt/sensor/state/state"])
	assert.Equal("offline", published["saj2mqtt/sensor/total_yield/availability"])
	assert.Equal("online", published["saj2mqtt/bridge/state"])

	as.Root.Stop(pid)
}

func TestMQTTActorDiscovery(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actorutil.NewActorSystemWithZapLogger(logger)
	defer as.Shutdown()

	mqttActor := NewTestMQTTActor(&cfg, nil, logger)
	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor { return mqttActor }))

	info := domain.InverterInfo{
		Name: "SAJ Inverter",
		Sensors: []domain.SensorDefinition{
			{Key: "p-ac", Name: "current_power", Unit: "W"},
		},
	}
	info.Identity.SerialNumber = "13020J2020EN09010"

	req := domain.PublishDiscoveryRequest{
		Sensors: domain.InverterSensors(info),
		Buttons: domain.InverterButtons(info),
	}
	result, err := as.Root.RequestFuture(pid, req, 2*time.Second).Result()
	require.NoError(t, err)
	assert.False(result.(domain.PublishDiscoveryResponse).HasResponseError())

	published := mqttActor.Published()
	assert.Contains(published, "homeassistant/sensor/saj_13020J2020EN09010/current_power/config")
	assert.Contains(published, "homeassistant/button/saj_13020J2020EN09010/refresh/config")
	assert.Contains(published["homeassistant/sensor/saj_13020J2020EN09010/current_power/config"], `"device_class":"power"`)
}
