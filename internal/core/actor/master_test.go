package actor

import (
	"fmt"
	"sync"
	"testing"
	"time"

	adactor "github.com/berfenger/saj2mqtt/internal/adapter/actor"
	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/service"
	"github.com/berfenger/saj2mqtt/internal/mqtt"
	"github.com/berfenger/saj2mqtt/internal/util"
	"github.com/berfenger/saj2mqtt/pkg/saj"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {
	device := saj.NewTestDevice(saj.Ethernet, 1)
	defer device.Close()

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Inverter.Host = device.Host()
	cfg.MQTT.HADiscoveryEnable = true
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	var mu sync.Mutex
	var mqttActor *adactor.MQTTActor
	published := func() map[string]string {
		mu.Lock()
		defer mu.Unlock()
		if mqttActor == nil {
			return nil
		}
		return mqttActor.Published()
	}

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.SAJActor {
			client := saj.CreateClient(device.Host(), saj.Ethernet, saj.Credentials{}, cfg.Inverter.Timeout(), logger, nil)
			return adactor.NewSAJActor(service.NewCoordinator(cfg.Inverter.Name, client, nil, logger), cfg.Inverter.Timeout(), logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			mu.Lock()
			defer mu.Unlock()
			mqttActor = adactor.NewTestMQTTActor(&cfg, es, logger)
			return mqttActor
		}, logger)
	})
	pid, err := context.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	require.NoError(t, err)
	defer as.Shutdown()

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	require.NoError(t, err)
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.True(t, healthResp.Healthy, "healthy is true")

	// poller publishes the first read
	assert.Eventually(t, func() bool {
		return published()["saj2mqtt/sensor/current_power/state"] == "1228"
	}, 5*time.Second, 50*time.Millisecond)
	assert.Equal(t, "online", published()["saj2mqtt/sensor/current_power/availability"])
	assert.Equal(t, "Normal", published()["saj2mqtt/sensor/state/state"])

	// discovery runs once the inverter identity is known
	assert.Eventually(t, func() bool {
		_, ok := published()["homeassistant/sensor/saj_13020J2020EN09010/total_yield/config"]
		return ok
	}, 5*time.Second, 50*time.Millisecond)

	res, err = context.RequestFuture(pid, domain.GetInverterSnapshotRequest{}, 5*time.Second).Result()
	require.NoError(t, err)
	snapshot := res.(domain.GetInverterSnapshotResponse).Snapshot
	assert.Equal(t, "13020J2020EN09010", snapshot.SerialNumber)

	// refresh button
	device.SetFixture(2)
	context.Send(pid, adactor.ParsedCommand{Command: &mqtt.ParsedMQTTCommand{
		DeviceId: domain.BUTTON_ID_REFRESH,
		Command:  mqtt.COMMAND_BUTTON,
		Payload:  mqtt.MQTT_PAYLOAD_PRESS,
	}})
	assert.Eventually(t, func() bool {
		return published()["saj2mqtt/sensor/state/state"] == "Wait"
	}, 5*time.Second, 50*time.Millisecond)

	context.Stop(pid)
}
