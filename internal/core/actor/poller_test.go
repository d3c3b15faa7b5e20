package actor

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/util"
	"github.com/berfenger/saj2mqtt/pkg/saj"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []any
}

func (r *eventRecorder) add(ev any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) availability(id string) (bool, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if ev, ok := r.events[i].(domain.SensorAvailabilityUpdateEvent); ok && ev.Id == id {
			return ev.Available, true
		}
	}
	return false, false
}

func (r *eventRecorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func fakeSAJProps(fail *atomic.Bool, reads *atomic.Int32) *actor.Props {
	power := saj.NumberValue(decimal.NewFromInt(1228))
	snapshot := domain.InverterSnapshot{
		LastUpdateSuccess: true,
		Sensors: []domain.SensorReading{
			{
				SensorDefinition: domain.SensorDefinition{Key: "p-ac", Name: saj.SensorCurrentPower, Unit: "W"},
				Enabled:          true,
				Value:            &power,
			},
		},
	}
	return actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ReadInverterRequest:
			reads.Add(1)
			if fail.Load() {
				failed := snapshot
				failed.LastUpdateSuccess = false
				ctx.Respond(domain.ReadInverterResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{ResponseError: errors.New("unreachable")},
					Snapshot:           failed,
				})
				return
			}
			ctx.Respond(domain.ReadInverterResponse{Snapshot: snapshot})
		}
	})
}

func TestPollerPublishesReadings(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actor.NewActorSystem()
	defer as.Shutdown()

	var fail atomic.Bool
	var reads atomic.Int32
	sajPID := as.Root.Spawn(fakeSAJProps(&fail, &reads))

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	es.Subscribe(recorder.add)

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, sajPID, es, logger)
	}))

	// first read happens on start
	assert.Eventually(func() bool { return recorder.len() == 2 }, 2*time.Second, 20*time.Millisecond)
	available, ok := recorder.availability(saj.SensorCurrentPower)
	assert.True(ok)
	assert.True(available)

	result, err := as.Root.RequestFuture(pid, domain.RefreshInverterRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	assert.False(result.(domain.RefreshInverterResponse).HasResponseError())
	assert.Equal(int32(2), reads.Load())
}

func TestPollerMaxConsecutiveFailures(t *testing.T) {
	assert := assert.New(t)

	cfg := util.LoadTestConfig()
	logger := zap.Must(zap.NewDevelopment())
	as := actor.NewActorSystem()
	defer as.Shutdown()

	var fail atomic.Bool
	var reads atomic.Int32
	sajPID := as.Root.Spawn(fakeSAJProps(&fail, &reads))

	es := &eventstream.EventStream{}
	recorder := &eventRecorder{}
	es.Subscribe(recorder.add)

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, sajPID, es, logger)
	}))
	assert.Eventually(func() bool { return recorder.len() == 2 }, 2*time.Second, 20*time.Millisecond)

	fail.Store(true)
	refresh := func() error {
		result, err := as.Root.RequestFuture(pid, domain.RefreshInverterRequest{}, 2*time.Second).Result()
		require.NoError(t, err)
		return result.(domain.RefreshInverterResponse).GetResponseError()
	}

	// below the threshold the last values stay published
	assert.Error(refresh())
	assert.Error(refresh())
	assert.Equal(2, recorder.len())

	assert.Error(refresh())
	available, ok := recorder.availability(saj.SensorCurrentPower)
	assert.True(ok)
	assert.False(available)

	fail.Store(false)
	assert.NoError(refresh())
	available, _ = recorder.availability(saj.SensorCurrentPower)
	assert.True(available)
}

func TestPollerHealth(t *testing.T) {
	cfg := util.LoadTestConfig()
	as := actor.NewActorSystem()
	defer as.Shutdown()

	var fail atomic.Bool
	var reads atomic.Int32
	sajPID := as.Root.Spawn(fakeSAJProps(&fail, &reads))

	pid := as.Root.Spawn(actor.PropsFromProducer(func() actor.Actor {
		return NewPollerActor(&cfg, sajPID, &eventstream.EventStream{}, zap.NewNop())
	}))
	result, err := as.Root.RequestFuture(pid, domain.ActorHealthRequest{}, 2*time.Second).Result()
	require.NoError(t, err)
	health := result.(domain.ActorHealthResponse)
	assert.True(t, health.Healthy)
	assert.Equal(t, domain.ACTOR_ID_POLLER, health.Id)
}
