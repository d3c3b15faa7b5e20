package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/saj2mqtt/internal/config"
	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

const haDiscoveryRetryInterval = 5 * time.Second

// HADiscoveryActor publishes the Home Assistant discovery set once the saj and
// mqtt actors are up. The inverter serial is part of every unique id, so it
// waits until the first read succeeded.
type HADiscoveryActor struct {
	config           *config.Config
	behavior         actor.Behavior
	stash            *actorutil.Stash
	scheduler        *scheduler.TimerScheduler
	sajActor         *actor.PID
	mqttActor        *actor.PID
	sajActorHealthy  bool
	mqttActorHealthy bool
	healthyRecv      int

	logger *zap.Logger
}

type discoveryRetry struct {
}

func NewHADiscoveryActor(config *config.Config, sajActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:    config,
		sajActor:  sajActor,
		mqttActor: mqttActor,
		behavior:  actor.NewBehavior(),
		stash:     &actorutil.Stash{},
		logger:    actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")
		state.scheduler = scheduler.NewTimerScheduler(ctx)
		state.checkHealth(ctx)
	case discoveryRetry:
		state.logger.Debug("hadiscovery@starting retry")
		state.checkHealth(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) checkHealth(ctx actor.Context) {
	state.healthyRecv = 0
	state.sajActorHealthy = false
	state.mqttActorHealthy = false
	// SAJ Actor Request
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.sajActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SAJ,
			Healthy: false,
		}
	})
	// MQTT Actor Request
	actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
		return domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_MQTT,
			Healthy: false,
		}
	})
	state.behavior.Become(state.WaitingHealthyReceive)
}

func (state *HADiscoveryActor) retryLater(ctx actor.Context) {
	state.scheduler.RequestOnce(haDiscoveryRetryInterval, ctx.Self(), discoveryRetry{})
	state.behavior.Become(state.StartingReceive)
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_SAJ:
				state.sajActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {
			if state.sajActorHealthy && state.mqttActorHealthy {
				actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.sajActor, domain.GetInverterInfoRequest{}, 2*time.Second), func(err error) any {
					return domain.GetInverterInfoResponse{
						ActorResponseMixIn: domain.ActorResponseMixIn{
							ResponseError: err,
						},
					}
				})
				state.behavior.Become(state.WaitingInfoReceive)
			} else {
				state.logger.Info("hadiscovery@healthcheck saj or mqtt not ready, retrying")
				state.retryLater(ctx)
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.PublishDiscoveryResponse:
		if msg.HasResponseError() {
			state.logger.Error("hadiscovery@done discovery publish failed", zap.Error(msg.GetResponseError()))
		}
	}
}

func (state *HADiscoveryActor) WaitingInfoReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.GetInverterInfoResponse:
		if msg.HasResponseError() || msg.Info.Identity.SerialNumber == "" || len(msg.Info.Sensors) == 0 {
			state.logger.Warn("hadiscovery@info inverter info not available", zap.Error(msg.GetResponseError()))
			state.retryLater(ctx)
			return
		}
		state.logger.Debug("hadiscovery@info: GetInverterInfoResponse", zap.Any("identity", msg.Info.Identity))

		var sensors []domain.GenericSensor

		bridgeDevice := domain.BridgeDevice(state.config.MQTT.BaseTopic)
		sensors = append(sensors, domain.BridgeSensors(bridgeDevice)...)

		inverterSensors := domain.InverterSensors(msg.Info)
		for i := range inverterSensors {
			inverterSensors[i].Device.ViaDevice = bridgeDevice.Id
		}
		sensors = append(sensors, inverterSensors...)

		buttons := domain.InverterButtons(msg.Info)
		for i := range buttons {
			buttons[i].Device.ViaDevice = bridgeDevice.Id
		}

		ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
			ActorRequestMixIn: domain.ActorRequestMixIn{
				ReplyToRef: domain.RefOf(ctx.Self()),
			},
			Sensors: sensors,
			Buttons: buttons,
		})
		state.behavior.Become(state.Done)
		state.stash.UnstashAll(ctx)

	default:
		state.logger.Debug("hadiscovery@info: default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}
