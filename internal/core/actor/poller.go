package actor

import (
	"fmt"
	"time"

	"github.com/berfenger/saj2mqtt/internal/config"
	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/events"
	. "github.com/berfenger/saj2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PollerActor drives the inverter reads and turns each result into sensor
// events on the event stream.
type PollerActor struct {
	behavior actor.Behavior
	stash    *Stash
	cron     *cron.Cron

	sajActor            *actor.PID
	config              *config.Config
	eventStream         *eventstream.EventStream
	sensors             []domain.SensorDefinition
	consecutiveFailures uint32
	offline             bool
	pendingReplies      []*actor.PID

	logger *zap.Logger
}

type pollTick struct {
}

func NewPollerActor(config *config.Config, sajActor *actor.PID, eventStream *eventstream.EventStream, logger *zap.Logger) *PollerActor {
	act := &PollerActor{
		config:      config,
		sajActor:    sajActor,
		behavior:    actor.NewBehavior(),
		stash:       &Stash{},
		logger:      ActorLogger(domain.ACTOR_ID_POLLER, logger),
		eventStream: eventStream,
	}
	act.behavior.Become(act.DefaultReceive)
	return act
}

func (state *PollerActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *PollerActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("poller@default started")
		if err := state.startSchedule(ctx); err != nil {
			panic(err)
		}
		ctx.Send(ctx.Self(), pollTick{})
	case *actor.Stopping, *actor.Restarting:
		state.stopSchedule()
	case domain.ActorHealthRequest:
		state.logger.Debug("poller@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   "idle",
		})
	case pollTick:
		state.logger.Debug("poller@default tick")
		state.requestRead(ctx)
	case domain.RefreshInverterRequest:
		state.logger.Debug("poller@default RefreshInverterRequest")
		state.pendingReplies = append(state.pendingReplies, ForRequest(msg).ReplyTo(ctx))
		state.requestRead(ctx)
	default:
		state.logger.Debug("poller@default: unhandled", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *PollerActor) WaitingReadReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ReadInverterResponse:
		state.onReadResponse(msg)
		state.respondPending(ctx, msg.GetResponseError())
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case pollTick:
		// a read is already in flight
		state.logger.Debug("poller@waiting skip tick")
	case domain.RefreshInverterRequest:
		state.logger.Debug("poller@waiting join in flight read")
		state.pendingReplies = append(state.pendingReplies, ForRequest(msg).ReplyTo(ctx))
	case domain.ActorHealthRequest:
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_POLLER,
			Healthy: true,
			State:   "reading",
		})
	case *actor.Stopping, *actor.Restarting:
		state.stopSchedule()
	default:
		state.logger.Debug("poller@waiting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *PollerActor) requestRead(ctx actor.Context) {
	timeout := state.config.Inverter.Timeout() + time.Second
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.sajActor, domain.ReadInverterRequest{}, timeout), func(err error) any {
		return domain.ReadInverterResponse{
			ActorResponseMixIn: domain.ActorResponseMixIn{
				ResponseError: err,
			},
		}
	})
	state.behavior.BecomeStacked(state.WaitingReadReceive)
}

func (state *PollerActor) onReadResponse(msg domain.ReadInverterResponse) {
	if len(msg.Snapshot.Sensors) > 0 {
		state.sensors = state.sensors[:0]
		for _, r := range msg.Snapshot.Sensors {
			state.sensors = append(state.sensors, r.SensorDefinition)
		}
	}

	if !msg.HasResponseError() {
		if state.offline {
			state.logger.Info("poller inverter back online")
		}
		state.consecutiveFailures = 0
		state.offline = false
		state.publish(events.SnapshotToUpdateEvents(msg.Snapshot))
		return
	}

	state.consecutiveFailures++
	state.logger.Debug("poller@waiting read failed", zap.Uint32("consecutive_failures", state.consecutiveFailures), zap.Error(msg.GetResponseError()))
	if state.consecutiveFailures < state.maxFailures() {
		return
	}
	if !state.offline {
		state.logger.Warn("poller inverter offline", zap.Uint32("consecutive_failures", state.consecutiveFailures), zap.Error(msg.GetResponseError()))
	}
	state.offline = true
	state.publish(events.UnavailableEvents(state.sensors))
}

func (state *PollerActor) maxFailures() uint32 {
	if state.config.MonitorConfig.MaxConsecutiveFailures == 0 {
		return 1
	}
	return state.config.MonitorConfig.MaxConsecutiveFailures
}

func (state *PollerActor) publish(evs []any) {
	for _, ev := range evs {
		state.eventStream.Publish(ev)
	}
}

func (state *PollerActor) respondPending(ctx actor.Context, err error) {
	for _, pid := range state.pendingReplies {
		if pid != nil {
			ctx.Send(pid, domain.RefreshInverterResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			})
		}
	}
	state.pendingReplies = nil
}

func (state *PollerActor) startSchedule(ctx actor.Context) error {
	system, self := ctx.ActorSystem(), ctx.Self()
	tick := cron.FuncJob(func() {
		system.Root.Send(self, pollTick{})
	})

	state.cron = cron.New()
	if spec := state.config.MonitorConfig.PollSchedule; spec != "" {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return err
		}
		state.cron.Schedule(schedule, tick)
	} else {
		state.cron.Schedule(cron.Every(state.config.MonitorConfig.PollInterval()), tick)
	}
	state.cron.Start()
	return nil
}

func (state *PollerActor) stopSchedule() {
	if state.cron != nil {
		state.cron.Stop()
		state.cron = nil
	}
}
