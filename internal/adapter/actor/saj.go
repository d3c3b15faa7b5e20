package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/core/service"
	"github.com/berfenger/saj2mqtt/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	SAJ_STATE_ONLINE  = "online"
	SAJ_STATE_OFFLINE = "offline"
)

// SAJActor serializes every access to one inverter coordinator.
type SAJActor struct {
	behavior    actor.Behavior
	stash       *actorutil.Stash
	coordinator *service.Coordinator
	timeout     time.Duration
	logger      *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewSAJActor(coordinator *service.Coordinator, timeout time.Duration, logger *zap.Logger) *SAJActor {
	act := &SAJActor{
		coordinator: coordinator,
		timeout:     timeout,
		behavior:    actor.NewBehavior(),
		stash:       &actorutil.Stash{},
		logger:      actorutil.ActorLogger(domain.ACTOR_ID_SAJ, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *SAJActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *SAJActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("saj@starting started")
		connectCtx, cancel := context.WithTimeout(context.Background(), state.timeout)
		err := state.coordinator.Connect(connectCtx)
		cancel()
		if err != nil {
			// the supervisor retries the setup with backoff
			state.logger.Warn("saj@starting inverter not ready", zap.Error(err))
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
	default:
		state.logger.Debug("saj@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SAJActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("saj@default: ActorHealthRequest")
		inverterState := SAJ_STATE_OFFLINE
		if state.coordinator.LastUpdateSuccess() {
			inverterState = SAJ_STATE_ONLINE
		}
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_SAJ,
			Healthy: true,
			State:   inverterState,
		})
	case domain.GetInverterInfoRequest:
		state.logger.Debug("saj@default: GetInverterInfoRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetInverterInfoResponse{
			Info: state.coordinator.Info(),
		})
	case domain.GetInverterSnapshotRequest:
		state.logger.Debug("saj@default: GetInverterSnapshotRequest")
		actorutil.ForRequest(msg).Respond(ctx, domain.GetInverterSnapshotResponse{
			Snapshot: state.coordinator.Snapshot(),
		})
	case domain.ReadInverterRequest:
		state.logger.Debug("saj@default: ReadInverterRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewContextTask(ctx, state.read),
			mapTaskResult[domain.ReadInverterResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadInverterResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(state.timeout).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingInverter)
	default:
		state.logger.Debug("saj@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *SAJActor) WaitingInverter(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("saj@WaitingInverter backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		if msg.replyTo != nil {
			ctx.Send(msg.replyTo, msg.message)
		}
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping, *actor.Restarting:
	default:
		state.logger.Debug("saj@WaitingInverter stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *SAJActor) read(ctx context.Context) (*domain.ReadInverterResponse, error) {
	err := state.coordinator.Refresh(ctx)
	return &domain.ReadInverterResponse{
		ActorResponseMixIn: domain.ActorResponseMixIn{
			ResponseError: err,
		},
		Snapshot: state.coordinator.Snapshot(),
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
