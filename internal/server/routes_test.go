package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/berfenger/saj2mqtt/internal/core/domain"
	"github.com/berfenger/saj2mqtt/internal/metrics"
	"github.com/berfenger/saj2mqtt/internal/util"
	"github.com/berfenger/saj2mqtt/pkg/saj"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeMaster(healthy bool) *actor.Props {
	power := saj.NumberValue(decimal.RequireFromString("1228"))
	return actor.PropsFromFunc(func(ctx actor.Context) {
		switch ctx.Message().(type) {
		case domain.ActorHealthRequest:
			ctx.Respond(domain.ActorHealthResponse{Id: domain.ACTOR_ID_MASTER, Healthy: healthy})
		case domain.GetInverterSnapshotRequest:
			ctx.Respond(domain.GetInverterSnapshotResponse{Snapshot: domain.InverterSnapshot{
				SerialNumber:      "13020J2020EN09010",
				LastUpdateSuccess: true,
				Sensors: []domain.SensorReading{{
					SensorDefinition: domain.SensorDefinition{Key: "p-ac", Name: saj.SensorCurrentPower, Unit: "W"},
					Enabled:          true,
					Value:            &power,
				}},
			}})
		}
	})
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	resp, err := http.Get(srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRoutes(t *testing.T) {
	assert := assert.New(t)

	as := actor.NewActorSystem()
	defer as.Shutdown()
	pid := as.Root.Spawn(fakeMaster(true))

	m := metrics.New()
	m.ObserveRead(true, 15)
	cfg := util.LoadTestConfig()
	srv := httptest.NewServer(NewServer(cfg, as.Root, pid, m.Handler()).Handler)
	defer srv.Close()

	status, body := get(t, srv, "/healthcheck")
	assert.Equal(http.StatusOK, status)
	assert.Equal("health_check: OK", body)

	status, body = get(t, srv, "/inverter")
	assert.Equal(http.StatusOK, status)
	var snapshot map[string]any
	require.NoError(t, json.Unmarshal([]byte(body), &snapshot))
	assert.Equal("13020J2020EN09010", snapshot["serial_number"])
	sensors := snapshot["sensors"].([]any)
	assert.Equal(1228.0, sensors[0].(map[string]any)["value"])

	status, body = get(t, srv, "/metrics")
	assert.Equal(http.StatusOK, status)
	assert.Contains(body, "saj_enabled_sensors 15")
}

func TestUnhealthy(t *testing.T) {
	as := actor.NewActorSystem()
	defer as.Shutdown()
	pid := as.Root.Spawn(fakeMaster(false))

	srv := httptest.NewServer(NewServer(util.LoadTestConfig(), as.Root, pid, nil).Handler)
	defer srv.Close()

	status, _ := get(t, srv, "/healthcheck")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	status, _ = get(t, srv, "/metrics")
	assert.Equal(t, http.StatusNotFound, status)
}
