package main

import (
	"testing"

	"github.com/berfenger/saj2mqtt/internal/core/service"
	"github.com/berfenger/saj2mqtt/internal/metrics"
	"github.com/berfenger/saj2mqtt/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSAJActorProviderUsesRegistry(t *testing.T) {
	assert := assert.New(t)
	cfg := util.LoadTestConfig()
	cfg.Inverter.Host = "192.168.1.50"
	registry := service.NewRegistry()

	provider, err := sajActorProvider(&cfg, registry, metrics.New(), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(1, registry.Len())
	_, ok := registry.Get(cfg.Inverter.Host)
	assert.True(ok)
	assert.NotNil(provider())

	// a second setup for the same entry is rejected
	_, err = sajActorProvider(&cfg, registry, metrics.New(), zap.NewNop())
	assert.Error(err)

	assert.True(registry.Remove(cfg.Inverter.Host))
	assert.Panics(func() { provider() })
}
