package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	adactor "github.com/berfenger/saj2mqtt/internal/adapter/actor"
	"github.com/berfenger/saj2mqtt/internal/config"
	"github.com/berfenger/saj2mqtt/internal/core/actor"
	"github.com/berfenger/saj2mqtt/internal/core/service"
	"github.com/berfenger/saj2mqtt/internal/metrics"
	"github.com/berfenger/saj2mqtt/internal/server"
	"github.com/berfenger/saj2mqtt/internal/util/actorutil"
	"github.com/berfenger/saj2mqtt/pkg/saj"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig(os.Args[1:])
	if err != nil {
		slog.Error("config errors", "error", err)
		os.Exit(1)
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())
	defer logger.Sync()

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	m := metrics.New()
	registry := service.NewRegistry()

	sajProv, err := sajActorProvider(cfg, registry, m, logger)
	if err != nil {
		logger.Fatal("could not set up inverter", zap.Error(err))
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, sajProv, mqttActorProvider(cfg, logger), logger)
	})
	pid, err := ctx.SpawnNamed(props, "master")
	if err != nil {
		logger.Fatal("could not spawn master actor", zap.Error(err))
	}

	server := server.NewServer(*cfg, ctx, pid, m.Handler())
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	ctx.Stop(pid)
	registry.Remove(cfg.Inverter.Host)
	logger.Info("inverters unloaded", zap.Int("remaining", registry.Len()))
	as.Shutdown()
}

func initConfig(args []string) (*config.Config, error) {

	flags := pflag.NewFlagSet("saj2mqtt", pflag.ContinueOnError)
	configFile := flags.StringP("config", "c", os.Getenv("CONFIG_FILE"), "path to a yaml config file")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	// alias PORT => SAJ2MQTT_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("SAJ2MQTT_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("saj2mqtt")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	bindEnvKeys()

	// if defined, try to load config from yaml file
	if *configFile != "" {
		if _, err := os.Stat(*configFile); err == nil {
			slog.Info("Using config", "file", *configFile)
			viper.SetConfigFile(*configFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func sajActorProvider(cfg *config.Config, registry *service.Registry, m *metrics.Metrics, logger *zap.Logger) (actor.SAJActorProvider, error) {

	dialect, err := cfg.Inverter.Dialect()
	if err != nil {
		return nil, err
	}

	instrument := saj.Chain(saj.CreateZapInstrument(logger), m.Instrument())
	client := saj.CreateClient(cfg.Inverter.Host, dialect, cfg.Inverter.Credentials(), cfg.Inverter.Timeout(), logger, instrument)
	coordinator := service.NewCoordinator(cfg.Inverter.Name, client, m, logger)
	entryId := cfg.Inverter.Host
	if err := registry.Add(entryId, coordinator); err != nil {
		return nil, err
	}

	return func() *adactor.SAJActor {
		coordinator, ok := registry.Get(entryId)
		if !ok {
			panic(fmt.Sprintf("inverter %s is not registered", entryId))
		}
		return adactor.NewSAJActor(coordinator, cfg.Inverter.Timeout(), logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("inverter.type", saj.DialectEthernetStr)
	viper.SetDefault("inverter.name", config.DefaultInverterName)
	viper.SetDefault("inverter.timeout_millis", saj.DefaultTimeout.Milliseconds())
	viper.SetDefault("mqtt.port", 1883)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "saj2mqtt")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("monitor.poll_interval_millis", 30000)
	viper.SetDefault("monitor.max_consecutive_failures", 3)
	viper.SetDefault("port", 8080)
	viper.SetDefault("http_log", false)
}

// AutomaticEnv only resolves keys viper already knows about.
func bindEnvKeys() {
	for _, key := range []string{"inverter.host", "inverter.username", "inverter.password",
		"mqtt.host", "mqtt.username", "mqtt.password", "monitor.poll_schedule"} {
		_ = viper.BindEnv(key)
	}
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	if cfg.Inverter.Password != "" {
		cfg.Inverter.Password = "*redacted*"
	}
	slog.Info("Using", "config", cfg)
}
