package util

import (
	"github.com/berfenger/saj2mqtt/internal/config"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Inverter: config.InverterConfig{
			Host:          "-.-.-.-",
			Type:          "ethernet",
			Name:          config.DefaultInverterName,
			TimeoutMillis: 1000,
		},
		MQTT: config.MQTTConfig{
			Host:             "localhost",
			Port:             1883,
			BaseTopic:        "saj2mqtt",
			HADiscoveryTopic: "homeassistant",
		},
		MonitorConfig: config.MonitorConfig{
			PollIntervalMillis:     5000,
			MaxConsecutiveFailures: 3,
		},
		Port: 8080,
	}
}
