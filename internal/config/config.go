package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/berfenger/saj2mqtt/pkg/saj"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap/zapcore"
)

const DefaultInverterName = "SAJ Inverter"

type Config struct {
	LogLevel      zapcore.Level
	Inverter      InverterConfig `mapstructure:"inverter"`
	MQTT          MQTTConfig     `mapstructure:"mqtt"`
	MonitorConfig MonitorConfig  `mapstructure:"monitor"`
	Port          uint           `mapstructure:"port"`
	HttpLog       bool           `mapstructure:"http_log"`
}

type InverterConfig struct {
	Host          string
	Type          string
	Username      string
	Password      string
	Name          string
	TimeoutMillis uint32 `mapstructure:"timeout_millis"`
}

type MonitorConfig struct {
	PollIntervalMillis     uint32 `mapstructure:"poll_interval_millis"`
	PollSchedule           string `mapstructure:"poll_schedule"`
	MaxConsecutiveFailures uint32 `mapstructure:"max_consecutive_failures"`
}

type MQTTConfig struct {
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func (c InverterConfig) Dialect() (saj.Dialect, error) {
	return saj.ParseDialect(c.Type)
}

func (c InverterConfig) Timeout() time.Duration {
	if c.TimeoutMillis == 0 {
		return saj.DefaultTimeout
	}
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c InverterConfig) Credentials() saj.Credentials {
	return saj.Credentials{
		Username: c.Username,
		Password: c.Password,
	}
}

func (c MonitorConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// Validate checks the loaded config and normalizes the MQTT topics in place.
func (c *Config) Validate() error {
	if c.Inverter.Host == "" {
		return errors.New("inverter.host is required")
	}
	dialect, err := c.Inverter.Dialect()
	if err != nil {
		return fmt.Errorf("inverter.type: %w", err)
	}
	if dialect == saj.WiFi && c.Inverter.Username == "" {
		return errors.New("inverter.username is required for wifi inverters")
	}
	if c.Inverter.Name == "" {
		c.Inverter.Name = DefaultInverterName
	}

	if c.MQTT.Host == "" {
		return errors.New("mqtt.host is required")
	}
	if c.MQTT.BaseTopic, err = CheckMQTTTopic(c.MQTT.BaseTopic); err != nil {
		return fmt.Errorf("mqtt.base_topic: %w", err)
	}
	if c.MQTT.HADiscoveryEnable {
		if c.MQTT.HADiscoveryTopic, err = CheckMQTTTopic(c.MQTT.HADiscoveryTopic); err != nil {
			return fmt.Errorf("mqtt.ha_discovery_topic: %w", err)
		}
	}

	if c.MonitorConfig.PollSchedule != "" {
		if _, err := cron.ParseStandard(c.MonitorConfig.PollSchedule); err != nil {
			return fmt.Errorf("monitor.poll_schedule: %w", err)
		}
	} else if c.MonitorConfig.PollIntervalMillis < 1000 {
		return errors.New("monitor.poll_interval_millis must be at least 1000")
	}
	return nil
}

var topicRegexp = regexp.MustCompile("^[a-z0-9_]+$")

func CheckMQTTTopic(baseTopic string) (string, error) {
	lowerBaseTopic := strings.ToLower(baseTopic)
	if !topicRegexp.MatchString(lowerBaseTopic) {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
