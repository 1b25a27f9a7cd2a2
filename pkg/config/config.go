package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/ericogr/dht-to-mqtt/pkg/dht"
	"github.com/spf13/viper"
)

const (
	SensorTypeReal       = "real"
	SensorTypeSimulation = "simulation"

	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
)

type MQTTConfig struct {
	Server            string `mapstructure:"server" json:"server"`
	Username          string `mapstructure:"username" json:"username"`
	Password          string `mapstructure:"password" json:"password"`
	ClientID          string `mapstructure:"client_id" json:"client_id"`
	StateTopic        string `mapstructure:"state_topic" json:"state_topic"`
	HumidityTopic     string `mapstructure:"humidity_topic" json:"humidity_topic,omitempty"`
	TemperatureTopic  string `mapstructure:"temperature_topic" json:"temperature_topic,omitempty"`
	QoS               byte   `mapstructure:"qos" json:"qos"`
	Retain            bool   `mapstructure:"retain" json:"retain"`
	DiscoveryTopic    string `mapstructure:"discovery_topic" json:"discovery_topic,omitempty"`
	DiscoveryName     string `mapstructure:"discovery_name" json:"discovery_name,omitempty"`
	DiscoveryUniqueID string `mapstructure:"discovery_unique_id" json:"discovery_unique_id,omitempty"`
}

type SQLConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

type SerialConfig struct {
	Port string `mapstructure:"port" json:"port"`
	Baud int    `mapstructure:"baud" json:"baud"`
}

type OutputConfig struct {
	Type       string        `mapstructure:"type" json:"type"`
	IntervalMs int           `mapstructure:"interval_ms" json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig   `mapstructure:"mqtt" json:"mqtt,omitempty"`
	SQL        *SQLConfig    `mapstructure:"sql" json:"sql,omitempty"`
	Serial     *SerialConfig `mapstructure:"serial" json:"serial,omitempty"`
}

// SensorConfig describes one sensor on its own GPIO line.
type SensorConfig struct {
	Name    string `mapstructure:"name" json:"name"`
	Pin     string `mapstructure:"pin" json:"pin"`
	Variant string `mapstructure:"variant" json:"variant"`
	PullUp  bool   `mapstructure:"pull_up" json:"pull_up"`
	Enabled bool   `mapstructure:"enabled" json:"enabled"`
}

type Config struct {
	SensorType        string         `mapstructure:"sensor_type" json:"sensor_type"`
	Sensors           []SensorConfig `mapstructure:"sensors" json:"sensors"`
	TickUs            int            `mapstructure:"tick_us" json:"tick_us"`
	Retries           int            `mapstructure:"retries" json:"retries"`
	MinReadIntervalMs int            `mapstructure:"min_read_interval_ms" json:"min_read_interval_ms"`
	WarmupMs          int            `mapstructure:"warmup_ms" json:"warmup_ms"`
	TemperatureUnit   string         `mapstructure:"temperature_unit" json:"temperature_unit"`
	IntervalMs        int            `mapstructure:"interval_ms" json:"interval_ms"`
	Outputs           []OutputConfig `mapstructure:"outputs" json:"outputs"`
	LogLevel          string         `mapstructure:"log_level" json:"log_level"`
}

func DefaultConfig() Config {
	return Config{
		SensorType:        SensorTypeReal,
		Sensors:           []SensorConfig{{Name: "dht0", Pin: "GPIO4", Variant: "dht11", PullUp: true, Enabled: true}},
		TickUs:            dht.DefaultTickUs,
		Retries:           3,
		MinReadIntervalMs: 2000,
		WarmupMs:          2000,
		TemperatureUnit:   UnitCelsius,
		IntervalMs:        10000,
		Outputs:           []OutputConfig{{Type: "console"}},
		LogLevel:          "info",
	}
}

// DefaultMQTTConfig is used for an mqtt output without its own settings. It
// publishes the JSON state and the bare humidity and temperature values, all
// at QoS 1.
func DefaultMQTTConfig() MQTTConfig {
	return MQTTConfig{
		Server:           "tcp://localhost:1883",
		ClientID:         "dht2mqtt",
		StateTopic:       "dht/%s",
		HumidityTopic:    "dht/%s/humidity",
		TemperatureTopic: "dht/%s/temperature",
		QoS:              1,
	}
}

// Keys read by applyOverrides. They are only honoured when explicitly set by
// a flag or the environment.
const (
	KeyOutputTypes     = "output_types"
	KeyOutputIntervals = "output_intervals"
	KeyMQTTServer      = "mqtt_server"
	KeyMQTTUser        = "mqtt_user"
	KeyMQTTPass        = "mqtt_pass"
	KeyMQTTClientID    = "mqtt_client_id"
	KeyMQTTTopic       = "mqtt_topic"
	KeyPin             = "pin"
	KeyVariant         = "variant"
	KeyPullUp          = "pull_up"
)

// Load reads the optional config file at path (JSON, YAML or anything else
// viper understands) and merges flags and environment bound to v on top.
// Explicit overrides win over the file.
func Load(v *viper.Viper, path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	// lists from the file replace the defaults instead of merging into them
	if v.IsSet("sensors") {
		cfg.Sensors = nil
	}
	if v.IsSet("outputs") {
		cfg.Outputs = nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if err := applyOverrides(v, &cfg); err != nil {
		return cfg, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyOverrides(v *viper.Viper, cfg *Config) error {
	if v.IsSet(KeyPin) || v.IsSet(KeyVariant) || v.IsSet(KeyPullUp) {
		// a single sensor given on the command line replaces the list
		s := DefaultConfig().Sensors[0]
		if len(cfg.Sensors) > 0 {
			s = cfg.Sensors[0]
		}
		if v.IsSet(KeyPin) {
			s.Pin = v.GetString(KeyPin)
		}
		if v.IsSet(KeyVariant) {
			s.Variant = v.GetString(KeyVariant)
		}
		if v.IsSet(KeyPullUp) {
			s.PullUp = v.GetBool(KeyPullUp)
		}
		s.Enabled = true
		cfg.Sensors = []SensorConfig{s}
	}

	if v.IsSet(KeyOutputTypes) {
		parts := parseCSV(v.GetString(KeyOutputTypes))
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p})
		}
		cfg.Outputs = outs
	}
	if v.IsSet(KeyOutputIntervals) {
		intervals, err := parseKeyIntMap(v.GetString(KeyOutputIntervals))
		if err != nil {
			return fmt.Errorf("output-intervals: %w", err)
		}
		for i := range cfg.Outputs {
			if ms, ok := intervals[cfg.Outputs[i].Type]; ok {
				cfg.Outputs[i].IntervalMs = ms
			}
		}
	}

	mqttKeys := []string{KeyMQTTServer, KeyMQTTUser, KeyMQTTPass, KeyMQTTClientID, KeyMQTTTopic}
	set := false
	for _, k := range mqttKeys {
		set = set || v.IsSet(k)
	}
	if !set {
		return nil
	}
	apply := func(m *MQTTConfig) {
		if v.IsSet(KeyMQTTServer) {
			m.Server = v.GetString(KeyMQTTServer)
		}
		if v.IsSet(KeyMQTTUser) {
			m.Username = v.GetString(KeyMQTTUser)
		}
		if v.IsSet(KeyMQTTPass) {
			m.Password = v.GetString(KeyMQTTPass)
		}
		if v.IsSet(KeyMQTTClientID) {
			m.ClientID = v.GetString(KeyMQTTClientID)
		}
		if v.IsSet(KeyMQTTTopic) {
			m.StateTopic = v.GetString(KeyMQTTTopic)
		}
	}
	applied := false
	for i := range cfg.Outputs {
		if strings.ToLower(cfg.Outputs[i].Type) != "mqtt" {
			continue
		}
		if cfg.Outputs[i].MQTT == nil {
			m := DefaultMQTTConfig()
			cfg.Outputs[i].MQTT = &m
		}
		apply(cfg.Outputs[i].MQTT)
		applied = true
	}
	if !applied {
		m := DefaultMQTTConfig()
		out := OutputConfig{Type: "mqtt", MQTT: &m}
		apply(out.MQTT)
		cfg.Outputs = append(cfg.Outputs, out)
	}
	return nil
}

// normalize fills derived defaults: sensor names, output intervals and
// output sub-configs.
func (c *Config) normalize() {
	c.SensorType = strings.ToLower(strings.TrimSpace(c.SensorType))
	switch strings.ToLower(c.TemperatureUnit) {
	case "c", "", UnitCelsius:
		c.TemperatureUnit = UnitCelsius
	case "f", UnitFahrenheit:
		c.TemperatureUnit = UnitFahrenheit
	}
	for i := range c.Sensors {
		if c.Sensors[i].Name == "" {
			c.Sensors[i].Name = fmt.Sprintf("dht%d", i)
		}
	}
	for i := range c.Outputs {
		o := &c.Outputs[i]
		o.Type = strings.ToLower(strings.TrimSpace(o.Type))
		if o.IntervalMs == 0 {
			o.IntervalMs = c.IntervalMs
		}
		switch o.Type {
		case "mqtt":
			if o.MQTT == nil {
				m := DefaultMQTTConfig()
				o.MQTT = &m
			}
		case "sql":
			if o.SQL == nil {
				o.SQL = &SQLConfig{}
			}
			if o.SQL.Driver == "" {
				o.SQL.Driver = "sqlite3"
			}
			if o.SQL.DSN == "" {
				o.SQL.DSN = "dht2mqtt.db"
			}
		case "serial":
			if o.Serial == nil {
				o.Serial = &SerialConfig{}
			}
			if o.Serial.Baud == 0 {
				o.Serial.Baud = 9600
			}
		}
	}
}

// EnabledSensors returns the sensors that should be polled.
func (c Config) EnabledSensors() []SensorConfig {
	out := make([]SensorConfig, 0, len(c.Sensors))
	for _, s := range c.Sensors {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

func (c Config) Validate() error {
	if c.SensorType != SensorTypeReal && c.SensorType != SensorTypeSimulation {
		return fmt.Errorf("sensor_type must be %s or %s, got %q", SensorTypeReal, SensorTypeSimulation, c.SensorType)
	}
	if c.TemperatureUnit != UnitCelsius && c.TemperatureUnit != UnitFahrenheit {
		return fmt.Errorf("temperature_unit must be %s or %s, got %q", UnitCelsius, UnitFahrenheit, c.TemperatureUnit)
	}
	if c.IntervalMs <= 0 {
		return errors.New("interval_ms must be > 0")
	}
	if c.TickUs <= 0 {
		return errors.New("tick_us must be > 0")
	}
	if c.Retries < 0 {
		return errors.New("retries must be >= 0")
	}
	if c.MinReadIntervalMs < 0 || c.WarmupMs < 0 {
		return errors.New("min_read_interval_ms and warmup_ms must be >= 0")
	}

	enabled := c.EnabledSensors()
	if len(enabled) == 0 {
		return errors.New("no enabled sensors")
	}
	names := map[string]bool{}
	pins := map[string]bool{}
	for _, s := range enabled {
		if _, err := dht.ParseVariant(s.Variant); err != nil {
			return fmt.Errorf("sensor %s: %w", s.Name, err)
		}
		if c.SensorType == SensorTypeReal && s.Pin == "" {
			return fmt.Errorf("sensor %s: pin is required", s.Name)
		}
		if names[s.Name] {
			return fmt.Errorf("duplicate sensor name %q", s.Name)
		}
		names[s.Name] = true
		if s.Pin != "" {
			// one in-flight transaction per line
			if pins[s.Pin] {
				return fmt.Errorf("pin %s used by more than one sensor", s.Pin)
			}
			pins[s.Pin] = true
		}
	}

	for _, o := range c.Outputs {
		switch o.Type {
		case "console", "mqtt", "sql":
		case "serial":
			if o.Serial == nil || o.Serial.Port == "" {
				return errors.New("serial output requires a port")
			}
		default:
			return fmt.Errorf("unknown output type %q", o.Type)
		}
	}
	return nil
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// parseKeyIntMap parses "console=1000,mqtt=5000".
func parseKeyIntMap(s string) (map[string]int, error) {
	out := map[string]int{}
	for _, p := range parseCSV(s) {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("invalid entry '%s'", p)
		}
		v, err := strconv.Atoi(strings.TrimSpace(kv[1]))
		if err != nil {
			return nil, fmt.Errorf("invalid value in '%s': %w", p, err)
		}
		out[strings.TrimSpace(kv[0])] = v
	}
	return out, nil
}
