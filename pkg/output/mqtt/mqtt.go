package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/output"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
	"github.com/sirupsen/logrus"
)

const (
	// defaults
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "dht2mqtt"
	DefaultStateTopic = "dht/%s"
	// discovery payload keys/values
	keyName                = "name"
	keyStateTopic          = "state_topic"
	keyUnitOfMeasurement   = "unit_of_measurement"
	keyDeviceClass         = "device_class"
	keyStateClass          = "state_class"
	keyValueTemplate       = "value_template"
	keyJSONAttributesTopic = "json_attributes_topic"
	keyUniqueID            = "unique_id"
	unitPercent            = "%"
	unitCelsius            = "°C"
	unitFahrenheit         = "°F"
	stateClassMeasurement  = "measurement"
	kindHumidity           = "humidity"
	kindTemperature        = "temperature"
)

type MQTTOutput struct {
	client mqtt.Client
	cfg    config.MQTTConfig
	log    logrus.FieldLogger
}

type statePayload struct {
	Humidity    float64   `json:"humidity"`
	Temperature float64   `json:"temperature"`
	Unit        string    `json:"unit"`
	Pin         string    `json:"pin,omitempty"`
	Variant     string    `json:"variant,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// NewMQTT connects to the broker and, when a discovery topic is configured,
// announces a humidity and a temperature entity for every sensor.
func NewMQTT(cfg config.MQTTConfig, sensors []config.SensorConfig, unit string) (output.Output, error) {
	applyDefaults(&cfg)
	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID).SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	m := newMQTTOutput(client, cfg)
	m.publishDiscovery(sensors, unit)
	return m, nil
}

func newMQTTOutput(client mqtt.Client, cfg config.MQTTConfig) *MQTTOutput {
	applyDefaults(&cfg)
	return &MQTTOutput{client: client, cfg: cfg, log: logrus.WithField("package", "mqtt")}
}

func applyDefaults(cfg *config.MQTTConfig) {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
}

// Publish sends the JSON state of every reading and, when configured, the
// bare values formatted with two decimals on their own topics.
func (m *MQTTOutput) Publish(readings []sensor.Reading) error {
	for _, r := range readings {
		b, err := json.Marshal(statePayload{
			Humidity:    r.Humidity,
			Temperature: r.Temperature,
			Unit:        r.Unit,
			Pin:         r.Pin,
			Variant:     r.Variant,
			Timestamp:   r.Timestamp,
		})
		if err != nil {
			return err
		}
		if err := m.PublishRaw(formatTopic(m.cfg.StateTopic, r.Sensor), b, m.cfg.Retain); err != nil {
			return fmt.Errorf("publish %s state: %w", r.Sensor, err)
		}
		if m.cfg.HumidityTopic != "" {
			v := fmt.Sprintf("%.2f", r.Humidity)
			if err := m.PublishRaw(formatTopic(m.cfg.HumidityTopic, r.Sensor), []byte(v), m.cfg.Retain); err != nil {
				return fmt.Errorf("publish %s humidity: %w", r.Sensor, err)
			}
		}
		if m.cfg.TemperatureTopic != "" {
			v := fmt.Sprintf("%.2f", r.Temperature)
			if err := m.PublishRaw(formatTopic(m.cfg.TemperatureTopic, r.Sensor), []byte(v), m.cfg.Retain); err != nil {
				return fmt.Errorf("publish %s temperature: %w", r.Sensor, err)
			}
		}
	}
	return nil
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

// PublishRaw publishes a raw payload to the given topic with the configured
// QoS. The caller can set the retain flag which is useful for discovery
// messages.
func (m *MQTTOutput) PublishRaw(topic string, payload []byte, retained bool) error {
	if m.client == nil {
		return fmt.Errorf("mqtt client not connected")
	}
	token := m.client.Publish(topic, m.cfg.QoS, retained, payload)
	token.Wait()
	return token.Error()
}

func (m *MQTTOutput) publishDiscovery(sensors []config.SensorConfig, unit string) {
	if m.cfg.DiscoveryTopic == "" {
		return
	}
	if !strings.Contains(m.cfg.DiscoveryTopic, "%s") {
		m.log.WithField("discovery_topic", m.cfg.DiscoveryTopic).Warn("discovery topic has no placeholder for the object id, skipping discovery")
		return
	}
	for _, s := range sensors {
		if !s.Enabled {
			continue
		}
		stateTopic := formatTopic(m.cfg.StateTopic, s.Name)
		for _, kind := range []string{kindHumidity, kindTemperature} {
			uid := discoveryUniqueID(m.cfg, s.Name, kind)
			payload := discoveryPayload(discoveryName(m.cfg, s.Name, kind), stateTopic, uid, kind, unit)
			b, err := json.Marshal(payload)
			if err != nil {
				m.log.WithError(err).Error("mqtt discovery encode")
				continue
			}
			if err := m.PublishRaw(fmt.Sprintf(m.cfg.DiscoveryTopic, uid), b, true); err != nil {
				m.log.WithError(err).WithField("sensor", s.Name).Error("mqtt discovery publish")
			}
		}
	}
}

// helper: expand a %s sensor placeholder if present
func formatTopic(base, sensorName string) string {
	if strings.Contains(base, "%s") {
		return fmt.Sprintf(base, sensorName)
	}
	return base
}

// helper: human-friendly discovery name, e.g. "DHT dht2mqtt attic temperature"
func discoveryName(cfg config.MQTTConfig, sensorName, kind string) string {
	name := cfg.DiscoveryName
	if name == "" {
		name = fmt.Sprintf("DHT %s", cfg.ClientID)
	}
	return fmt.Sprintf("%s %s %s", name, sensorName, kind)
}

// helper: unique id per sensor and measured quantity
func discoveryUniqueID(cfg config.MQTTConfig, sensorName, kind string) string {
	uid := cfg.DiscoveryUniqueID
	if uid == "" {
		uid = cfg.ClientID
	}
	return fmt.Sprintf("%s_%s_%s", uid, sensorName, kind)
}

func discoveryPayload(name, stateTopic, uniqueID, kind, unit string) map[string]interface{} {
	uom := unitPercent
	if kind == kindTemperature {
		uom = unitCelsius
		if unit == config.UnitFahrenheit {
			uom = unitFahrenheit
		}
	}
	return map[string]interface{}{
		keyName:                name,
		keyStateTopic:          stateTopic,
		keyUnitOfMeasurement:   uom,
		keyDeviceClass:         kind,
		keyStateClass:          stateClassMeasurement,
		keyValueTemplate:       fmt.Sprintf("{{ value_json.%s }}", kind),
		keyJSONAttributesTopic: stateTopic,
		keyUniqueID:            uniqueID,
	}
}
