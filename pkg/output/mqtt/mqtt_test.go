package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeClient records publishes; any other mqtt.Client method panics.
type fakeClient struct {
	mqtt.Client
	published    []message
	err          error
	disconnected bool
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, message{topic, qos, retained, payload.([]byte)})
	return &doneToken{err: f.err}
}

func (f *fakeClient) Disconnect(quiesce uint) { f.disconnected = true }

type doneToken struct{ err error }

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }
func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func TestPublishState(t *testing.T) {
	fc := &fakeClient{}
	m := newMQTTOutput(fc, config.MQTTConfig{
		StateTopic:       "home/%s/state",
		HumidityTopic:    "mestrado/iot/%s/umidade",
		TemperatureTopic: "mestrado/iot/%s/temperatura",
		QoS:              1,
	})
	ts := time.Date(2025, 9, 19, 14, 41, 54, 0, time.UTC)
	err := m.Publish([]sensor.Reading{{Sensor: "attic", Variant: "dht22", Humidity: 65.2, Temperature: -2.5, Unit: "celsius", Timestamp: ts}})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(fc.published) != 3 {
		t.Fatalf("published %d messages; want 3", len(fc.published))
	}
	state := fc.published[0]
	if state.topic != "home/attic/state" || state.qos != 1 || state.retained {
		t.Fatalf("state message: %+v", state)
	}
	var got statePayload
	if err := json.Unmarshal(state.payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Humidity != 65.2 || got.Temperature != -2.5 || got.Variant != "dht22" || !got.Timestamp.Equal(ts) {
		t.Fatalf("state payload: %+v", got)
	}
	if fc.published[1].topic != "mestrado/iot/attic/umidade" || string(fc.published[1].payload) != "65.20" {
		t.Fatalf("humidity message: %s %s", fc.published[1].topic, fc.published[1].payload)
	}
	if fc.published[2].topic != "mestrado/iot/attic/temperatura" || string(fc.published[2].payload) != "-2.50" {
		t.Fatalf("temperature message: %s %s", fc.published[2].topic, fc.published[2].payload)
	}
}

func TestPublishDefaultTopicAndError(t *testing.T) {
	fc := &fakeClient{err: errors.New("not connected")}
	m := newMQTTOutput(fc, config.MQTTConfig{})
	err := m.Publish([]sensor.Reading{{Sensor: "dht0"}})
	if err == nil {
		t.Fatal("expected publish error")
	}
	if fc.published[0].topic != "dht/dht0" {
		t.Fatalf("default topic: %s", fc.published[0].topic)
	}
}

func TestPublishDiscovery(t *testing.T) {
	fc := &fakeClient{}
	m := newMQTTOutput(fc, config.MQTTConfig{DiscoveryTopic: "homeassistant/sensor/%s/config"})
	m.publishDiscovery([]config.SensorConfig{
		{Name: "attic", Enabled: true},
		{Name: "cellar", Enabled: false},
	}, config.UnitFahrenheit)

	if len(fc.published) != 2 {
		t.Fatalf("published %d discovery messages; want 2", len(fc.published))
	}
	temp := fc.published[1]
	if temp.topic != "homeassistant/sensor/dht2mqtt_attic_temperature/config" || !temp.retained {
		t.Fatalf("discovery message: %+v", temp)
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(temp.payload, &payload); err != nil {
		t.Fatal(err)
	}
	if payload[keyStateTopic] != "dht/attic" || payload[keyUnitOfMeasurement] != "°F" || payload[keyValueTemplate] != "{{ value_json.temperature }}" {
		t.Fatalf("discovery payload: %v", payload)
	}
}

func TestPublishDiscoveryWithoutPlaceholder(t *testing.T) {
	fc := &fakeClient{}
	m := newMQTTOutput(fc, config.MQTTConfig{DiscoveryTopic: "homeassistant/sensor/config"})
	logger, hook := test.NewNullLogger()
	m.log = logger
	m.publishDiscovery([]config.SensorConfig{{Name: "attic", Enabled: true}}, config.UnitCelsius)

	if len(fc.published) != 0 {
		t.Fatalf("published %d discovery messages; want none", len(fc.published))
	}
	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Data["discovery_topic"] != "homeassistant/sensor/config" {
		t.Fatalf("missing warning, got %+v", e)
	}
}

func TestClose(t *testing.T) {
	fc := &fakeClient{}
	m := newMQTTOutput(fc, config.MQTTConfig{})
	if err := m.Close(); err != nil || !fc.disconnected {
		t.Fatalf("Close: err=%v disconnected=%v", err, fc.disconnected)
	}
}
