package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/output"
	"github.com/ericogr/dht-to-mqtt/pkg/output/console"
	"github.com/ericogr/dht-to-mqtt/pkg/output/history"
	mqttout "github.com/ericogr/dht-to-mqtt/pkg/output/mqtt"
	"github.com/ericogr/dht-to-mqtt/pkg/output/serialline"
	"github.com/ericogr/dht-to-mqtt/pkg/sensor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll the sensors and publish readings",
	Long: `Reads every configured sensor on a fixed interval and publishes the
readings to each output on that output's own interval, until interrupted.`,
	RunE: run,
}

func init() {
	RootCmd.AddCommand(runCmd)
}

type outputEntry struct {
	Out        output.Output
	Type       string
	IntervalMs int
	last       time.Time
}

// computeReadInterval returns the configured interval, never shorter than
// the minimum time the sensors need between two reads.
func computeReadInterval(cfg config.Config) time.Duration {
	ms := cfg.IntervalMs
	if ms < cfg.MinReadIntervalMs {
		ms = cfg.MinReadIntervalMs
	}
	return time.Duration(ms) * time.Millisecond
}

func initOutputs(cfg *config.Config, defaultInterval int) ([]outputEntry, error) {
	entries := make([]outputEntry, 0, len(cfg.Outputs))
	for i := range cfg.Outputs {
		o := &cfg.Outputs[i]
		if o.IntervalMs == 0 {
			o.IntervalMs = defaultInterval
		}
		out, err := newOutput(cfg, o)
		if err != nil {
			closeOutputs(entries)
			return nil, fmt.Errorf("output %s: %w", o.Type, err)
		}
		entries = append(entries, outputEntry{Out: out, Type: o.Type, IntervalMs: o.IntervalMs})
	}
	return entries, nil
}

func newOutput(cfg *config.Config, o *config.OutputConfig) (output.Output, error) {
	switch o.Type {
	case "console":
		return console.NewConsole(), nil
	case "mqtt":
		mc := config.MQTTConfig{}
		if o.MQTT != nil {
			mc = *o.MQTT
		}
		return mqttout.NewMQTT(mc, cfg.EnabledSensors(), cfg.TemperatureUnit)
	case "sql":
		sc := config.SQLConfig{Driver: "sqlite3", DSN: "dht2mqtt.db"}
		if o.SQL != nil {
			sc = *o.SQL
		}
		return history.NewHistory(sc)
	case "serial":
		if o.Serial == nil {
			return nil, fmt.Errorf("missing serial settings")
		}
		return serialline.NewSerial(*o.Serial)
	}
	return nil, fmt.Errorf("unknown output type %q", o.Type)
}

func closeOutputs(entries []outputEntry) {
	for _, e := range entries {
		if err := e.Out.Close(); err != nil {
			log.WithError(err).WithField("output", e.Type).Warn("close failed")
		}
	}
}

func newSensor(cfg config.Config) (sensor.Sensor, error) {
	if cfg.SensorType == config.SensorTypeSimulation {
		return sensor.NewFakeSensor(cfg)
	}
	return sensor.NewDHTSensor(cfg)
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newSensor(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	outs, err := initOutputs(&cfg, cfg.IntervalMs)
	if err != nil {
		return err
	}
	defer closeOutputs(outs)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interval := computeReadInterval(cfg)
	log.WithFields(logrus.Fields{
		"sensors":  len(cfg.EnabledSensors()),
		"outputs":  len(outs),
		"interval": interval,
	}).Info("starting")
	loop(ctx, s, outs, interval, time.Duration(cfg.WarmupMs)*time.Millisecond)
	log.Info("stopped")
	return nil
}

// loop waits for the sensors to settle after power up, then polls until ctx
// is cancelled.
func loop(ctx context.Context, s sensor.Sensor, outs []outputEntry, interval, warmup time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(warmup):
	}
	poll(s, outs, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			poll(s, outs, now)
		}
	}
}

// poll reads once and hands the readings to every output whose interval has
// elapsed. Failed sensors are logged and skipped.
func poll(s sensor.Sensor, outs []outputEntry, now time.Time) {
	readings, err := s.Read()
	if err != nil {
		log.WithError(err).Warn("sensor read failed")
	}
	if len(readings) == 0 {
		return
	}
	for i := range outs {
		e := &outs[i]
		if !e.last.IsZero() && now.Sub(e.last) < time.Duration(e.IntervalMs)*time.Millisecond {
			continue
		}
		if err := e.Out.Publish(readings); err != nil {
			log.WithError(err).WithField("output", e.Type).Warn("publish failed")
			continue
		}
		e.last = now
	}
}
