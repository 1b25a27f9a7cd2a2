package cmd

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ericogr/dht-to-mqtt/pkg/config"
	"github.com/ericogr/dht-to-mqtt/pkg/output/history"
)

var cfgFile string
var verbose bool

var log = logrus.WithField("package", "cmd")

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "dht2mqtt",
	Short: "DHT11/DHT22/SI7021 sensor bridge",
	Long: `dht2mqtt reads single-wire humidity and temperature sensors wired to
GPIO lines and publishes the readings to MQTT, a SQL database, a serial
line or the console.`,
	SilenceUsage: true,
}

// Execute runs the root command. Called once by main.main().
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func init() {
	viper.SetEnvPrefix("DHT2MQTT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	def := config.DefaultConfig()
	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (JSON or YAML)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	flags.String("sensor-type", def.SensorType, "Sensor type, one of [real, simulation]")
	flags.Int("interval-ms", def.IntervalMs, "Read interval in milliseconds")
	flags.Int("tick-us", def.TickUs, "Pin polling tick in microseconds")
	flags.Int("retries", def.Retries, "Extra attempts after a failed read")
	flags.String("temperature-unit", def.TemperatureUnit, "Temperature unit, one of [celsius, fahrenheit]")
	flags.String("log-level", def.LogLevel, "Log level")
	bind(flags.Lookup("sensor-type"), "sensor_type")
	bind(flags.Lookup("interval-ms"), "interval_ms")
	bind(flags.Lookup("tick-us"), "tick_us")
	bind(flags.Lookup("retries"), "retries")
	bind(flags.Lookup("temperature-unit"), "temperature_unit")
	bind(flags.Lookup("log-level"), "log_level")

	// shortcuts that rewrite parts of the sensor and output lists
	flags.String("pin", "", "GPIO pin of a single sensor, e.g. GPIO4")
	flags.String("variant", "", "Variant of a single sensor, one of [dht11, dht22, si7021]")
	flags.Bool("pull-up", true, "Enable the internal pull-up on the sensor pin")
	flags.String("outputs", "", "Comma separated outputs, e.g. console,mqtt,sql,serial")
	flags.String("output-intervals", "", "Per output intervals, e.g. mqtt=1000,console=5000")
	flags.String("mqtt-server", "", "MQTT broker, e.g. tcp://localhost:1883")
	flags.String("mqtt-user", "", "MQTT username")
	flags.String("mqtt-pass", "", "MQTT password")
	flags.String("mqtt-client-id", "", "MQTT client id")
	flags.String("mqtt-topic", "", "MQTT state topic, %s is replaced by the sensor name")
	bind(flags.Lookup("pin"), config.KeyPin)
	bind(flags.Lookup("variant"), config.KeyVariant)
	bind(flags.Lookup("pull-up"), config.KeyPullUp)
	bind(flags.Lookup("outputs"), config.KeyOutputTypes)
	bind(flags.Lookup("output-intervals"), config.KeyOutputIntervals)
	bind(flags.Lookup("mqtt-server"), config.KeyMQTTServer)
	bind(flags.Lookup("mqtt-user"), config.KeyMQTTUser)
	bind(flags.Lookup("mqtt-pass"), config.KeyMQTTPass)
	bind(flags.Lookup("mqtt-client-id"), config.KeyMQTTClientID)
	bind(flags.Lookup("mqtt-topic"), config.KeyMQTTTopic)

	RootCmd.PersistentFlags().Lookup("outputs").Usage += " (sql drivers: " + strings.Join(history.Drivers(), ", ") + ")"
}

func bind(f *pflag.Flag, key string) {
	if err := viper.BindPFlag(key, f); err != nil {
		panic(err)
	}
}

// loadConfig reads the configuration and sets the log level from it.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return cfg, err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return cfg, err
	}
	if verbose {
		level = logrus.DebugLevel
	}
	logrus.SetLevel(level)
	return cfg, nil
}
