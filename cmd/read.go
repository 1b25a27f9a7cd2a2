package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ericogr/dht-to-mqtt/pkg/output/console"
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Read the sensors once and print the result",
	RunE:  readOnce,
}

func init() {
	RootCmd.AddCommand(readCmd)
}

func readOnce(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := newSensor(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	readings, err := s.Read()
	if len(readings) > 0 {
		console.NewConsole().Publish(readings)
	}
	return err
}
