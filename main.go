package main

import "github.com/ericogr/dht-to-mqtt/cmd"

func main() {
	cmd.Execute()
}
