package main

import (
	"os"

	"github.com/halfmoor/go-screentime-monitor/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
