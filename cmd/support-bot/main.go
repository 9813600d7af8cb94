package main

import (
	"os"

	"github.com/aiflownow/support-bot/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
