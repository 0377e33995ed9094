package main

import (
	"os"

	"github.com/koscakluka/huddle-core/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
