package main

import (
	"os"

	"github.com/alahiff/simtrack-client/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
