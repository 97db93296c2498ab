package main

import (
	"os"

	"github.com/jeepinbird/autoftp/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
