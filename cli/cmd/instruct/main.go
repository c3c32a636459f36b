// Command instruct extracts schema-conforming JSON from chat-completion models.
package main

import (
	"errors"
	"os"

	"github.com/petal-labs/instructor/cli/commands"
)

type exitCoder interface {
	ExitCode() int
}

func main() {
	if err := commands.Execute(); err != nil {
		var ec exitCoder
		if errors.As(err, &ec) {
			os.Exit(ec.ExitCode())
		}
		os.Exit(1)
	}
}
