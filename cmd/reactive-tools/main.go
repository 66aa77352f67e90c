package main

import (
	"os"

	"github.com/AuthenticExecution/reactive-tools/internal/reactivetools/cli"
)

func main() {
	os.Exit(cli.Execute())
}
