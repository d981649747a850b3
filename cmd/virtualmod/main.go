package main

import (
	"os"
	"virtualmod/internal/ui/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
