package main

import (
	"os"

	"mover/internal/cli"
)

func main() { os.Exit(cli.Main()) }
