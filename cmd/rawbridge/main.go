package main

import (
	"os"

	"rawbridge-core/internal/app/cli"
)

func main() {
	os.Exit(cli.Execute())
}
