package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/oplmusic/pkg/app"
)

//go:embed assets
var assets embed.FS

func main() {
	application := app.New(assets)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
