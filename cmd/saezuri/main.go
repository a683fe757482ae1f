package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/saezuri/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "saezuri: %v\n", err)
		os.Exit(1)
	}
}
