package main

import (
	"fmt"
	"os"

	"github.com/kbukum/gohost/cmd/gohost/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gohost:", err)
		os.Exit(1)
	}
}
