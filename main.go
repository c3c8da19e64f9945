// Package main is the entry point for the agora server and CLI.
package main

import (
	"fmt"
	"os"

	"agora/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
