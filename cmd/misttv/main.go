// Package main is the entry point for the misttv application.
package main

import (
	"os"

	"github.com/misttv/misttv/cmd/misttv/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
