// Package main is the entry point for the testshard CLI.
package main

import (
	"os"

	"github.com/AndreyAkinshin/testshard/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args[1:]))
}
