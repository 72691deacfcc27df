// Package main is the entrypoint for the genvid CLI.
package main

import "genvid/internal/cli"

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	cli.Execute(version)
}
