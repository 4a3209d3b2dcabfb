// Package main is the entry point for the playvars CLI.
package main

import "playvars.dev/pkg/playvars/cmd"

func main() {
	cmd.Execute()
}
