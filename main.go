// Package main is the entry point for the pbpposs CLI tool, which segments
// basketball play-by-play logs into team possessions.
package main

import "github.com/pable/go-pbp-possessions/cmd"

func main() {
	cmd.Execute()
}
