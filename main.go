// Command triarb is the entry point for the triangular-arbitrage
// DEX-aggregator trading engine.
package main

import "github.com/solward/triarb/cmd"

func main() {
	cmd.Execute()
}
