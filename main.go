// Package main is the entry point for the contagion CLI tool, which measures
// how often players start cheating after being killed by, or watching, an
// established cheater.
package main

import "github.com/pable/go-cs-contagion/cmd"

func main() {
	cmd.Execute()
}
