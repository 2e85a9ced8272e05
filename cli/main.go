// Package main provides a command-line client for the roundtable discussion server.
package main

import "github.com/xiaot623/roundtable/cli/cmd"

func main() {
	cmd.Execute()
}
