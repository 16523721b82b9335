package main

import "github.com/TruWeaveTrader/statarb/cmd"

func main() {
	cmd.Execute()
}
