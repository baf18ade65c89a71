package main

import "github.com/DrSkyle/skybalance/cmd/skybalance/commands"

func main() {
	commands.Execute()
}
