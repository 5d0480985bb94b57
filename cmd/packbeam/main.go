package main

import "github.com/DrSkyle/packbeam/cmd/packbeam/commands"

func main() {
	commands.Execute()
}
