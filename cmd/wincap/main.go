package main

import "github.com/bryanchriswhite/wincap/cmd/wincap/commands"

func main() {
	commands.Execute()
}
