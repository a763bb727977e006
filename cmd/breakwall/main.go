package main

import "github.com/bryanchriswhite/breakwall/cmd/breakwall/commands"

func main() {
	commands.Execute()
}
