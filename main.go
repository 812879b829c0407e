package main

import "github.com/telebroad/lanshare/commands"

func main() {
	commands.Main()
}
