package main

import "github.com/confbuddy/companion-api/cmd"

func main() {
	cmd.Execute()
}
