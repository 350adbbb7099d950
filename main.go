package main

import "github.com/jjenkins/althingi/cmd"

func main() {
	cmd.Execute()
}
