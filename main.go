package main

import "github.com/timfernix/duplicate-finder/cmd"

func main() {
	cmd.Execute()
}
