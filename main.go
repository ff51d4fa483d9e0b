package main

import "github.com/bz888/solver/cmd"

func main() {
	cmd.Execute()
}
