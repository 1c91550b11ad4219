package main

import "github.com/agentic-research/pipeconv/cmd"

func main() {
	cmd.Execute()
}
