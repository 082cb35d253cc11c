package main

import "github.com/agentic-research/autoinit/cmd"

func main() {
	cmd.Execute()
}
