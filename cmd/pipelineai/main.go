package main

import "github.com/rahul/pipelineai/internal/cli"

func main() {
	cli.Execute()
}
