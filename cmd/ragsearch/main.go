package main

import "ragsearch/internal/cli"

func main() {
	cli.Execute()
}
