package main

import "flipcheck/internal/cli"

func main() {
	cli.Execute()
}
