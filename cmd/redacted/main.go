package main

import "redacted/internal/cli"

func main() {
	cli.Execute()
}
