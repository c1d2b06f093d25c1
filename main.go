package main

import "etalase/internal/cli"

func main() {
	cli.Execute()
}
