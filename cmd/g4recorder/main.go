package main

import "github.com/gravity-api/g4-recorder/internal/cli"

func main() {
	cli.Execute()
}
