package main

import "github.com/ppiankov/drivewatch/internal/cli"

func main() {
	cli.Execute()
}
