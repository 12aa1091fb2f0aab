package main

import "github.com/sadopc/caltrack/internal/cli"

func main() {
	cli.Execute()
}
