package main

import (
	"os"

	_ "go.uber.org/automaxprocs"
)

// Exit codes.
const (
	exitSuccess = 0
	exitError   = 1
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
