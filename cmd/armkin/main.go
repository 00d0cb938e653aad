package main

import (
	"fmt"
	"os"
)

func main() {
	if err := realMain(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func realMain() error {
	return newRootCmd().Execute()
}
