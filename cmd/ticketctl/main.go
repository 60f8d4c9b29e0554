package main

import (
	"fmt"
	"os"

	"github.com/spec-kit/service-desk/internal/cli"
)

func main() {
	root, closeDesk := cli.NewRootCmd(cli.Options{})
	err := root.Execute()
	closeDesk()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cli.FormatError(err))
		os.Exit(1)
	}
}
