package main

import (
	"fmt"
	"os"

	pkgerrors "github.com/angelmondragon/maison-storefront/pkg/errors"
)

func main() {
	root, shutdown := newRootCmd(os.Stdout, os.Stderr)
	err := root.Execute()
	if closeErr := shutdown(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, pkgerrors.UserMessage(err))
		os.Exit(1)
	}
}
