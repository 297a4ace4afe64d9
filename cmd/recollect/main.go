package main

import (
	"fmt"
	"os"

	recollecterrors "github.com/recollectlabs/recollect/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// A plugin aborting its own run is a normal termination.
		if recollecterrors.IsAbort(err) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
