package main

// Blank imports ensure plugin init() registration runs for the CLI binary.
import (
	_ "github.com/recollectlabs/recollect/internal/plugins/handles"
	_ "github.com/recollectlabs/recollect/internal/plugins/pslist"
)
