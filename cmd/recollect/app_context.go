package main

import (
	"fmt"
	"os"

	"github.com/recollectlabs/recollect/internal/autodetect"
	"github.com/recollectlabs/recollect/internal/logger"
	"github.com/recollectlabs/recollect/internal/metadata"
	"github.com/recollectlabs/recollect/internal/plugins/pslist"
	"github.com/recollectlabs/recollect/internal/profile"
	"github.com/recollectlabs/recollect/internal/session"
)

// appContext bundles the per-invocation collaborators every subcommand
// needs: the session, the profile store it resolves against, and the
// metadata database built from the plugin registry.
type appContext struct {
	session *session.Session
	store   *profile.Store
	db      *metadata.Database
	log     *logger.Logger
}

func newAppContext(flags *rootFlags) (*appContext, error) {
	level := "info"
	if flags.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	store := profile.NewStore()
	if _, statErr := os.Stat(flags.profilesDir); statErr == nil {
		store, err = profile.LoadDir(flags.profilesDir)
		if err != nil {
			return nil, newCommandError("start", "loading profile definitions", err,
				"Fix or remove the offending profile file, or point --profiles elsewhere.")
		}
	}

	var progress session.ProgressFunc
	if flags.verbose {
		progress = func(format string, args ...any) {
			fmt.Fprintf(os.Stderr, format+"\n", args...)
		}
	}

	s := session.New(session.Config{
		Privileged: flags.privileged,
		Progress:   progress,
		Logger:     log,
		Detector:   autodetect.New(flags.image, store, log),
	})
	pslist.InstallHook(s)

	db, err := metadata.NewDatabase(s)
	if err != nil {
		return nil, err
	}

	return &appContext{session: s, store: store, db: db, log: log}, nil
}

func newCommandError(operation, context string, cause error, suggestion string) error {
	return &commandError{operation: operation, context: context, cause: cause, suggestion: suggestion}
}

type commandError struct {
	operation  string
	context    string
	cause      error
	suggestion string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("Failed to %s: %s\n\nError: %v\n\nSuggestion: %s", e.operation, e.context, e.cause, e.suggestion)
}

func (e *commandError) Unwrap() error { return e.cause }
