package main

import (
	"context"
	"errors"

	"github.com/castellan/extract/failure"
)

// classifyExitCode maps a pipeline error to the CLI's exit codes.
func classifyExitCode(err error) int {
	if err == nil {
		return exitSuccess
	}

	switch {
	case errors.Is(err, failure.ErrFileNotFound),
		errors.Is(err, failure.ErrNoSuitablePlugin),
		errors.Is(err, failure.ErrComplianceViolation):
		return exitUserFacing
	case errors.Is(err, context.Canceled):
		return exitOperatorAbort
	default:
		return exitSystem
	}
}
