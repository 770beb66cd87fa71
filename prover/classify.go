package prover

import (
	"bytes"
)

// alreadyExistsMarker is how the tool reports a zero-exit stamp that did
// nothing because the proof file was already on disk
var alreadyExistsMarker = []byte("already exists")

// Classifier maps a finished run to an Outcome.
type Classifier func(res RunResult) Outcome

// ExitStatus trusts the exit code alone.
func ExitStatus(res RunResult) Outcome {
	if res.ExitCode != 0 {
		return Failure
	}
	return Success
}

// AlreadyExists is ExitStatus plus a scan of the output for the "already
// exists" message, which the tool prints with a zero exit code.
func AlreadyExists(res RunResult) Outcome {
	if res.ExitCode != 0 {
		return Failure
	}
	if bytes.Contains(res.Stdout, alreadyExistsMarker) || bytes.Contains(res.Stderr, alreadyExistsMarker) {
		return RejectedAlreadyExists
	}
	return Success
}

func defaultClassifiers() map[Operation]Classifier {
	return map[Operation]Classifier{
		Stamp:   AlreadyExists,
		Verify:  ExitStatus,
		Upgrade: ExitStatus,
	}
}
