// Package prover drives the external OpenTimestamps command line tool. It
// builds the argument list for each operation, runs the tool as a child
// process and classifies what came back.
package prover

import (
	"fmt"
)

// Operation is one of the commands the prover tool understands
type Operation int

const (
	Stamp Operation = iota
	Verify
	Upgrade
)

func (op Operation) String() string {
	switch op {
	case Stamp:
		return "stamp"
	case Verify:
		return "verify"
	case Upgrade:
		return "upgrade"
	default:
		return fmt.Sprintf("operation(%d)", int(op))
	}
}

// Outcome is the verdict derived from exit status and output
type Outcome int

const (
	// Failure is a non-zero exit: the tool rejected the digest or proof
	Failure Outcome = iota
	// Success means the tool did what was asked
	Success
	// RejectedAlreadyExists is a zero exit whose output says the proof
	// file is already there. Callers treat it as a rejection.
	RejectedAlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case RejectedAlreadyExists:
		return "already_exists"
	default:
		return "failure"
	}
}

// Mode selects how the tool verifies proofs against the blockchain
type Mode int

const (
	// ModeExplorer ignores the local node and asks a public block explorer
	ModeExplorer Mode = iota
	// ModeNode verifies against a locally available full node
	ModeNode
)

func (m Mode) String() string {
	if m == ModeNode {
		return "node"
	}
	return "explorer"
}

// Request carries the inputs of one invocation.
type Request struct {
	// Digest is the hex digest for stamp and verify
	Digest string
	// ProofPath is the proof file for verify and upgrade
	ProofPath string
	// Dir is the working directory of the child process. Stamp writes
	// <digest>.ots there.
	Dir string
}

// Result is what one invocation produced. Files the tool wrote are not
// part of it: the caller knows where to look.
type Result struct {
	Op       Operation
	Mode     Mode
	Args     []string
	Outcome  Outcome
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Diagnostic is the text relayed to clients: stdout, or stderr when the tool
// printed nothing on stdout.
func (r *Result) Diagnostic() []byte {
	if len(r.Stdout) == 0 {
		return r.Stderr
	}
	return r.Stdout
}
