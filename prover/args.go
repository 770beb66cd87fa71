package prover

import (
	"fmt"

	"github.com/pkg/errors"
)

// maxDigestLen fits a hex encoded SHA-512
const maxDigestLen = 128

// Sentinel errors
var (
	ErrInvalidDigest    = fmt.Errorf("digest must be a non-empty hex string")
	ErrMissingProof     = fmt.Errorf("proof path is required")
	ErrUnknownOperation = fmt.Errorf("unknown operation")
)

// ValidateDigest checks that digest only holds hex characters. The value
// ends up both on the tool's command line and in a file name, so nothing
// else is allowed through.
func ValidateDigest(digest string) error {
	if digest == "" || len(digest) > maxDigestLen {
		return ErrInvalidDigest
	}
	for i := 0; i < len(digest); i++ {
		c := digest[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return errors.Wrapf(ErrInvalidDigest, "bad character at %d", i)
		}
	}
	return nil
}

// Args builds the tool's argument list. The templates mirror the tool's CLI:
//
//	stamp -d <digest>
//	verify <proof> -d <digest>       (node mode)
//	verify -i <proof> -d <digest>    (explorer mode)
//	upgrade <proof>
func Args(op Operation, mode Mode, req Request) ([]string, error) {
	switch op {
	case Stamp:
		if err := ValidateDigest(req.Digest); err != nil {
			return nil, err
		}
		return []string{"stamp", "-d", req.Digest}, nil
	case Verify:
		if err := ValidateDigest(req.Digest); err != nil {
			return nil, err
		}
		if req.ProofPath == "" {
			return nil, ErrMissingProof
		}
		if mode == ModeNode {
			return []string{"verify", req.ProofPath, "-d", req.Digest}, nil
		}
		return []string{"verify", "-i", req.ProofPath, "-d", req.Digest}, nil
	case Upgrade:
		if req.ProofPath == "" {
			return nil, ErrMissingProof
		}
		return []string{"upgrade", req.ProofPath}, nil
	default:
		return nil, errors.Wrap(ErrUnknownOperation, op.String())
	}
}

// StampOutputName is the file stamp leaves in its working directory
func StampOutputName(digest string) string {
	return digest + ".ots"
}
