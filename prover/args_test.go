package prover

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -timeout 30s -run ^TestArgsTemplates$ github.com/LdDl/ots-potato/prover
func TestArgsTemplates(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		mode Mode
		req  Request
		want []string
	}{
		{
			name: "stamp",
			op:   Stamp,
			req:  Request{Digest: "deadbeef"},
			want: []string{"stamp", "-d", "deadbeef"},
		},
		{
			name: "verify explorer",
			op:   Verify,
			mode: ModeExplorer,
			req:  Request{Digest: "deadbeef", ProofPath: "/tmp/deadbeef.ots"},
			want: []string{"verify", "-i", "/tmp/deadbeef.ots", "-d", "deadbeef"},
		},
		{
			name: "verify node",
			op:   Verify,
			mode: ModeNode,
			req:  Request{Digest: "deadbeef", ProofPath: "/tmp/deadbeef.ots"},
			want: []string{"verify", "/tmp/deadbeef.ots", "-d", "deadbeef"},
		},
		{
			name: "upgrade",
			op:   Upgrade,
			req:  Request{ProofPath: "/tmp/AbC.ots"},
			want: []string{"upgrade", "/tmp/AbC.ots"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Args(tt.op, tt.mode, tt.req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// go test -timeout 30s -run ^TestArgsRejectsBadInput$ github.com/LdDl/ots-potato/prover
func TestArgsRejectsBadInput(t *testing.T) {
	_, err := Args(Stamp, ModeExplorer, Request{Digest: ""})
	assert.ErrorIs(t, err, ErrInvalidDigest)

	_, err = Args(Stamp, ModeExplorer, Request{Digest: "../../etc/passwd"})
	assert.ErrorIs(t, err, ErrInvalidDigest)

	_, err = Args(Verify, ModeExplorer, Request{Digest: "deadbeef"})
	assert.ErrorIs(t, err, ErrMissingProof)

	_, err = Args(Upgrade, ModeExplorer, Request{})
	assert.ErrorIs(t, err, ErrMissingProof)

	_, err = Args(Operation(42), ModeExplorer, Request{})
	assert.ErrorIs(t, err, ErrUnknownOperation)
}

// go test -timeout 30s -run ^TestValidateDigest$ github.com/LdDl/ots-potato/prover
func TestValidateDigest(t *testing.T) {
	assert.NoError(t, ValidateDigest("deadbeef"))
	assert.NoError(t, ValidateDigest("DEADBEEF0123456789abcdef"))
	assert.NoError(t, ValidateDigest("abc"), "length is not checked")

	assert.Error(t, ValidateDigest(""))
	assert.Error(t, ValidateDigest("deadbeeg"))
	assert.Error(t, ValidateDigest("dead beef"))
	assert.Error(t, ValidateDigest("-d"))
	assert.Error(t, ValidateDigest(strings.Repeat("a", maxDigestLen+1)))
}

// go test -timeout 30s -run ^TestStampOutputName$ github.com/LdDl/ots-potato/prover
func TestStampOutputName(t *testing.T) {
	assert.Equal(t, "deadbeef.ots", StampOutputName("deadbeef"))
}
