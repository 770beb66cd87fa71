package httpapi

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOTS mimics the command line surface of ots-cli.js. Stamped digests
// are remembered in $OTS_STATE so a second stamp reports "already exists".
const fakeOTS = `#!/bin/sh
echo "$@" >> "$OTS_LOG"
case "$1" in
stamp)
	if [ -f "$OTS_STATE/$3" ]; then
		echo "File $3.ots already exists"
		exit 0
	fi
	touch "$OTS_STATE/$3"
	printf 'PROOF:%s' "$3" > "$3.ots"
	echo "The timestamp proof '$3.ots' has been created!"
	;;
verify)
	if [ "$2" = "-i" ]; then f="$3"; d="$5"; else f="$2"; d="$4"; fi
	if [ "$(cat "$f")" = "PROOF:$d" ]; then
		echo "Success! Bitcoin block 358391 attests existence as of 2015-05-28 CEST"
		exit 0
	fi
	echo "File does not match original!"
	exit 1
	;;
upgrade)
	cp "$2" "$2.bak"
	printf ':UPGRADED' >> "$2"
	echo "Success! Timestamp complete"
	;;
*)
	echo "unknown command $1" >&2
	exit 2
	;;
esac
`

type e2e struct {
	*testServer
	log string
}

func newE2E(t *testing.T, mode prover.Mode) *e2e {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("needs a POSIX shell")
	}
	bin := t.TempDir()
	tool := filepath.Join(bin, "ots-cli.js")
	require.NoError(t, os.WriteFile(tool, []byte(fakeOTS), 0o755))

	state := t.TempDir()
	log := filepath.Join(state, "calls.log")
	t.Setenv("OTS_STATE", state)
	t.Setenv("OTS_LOG", log)

	root := t.TempDir()
	store, err := artifact.NewStore(root)
	require.NoError(t, err)
	gw := prover.New(tool,
		prover.WithTimeout(10*time.Second),
		prover.WithModeSelector(prover.FixedMode(mode)),
	)
	return &e2e{
		testServer: &testServer{
			root:    root,
			handler: NewRouter(NewAPI(store, gw), RouterOptions{MaxBodyBytes: 5 * 1024, EnableUpgrade: true}),
		},
		log: log,
	}
}

func (e *e2e) calls(t *testing.T) []string {
	t.Helper()
	data, err := os.ReadFile(e.log)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

// go test -timeout 30s -run ^TestE2EStampVerifyRoundTrip$ github.com/LdDl/ots-potato/httpapi
func TestE2EStampVerifyRoundTrip(t *testing.T) {
	e := newE2E(t, prover.ModeExplorer)

	rec := e.post(t, "/timestamp", textPart("digest", "deadbeef"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	proof := rec.Body.Bytes()
	assert.Equal(t, "PROOF:deadbeef", string(proof))
	assert.Empty(t, e.scratchEntries(t), "deadbeef.ots must be gone after the response")

	rec = e.post(t, "/verify", textPart("digest", "deadbeef"), part{name: "proof", value: proof})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Success! Bitcoin block 358391")

	calls := e.calls(t)
	require.Len(t, calls, 2)
	assert.Equal(t, "stamp -d deadbeef", calls[0])
	fields := strings.Fields(calls[1])
	require.Len(t, fields, 5)
	assert.Equal(t, []string{"verify", "-i"}, fields[:2])
	assert.Equal(t, "deadbeef.ots", filepath.Base(fields[2]))
	assert.Equal(t, []string{"-d", "deadbeef"}, fields[3:])
	assert.Empty(t, e.scratchEntries(t))
}

// go test -timeout 30s -run ^TestE2EStampTwice$ github.com/LdDl/ots-potato/httpapi
func TestE2EStampTwice(t *testing.T) {
	e := newE2E(t, prover.ModeExplorer)

	rec := e.post(t, "/timestamp", textPart("digest", "cafebabe"))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.post(t, "/timestamp", textPart("digest", "cafebabe"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "already exists")
	assert.NotContains(t, rec.Body.String(), "PROOF:")
	assert.Empty(t, e.scratchEntries(t))
}

// go test -timeout 30s -run ^TestE2EVerifyNodeMode$ github.com/LdDl/ots-potato/httpapi
func TestE2EVerifyNodeMode(t *testing.T) {
	e := newE2E(t, prover.ModeNode)

	rec := e.post(t, "/verify", textPart("digest", "deadbeef"), textPart("proof", "PROOF:deadbeef"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	fields := strings.Fields(e.calls(t)[0])
	require.Len(t, fields, 4)
	assert.Equal(t, "verify", fields[0])
	assert.Equal(t, []string{"-d", "deadbeef"}, fields[2:])
}

// go test -timeout 30s -run ^TestE2EVerifyMismatch$ github.com/LdDl/ots-potato/httpapi
func TestE2EVerifyMismatch(t *testing.T) {
	e := newE2E(t, prover.ModeExplorer)

	rec := e.post(t, "/verify", textPart("digest", "deadbeef"), textPart("proof", "PROOF:cafebabe"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File does not match original!\n", rec.Body.String())
	assert.Empty(t, e.scratchEntries(t))
}

// go test -timeout 30s -run ^TestE2EUpgrade$ github.com/LdDl/ots-potato/httpapi
func TestE2EUpgrade(t *testing.T) {
	e := newE2E(t, prover.ModeExplorer)
	pending := []byte("PROOF:deadbeef")

	rec := e.post(t, "/upgrade", part{name: "proof", value: pending})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "PROOF:deadbeef:UPGRADED", rec.Body.String())
	assert.False(t, bytes.Equal(pending, rec.Body.Bytes()))

	fields := strings.Fields(e.calls(t)[0])
	require.Len(t, fields, 2)
	assert.Equal(t, "upgrade", fields[0])
	assert.Regexp(t, `^[A-Za-z0-9]{24}\.ots$`, filepath.Base(fields[1]))
	_, err := os.Stat(fields[1])
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fields[1] + ".bak")
	assert.True(t, os.IsNotExist(err))
	assert.Empty(t, e.scratchEntries(t))
}

// go test -timeout 30s -run ^TestE2EToolMissing$ github.com/LdDl/ots-potato/httpapi
func TestE2EToolMissing(t *testing.T) {
	root := t.TempDir()
	store, err := artifact.NewStore(root)
	require.NoError(t, err)
	gw := prover.New(filepath.Join(t.TempDir(), "no-such-ots-cli.js"))
	s := &testServer{
		root:    root,
		handler: NewRouter(NewAPI(store, gw), RouterOptions{MaxBodyBytes: 5 * 1024}),
	}

	rec := s.post(t, "/verify", textPart("digest", "deadbeef"), textPart("proof", "P"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "prover unavailable")
	assert.Empty(t, s.scratchEntries(t))

	rec = get(s.handler, "/verify2")
	assert.Equal(t, http.StatusOK, rec.Code, "a failed request must not take the server down")
}
