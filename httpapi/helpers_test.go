package httpapi

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
	"github.com/stretchr/testify/require"
)

type invocation struct {
	op  prover.Operation
	req prover.Request
}

// fakeProver stands in for the gateway; fn may write files into req.Dir
// the way the real tool would
type fakeProver struct {
	mu    sync.Mutex
	calls []invocation
	fn    func(op prover.Operation, req prover.Request) (*prover.Result, error)
}

func (f *fakeProver) Invoke(ctx context.Context, op prover.Operation, req prover.Request) (*prover.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, invocation{op: op, req: req})
	f.mu.Unlock()
	if f.fn == nil {
		return &prover.Result{Op: op, Outcome: prover.Success}, nil
	}
	return f.fn(op, req)
}

func (f *fakeProver) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type testServer struct {
	root    string
	prover  *fakeProver
	handler http.Handler
}

func newTestServer(t *testing.T, fp *fakeProver, opts RouterOptions) *testServer {
	t.Helper()
	root := t.TempDir()
	store, err := artifact.NewStore(root)
	require.NoError(t, err)
	if opts.MaxBodyBytes == 0 {
		opts.MaxBodyBytes = 5 * 1024
	}
	return &testServer{
		root:    root,
		prover:  fp,
		handler: NewRouter(NewAPI(store, fp), opts),
	}
}

type part struct {
	name  string
	value []byte
}

func textPart(name, value string) part {
	return part{name: name, value: []byte(value)}
}

func multipartBody(t *testing.T, parts ...part) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, p := range parts {
		fw, err := mw.CreateFormField(p.name)
		require.NoError(t, err)
		_, err = fw.Write(p.value)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func (s *testServer) post(t *testing.T, path string, parts ...part) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, parts...)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// scratchEntries lists what is left in the scratch directory
func (s *testServer) scratchEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.root)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
