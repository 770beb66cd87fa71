package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
	"github.com/pkg/errors"
)

// upgradeKeyLen is the length of the random file name used for upgrades
const upgradeKeyLen = 24

// Prover runs one operation of the external tool
type Prover interface {
	Invoke(ctx context.Context, op prover.Operation, req prover.Request) (*prover.Result, error)
}

// API holds the dependencies shared by the proof handlers
type API struct {
	store  *artifact.Store
	prover Prover
}

// NewAPI wires the handlers to a scratch store and a prover
func NewAPI(store *artifact.Store, p Prover) *API {
	return &API{store: store, prover: p}
}

// openSession creates the request's scratch directory. The caller must
// defer closeSession.
func (a *API) openSession(w http.ResponseWriter) (*artifact.Session, bool) {
	sess, err := a.store.Session()
	if err != nil {
		slog.Error("failed to open scratch session", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to prepare scratch space")
		return nil, false
	}
	return sess, true
}

func closeSession(sess *artifact.Session) {
	if err := sess.Close(); err != nil {
		slog.Warn("failed to clean scratch session", "dir", sess.Dir(), "error", err)
	}
}

// writeFormError maps readForm and field lookup errors to a response
func writeFormError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrBodyTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

// writeInvokeError maps gateway faults to a response. Only input problems
// are the client's fault; everything else is ours.
func writeInvokeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, prover.ErrInvalidDigest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, prover.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "prover timed out")
	case errors.Is(err, prover.ErrCanceled):
		// nobody is left to read a response
		slog.Info("client went away, prover run canceled",
			"request_id", w.Header().Get(RequestIDHeader),
		)
	case errors.Is(err, prover.ErrLaunch):
		slog.Error("prover could not be started", "error", err)
		writeError(w, http.StatusInternalServerError, "prover unavailable")
	case errors.Is(err, prover.ErrCrashed):
		slog.Error("prover crashed", "request_id", w.Header().Get(RequestIDHeader), "error", err)
		writeError(w, http.StatusInternalServerError, "prover crashed")
	default:
		slog.Error("prover invocation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "prover invocation failed")
	}
}

// writeRejection relays the tool's verdict for anything but Success
func writeRejection(w http.ResponseWriter, r *http.Request, res *prover.Result) {
	slog.Info("prover rejected request",
		"request_id", RequestID(r),
		"op", res.Op.String(),
		"outcome", res.Outcome.String(),
		"exit_code", res.ExitCode,
	)
	writeToolOutput(w, http.StatusBadRequest, res.Diagnostic())
}

func requirePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
