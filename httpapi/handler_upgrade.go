package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
)

// HandleUpgrade completes a pending proof once its transaction has matured
// @Summary Upgrade a timestamp proof
// @Description Runs `upgrade <proof>` on a randomly named copy and returns the upgraded proof.
// @Tags Proofs
// @Accept multipart/form-data
// @Produce octet-stream
// @Param proof formData file true "proof (field 0)"
// @Success 200 {file} binary "upgraded proof (.ots)"
// @Failure 400 {string} string "tool output or input error"
// @Failure 413 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /upgrade [POST]
func (a *API) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	form, err := readForm(r)
	if err != nil {
		writeFormError(w, err)
		return
	}
	proof, err := form.proof(upgradeProof)
	if err != nil {
		writeFormError(w, err)
		return
	}

	key, err := artifact.RandomKey(upgradeKeyLen)
	if err != nil {
		slog.Error("failed to generate file name", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store proof")
		return
	}

	slog.Info("received upgrade request",
		"request_id", RequestID(r),
		"key", key,
		"proof_len", len(proof),
		"fingerprint", artifact.Fingerprint(proof),
	)

	sess, ok := a.openSession(w)
	if !ok {
		return
	}
	defer closeSession(sess)

	h, err := sess.Write(key, proof)
	if err != nil {
		slog.Error("failed to write proof", "request_id", RequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store proof")
		return
	}
	// upgrade rewrites h in place and keeps the original as h.bak
	defer artifact.DeleteIfExists(h.Backup())
	defer artifact.DeleteIfExists(h)

	res, err := a.prover.Invoke(r.Context(), prover.Upgrade, prover.Request{ProofPath: h.Path, Dir: sess.Dir()})
	if err != nil {
		writeInvokeError(w, err)
		return
	}
	if res.Outcome != prover.Success {
		writeRejection(w, r, res)
		return
	}

	upgraded, err := artifact.ReadAndDelete(h)
	if err != nil {
		slog.Error("upgraded proof missing", "request_id", RequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "prover produced no proof")
		return
	}

	slog.Info("proof upgraded",
		"request_id", RequestID(r),
		"proof_len", len(upgraded),
		"fingerprint", artifact.Fingerprint(upgraded),
	)
	writeProof(w, upgraded)
}
