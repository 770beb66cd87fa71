package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
)

// HandleVerify checks a proof against a digest and relays the tool's verdict
// @Summary Verify a timestamp proof
// @Description Runs `verify [-i] <proof> -d <digest>`; -i is passed unless node-backed verification is configured.
// @Tags Proofs
// @Accept multipart/form-data
// @Produce plain
// @Param digest formData string true "hex digest (field 0)"
// @Param proof formData file true "proof (field 1)"
// @Success 200 {string} string "tool output"
// @Failure 400 {string} string "tool output or input error"
// @Failure 413 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /verify [POST]
func (a *API) HandleVerify(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	form, err := readForm(r)
	if err != nil {
		writeFormError(w, err)
		return
	}
	digest, err := form.digest(verifyDigest)
	if err != nil {
		writeFormError(w, err)
		return
	}
	proof, err := form.proof(verifyProof)
	if err != nil {
		writeFormError(w, err)
		return
	}
	if err := prover.ValidateDigest(digest); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("received verify request",
		"request_id", RequestID(r),
		"digest", digest,
		"proof_len", len(proof),
		"fingerprint", artifact.Fingerprint(proof),
	)

	sess, ok := a.openSession(w)
	if !ok {
		return
	}
	defer closeSession(sess)

	h, err := sess.Write(digest, proof)
	if err != nil {
		slog.Error("failed to write proof", "request_id", RequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store proof")
		return
	}
	defer artifact.DeleteIfExists(h)

	res, err := a.prover.Invoke(r.Context(), prover.Verify, prover.Request{
		Digest:    digest,
		ProofPath: h.Path,
		Dir:       sess.Dir(),
	})
	if err != nil {
		writeInvokeError(w, err)
		return
	}
	if res.Outcome != prover.Success {
		writeRejection(w, r, res)
		return
	}

	slog.Info("proof verified", "request_id", RequestID(r), "digest", digest, "mode", res.Mode.String())
	writeToolOutput(w, http.StatusOK, res.Stdout)
}
