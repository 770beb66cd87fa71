package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/LdDl/ots-potato/artifact"
	"github.com/LdDl/ots-potato/prover"
)

// HandleTimestamp stamps a digest and returns the new proof
// @Summary Create a timestamp proof
// @Description Runs `stamp -d <digest>`. A digest that was already stamped is rejected with the tool's message.
// @Tags Proofs
// @Accept multipart/form-data
// @Produce octet-stream
// @Param digest formData string true "hex digest (field 0)"
// @Success 200 {file} binary "proof (.ots)"
// @Failure 400 {string} string "tool output or input error"
// @Failure 413 {object} httpapi.ErrorResponse
// @Failure 500 {object} httpapi.ErrorResponse
// @Router /timestamp [POST]
func (a *API) HandleTimestamp(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}
	form, err := readForm(r)
	if err != nil {
		writeFormError(w, err)
		return
	}
	digest, err := form.digest(stampDigest)
	if err != nil {
		writeFormError(w, err)
		return
	}
	if err := prover.ValidateDigest(digest); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	slog.Info("received timestamp request", "request_id", RequestID(r), "digest", digest)

	sess, ok := a.openSession(w)
	if !ok {
		return
	}
	defer closeSession(sess)

	// stamp writes <digest>.ots into its working directory
	res, err := a.prover.Invoke(r.Context(), prover.Stamp, prover.Request{Digest: digest, Dir: sess.Dir()})
	if err != nil {
		writeInvokeError(w, err)
		return
	}
	if res.Outcome != prover.Success {
		writeRejection(w, r, res)
		return
	}

	proof, err := artifact.ReadAndDelete(sess.Adopt(prover.StampOutputName(digest)))
	if err != nil {
		slog.Error("stamp reported success without a proof", "request_id", RequestID(r), "error", err)
		writeError(w, http.StatusInternalServerError, "prover produced no proof")
		return
	}

	slog.Info("digest stamped",
		"request_id", RequestID(r),
		"digest", digest,
		"proof_len", len(proof),
		"fingerprint", artifact.Fingerprint(proof),
	)
	writeProof(w, proof)
}
