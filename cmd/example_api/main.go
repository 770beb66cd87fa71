package main

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

const (
	// HTTP API server address
	APIServer = "http://127.0.0.1:7777"
)

// ErrorResponse matches the JSON error response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id"`
}

type formField struct {
	name  string
	value []byte
}

func main() {
	var server string
	var input string
	flag.StringVar(&server, "server", APIServer, "API server address")
	flag.StringVar(&input, "file", "", "File to timestamp (default: a generated message)")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Step 1: Hash the content
	var content []byte
	if input != "" {
		data, err := os.ReadFile(input)
		if err != nil {
			slog.Error("failed to read file", "error", err)
			os.Exit(1)
		}
		content = data
	} else {
		content = []byte("hello from ots-potato at " + time.Now().UTC().Format(time.RFC3339Nano))
	}
	sum := sha256.Sum256(content)
	digest := hex.EncodeToString(sum[:])
	slog.Info("digest prepared", "digest", digest, "content_len", len(content))

	client := &http.Client{Timeout: 3 * time.Minute}

	// Step 2: Stamp the digest
	proof, err := post(client, server+"/timestamp", formField{"digest", []byte(digest)})
	if err != nil {
		slog.Error("failed to timestamp", "error", err)
		os.Exit(1)
	}
	slog.Info("proof received", "proof_len", len(proof))

	proofPath := digest + ".ots"
	if input != "" {
		proofPath = input + ".ots"
	}
	if err := os.WriteFile(proofPath, proof, 0644); err != nil {
		slog.Error("failed to save proof", "error", err)
		os.Exit(1)
	}
	slog.Info("proof saved", "file", proofPath)

	// Step 3: Verify. A fresh proof is still pending, the server relays why.
	verdict, err := post(client, server+"/verify",
		formField{"digest", []byte(digest)},
		formField{"proof", proof},
	)
	if err != nil {
		slog.Warn("verification not successful yet", "error", err)
	} else {
		slog.Info("verified", "verdict", string(verdict))
	}

	// Step 4: Try to upgrade. Succeeds only once the transaction has matured.
	upgraded, err := post(client, server+"/upgrade", formField{"proof", proof})
	if err != nil {
		slog.Warn("upgrade not possible yet", "error", err)
		return
	}
	if err := os.WriteFile(proofPath, upgraded, 0644); err != nil {
		slog.Error("failed to save upgraded proof", "error", err)
		os.Exit(1)
	}
	slog.Info("upgraded proof saved", "file", proofPath, "proof_len", len(upgraded))
}

// post sends fields as multipart/form-data in the given order
func post(client *http.Client, url string, fields ...formField) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range fields {
		part, err := writer.CreateFormField(f.name)
		if err != nil {
			return nil, fmt.Errorf("failed to create form field: %w", err)
		}
		if _, err := part.Write(f.value); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close writer: %w", err)
	}

	resp, err := client.Post(url, writer.FormDataContentType(), &buf)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp ErrorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
			return nil, fmt.Errorf("API error: %s (request %s)", errResp.Error, errResp.RequestID)
		}
		// Rejections carry the prover's own text
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return body, nil
}
