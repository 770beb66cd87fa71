// Package artifact manages short-lived proof files that the external prover
// tool reads and writes on behalf of a single HTTP request.
package artifact

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ddulesov/gogost/gost34112012256"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// ProofSuffix marks a file as a serialized timestamp proof
	ProofSuffix = ".ots"
	// BackupSuffix is appended by the prover to the proof it upgrades in place
	BackupSuffix = ".bak"

	sessionPrefix = "ots-"
	alphanumeric  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Sentinel errors
var (
	ErrArtifactMissing = fmt.Errorf("artifact does not exist")
	ErrEmptyKey        = fmt.Errorf("artifact key is empty")
)

var safeKey = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// Store hands out per-request sessions under a shared scratch directory.
type Store struct {
	root string
}

// Handle points to a single artifact on disk.
type Handle struct {
	Path string
}

// NewStore prepares the scratch directory and makes sure it is writable.
func NewStore(root string) (*Store, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create scratch dir %s", root)
	}
	probe, err := os.CreateTemp(root, ".probe-*")
	if err != nil {
		return nil, errors.Wrapf(err, "scratch dir %s is not writable", root)
	}
	probe.Close()
	os.Remove(probe.Name())
	return &Store{root: root}, nil
}

// Root returns the scratch directory.
func (s *Store) Root() string {
	return s.root
}

// Session creates a private directory for the artifacts of one request.
func (s *Store) Session() (*Session, error) {
	dir := filepath.Join(s.root, sessionPrefix+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "failed to create session dir")
	}
	return &Session{dir: dir}, nil
}

// Session owns every artifact created while serving one request. Close
// removes all of them, including files the prover left behind.
type Session struct {
	dir string
}

// Dir returns the session directory.
func (s *Session) Dir() string {
	return s.dir
}

// Write stores data as <key>.ots inside the session.
func (s *Session) Write(key string, data []byte) (Handle, error) {
	if key == "" {
		return Handle{}, ErrEmptyKey
	}
	h := s.Adopt(FileKey(key) + ProofSuffix)
	f, err := os.OpenFile(h.Path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return Handle{}, errors.Wrap(err, "failed to create artifact")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(h.Path)
		return Handle{}, errors.Wrap(err, "failed to write artifact")
	}
	if err := f.Close(); err != nil {
		os.Remove(h.Path)
		return Handle{}, errors.Wrap(err, "failed to close artifact")
	}
	return h, nil
}

// Adopt returns a handle for a file named name inside the session, typically
// one produced by the prover.
func (s *Session) Adopt(name string) Handle {
	return Handle{Path: filepath.Join(s.dir, filepath.Base(name))}
}

// Close removes the session directory and everything in it.
func (s *Session) Close() error {
	return os.RemoveAll(s.dir)
}

// Backup returns the handle of the backup the prover leaves next to h.
func (h Handle) Backup() Handle {
	return Handle{Path: h.Path + BackupSuffix}
}

// ReadAndDelete returns the full contents of the artifact and removes it.
func ReadAndDelete(h Handle) ([]byte, error) {
	data, err := os.ReadFile(h.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrArtifactMissing, h.Path)
		}
		return nil, errors.Wrap(err, "failed to read artifact")
	}
	if err := os.Remove(h.Path); err != nil {
		return nil, errors.Wrap(err, "failed to remove artifact")
	}
	return data, nil
}

// DeleteIfExists removes the artifact, ignoring any error.
func DeleteIfExists(h Handle) {
	if h.Path == "" {
		return
	}
	_ = os.Remove(h.Path)
}

// FileKey turns a caller supplied key into a filename fragment. Keys made of
// the safe alphabet are kept as is, anything else is replaced by its
// Streebog-256 hex digest.
func FileKey(key string) string {
	if safeKey.MatchString(key) {
		return key
	}
	return Fingerprint([]byte(key))
}

// Fingerprint is the hex Streebog-256 of data.
func Fingerprint(data []byte) string {
	h := gost34112012256.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// RandomKey returns n random alphanumeric characters.
func RandomKey(n int) (string, error) {
	if n <= 0 {
		return "", ErrEmptyKey
	}
	limit := big.NewInt(int64(len(alphanumeric)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", errors.Wrap(err, "failed to read random source")
		}
		buf[i] = alphanumeric[idx.Int64()]
	}
	return string(buf), nil
}
