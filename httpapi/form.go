package httpapi

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"unicode/utf8"

	"github.com/pkg/errors"
)

// Sentinel errors
var (
	ErrBodyTooLarge   = fmt.Errorf("request body too large")
	ErrMalformedForm  = fmt.Errorf("malformed multipart body")
	ErrMissingField   = fmt.Errorf("missing form field")
	ErrDigestEncoding = fmt.Errorf("digest is not valid UTF-8 text")
)

// Field is one decoded multipart part
type Field struct {
	Name  string
	Value []byte
}

// Form keeps the parts in the order the client sent them
type Form []Field

// fieldRef tells where a route expects a value: a part with one of names,
// or else the part at index.
type fieldRef struct {
	index int
	names []string
}

// Field contracts of the three routes
var (
	stampDigest  = fieldRef{index: 0, names: []string{"digest"}}
	verifyDigest = fieldRef{index: 0, names: []string{"digest"}}
	verifyProof  = fieldRef{index: 1, names: []string{"proof", "file"}}
	upgradeProof = fieldRef{index: 0, names: []string{"proof", "file"}}
)

// readForm decodes a multipart body. Oversized bodies yield ErrBodyTooLarge,
// anything else unreadable ErrMalformedForm.
func readForm(r *http.Request) (Form, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, errors.Wrap(ErrMalformedForm, err.Error())
	}
	var form Form
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return form, nil
		}
		if err != nil {
			return nil, formError(err)
		}
		value, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, formError(err)
		}
		form = append(form, Field{Name: part.FormName(), Value: value})
	}
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errors.Wrapf(ErrBodyTooLarge, "limit %d bytes", tooLarge.Limit)
	}
	return errors.Wrap(ErrMalformedForm, err.Error())
}

// lookup finds the value for ref
func (f Form) lookup(ref fieldRef) ([]byte, error) {
	for _, name := range ref.names {
		for _, field := range f {
			if field.Name == name {
				return field.Value, nil
			}
		}
	}
	if ref.index < len(f) {
		return f[ref.index].Value, nil
	}
	return nil, errors.Wrapf(ErrMissingField, "%s (position %d)", ref.names[0], ref.index)
}

// digest returns the digest field as text
func (f Form) digest(ref fieldRef) (string, error) {
	raw, err := f.lookup(ref)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", ErrDigestEncoding
	}
	digest := string(bytes.TrimSpace(raw))
	if digest == "" {
		return "", errors.Wrap(ErrMissingField, "digest is empty")
	}
	return digest, nil
}

// proof returns a non-empty proof blob
func (f Form) proof(ref fieldRef) ([]byte, error) {
	raw, err := f.lookup(ref)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.Wrap(ErrMissingField, "proof is empty")
	}
	return raw, nil
}
