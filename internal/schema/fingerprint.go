package schema

import (
	"bytes"
	"encoding/hex"
	"encoding/json"

	"golang.org/x/crypto/blake2b"

	"schemagate/internal/errors"
)

// Fingerprint returns the hex BLAKE2b-256 digest of the canonical form of a
// JSON document. Canonical form is compact JSON with object keys sorted, so
// formatting and key order do not change the fingerprint.
func Fingerprint(jsonData []byte) (string, error) {
	canonical, err := Canonicalize(jsonData)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize returns jsonData as compact JSON with sorted object keys.
func Canonicalize(jsonData []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonData))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "cannot canonicalize schema", err)
	}

	// encoding/json writes map keys in sorted order
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.NewSchemaGateError(errors.SchemaParseFailed, "cannot canonicalize schema", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
