package schema

import (
	"bytes"
	"encoding/hex"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
	"gopkg.in/yaml.v3"
)

// Format renders doc in canonical form: two-space indentation, keys in
// declaration order, no comments. Declaration order of messages, fields
// and enum constants is preserved since it is significant on the wire.
func Format(doc *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "failed to format schema")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "failed to format schema")
	}
	return buf.Bytes(), nil
}

// fingerprintContext separates schema fingerprints from other BLAKE3
// digests of the same bytes.
const fingerprintContext = "parcelgen 2024 schema fingerprint"

// Fingerprint returns the hex BLAKE3 digest of doc's canonical form.
// Formatting or comment changes in the source document do not change it.
func Fingerprint(doc *Document) (string, error) {
	canonical, err := Format(doc)
	if err != nil {
		return "", err
	}
	hasher := blake3.NewDeriveKey(fingerprintContext)
	hasher.Write(canonical)
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
