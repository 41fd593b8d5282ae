package artifact

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// fingerprintVersion is mixed into every hash so a change to payload layouts
// can invalidate the whole store at once.
const fingerprintVersion = "authorship/artifact/v1"

// Fingerprint hashes a stage's parameters and the fingerprints of the
// artifacts it consumes. Parameters are encoded as JSON; struct fields keep
// declaration order and map keys are sorted, so equal inputs always produce
// equal fingerprints. Upstream order is significant.
func Fingerprint(params any, upstream ...string) (string, error) {
	encoded, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode fingerprint parameters: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(fingerprintVersion))
	h.Write([]byte{0})
	h.Write(encoded)
	for _, fp := range upstream {
		h.Write([]byte{0})
		h.Write([]byte(fp))
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Short abbreviates a fingerprint for logs and tables.
func Short(fingerprint string) string {
	if len(fingerprint) > 12 {
		return fingerprint[:12]
	}
	return fingerprint
}
