package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key builds a deterministic "scope:digest" key from parts.
func Key(scope string, parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v\x00", part)
	}

	return scope + ":" + hex.EncodeToString(h.Sum(nil)[:16])
}
