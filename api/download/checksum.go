package download

import (
	"encoding/hex"
	"fmt"
	"hash"
	"strings"
)

// checksumVerifier hashes everything written to it. The expected digest
// is compared case-insensitively, so upper-case hex is accepted.
type checksumVerifier struct {
	hash.Hash
	expected string
}

// Verify is a no-op on a nil verifier.
func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	if sum := hex.EncodeToString(v.Sum(nil)); !strings.EqualFold(sum, v.expected) {
		return &Error{
			Err:    ErrChecksumMismatch,
			Detail: fmt.Sprintf("expected %s, got %s", v.expected, sum),
		}
	}

	return nil
}
