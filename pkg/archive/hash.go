package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// hashBlockSize bounds memory while hashing arbitrarily large payloads.
const hashBlockSize = 64 * 1024

// HashContent streams r through SHA-256 in fixed-size blocks and returns
// the hex digest and the number of bytes consumed.
func HashContent(r io.Reader) (string, int64, error) {
	h := sha256.New()
	buf := make([]byte, hashBlockSize)
	n, err := io.CopyBuffer(h, r, buf)
	if err != nil {
		return "", n, fmt.Errorf("hash content: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
