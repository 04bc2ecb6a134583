package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SourceHashPolicy computes a stable hash for an uploaded document so that
// re-uploading identical content is a no-op for the indexing pipeline.
type SourceHashPolicy interface {
	Compute(fileName, body string) string
}

type sourceHashPolicy struct{}

// NewSourceHashPolicy creates the default policy.
func NewSourceHashPolicy() SourceHashPolicy {
	return &sourceHashPolicy{}
}

// Compute hashes the trimmed file name and body. A null byte separates the
// two components so ("ab","c") and ("a","bc") cannot collide.
func (p *sourceHashPolicy) Compute(fileName, body string) string {
	content := strings.TrimSpace(fileName) + "\x00" + strings.TrimSpace(body)
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
