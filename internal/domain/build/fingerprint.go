package build

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint identifies one rendering of a page. Two responses with the
// same RenderHash are byte-identical.
type Fingerprint struct {
	ContentHash string
	ThemeHash   string
	ConfigHash  string
	RenderHash  string
}

func Hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (f *Fingerprint) ComputeRenderHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte(f.ThemeHash))
	h.Write([]byte(f.ConfigHash))
	f.RenderHash = hex.EncodeToString(h.Sum(nil))
}

// ETag is the strong entity tag for the fingerprint.
func (f *Fingerprint) ETag() string {
	if f.RenderHash == "" {
		f.ComputeRenderHash()
	}
	return `"` + f.RenderHash[:20] + `"`
}
