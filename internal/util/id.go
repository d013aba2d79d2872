package util

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewUUID returns a random (v4) UUID string used as a primary key.
func NewUUID() string {
	return uuid.NewString()
}

// NewToken returns n random bytes hex encoded.
func NewToken(n int) string {
	bytes := make([]byte, n)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// NewID returns a prefixed random identifier such as "rft_9f0c...".
func NewID(prefix string) string {
	token := NewToken(16)
	if prefix == "" {
		return token
	}
	return prefix + "_" + token
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a lexically sortable identifier.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// NewFilename returns a generated storage name keeping ext (".png" or "png").
func NewFilename(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return NewULID() + ext
}
