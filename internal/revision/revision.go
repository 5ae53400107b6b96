// Package revision mints and compares document revision tokens and handles
// document id composition for the replication gateway.
package revision

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/zeebo/blake3"
)

// Separator splits the type prefix from the entity key inside a document id.
// Entity keys may themselves contain the separator; only the first occurrence
// is structural.
const Separator = ":"

// New returns a fresh revision token. Tokens are fixed length and derived
// from 16 bytes of crypto randomness, so collisions are negligible and tokens
// can be treated as globally unique. The "1-" generation marker keeps
// CouchDB-style replicators happy; the core itself only compares tokens for
// exact equality.
func New() string {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		// crypto/rand never fails on supported platforms
		panic(fmt.Sprintf("revision: rand.Read: %v", err))
	}
	sum := blake3.Sum256(seed[:])
	return "1-" + hex.EncodeToString(sum[:16])
}

// Match reports whether a requested revision addresses the current one.
// Comparison is exact string equality: the gateway tracks a single revision
// branch, so there is no ancestry to consider.
func Match(requested, current string) bool {
	return requested == current
}

// ComposeID builds the protocol-level document id for an entity. Singleton
// document types are addressed by their bare prefix; everything else gets
// "<prefix>:<key>".
func ComposeID(prefix, key string, singleton bool) string {
	if singleton {
		return prefix
	}
	return prefix + Separator + key
}

// SplitID breaks a document id into its type prefix and entity key. The key
// is everything after the first separator and may be empty for singleton ids.
func SplitID(documentID string) (prefix, key string) {
	prefix, key, _ = strings.Cut(documentID, Separator)
	return prefix, key
}
