// Package idgen generates the identifiers used across the index: point
// IDs for the vector store and the unique content hash used to detect
// stale documents during incremental reindexing.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/google/uuid"
)

// PointID derives a deterministic UUID for a chunk from its repo, path and
// byte range, so re-indexing the same span upserts rather than duplicates.
func PointID(repo, relativePath string, startByte, endByte int) string {
	key := repo + "\x00" + relativePath + "\x00" + itoa(startByte) + "\x00" + itoa(endByte)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// ContentHash returns the hex-encoded SHA256 digest of content. Bloop uses
// blake3 for this; the example corpus carries no blake3 binding, so SHA256
// (already used by the teacher's file-hash cache) stands in for it.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// UniqueHash combines a repo reference and content hash into the value
// stored against each indexed document to detect staleness.
func UniqueHash(repoRef, contentHash string) string {
	sum := sha256.Sum256([]byte(repoRef + "\x00" + contentHash))
	return hex.EncodeToString(sum[:])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
