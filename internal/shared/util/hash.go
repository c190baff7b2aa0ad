package util

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

const promptHashLen = 16

// HashPrompt fingerprints the messages sent to the text backend so log lines
// for the same prompt can be grouped. Parts are length-prefixed, so moving
// text between them changes the hash.
func HashPrompt(parts ...string) string {
	h := sha256.New()
	var n [8]byte
	for _, p := range parts {
		binary.LittleEndian.PutUint64(n[:], uint64(len(p)))
		h.Write(n[:])
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))[:promptHashLen]
}
