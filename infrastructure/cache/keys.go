package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

const embeddingPrefix = "embed:"

// embeddingKey hashes the text so keys stay short and uniform
func embeddingKey(model, text string) string {
	sum := sha256.Sum256([]byte(text))
	return embeddingPrefix + model + ":" + hex.EncodeToString(sum[:])
}
