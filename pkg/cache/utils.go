package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// GenerateKey joins a namespace and an id.
func GenerateKey(prefix, id string) string {
	if prefix == "" {
		return id
	}
	return prefix + ":" + id
}

// HashJSON hashes the JSON encoding of v. Map keys are sorted by
// encoding/json, so equal values hash equally.
func HashJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash json: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// BuildPattern matches every key under prefix.
func BuildPattern(prefix string) string {
	return prefix + "*"
}
