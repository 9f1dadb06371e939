package cache

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a namespaced cache key.
func GenerateKey(prefix, id string) string {
	return fmt.Sprintf("%s:%s", prefix, id)
}

// HashKey digests arbitrary key material to a fixed-width hex string, so
// feature payloads of any size yield uniform keys.
func HashKey(key string) string {
	sum := md5.Sum([]byte(key))
	return hex.EncodeToString(sum[:])
}
