package caching

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// hashJSON returns a hash of the JSON serialization of data, keys in maps
// are sorted by encoding/json so equivalent options hash the same.
func hashJSON(data interface{}) string {
	b, err := json.Marshal(data)
	if err != nil {
		panic(errors.Wrap(err, "expected options to be JSON serializable"))
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
