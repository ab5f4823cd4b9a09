package signature

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/xraph/cachehook/id"
)

// SecretPrefix marks webhook signing secrets.
const SecretPrefix = string(id.PrefixSecret) + "_"

// GenerateSecret returns SecretPrefix followed by 32 random bytes in hex.
func GenerateSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic("cachehook: read random secret: " + err.Error())
	}
	return SecretPrefix + hex.EncodeToString(b)
}
