package classify

import (
	"encoding/base64"
	"strings"
	"unicode/utf8"
)

// RelayDecoder decodes Relay-style global IDs: standard base64 (padding
// optional) of "type:id", split on the first colon.
type RelayDecoder struct{}

// Decode implements Decoder.
func (RelayDecoder) Decode(key string) (Decoded, bool) {
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(key, "="))
	if err != nil || !utf8.Valid(raw) {
		return Decoded{}, false
	}

	typ, id, ok := strings.Cut(string(raw), ":")
	if !ok || typ == "" || id == "" {
		return Decoded{}, false
	}
	return Decoded{Type: typ, ID: id}, true
}

// EncodeRelayID is the inverse of RelayDecoder.Decode.
func EncodeRelayID(typ, id string) string {
	return base64.StdEncoding.EncodeToString([]byte(typ + ":" + id))
}
