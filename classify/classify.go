// Package classify sorts opaque cache keys into categories and recovers
// (type, id) pairs from encoded keys.
package classify

import (
	"regexp"
	"strings"
)

// Category is the kind of a classified cache key.
type Category string

const (
	CategoryList      Category = "list"
	CategorySkipped   Category = "skipped"
	CategoryEncodedID Category = "encoded_id"
	CategoryUnknown   Category = "unknown"
)

// Categories lists every category in a stable order.
var Categories = []Category{CategoryList, CategorySkipped, CategoryEncodedID, CategoryUnknown}

const (
	listPrefix    = "list:"
	skippedPrefix = "skipped:"
)

var base64Key = regexp.MustCompile(`^[A-Za-z0-9+/]+={0,2}$`)

// Decoded is a (type, id) pair recovered from an encoded key.
type Decoded struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Classified is the result of classifying one key.
type Classified struct {
	Key      string   `json:"key"`
	Category Category `json:"category"`
	Decoded  *Decoded `json:"decoded,omitempty"`
}

// Decoder recovers a (type, id) pair from an opaque key.
type Decoder interface {
	Decode(key string) (Decoded, bool)
}

// DecoderFunc adapts a function to Decoder.
type DecoderFunc func(key string) (Decoded, bool)

// Decode implements Decoder.
func (f DecoderFunc) Decode(key string) (Decoded, bool) { return f(key) }

// Classifier classifies keys using a pluggable decoder.
type Classifier struct {
	decoder Decoder
}

// New returns a Classifier. A nil decoder selects RelayDecoder.
func New(decoder Decoder) *Classifier {
	if decoder == nil {
		decoder = RelayDecoder{}
	}
	return &Classifier{decoder: decoder}
}

// Classify never fails: anything it cannot place is CategoryUnknown.
func (c *Classifier) Classify(key string) (out Classified) {
	out = Classified{Key: key, Category: CategoryUnknown}

	switch {
	case strings.HasPrefix(key, listPrefix):
		out.Category = CategoryList
		return out
	case strings.HasPrefix(key, skippedPrefix):
		out.Category = CategorySkipped
		return out
	case !base64Key.MatchString(key):
		return out
	}

	// A panicking third-party decoder degrades to unknown.
	defer func() {
		if recover() != nil {
			out = Classified{Key: key, Category: CategoryUnknown}
		}
	}()

	d, ok := c.decoder.Decode(key)
	if !ok || d.Type == "" || d.ID == "" {
		return out
	}
	out.Category = CategoryEncodedID
	out.Decoded = &d
	return out
}

// Summarize counts keys per category. Categories with no keys are omitted.
func Summarize(keys []Classified) map[Category]int {
	out := make(map[Category]int)
	for _, k := range keys {
		out[k.Category]++
	}
	return out
}
