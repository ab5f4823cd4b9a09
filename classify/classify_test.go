package classify_test

import (
	"strconv"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/xraph/cachehook/classify"
)

func TestClassifyCategories(t *testing.T) {
	c := classify.New(nil)

	tests := []struct {
		key  string
		want classify.Category
	}{
		{"list:posts", classify.CategoryList},
		{"list:", classify.CategoryList},
		{"skipped:post", classify.CategorySkipped},
		{"cG9zdDox", classify.CategoryEncodedID},      // post:1
		{"dGVybToxMg==", classify.CategoryEncodedID},  // term:12
		{"dGVybToxMg", classify.CategoryEncodedID},    // unpadded
		{"cGHzdDox", classify.CategoryUnknown},        // not valid UTF-8 once decoded
		{"cG9zdA==", classify.CategoryUnknown},        // "post", no colon
		{"OjE=", classify.CategoryUnknown},            // ":1", empty type
		{"cG9zdDo=", classify.CategoryUnknown},        // "post:", empty id
		{"not-base64!", classify.CategoryUnknown},
		{"", classify.CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := c.Classify(tt.key)
			if got.Category != tt.want {
				t.Fatalf("Classify(%q) = %q, want %q", tt.key, got.Category, tt.want)
			}
			if got.Key != tt.key {
				t.Fatalf("expected key to be preserved, got %q", got.Key)
			}
			if tt.want != classify.CategoryEncodedID && got.Decoded != nil {
				t.Fatalf("expected no decoded pair for %q, got %+v", tt.key, got.Decoded)
			}
		})
	}
}

func TestClassifyDecodesFirstColon(t *testing.T) {
	c := classify.New(nil)

	got := c.Classify(classify.EncodeRelayID("post", "1"))
	if got.Decoded == nil || got.Decoded.Type != "post" || got.Decoded.ID != "1" {
		t.Fatalf("unexpected decode %+v", got.Decoded)
	}

	got = c.Classify(classify.EncodeRelayID("user", "a:b"))
	if got.Decoded == nil || got.Decoded.Type != "user" || got.Decoded.ID != "a:b" {
		t.Fatalf("expected split on first colon, got %+v", got.Decoded)
	}
}

func TestClassifyCustomDecoder(t *testing.T) {
	c := classify.New(classify.DecoderFunc(func(key string) (classify.Decoded, bool) {
		return classify.Decoded{Type: "term", ID: key}, true
	}))

	got := c.Classify("abc123")
	if got.Category != classify.CategoryEncodedID || got.Decoded.Type != "term" {
		t.Fatalf("expected custom decoder to be used, got %+v", got)
	}
}

func TestClassifyPanickingDecoder(t *testing.T) {
	c := classify.New(classify.DecoderFunc(func(string) (classify.Decoded, bool) {
		panic("decoder bug")
	}))

	got := c.Classify("abc123")
	if got.Category != classify.CategoryUnknown || got.Decoded != nil {
		t.Fatalf("expected unknown, got %+v", got)
	}
}

func TestSummarize(t *testing.T) {
	c := classify.New(nil)
	keys := []classify.Classified{
		c.Classify("cG9zdDox"),
		c.Classify("cG9zdDox"),
		c.Classify("list:posts"),
	}

	sum := classify.Summarize(keys)
	if len(sum) != 2 {
		t.Fatalf("expected 2 categories, got %v", sum)
	}
	if sum[classify.CategoryEncodedID] != 2 || sum[classify.CategoryList] != 1 {
		t.Fatalf("unexpected summary %v", sum)
	}
	if _, ok := sum[classify.CategoryUnknown]; ok {
		t.Fatal("zero-count categories must be omitted")
	}
}

func TestClassifyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	c := classify.New(nil)

	properties.Property("keys outside the base64 alphabet are unknown", prop.ForAll(
		func(s string) bool {
			got := c.Classify("!" + s)
			return got.Category == classify.CategoryUnknown && got.Decoded == nil
		},
		gen.AnyString(),
	))

	properties.Property("encoded ids decode back to their parts", prop.ForAll(
		func(typ string, n int) bool {
			got := c.Classify(classify.EncodeRelayID(typ, strconv.Itoa(n)))
			return got.Category == classify.CategoryEncodedID &&
				got.Decoded != nil &&
				got.Decoded.Type == typ &&
				got.Decoded.ID == strconv.Itoa(n)
		},
		gen.Identifier(),
		gen.IntRange(1, 1_000_000),
	))

	properties.Property("classification never panics", prop.ForAll(
		func(s string) bool {
			_ = c.Classify(s)
			return true
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
