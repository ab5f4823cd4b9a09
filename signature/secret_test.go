package signature_test

import (
	"strings"
	"testing"

	"github.com/xraph/cachehook/signature"
)

func TestGenerateSecret(t *testing.T) {
	a := signature.GenerateSecret()
	b := signature.GenerateSecret()

	if !strings.HasPrefix(a, "whsec_") {
		t.Errorf("expected prefix whsec_, got %q", a)
	}
	if len(a) != 70 {
		t.Errorf("expected length 70, got %d", len(a))
	}
	if a == b {
		t.Error("expected distinct secrets")
	}
	for _, c := range strings.TrimPrefix(a, "whsec_") {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("non-hex character %q in %q", c, a)
		}
	}
}
