package signature_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"
	"time"

	"github.com/xraph/cachehook/signature"
)

func TestSignKnownVector(t *testing.T) {
	payload := []byte(`{"event":"post_updated"}`)
	secret := "whsec_testsecret123"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(`1700000000.{"event":"post_updated"}`))
	want := "v1=" + hex.EncodeToString(mac.Sum(nil))

	if got := signature.Sign(payload, secret, 1700000000); got != want {
		t.Fatalf("Sign() = %q, want %q", got, want)
	}
}

func TestVerify(t *testing.T) {
	payload := []byte(`{"a":1}`)
	sig := signature.Sign(payload, "s1", 42)

	if !signature.Verify(payload, "s1", 42, sig) {
		t.Fatal("expected valid signature")
	}
	if signature.Verify(payload, "s2", 42, sig) {
		t.Fatal("wrong secret should fail")
	}
	if signature.Verify([]byte(`{"a":2}`), "s1", 42, sig) {
		t.Fatal("tampered payload should fail")
	}
}

func TestCanonicalIsOrderIndependent(t *testing.T) {
	a, err := signature.Canonical(map[string]any{"b": 1, "a": []any{"x", 2.50}})
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != `{"a":["x",2.5],"b":1}` {
		t.Fatalf("unexpected canonical form %s", a)
	}
}

func TestVerifierCheck(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	v := signature.Verifier{Tolerance: time.Minute, Now: func() time.Time { return now }}
	payload := []byte(`{}`)

	sig := signature.Sign(payload, "s", now.Unix())
	if err := v.Check(payload, "s", now.Unix(), sig); err != nil {
		t.Fatal(err)
	}

	old := now.Add(-2 * time.Minute).Unix()
	if err := v.Check(payload, "s", old, signature.Sign(payload, "s", old)); !errors.Is(err, signature.ErrTimestampSkew) {
		t.Fatalf("expected ErrTimestampSkew, got %v", err)
	}

	if err := v.Check(payload, "s", now.Unix(), "v1=00"); !errors.Is(err, signature.ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}
}
