package collector

import (
	"testing"
)

func TestFingerprint_Stability(t *testing.T) {
	a := Fingerprint("news", "Go 1.25 Released", "body", "https://example.com/go")
	b := Fingerprint("news", "Go 1.25 Released", "different body", "https://example.com/go")

	if a != b {
		t.Errorf("Expected body to be ignored when URL is present")
	}

	if len(a) != 64 {
		t.Errorf("Expected 64-char hex digest, got %d chars", len(a))
	}
}

func TestFingerprint_NormalizesCaseAndWhitespace(t *testing.T) {
	a := Fingerprint("news", "Go 1.25  Released", "", "https://example.com/go")
	b := Fingerprint("news", "go 1.25 RELEASED", "", "HTTPS://EXAMPLE.COM/go")

	if a != b {
		t.Errorf("Expected case and whitespace differences to collapse to the same fingerprint")
	}
}

func TestFingerprint_DistinctTitles(t *testing.T) {
	a := Fingerprint("news", "Go 1.25 released", "", "https://example.com/go")
	b := Fingerprint("news", "Go 1.24 released", "", "https://example.com/go")

	if a == b {
		t.Errorf("Expected different titles to produce different fingerprints")
	}
}

func TestFingerprint_NoURLFallback(t *testing.T) {
	a := Fingerprint("reddit", "Homelab advice", "First post body", "")
	b := Fingerprint("twitter", "Homelab advice", "First post body", "")

	if a == b {
		t.Errorf("Expected source to scope URL-less fingerprints")
	}

	c := Fingerprint("reddit", "Homelab advice", "Different body", "")
	if a == c {
		t.Errorf("Expected body prefix to scope URL-less fingerprints")
	}
}
