// Copyright 2019 Lanikai Labs. All rights reserved.

package dtlsdriver

import "testing"

func TestEqualFingerprint(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "AB:CD:EF", "AB:CD:EF", true},
		{"case insensitive", "ab:cd:ef", "AB:CD:EF", true},
		{"colon insensitive", "ABCDEF", "AB:CD:EF", true},
		{"mismatch", "AB:CD:EF", "AB:CD:00", false},
		{"different length", "AB:CD", "AB:CD:EF", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := equalFingerprint(c.a, c.b); got != c.want {
				t.Errorf("equalFingerprint(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
			}
		})
	}
}

func TestFingerprintUnsupportedAlgorithm(t *testing.T) {
	if _, err := fingerprint("md5", []byte{1, 2, 3}); err == nil {
		t.Error("expected error for unsupported fingerprint algorithm")
	}
}

func TestFingerprintSHA256Deterministic(t *testing.T) {
	der := []byte("fake-certificate-bytes")
	a, err := fingerprint("sha-256", der)
	if err != nil {
		t.Fatalf("fingerprint: %v", err)
	}
	b, _ := fingerprint("SHA-256", der)
	if a != b {
		t.Errorf("fingerprint algorithm name should be case-insensitive: %q != %q", a, b)
	}
}
