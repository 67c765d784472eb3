package keys

import (
	"regexp"
	"testing"
)

func TestFragment_Format(t *testing.T) {
	if got := Fragment(7, 1234, 32580); got != "frag:7:1234:32580" {
		t.Fatalf("Fragment=%q", got)
	}
	if got := Fragment(-1, 0, 0); got != "frag:-1:0:0" {
		t.Fatalf("Fragment=%q", got)
	}
	if got := Location(7, 1234); got != "loc:7:1234" {
		t.Fatalf("Location=%q", got)
	}
	if got := Message(99); got != "99" {
		t.Fatalf("Message=%q", got)
	}
}

func TestKeys_OnlySafeCharacters(t *testing.T) {
	re := regexp.MustCompile(`^[a-z]+:[0-9:\-]+$`)
	for _, k := range []string{Fragment(1, 2, 3), Location(9223372036854775807, -9223372036854775808)} {
		if !re.MatchString(k) {
			t.Fatalf("key has unexpected characters: %s", k)
		}
	}
}

func TestDigest_Determinism(t *testing.T) {
	a := Digest([]byte("0103000000"))
	if a != Digest([]byte("0103000000")) {
		t.Fatalf("digest not deterministic")
	}
	if a == Digest([]byte("0106000000")) {
		t.Fatalf("different payloads share a digest")
	}
}
