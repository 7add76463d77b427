package fingerprint

import "testing"

func TestSumIsDeterministic(t *testing.T) {
	a := Sum([]byte("INVOICE #123, Total $50"))
	b := Sum([]byte("INVOICE #123, Total $50"))
	if a != b {
		t.Errorf("same content produced different fingerprints: %s vs %s", a, b)
	}
}

func TestSumKnownValue(t *testing.T) {
	// sha256("abc"), RFC 6234 test vector.
	got := Sum([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Errorf("Sum(abc) = %s, want %s", got, want)
	}
}

func TestSumDistinguishesContent(t *testing.T) {
	if Sum([]byte("a")) == Sum([]byte("b")) {
		t.Error("different content produced the same fingerprint")
	}
}

func TestSumEmptyContent(t *testing.T) {
	got := Sum(nil)
	if len(got) != 64 {
		t.Errorf("expected 64 hex chars for empty content, got %d", len(got))
	}
}
