package keyutil

import (
	"testing"
)

func TestDigestDeterministic(t *testing.T) {
	p := map[string]any{"query": "React Hooks", "max": 25}
	d1, err := Digest(p)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	d2, err := Digest(p)
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}
	if d1 != d2 {
		t.Fatalf("digest not deterministic: %q vs %q", d1, d2)
	}
	if len(d1) != 16 {
		t.Fatalf("digest length: got %d want 16", len(d1))
	}
}

func TestDigestOrderIndependent(t *testing.T) {
	type a struct {
		A int    `json:"a"`
		B string `json:"b"`
	}
	type b struct {
		B string `json:"b"`
		A int    `json:"a"`
	}

	d1, _ := Digest(a{A: 1, B: "x"})
	d2, _ := Digest(b{B: "x", A: 1})
	if d1 != d2 {
		t.Fatalf("field order must not matter: %q vs %q", d1, d2)
	}

	d3, _ := Digest(map[string]any{"a": 1, "b": 2})
	d4, _ := Digest(map[string]any{"b": 2, "a": 1})
	if d3 != d4 {
		t.Fatalf("map key order must not matter: %q vs %q", d3, d4)
	}
}

func TestDigestLowercasesStrings(t *testing.T) {
	d1, _ := Digest(map[string]any{"q": "React"})
	d2, _ := Digest(map[string]any{"q": "react"})
	if d1 != d2 {
		t.Fatalf("string case must not matter: %q vs %q", d1, d2)
	}
}

func TestDigestDropsNullFields(t *testing.T) {
	d1, _ := Digest(map[string]any{"q": "x", "filter": nil})
	d2, _ := Digest(map[string]any{"q": "x"})
	if d1 != d2 {
		t.Fatalf("null fields must be dropped: %q vs %q", d1, d2)
	}
}

func TestDigestDistinguishesValues(t *testing.T) {
	d1, _ := Digest(map[string]any{"q": "react"})
	d2, _ := Digest(map[string]any{"q": "vue"})
	if d1 == d2 {
		t.Fatalf("different params collided")
	}
}

func TestDigestNestedStructures(t *testing.T) {
	d1, _ := Digest(map[string]any{
		"q":       "go",
		"filters": map[string]any{"minViews": 100, "lang": "EN"},
	})
	d2, _ := Digest(map[string]any{
		"filters": map[string]any{"lang": "en", "minViews": 100},
		"q":       "GO",
	})
	if d1 != d2 {
		t.Fatalf("nested canonicalization failed: %q vs %q", d1, d2)
	}
}

func TestDigestRejectsUnserializable(t *testing.T) {
	if _, err := Digest(map[string]any{"f": func() {}}); err == nil {
		t.Fatalf("expected error for non-serializable params")
	}
	if _, err := Digest(make(chan int)); err == nil {
		t.Fatalf("expected error for channel params")
	}
}

func TestCanonicalStableNumbers(t *testing.T) {
	c1, err := Canonical(map[string]any{"n": 10})
	if err != nil {
		t.Fatalf("Canonical: %v", err)
	}
	c2, _ := Canonical(map[string]any{"n": 10})
	if string(c1) != string(c2) {
		t.Fatalf("numbers not stable: %s vs %s", c1, c2)
	}
}
