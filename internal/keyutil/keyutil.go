// Package keyutil reduces request parameters to a canonical, deterministic
// cache-key digest. Two semantically identical parameter sets must hash to
// the same digest regardless of map/struct field ordering, so parameters
// are round-tripped through JSON and re-rendered in a canonical form
// (recursively sorted object keys, lowercased string scalars, null fields
// dropped) before hashing.
package keyutil

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Digest returns a 16-hex-char digest of the canonical form of params.
// Params must be JSON-serializable; anything else is an error and the
// caller must not cache.
func Digest(params any) (string, error) {
	c, err := Canonical(params)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(c)
	return hex.EncodeToString(sum[:8]), nil
}

// Canonical returns the canonical byte rendering of params.
func Canonical(params any) ([]byte, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	// Re-parse with UseNumber so numeric scalars keep their exact
	// JSON representation through the round trip.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := render(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func render(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(t.String())
	case string:
		b, err := json.Marshal(strings.ToLower(t))
		if err != nil {
			return err
		}
		buf.Write(b)
	case []any:
		buf.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := render(buf, el); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			if t[k] == nil { // absent and null fields are equivalent
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := render(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return fmt.Errorf("keyutil: unsupported value %T", v)
	}
	return nil
}
