// Package codec (de)serializes cached values to the bytes stored inside
// tier envelopes. Payloads in this system are JSON-shaped domain values
// (search result pages, transcripts, analysis blobs); JSON is the default,
// msgpack/cbor trade readability for size on the durable tiers.
package codec

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
