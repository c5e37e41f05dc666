// Package tiercache implements a multi-tier read-through cache with batch
// deduplication for expensive, mostly immutable lookups (search results,
// transcripts, analysis output).
//
// Components:
//   - tier.Store: byte store with TTL, ordered fastest first
//     (volatile in-process, local on-device, remote per-user).
//   - Codec[V]: (de)serializes V <-> []byte.
//   - Cache[V]: per-namespace coordinator. Reads probe tiers in order and
//     promote hits into faster tiers; writes go through to every ready tier
//     in parallel, each with its own TTL.
//
// Keys:
//
//	<ns>:v<n>:<digest>  - digest is a canonical hash of the request params,
//	                      so equivalent requests share one entry
//
// Read-through pattern:
//
//	cc, _ := tiercache.New(tiercache.Options[Transcript]{
//	    Namespace: "transcript",
//	    Tiers:     tiers, // shared stack, fastest first
//	    Codec:     codec.JSON[Transcript]{},
//	})
//	v, src, err := cc.GetOrProduce(ctx, videoID, fetchTranscript)
//
// A corrupt or expired entry is deleted and treated as a miss; the cache
// never surfaces decode failures to callers.
package tiercache
