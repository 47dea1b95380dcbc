package prolly

// BytesCodec is the identity Codec over raw byte slices, used by
// tests that exercise the tree directly (spec.md §8 scenarios A/B)
// without a higher-level value type.
type BytesCodec struct{}

func (BytesCodec) Encode(v []byte) []byte { return v }

func (BytesCodec) Decode(raw []byte) ([]byte, error) {
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}
