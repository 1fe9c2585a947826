package of

// HeaderCodec is the external packet parser/serializer boundary (spec.md
// §1, §4.4 steps 1 and 5). The core never decodes an Ethernet frame itself;
// it asks a HeaderCodec to turn raw bytes into a HeaderValues and, for
// packets delivered to a pipe, to fold a modified HeaderValues back into
// the original bytes.
type HeaderCodec interface {
	// Parse extracts the L2-L4 fields from a raw frame (or frame prefix).
	Parse(raw []byte) (HeaderValues, error)

	// Sync re-serializes modified into raw, given the original headers raw
	// was parsed from (packet_sync_headers in spec.md §4.4 step 5). It must
	// only be called with a diff already checked against UnsupportedResync
	// — Sync itself is free to assume every changed field is supported.
	Sync(original, modified HeaderValues, raw []byte) ([]byte, error)
}
