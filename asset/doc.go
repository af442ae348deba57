// Package asset reads packaged engine content.
//
// A pack is a zip container with a pack.json manifest and payload
// members, optionally zstd-compressed (".zst" suffix). The manifest
// declares each payload's kind and layout plus the minimum engine
// version the content needs; Open enforces that gate before any
// payload is touched.
//
// Packs are byte-stream-in/byte-stream-out: nothing here knows about
// engine resources. The gateway turns entries into CreateResource
// commands.
package asset
