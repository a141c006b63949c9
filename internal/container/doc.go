// Package container reads and writes the trailer that turns a launcher
// executable into a self-extracting media package.
//
// Layout, from the end of the launcher image:
//
//	payload | int64 LE payload length | "VIDPKG1\x00" | [license block]
//	license block = "HASHPKG1" | int64 LE text length | JSON array of hex digests
//
// The payload magic is the only anchor. Readers locate it with a bounded
// backward scan and take the rightmost occurrence, so media that happens to
// contain the magic bytes does not confuse them.
package container
