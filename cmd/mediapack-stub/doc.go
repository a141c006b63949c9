// Package main is the launcher template: the binary every packed container
// starts from. At run time it finds the payload appended to its own
// executable, checks the embedded allowlist against attached USB devices,
// decrypts and extracts the media into a scratch directory and hands it to a
// player. The process exit status reports how far it got.
package main
