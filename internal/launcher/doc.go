// Package launcher is the runtime half of a container: it reads the trailer
// of its own executable, checks the embedded allowlist against attached
// devices, unseals and extracts the payload into a scratch directory and hands
// the media to a player.
//
// Every terminal condition maps to a stable process exit code; see ExitCode.
package launcher
