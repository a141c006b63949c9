// Package packer turns media files into self-extracting containers.
//
// Each Job becomes one output: its inputs are zipped, optionally sealed with
// a password envelope, and appended with the session allowlist to a copy of
// the launcher template. Jobs run in parallel and fail independently.
package packer
