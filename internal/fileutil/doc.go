// Package fileutil holds the file primitives shared by the packer and the
// allowlist exporter: temp-then-rename writes and writable-directory checks.
package fileutil
