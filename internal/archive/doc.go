// Package archive builds and unpacks the zip payload carried by a container.
// Entries are flat, named by the base name of each input, and deflated at the
// best compression level.
package archive
