// Package textutil turns user-supplied labels into names that are safe to use
// as file and directory names on every platform the packer targets.
package textutil
