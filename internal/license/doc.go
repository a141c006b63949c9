// Package license builds and verifies the salted hardware-serial allowlist
// that restricts a container to specific USB devices.
//
// An entry is hex(SHA-256(salt ‖ serial)). The salt is configuration, not a
// constant, so it can be rotated; rotating it invalidates every container
// built with the old value.
package license
