// Package device supplies removable storage identities for allowlist checks.
//
// Callers depend on the Provider and HostProber interfaces; how identities are
// obtained is a platform concern. On Linux they come from `lsblk -J`, and
// Monitor reports USB disks as udev announces them so authors can capture a
// serial by plugging the stick in.
package device
