// Package config loads, normalizes, and validates mediapack configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIAPACK_LICENSE_SALT and MEDIAPACK_TEMPLATE. Both the authoring CLI and the
// launcher obtain their settings here; the launcher additionally looks for a
// mediapack.toml beside its own executable.
package config
