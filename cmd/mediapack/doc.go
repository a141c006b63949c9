// Package main hosts the mediapack authoring CLI.
//
// The Cobra command tree packs media into self-extracting containers, manages
// USB allowlists, lists attached devices, reads the issued-hash audit history
// and inspects finished containers. Configuration is resolved lazily once per
// invocation so commands such as `config init` can run without a valid file.
package main
