// Package scratch manages the per-launch extraction directories.
//
// Each directory is named vpkg_<uuid> and holds an advisory lock on a
// .vpkg.lock file for as long as its launcher uses it. Sweep removes every
// directory whose lock is free, which covers launchers that exited without
// cleaning up after a player they did not wait for.
package scratch
