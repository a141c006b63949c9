// Package preflight provides readiness checks for the filesystem paths and
// external commands mediapack depends on.
//
// These checks run in two contexts:
//   - The packer calls CheckTemplate before starting a session so a missing
//     launcher fails once instead of once per job.
//   - The CLI "mediapack doctor" command runs RunAll and LookupTools and
//     renders the results.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
