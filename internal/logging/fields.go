package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldInput is the source media path a packing job reads.
	FieldInput = "input"
	// FieldOutput is the container path a packing job writes.
	FieldOutput = "output"
	// FieldScratchDir is the launcher extraction directory.
	FieldScratchDir = "scratch_dir"
	// FieldState is the launcher state a log line belongs to.
	FieldState = "state"
	// FieldExitCode is the launcher process exit code.
	FieldExitCode = "exit_code"
	// FieldSessionID groups the lines of one packing session.
	FieldSessionID = "session_id"
)
