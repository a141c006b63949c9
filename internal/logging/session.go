package logging

import "log/slog"

// WithSession returns a logger whose records all carry session_id, so every
// line of one packing session can be grepped together.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	if logger == nil {
		return NewNop()
	}
	return logger.With(String(FieldSessionID, sessionID))
}
