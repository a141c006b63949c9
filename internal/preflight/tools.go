package preflight

import (
	"os/exec"
	"runtime"
	"strings"

	"mediapack/internal/config"
)

// Tool is an external command mediapack can call.
type Tool struct {
	Name     string
	Command  string
	Purpose  string
	Optional bool
}

// ToolStatus is the result of resolving a Tool on PATH.
type ToolStatus struct {
	Tool
	// Path is the resolved executable; empty when the tool is unavailable.
	Path string
	Err  error
}

// Available reports whether the tool resolved.
func (s ToolStatus) Available() bool { return s.Path != "" }

// LookupTools resolves each tool's command with exec.LookPath.
func LookupTools(tools []Tool) []ToolStatus {
	statuses := make([]ToolStatus, 0, len(tools))
	for _, tool := range tools {
		tool.Command = strings.TrimSpace(tool.Command)
		status := ToolStatus{Tool: tool}
		if tool.Command == "" {
			status.Err = exec.ErrNotFound
		} else if path, err := exec.LookPath(tool.Command); err != nil {
			status.Err = err
		} else {
			status.Path = path
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// MissingRequired filters statuses down to unavailable, non-optional tools.
func MissingRequired(statuses []ToolStatus) []ToolStatus {
	var missing []ToolStatus
	for _, status := range statuses {
		if !status.Available() && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// ConfiguredTools lists the commands cfg makes mediapack depend on: lsblk for
// device enumeration on Linux and the configured player, if any.
func ConfiguredTools(cfg *config.Config) []Tool {
	var tools []Tool
	if runtime.GOOS == "linux" {
		tools = append(tools, Tool{
			Name:     "lsblk",
			Command:  "lsblk",
			Purpose:  "lists removable drives for allowlists and launch checks",
			Optional: true,
		})
	}
	if cfg != nil && len(cfg.Launcher.PlayerCommand) > 0 {
		tools = append(tools, Tool{
			Name:    "Player",
			Command: cfg.Launcher.PlayerCommand[0],
			Purpose: "launcher.player_command",
		})
	}
	return tools
}
