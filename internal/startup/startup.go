package startup

import (
	"context"
	"log/slog"
	"os/exec"
	"strings"
)

// LookPath resolves an executable; replaced in tests.
var LookPath = exec.LookPath

// Preflight resolves command on PATH and logs the result.
// A missing executable is not fatal: calls report it to the client instead.
func Preflight(ctx context.Context, command string, logger *slog.Logger) (string, bool) {
	if strings.TrimSpace(command) == "" {
		return "", false
	}
	path, err := LookPath(command)
	if err != nil {
		if logger != nil {
			logger.WarnContext(ctx, "gemini executable not found", "command", command, "error", err)
		}
		return "", false
	}
	if logger != nil {
		logger.InfoContext(ctx, "gemini executable resolved", "command", command, "path", path)
	}
	return path, true
}
