package deps

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Environment variables naming the toolchain binaries. They take precedence
// over configured values so container images can pin exact paths.
const (
	EnvTranscoderPath = "FFMPEG_PATH"
	EnvProberPath     = "FFPROBE_PATH"
)

// ResolveTranscoder returns the transcoder binary splice will execute.
func ResolveTranscoder(configured string) string {
	return resolve(EnvTranscoderPath, configured, "ffmpeg")
}

// ResolveProber returns the prober binary splice will execute.
func ResolveProber(configured string) string {
	return resolve(EnvProberPath, configured, "ffprobe")
}

func resolve(envKey, configured, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(envKey)); value != "" {
		return value
	}
	if value := strings.TrimSpace(configured); value != "" {
		return value
	}
	return fallback
}

// Requirement defines an external binary splice relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// CheckBinaries evaluates the provided requirements and reports
// availability. A requirement passes when its command resolves via PATH (or
// is an existing executable file when given as a path).
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		resolved, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		if info, err := os.Stat(resolved); err != nil || info.IsDir() || info.Mode().Perm()&0o111 == 0 {
			status.Detail = fmt.Sprintf("binary %q not executable", resolved)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
