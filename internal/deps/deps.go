// Package deps reports whether the external programs subfetch shells out to
// can be found.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"subfetch/internal/config"
)

// Requirement defines an external program subfetch relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a requirement.
type Status struct {
	Requirement
	Available bool
	Detail    string
}

// Requirements lists the programs the configuration calls for. ffprobe is
// only mandatory when embedded subtitle detection is enabled.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{{
		Name:        "ffprobe",
		Command:     cfg.FFprobeBinary(),
		Description: "detects subtitle tracks embedded in video containers",
		Optional:    !cfg.AdvancedSearch(),
	}}
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		req.Command = strings.TrimSpace(req.Command)
		status := Status{Requirement: req}
		switch {
		case req.Command == "":
			status.Detail = "command not configured"
		default:
			resolved, err := exec.LookPath(req.Command)
			if err != nil {
				status.Detail = fmt.Sprintf("binary %q not found", req.Command)
				break
			}
			status.Available = true
			status.Detail = resolved
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the unavailable statuses that are not optional.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
