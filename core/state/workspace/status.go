package workspace

import "strings"

type Status string

const (
	StatusStopped     Status = "Stopped"
	StatusStopping    Status = "Stopping"
	StatusPending     Status = "Pending"
	StatusLaunching   Status = "Launching"
	StatusRunning     Status = "Running"
	StatusTerminating Status = "Terminating"
	StatusTerminated  Status = "Terminated"
	StatusError       Status = "Error"
)

var knownStatuses = map[Status]bool{
	StatusStopped:     true,
	StatusStopping:    true,
	StatusPending:     true,
	StatusLaunching:   true,
	StatusRunning:     true,
	StatusTerminating: true,
	StatusTerminated:  true,
	StatusError:       true,
}

// ParseStatus title-cases a backend status string ("RUNNING" -> Running).
// Anything outside the fixed set maps to StatusError.
func ParseStatus(s string) Status {
	s = strings.TrimSpace(s)
	if s == "" {
		return StatusError
	}
	titled := Status(strings.ToUpper(s[:1]) + strings.ToLower(s[1:]))
	if !knownStatuses[titled] {
		return StatusError
	}
	return titled
}

func (s Status) String() string {
	return string(s)
}
