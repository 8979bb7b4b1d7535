package workspace

import "time"

// RunStatistics records one running interval of a workspace. A record is open
// while Stop is before Start, which holds for the zero Stop it is created with.
type RunStatistics struct {
	ID          uint      `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
}

func (s *RunStatistics) IsOpen() bool {
	return s.Stop.Before(s.Start)
}

func (s *RunStatistics) Duration() time.Duration {
	if s.IsOpen() {
		return 0
	}
	return s.Stop.Sub(s.Start)
}
