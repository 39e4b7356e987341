package models

type RunStatus string

const (
	RunStatusCreated    RunStatus = "created"
	RunStatusRunning    RunStatus = "running"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusTerminated RunStatus = "terminated"
	RunStatusLost       RunStatus = "lost"
)

// Terminal reports whether the status ends a run on the server.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusTerminated, RunStatusLost:
		return true
	}
	return false
}

// RunPayload is the body sent when registering a new run.
type RunPayload struct {
	Name        string      `json:"name,omitempty"`
	Metadata    Metadata    `json:"metadata"`
	Tags        []string    `json:"tags"`
	Description string      `json:"description,omitempty"`
	Folder      string      `json:"folder"`
	Status      RunStatus   `json:"status"`
	System      *SystemInfo `json:"system,omitempty"`
}

// RunResponse is the server's answer to run registration. The server may
// assign a name when the payload carried none.
type RunResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RunUpdate mutates an existing run. Zero fields are omitted so partial
// updates (status only, metadata only, tags only) stay partial.
type RunUpdate struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name,omitempty"`
	Metadata Metadata  `json:"metadata,omitempty"`
	Tags     []string  `json:"tags,omitempty"`
	Status   RunStatus `json:"status,omitempty"`
}

// SystemInfo describes the host the run executes on.
type SystemInfo struct {
	Hostname   string `json:"hostname"`
	WorkingDir string `json:"cwd"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	CPUCount   int    `json:"cpu_count"`
	Runtime    string `json:"runtime"`
}
