package simtrack

import (
	"os"
	"runtime"

	"github.com/alahiff/simtrack-client/internal/models"
)

// collectSystem gathers host details attached to a run at Init.
func collectSystem() *models.SystemInfo {
	info := &models.SystemInfo{
		OS:       runtime.GOOS,
		Arch:     runtime.GOARCH,
		CPUCount: runtime.NumCPU(),
		Runtime:  runtime.Version(),
	}
	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}
	if cwd, err := os.Getwd(); err == nil {
		info.WorkingDir = cwd
	}
	return info
}
