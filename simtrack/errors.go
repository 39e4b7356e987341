package simtrack

import (
	"errors"

	"github.com/alahiff/simtrack-client/internal/config"
	"github.com/alahiff/simtrack-client/internal/remote"
)

// ErrRunState indicates a call made outside the run lifecycle state that
// permits it (for example logging before Init, or closing twice).
var ErrRunState = errors.New("run is not in the required state")

// Re-exported sentinels so callers can branch with errors.Is without
// importing internal packages.
var (
	ErrConfiguration  = config.ErrConfiguration
	ErrAuthentication = remote.ErrAuthentication
	ErrValidation     = remote.ErrValidation
	ErrNotFound       = remote.ErrNotFound
	ErrServer         = remote.ErrServer
	ErrConnection     = remote.ErrConnection
)
