package simtrack

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/internal/config"
	"github.com/alahiff/simtrack-client/internal/models"
)

// Mode selects where run activity goes.
type Mode string

const (
	// ModeOnline sends everything to the tracking server synchronously.
	ModeOnline Mode = "online"
	// ModeOffline records everything locally for later upload by the
	// sender.
	ModeOffline Mode = "offline"
	// ModeDisabled turns every operation into a validated no-op.
	ModeDisabled Mode = "disabled"
)

// Status values accepted by SetStatus.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

type Option func(*Run)

// WithServer supplies the connection settings explicitly, bypassing
// environment and file resolution.
func WithServer(url, token string) Option {
	return func(r *Run) {
		r.settings = &config.Settings{ServerURL: url, Token: token}
	}
}

func WithMode(mode Mode) Option {
	return func(r *Run) { r.mode = mode }
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Run) { r.log = log }
}

// WithHeartbeatInterval overrides the liveness ping interval. Zero or
// negative disables heartbeats.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(r *Run) { r.heartbeatInterval = interval }
}

func WithoutHeartbeat() Option {
	return func(r *Run) { r.heartbeatInterval = 0 }
}

// WithBuffering routes Log and LogEvent through a rate-limited dispatcher
// instead of sending synchronously. Intended for high-frequency producers
// such as resource monitors; flushed at most once per interval, or earlier
// when maxSize items are buffered, and drained on Close.
func WithBuffering(interval time.Duration, maxSize int) Option {
	return func(r *Run) {
		r.bufferInterval = interval
		r.bufferSize = maxSize
	}
}

// WithSuppressErrors downgrades operation failures to logged errors: the
// first failure marks the run aborted and every later operation becomes a
// no-op returning nil. Intended for wrapped simulations that must not
// crash because tracking is unavailable.
func WithSuppressErrors() Option {
	return func(r *Run) { r.suppress = true }
}

// WithoutSystemMetadata skips collection of host details at Init.
func WithoutSystemMetadata() Option {
	return func(r *Run) { r.withSystem = false }
}

// WithOfflineDirectory overrides the offline cache root ($HOME/.simtrack).
func WithOfflineDirectory(root string) Option {
	return func(r *Run) { r.offlineRoot = root }
}

type initOptions struct {
	description string
	folder      string
}

type InitOption func(*initOptions)

func WithDescription(description string) InitOption {
	return func(o *initOptions) { o.description = description }
}

// WithFolder places the run under a server-side folder path, which must
// start with "/".
func WithFolder(folder string) InitOption {
	return func(o *initOptions) { o.folder = folder }
}

// Artifact categories accepted by WithCategory.
const (
	CategoryInput  = models.CategoryInput
	CategoryOutput = models.CategoryOutput
	CategoryCode   = models.CategoryCode
)

type saveOptions struct {
	category     string
	name         string
	filetype     string
	preservePath bool
}

type SaveOption func(*saveOptions)

// WithCategory marks the artifact as input, output, or code. Default output.
func WithCategory(category string) SaveOption {
	return func(o *saveOptions) { o.category = category }
}

// WithArtifactName stores the file under an explicit name instead of its
// basename.
func WithArtifactName(name string) SaveOption {
	return func(o *saveOptions) { o.name = name }
}

// WithFiletype overrides the mimetype guessed from the file extension.
func WithFiletype(filetype string) SaveOption {
	return func(o *saveOptions) { o.filetype = filetype }
}

// PreservePath stores the file under its relative path rather than its
// basename.
func PreservePath() SaveOption {
	return func(o *saveOptions) { o.preservePath = true }
}
