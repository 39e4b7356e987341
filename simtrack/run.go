// Package simtrack is the client library for the observability tracking
// service. A Run tracks one experiment execution: it is registered with
// Init, receives metrics, events, and file artifacts while active, and is
// ended with Close.
//
// Connection settings resolve from explicit options, then the
// OBSERVABILITY_URL / OBSERVABILITY_TOKEN environment variables, then an
// observability.ini file.
package simtrack

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/alahiff/simtrack-client/internal/config"
	"github.com/alahiff/simtrack-client/internal/dispatch"
	"github.com/alahiff/simtrack-client/internal/models"
	"github.com/alahiff/simtrack-client/internal/offline"
	"github.com/alahiff/simtrack-client/internal/remote"
)

const (
	defaultHeartbeatInterval = time.Minute
	workerTimeout            = 30 * time.Second
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9\-\_\s\/\.:]+$`)

type runState int

const (
	stateUninitialized runState = iota
	stateActive
	stateClosed
)

// backend is the operation surface shared by the remote client, the
// offline store, and the disabled no-op.
type backend interface {
	CreateRun(ctx context.Context, payload *models.RunPayload) (*models.RunResponse, error)
	UpdateRun(ctx context.Context, update *models.RunUpdate) error
	SendMetrics(ctx context.Context, runID string, sets []models.MetricSet) error
	SendEvent(ctx context.Context, runID string, event models.Event) error
	SaveArtifact(ctx context.Context, artifact *models.Artifact, content io.Reader) error
	Heartbeat(ctx context.Context, runID string) error
}

// Run tracks a single experiment execution. A Run is safe for use from
// multiple goroutines.
type Run struct {
	mu    sync.Mutex
	state runState

	mode     Mode
	settings *config.Settings
	log      zerolog.Logger

	uuid string
	name string
	id   string

	step         int64
	startTime    time.Time
	serverStatus models.RunStatus

	backend backend

	heartbeatInterval time.Duration
	hbStop            chan struct{}
	hbDone            chan struct{}

	bufferInterval time.Duration
	bufferSize     int
	dispatcher     *dispatch.Dispatcher

	withSystem  bool
	offlineRoot string

	suppress bool
	aborted  atomic.Bool
}

// New builds an uninitialized Run. For online mode the connection settings
// are resolved immediately so misconfiguration surfaces before any work is
// done.
func New(opts ...Option) (*Run, error) {
	run := &Run{
		mode:              ModeOnline,
		log:               zerolog.Nop(),
		uuid:              uuid.NewString(),
		heartbeatInterval: defaultHeartbeatInterval,
		withSystem:        true,
	}
	for _, opt := range opts {
		opt(run)
	}

	switch run.mode {
	case ModeOnline:
		if run.settings == nil {
			settings, err := config.Resolve()
			if err != nil {
				return nil, err
			}
			run.settings = settings
		} else {
			run.settings.Normalize()
			if err := run.settings.Validate(); err != nil {
				return nil, err
			}
		}
		client, err := remote.NewClient(run.settings, remote.WithLogger(run.log))
		if err != nil {
			return nil, err
		}
		run.backend = client
	case ModeOffline:
		root := run.offlineRoot
		if root == "" {
			var err error
			if root, err = offline.DefaultRoot(); err != nil {
				return nil, err
			}
		}
		store, err := offline.NewStore(root, run.uuid, run.log)
		if err != nil {
			return nil, err
		}
		run.backend = store
	case ModeDisabled:
		run.backend = noopBackend{uid: run.uuid}
		run.heartbeatInterval = 0
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", ErrValidation, run.mode)
	}

	return run, nil
}

// guard turns a failure into a logged no-op when error suppression is
// enabled. The first suppressed failure marks the run aborted; guarded
// operations on an aborted run return nil without doing anything.
func (r *Run) guard(err error) error {
	if err == nil || !r.suppress {
		return err
	}
	r.aborted.Store(true)
	r.log.Error().Err(err).Msg("suppressing failure, run aborted")
	return nil
}

func (r *Run) abortedOut() bool {
	return r.suppress && r.aborted.Load()
}

// Init registers the run and transitions it to active. The name must be
// non-empty and consist of letters, digits, and "-_ /.:" characters;
// metadata values must be strings, numbers, booleans, or nested mappings
// of those.
func (r *Run) Init(ctx context.Context, name string, metadata map[string]any, tags []string, opts ...InitOption) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.initialize(ctx, name, metadata, tags, opts...))
}

func (r *Run) initialize(ctx context.Context, name string, metadata map[string]any, tags []string, opts ...InitOption) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != stateUninitialized {
		return fmt.Errorf("%w: run already initialized", ErrRunState)
	}

	if name == "" {
		return fmt.Errorf("%w: run name must not be empty", ErrValidation)
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("%w: run name %q contains invalid characters", ErrValidation, name)
	}
	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("%w: tags must not be empty", ErrValidation)
		}
	}

	converted, err := models.MetadataFromAny(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	options := initOptions{folder: "/"}
	for _, opt := range opts {
		opt(&options)
	}
	if options.folder == "" || options.folder[0] != '/' {
		return fmt.Errorf("%w: folder must start with /", ErrValidation)
	}

	if tags == nil {
		tags = []string{}
	}
	payload := &models.RunPayload{
		Name:        name,
		Metadata:    converted,
		Tags:        tags,
		Description: options.description,
		Folder:      options.folder,
		Status:      models.RunStatusRunning,
	}
	if r.withSystem {
		payload.System = collectSystem()
	}

	resp, err := r.backend.CreateRun(ctx, payload)
	if err != nil {
		return err
	}

	r.id = resp.ID
	r.name = name
	if resp.Name != "" {
		// Server-assigned names win.
		r.name = resp.Name
	}
	r.state = stateActive
	r.serverStatus = models.RunStatusRunning
	r.startTime = time.Now()
	r.step = 0

	if r.bufferInterval > 0 {
		r.dispatcher = dispatch.New(r.flush, []string{"metrics", "events"},
			r.bufferInterval, r.bufferSize, r.log)
		r.dispatcher.Start()
	}
	if r.heartbeatInterval > 0 {
		r.hbStop = make(chan struct{})
		r.hbDone = make(chan struct{})
		go r.heartbeatLoop(r.id, r.hbStop, r.hbDone)
	}

	r.log.Info().Str("run", r.id).Str("name", r.name).Msg("run started")
	return nil
}

// Log submits one metric set: one record per key-value pair, stamped with
// the current time and an auto-incremented step. With buffering enabled
// the set is queued instead of sent inline.
func (r *Run) Log(ctx context.Context, values map[string]float64) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.logMetrics(ctx, values))
}

func (r *Run) logMetrics(ctx context.Context, values map[string]float64) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot log metrics, initialize the run first", ErrRunState)
	}
	if len(values) == 0 {
		r.mu.Unlock()
		return nil
	}

	copied := make(map[string]float64, len(values))
	for key, value := range values {
		copied[key] = value
	}
	set := models.MetricSet{
		Values:    copied,
		Time:      time.Since(r.startTime).Seconds(),
		Timestamp: models.FormatTimestamp(time.Now()),
		Step:      r.step,
	}
	r.step++
	runID := r.id
	dispatcher := r.dispatcher
	r.mu.Unlock()

	if dispatcher != nil {
		return dispatcher.Push("metrics", set)
	}
	return r.backend.SendMetrics(ctx, runID, []models.MetricSet{set})
}

// LogEvent appends a message to the run's event stream.
func (r *Run) LogEvent(ctx context.Context, message string) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.logEvent(ctx, message))
}

func (r *Run) logEvent(ctx context.Context, message string) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot log an event, initialize the run first", ErrRunState)
	}
	if message == "" {
		r.mu.Unlock()
		return fmt.Errorf("%w: event message must not be empty", ErrValidation)
	}
	event := models.Event{
		Message:   message,
		Timestamp: models.FormatTimestamp(time.Now()),
	}
	runID := r.id
	dispatcher := r.dispatcher
	r.mu.Unlock()

	if dispatcher != nil {
		return dispatcher.Push("events", event)
	}
	return r.backend.SendEvent(ctx, runID, event)
}

// UpdateMetadata merges additional metadata into the run.
func (r *Run) UpdateMetadata(ctx context.Context, metadata map[string]any) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.updateMetadata(ctx, metadata))
}

func (r *Run) updateMetadata(ctx context.Context, metadata map[string]any) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot update metadata, initialize the run first", ErrRunState)
	}
	runID, name := r.id, r.name
	r.mu.Unlock()

	converted, err := models.MetadataFromAny(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return r.backend.UpdateRun(ctx, &models.RunUpdate{ID: runID, Name: name, Metadata: converted})
}

// UpdateTags replaces the run's tags.
func (r *Run) UpdateTags(ctx context.Context, tags []string) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.updateTags(ctx, tags))
}

func (r *Run) updateTags(ctx context.Context, tags []string) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot update tags, initialize the run first", ErrRunState)
	}
	runID := r.id
	r.mu.Unlock()

	for _, tag := range tags {
		if tag == "" {
			return fmt.Errorf("%w: tags must not be empty", ErrValidation)
		}
	}
	return r.backend.UpdateRun(ctx, &models.RunUpdate{ID: runID, Tags: tags})
}

// SetStatus records a terminal status without closing the client-side run;
// Close afterwards will not overwrite it.
func (r *Run) SetStatus(ctx context.Context, status Status) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.setStatus(ctx, status))
}

func (r *Run) setStatus(ctx context.Context, status Status) error {
	switch status {
	case StatusCompleted, StatusFailed, StatusTerminated:
	default:
		return fmt.Errorf("%w: invalid status %q", ErrValidation, status)
	}

	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot set status, initialize the run first", ErrRunState)
	}
	runID := r.id
	r.mu.Unlock()

	if err := r.backend.UpdateRun(ctx, &models.RunUpdate{ID: runID, Status: models.RunStatus(status)}); err != nil {
		return err
	}

	r.mu.Lock()
	r.serverStatus = models.RunStatus(status)
	r.mu.Unlock()
	return nil
}

// Close drains buffered items, stops the heartbeat, marks the run
// completed unless a terminal status was already set, and transitions to
// closed. Further calls on the run fail with ErrRunState.
func (r *Run) Close(ctx context.Context) error {
	if r.abortedOut() {
		return nil
	}
	return r.guard(r.closeRun(ctx))
}

func (r *Run) closeRun(ctx context.Context) error {
	r.mu.Lock()
	if r.state != stateActive {
		r.mu.Unlock()
		return fmt.Errorf("%w: cannot close, run is not active", ErrRunState)
	}
	r.state = stateClosed
	dispatcher := r.dispatcher
	r.dispatcher = nil
	hbStop, hbDone := r.hbStop, r.hbDone
	r.hbStop, r.hbDone = nil, nil
	runID := r.id
	final := r.serverStatus
	r.mu.Unlock()

	if dispatcher != nil {
		dispatcher.Stop()
	}
	if hbStop != nil {
		close(hbStop)
		<-hbDone
	}

	if final.Terminal() {
		r.log.Info().Str("run", runID).Str("status", string(final)).Msg("run closed")
		return nil
	}
	if err := r.backend.UpdateRun(ctx, &models.RunUpdate{ID: runID, Status: models.RunStatusCompleted}); err != nil {
		return err
	}
	r.log.Info().Str("run", runID).Msg("run completed")
	return nil
}

// Name returns the run name, which may have been assigned by the server.
func (r *Run) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// ID returns the server-side run identifier, empty before Init.
func (r *Run) ID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

// UID returns the client-side unique identifier, set at construction.
func (r *Run) UID() string { return r.uuid }

// flush is the dispatcher callback: it sends one drained buffer per
// category with a fresh timeout, since the producer's context is long gone.
func (r *Run) flush(category string, items []any) error {
	ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
	defer cancel()

	r.mu.Lock()
	runID := r.id
	r.mu.Unlock()

	switch category {
	case "metrics":
		sets := make([]models.MetricSet, 0, len(items))
		for _, item := range items {
			if set, ok := item.(models.MetricSet); ok {
				sets = append(sets, set)
			}
		}
		return r.backend.SendMetrics(ctx, runID, sets)
	case "events":
		for _, item := range items {
			event, ok := item.(models.Event)
			if !ok {
				continue
			}
			if err := r.backend.SendEvent(ctx, runID, event); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown dispatch category %q", category)
	}
}

func (r *Run) heartbeatLoop(runID string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), workerTimeout)
			err := r.backend.Heartbeat(ctx, runID)
			cancel()
			if err != nil {
				r.log.Warn().Err(err).Msg("heartbeat failed")
			}
		}
	}
}

// noopBackend services disabled mode: validation still happens, nothing
// leaves the process.
type noopBackend struct {
	uid string
}

func (n noopBackend) CreateRun(context.Context, *models.RunPayload) (*models.RunResponse, error) {
	return &models.RunResponse{ID: n.uid}, nil
}

func (noopBackend) UpdateRun(context.Context, *models.RunUpdate) error { return nil }

func (noopBackend) SendMetrics(context.Context, string, []models.MetricSet) error { return nil }

func (noopBackend) SendEvent(context.Context, string, models.Event) error { return nil }

func (noopBackend) SaveArtifact(context.Context, *models.Artifact, io.Reader) error { return nil }

func (noopBackend) Heartbeat(context.Context, string) error { return nil }
