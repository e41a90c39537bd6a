package syncing

import (
	"context"
	"sync"

	"github.com/arendse/melodium/src/features/config"
	"github.com/arendse/melodium/src/features/jobs"
	"github.com/arendse/melodium/src/features/metrics"
	"github.com/arendse/melodium/src/music"
)

const jobTypeSync = "library_sync"

// Sync run modes carried in job metadata.
const (
	ModeAll     = "all"
	ModeLocal   = "local"
	ModeSpotify = "spotify"
)

// State is the coordinator's externally visible state. A terminal state
// is reported exactly once, after which the coordinator is idle again.
type State string

const (
	StateIdle      State = "idle"
	StateBusy      State = "busy"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// Status is a snapshot of the coordinator.
type Status struct {
	State    State  `json:"state"`
	JobID    string `json:"job_id,omitempty"`
	Progress int    `json:"progress,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Catalog is the slice of the database the sync pipelines write to.
type Catalog interface {
	SyncLocalSources(ctx context.Context, scanner music.DirectoryScanner) (music.SyncStats, error)
	SyncLocalSource(ctx context.Context, scanner music.DirectoryScanner, id int64) (music.SyncStats, error)
	SyncSpotifySource(ctx context.Context, source *music.SpotifySource, credentialsChanged bool, artists []music.FetchedArtist, albums []music.FetchedAlbum) (music.SyncStats, error)
	GetSpotifySources(ctx context.Context) ([]*music.SpotifySource, error)
	GetSpotifySource(ctx context.Context, id int64) (*music.SpotifySource, error)
}

// Service coordinates library sync runs. At most one run is active at a
// time; triggering a sync while one is running reports the running one
// instead of queueing another.
type Service struct {
	configManager *config.Manager
	jobService    jobs.JobService

	mu           sync.Mutex
	currentJobID string
}

// NewService creates the sync coordinator.
func NewService(cfgManager *config.Manager, jobService jobs.JobService) *Service {
	return &Service{
		configManager: cfgManager,
		jobService:    jobService,
	}
}

// JobType is the job type sync runs are registered under.
func JobType() string { return jobTypeSync }

// NewSyncTask creates the task executed by sync jobs.
func NewSyncTask(cfgManager *config.Manager, catalog Catalog, scanner music.DirectoryScanner, fetcher CatalogFetcher, m *metrics.Metrics) jobs.Task {
	return &syncTask{
		configManager: cfgManager,
		catalog:       catalog,
		scanner:       scanner,
		fetcher:       fetcher,
		metrics:       m,
	}
}

// SyncAll triggers a full run over every enabled source.
func (s *Service) SyncAll() Status {
	return s.start(ModeAll, 0, "Full library sync")
}

// SyncLocal triggers a run over every enabled local source.
func (s *Service) SyncLocal() Status {
	return s.start(ModeLocal, 0, "Local library sync")
}

// SyncLocalSource triggers a run for one local source, enabled or not.
func (s *Service) SyncLocalSource(id int64) Status {
	return s.start(ModeLocal, id, "Local source sync")
}

// SyncSpotifySource triggers a run for one Spotify source.
func (s *Service) SyncSpotifySource(id int64) Status {
	return s.start(ModeSpotify, id, "Spotify source sync")
}

func (s *Service) start(mode string, sourceID int64, name string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if running, ok := s.runningStatus(); ok {
		return running
	}

	jobID, err := s.jobService.StartJob(jobTypeSync, name, map[string]any{
		"mode":      mode,
		"source_id": sourceID,
	})
	if err != nil {
		return Status{State: StateFailed, Message: err.Error()}
	}
	s.currentJobID = jobID
	return Status{State: StateBusy, JobID: jobID}
}

// GetStatus reports the coordinator state without starting anything.
// Completed and Failed are observed once; the next call reports idle.
func (s *Service) GetStatus() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentJobID == "" {
		return Status{State: StateIdle}
	}
	if running, ok := s.runningStatus(); ok {
		return running
	}

	job, ok := s.jobService.GetJob(s.currentJobID)
	s.currentJobID = ""
	if !ok {
		return Status{State: StateIdle}
	}
	switch job.Status {
	case jobs.JobStatusCompleted:
		return Status{State: StateCompleted, JobID: job.ID, Message: job.Message}
	default:
		msg := job.Error
		if msg == "" {
			msg = job.Message
		}
		return Status{State: StateFailed, JobID: job.ID, Message: msg}
	}
}

// runningStatus reports the tracked job while it is still in flight.
// Callers must hold s.mu.
func (s *Service) runningStatus() (Status, bool) {
	if s.currentJobID == "" {
		return Status{}, false
	}
	job, ok := s.jobService.GetJob(s.currentJobID)
	if !ok {
		return Status{}, false
	}
	if job.Status == jobs.JobStatusPending || job.Status == jobs.JobStatusRunning {
		return Status{State: StateBusy, JobID: job.ID, Progress: job.Progress, Message: job.Message}, true
	}
	return Status{}, false
}
