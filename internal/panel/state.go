package panel

import (
	"context"
	"time"

	"github.com/chmouel/lazypanel/internal/models"
)

// SurfaceState is the per-view state owned by one dispatcher instance. It
// is never exposed for direct external mutation; the surface only observes
// it through render events.
type SurfaceState struct {
	ActiveTab     models.Tab
	CommitsLimit  int
	Visible       bool
	LastRefreshAt time.Time
}

// Options tune one panel instance.
type Options struct {
	StaleWindow    time.Duration
	QuietPeriod    time.Duration
	CommitsInitial int
	CommitsMax     int
}

func (o Options) withDefaults() Options {
	if o.StaleWindow <= 0 {
		o.StaleWindow = DefaultStaleWindow
	}
	if o.QuietPeriod <= 0 {
		o.QuietPeriod = DefaultQuietPeriod
	}
	if o.CommitsInitial <= 0 {
		o.CommitsInitial = 20
	}
	if o.CommitsMax < o.CommitsInitial {
		o.CommitsMax = 50
	}
	if o.CommitsMax < o.CommitsInitial {
		o.CommitsMax = o.CommitsInitial
	}
	return o
}

// Backend is the version-control collaborator contract. All calls run to
// completion or failure; only generation is user-cancellable.
type Backend interface {
	Status(ctx context.Context) (*models.StatusSnapshot, error)
	StageFiles(ctx context.Context, paths []string) error
	StageAll(ctx context.Context) error
	UnstageFiles(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) error
	Push(ctx context.Context) error
	Pull(ctx context.Context) error
	Fetch(ctx context.Context) error
	DiscardChanges(ctx context.Context, paths []string) error
	Branches(ctx context.Context) ([]models.Branch, error)
	CurrentBranch(ctx context.Context) (string, error)
	CreateBranch(ctx context.Context, name string) error
	CheckoutBranch(ctx context.Context, name string) error
	DeleteBranch(ctx context.Context, name string) error
	CommitHistory(ctx context.Context, limit int) ([]models.CommitInfo, error)
	Diff(ctx context.Context, path string) (string, error)
	CommitDiff(ctx context.Context, hash string) (string, error)
	StagedDiff(ctx context.Context) (string, error)
}

// Generator is the message-generation collaborator contract. It must honor
// ctx cancellation by aborting promptly.
type Generator interface {
	Generate(ctx context.Context, snapshot *models.StatusSnapshot, diff string) (string, error)
}
