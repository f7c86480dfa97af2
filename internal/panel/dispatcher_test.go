package panel

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmouel/lazypanel/internal/generate"
	"github.com/chmouel/lazypanel/internal/models"
)

// fakeBackend records calls and returns configurable results.
type fakeBackend struct {
	mu            sync.Mutex
	calls         []string
	historyLimits []int

	status    *models.StatusSnapshot
	statusErr error
	commitErr error
	pushErr   error
	deleteErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{status: &models.StatusSnapshot{Branch: "main"}}
}

func (f *fakeBackend) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeBackend) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.calls {
		if call == name {
			count++
		}
	}
	return count
}

func (f *fakeBackend) Status(context.Context) (*models.StatusSnapshot, error) {
	f.record("status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	return f.status, nil
}

func (f *fakeBackend) StageFiles(_ context.Context, paths []string) error {
	f.record("stageFiles")
	return nil
}

func (f *fakeBackend) StageAll(context.Context) error {
	f.record("stageAll")
	return nil
}

func (f *fakeBackend) UnstageFiles(_ context.Context, paths []string) error {
	f.record("unstageFiles")
	return nil
}

func (f *fakeBackend) Commit(_ context.Context, message string) error {
	f.record("commit")
	return f.commitErr
}

func (f *fakeBackend) Push(context.Context) error {
	f.record("push")
	return f.pushErr
}

func (f *fakeBackend) Pull(context.Context) error {
	f.record("pull")
	return nil
}

func (f *fakeBackend) Fetch(context.Context) error {
	f.record("fetch")
	return nil
}

func (f *fakeBackend) DiscardChanges(_ context.Context, paths []string) error {
	f.record("discard")
	return nil
}

func (f *fakeBackend) Branches(context.Context) ([]models.Branch, error) {
	f.record("branches")
	return []models.Branch{{Name: "main", Current: true}}, nil
}

func (f *fakeBackend) CurrentBranch(context.Context) (string, error) {
	f.record("currentBranch")
	return "main", nil
}

func (f *fakeBackend) CreateBranch(_ context.Context, name string) error {
	f.record("createBranch")
	return nil
}

func (f *fakeBackend) CheckoutBranch(_ context.Context, name string) error {
	f.record("checkoutBranch")
	return nil
}

func (f *fakeBackend) DeleteBranch(_ context.Context, name string) error {
	f.record("deleteBranch")
	return f.deleteErr
}

func (f *fakeBackend) CommitHistory(_ context.Context, limit int) ([]models.CommitInfo, error) {
	f.record("history")
	f.mu.Lock()
	f.historyLimits = append(f.historyLimits, limit)
	f.mu.Unlock()
	return []models.CommitInfo{{Hash: "abc123", Message: "initial"}}, nil
}

func (f *fakeBackend) Diff(_ context.Context, path string) (string, error) {
	f.record("diff")
	return "--- a/" + path, nil
}

func (f *fakeBackend) CommitDiff(_ context.Context, hash string) (string, error) {
	f.record("commitDiff")
	return "diff for " + hash, nil
}

func (f *fakeBackend) StagedDiff(context.Context) (string, error) {
	f.record("stagedDiff")
	return "+staged", nil
}

// fakeGenerator blocks until released or cancelled; err short-circuits.
type fakeGenerator struct {
	release chan string
	err     error
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{release: make(chan string, 2)}
}

func (g *fakeGenerator) Generate(ctx context.Context, _ *models.StatusSnapshot, _ string) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	select {
	case message := <-g.release:
		return message, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// captureTransport records outbound events.
type captureTransport struct {
	mu     sync.Mutex
	events []Event
}

func (c *captureTransport) Send(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *captureTransport) Recv() (Command, bool) { return Command{}, false }
func (c *captureTransport) Close()                {}

func (c *captureTransport) byType(t EventType) []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (c *captureTransport) clearedTokens() []string {
	var tokens []string
	for _, ev := range c.byType(EventClearLoading) {
		tokens = append(tokens, ev.Token)
	}
	return tokens
}

func newTestDispatcher(t *testing.T, backend Backend, generator Generator) (*Dispatcher, *captureTransport) {
	t.Helper()
	tr := &captureTransport{}
	d := NewDispatcher(backend, generator, tr, Options{})
	return d, tr
}

func TestEmptyCommitMessageNeverReachesBackend(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	for _, message := range []string{"", "   "} {
		d.Handle(context.Background(), Command{Type: CmdCommit, Message: message})
	}

	assert.Zero(t, backend.callCount("commit"))
	warnings := tr.byType(EventNotify)
	require.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, SeverityWarning, w.Level)
	}
	assert.Equal(t, []string{TokenCommit, TokenCommit}, tr.clearedTokens())
}

func TestCommitSuccessRefreshes(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdCommit, Message: "feat: thing"})

	assert.Equal(t, 1, backend.callCount("commit"))
	assert.Equal(t, 1, backend.callCount("status"), "implicit refresh refetches")
	require.Len(t, tr.byType(EventRender), 1)
	assert.Equal(t, []string{TokenCommit}, tr.clearedTokens())
}

func TestCommitAndPushPartialFailure(t *testing.T) {
	backend := newFakeBackend()
	backend.pushErr = errors.New("remote rejected")
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdCommitAndPush, Message: "feat: thing"})

	assert.Equal(t, 1, backend.callCount("commit"))
	assert.Equal(t, 1, backend.callCount("push"))
	// The commit is not rolled back: refreshed state shows it applied.
	assert.Equal(t, 1, backend.callCount("status"))

	failures := tr.byType(EventNotify)
	require.Len(t, failures, 1, "push failure reported exactly once")
	assert.Equal(t, SeverityError, failures[0].Level)
	assert.True(t, failures[0].Blocking, "push-class errors are blocking")
	assert.Equal(t, []string{TokenCommit}, tr.clearedTokens())
}

func TestPushErrorIsBlocking(t *testing.T) {
	backend := newFakeBackend()
	backend.pushErr = errors.New("non-fast-forward")
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdPush})

	failures := tr.byType(EventNotify)
	require.Len(t, failures, 1)
	assert.True(t, failures[0].Blocking)
	assert.Equal(t, []string{TokenPush}, tr.clearedTokens())
}

func TestDeleteBranchDeclined(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdDeleteBranch, Name: "feature-x"})

	confirms := tr.byType(EventConfirm)
	require.Len(t, confirms, 1)
	assert.Zero(t, backend.callCount("deleteBranch"), "no backend call before confirmation")

	before := d.State()
	d.Handle(context.Background(), Command{Type: CmdReply, ID: confirms[0].ID, Accepted: false})

	assert.Zero(t, backend.callCount("deleteBranch"))
	assert.Zero(t, backend.callCount("status"), "declining changes no state")
	assert.Equal(t, before, d.State())
	assert.Equal(t, []string{BranchToken("feature-x")}, tr.clearedTokens())
}

func TestDeleteBranchAccepted(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdDeleteBranch, Name: "feature-x"})
	confirms := tr.byType(EventConfirm)
	require.Len(t, confirms, 1)

	d.Handle(context.Background(), Command{Type: CmdReply, ID: confirms[0].ID, Accepted: true})

	assert.Equal(t, 1, backend.callCount("deleteBranch"))
	assert.Equal(t, 1, backend.callCount("status"))
}

func TestDiscardRequiresConfirmation(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdDiscard, Path: "main.go"})
	require.Len(t, tr.byType(EventConfirm), 1)
	assert.Zero(t, backend.callCount("discard"))

	d.Handle(context.Background(), Command{Type: CmdReply, ID: tr.byType(EventConfirm)[0].ID, Accepted: true})
	assert.Equal(t, 1, backend.callCount("discard"))
}

func TestReplyForUnknownIDIsIgnored(t *testing.T) {
	backend := newFakeBackend()
	d, _ := newTestDispatcher(t, backend, nil)

	require.NotPanics(t, func() {
		d.Handle(context.Background(), Command{Type: CmdReply, ID: 99, Accepted: true})
	})
	assert.Empty(t, backend.calls)
}

func TestLoadMoreIsMonotonic(t *testing.T) {
	backend := newFakeBackend()
	d, _ := newTestDispatcher(t, backend, nil)

	assert.Equal(t, 20, d.State().CommitsLimit)

	d.Handle(context.Background(), Command{Type: CmdLoadMore})
	assert.Equal(t, 50, d.State().CommitsLimit)

	d.Handle(context.Background(), Command{Type: CmdLoadMore})
	assert.Equal(t, 50, d.State().CommitsLimit, "limit never decreases")

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, []int{50, 50}, backend.historyLimits)
}

func TestSecondGenerationDisposesFirst(t *testing.T) {
	backend := newFakeBackend()
	gen := newFakeGenerator()
	d, tr := newTestDispatcher(t, backend, gen)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})
	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})

	// The first request's affordance was settled when it was disposed.
	assert.Contains(t, tr.clearedTokens(), TokenGenerate)

	gen.release <- "feat: from second"
	gen.release <- "feat: from second"

	require.Eventually(t, func() bool {
		return len(tr.byType(EventMessageGenerated)) == 1
	}, time.Second, 5*time.Millisecond)

	// Only the surviving request delivers; nothing further arrives.
	time.Sleep(50 * time.Millisecond)
	generated := tr.byType(EventMessageGenerated)
	require.Len(t, generated, 1)
	assert.Equal(t, "feat: from second", generated[0].Message)
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestStopGenerationIsSilent(t *testing.T) {
	backend := newFakeBackend()
	gen := newFakeGenerator()
	d, tr := newTestDispatcher(t, backend, gen)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})
	assert.Equal(t, StateRequesting, d.Session().State())

	d.Handle(context.Background(), Command{Type: CmdStopGeneration})
	assert.Equal(t, StateIdle, d.Session().State())
	assert.Equal(t, []string{TokenGenerate}, tr.clearedTokens())

	// No result and no error reaches the surface afterwards.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, tr.byType(EventMessageGenerated))
	assert.Empty(t, tr.byType(EventNotify))
}

func TestGenerationUnavailableOffersFallback(t *testing.T) {
	backend := newFakeBackend()
	backend.status = &models.StatusSnapshot{Branch: "main", Staged: []string{"README.md"}}
	gen := newFakeGenerator()
	gen.err = generate.ErrUnavailable
	d, tr := newTestDispatcher(t, backend, gen)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})

	require.Eventually(t, func() bool {
		return len(tr.byType(EventOfferFallback)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateFallbackOffered, d.Session().State())
	assert.Equal(t, []string{TokenGenerate}, tr.clearedTokens())

	offer := tr.byType(EventOfferFallback)[0]
	d.Handle(context.Background(), Command{Type: CmdReply, ID: offer.ID, Accepted: true})

	generated := tr.byType(EventMessageGenerated)
	require.Len(t, generated, 1)
	assert.Equal(t, "docs: update README.md", generated[0].Message)
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestGenerationFallbackDeclined(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil) // nil generator: unavailable

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})
	offers := tr.byType(EventOfferFallback)
	require.Len(t, offers, 1)

	d.Handle(context.Background(), Command{Type: CmdReply, ID: offers[0].ID, Accepted: false})

	assert.Empty(t, tr.byType(EventMessageGenerated))
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestNewGenerationWithdrawsPendingFallbackOffer(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil) // nil generator: unavailable

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})
	offers := tr.byType(EventOfferFallback)
	require.Len(t, offers, 1)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})
	offers = tr.byType(EventOfferFallback)
	require.Len(t, offers, 2)

	// The first offer was superseded; accepting it delivers nothing and
	// leaves the live negotiation untouched.
	d.Handle(context.Background(), Command{Type: CmdReply, ID: offers[0].ID, Accepted: true})
	assert.Empty(t, tr.byType(EventMessageGenerated))
	assert.Equal(t, StateFallbackOffered, d.Session().State())

	// The live offer still settles normally.
	d.Handle(context.Background(), Command{Type: CmdReply, ID: offers[1].ID, Accepted: true})
	require.Len(t, tr.byType(EventMessageGenerated), 1)
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestHostShutdownClearsGenerateToken(t *testing.T) {
	backend := newFakeBackend()
	gen := newFakeGenerator()
	d, tr := newTestDispatcher(t, backend, gen)

	ctx, cancel := context.WithCancel(context.Background())
	d.Bind(ctx)
	d.Handle(ctx, Command{Type: CmdGenerateMessage})

	// Nobody disposed the handle; the base context goes away instead.
	cancel()

	require.Eventually(t, func() bool {
		for _, token := range tr.clearedTokens() {
			if token == TokenGenerate {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, tr.byType(EventMessageGenerated))
	assert.Empty(t, tr.byType(EventNotify))
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestGenerateRendersBusyImmediately(t *testing.T) {
	backend := newFakeBackend()
	gen := newFakeGenerator()
	d, tr := newTestDispatcher(t, backend, gen)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})

	renders := tr.byType(EventRender)
	require.NotEmpty(t, renders, "dispatching a generation pushes a render")
	state := renders[len(renders)-1].State
	require.NotNil(t, state)
	assert.True(t, state.Generating)
	assert.Contains(t, state.Busy, TokenGenerate)

	d.Handle(context.Background(), Command{Type: CmdStopGeneration})
}

func TestGenerationGenericFailure(t *testing.T) {
	backend := newFakeBackend()
	gen := newFakeGenerator()
	gen.err = errors.New("model overloaded")
	d, tr := newTestDispatcher(t, backend, gen)

	d.Handle(context.Background(), Command{Type: CmdGenerateMessage})

	require.Eventually(t, func() bool {
		return len(tr.byType(EventNotify)) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, SeverityError, tr.byType(EventNotify)[0].Level)
	assert.False(t, tr.byType(EventNotify)[0].Blocking)
	assert.Contains(t, tr.clearedTokens(), TokenGenerate)
	assert.Equal(t, StateIdle, d.Session().State())
}

func TestAttachRehydratesFullState(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdAttach})

	require.Len(t, tr.byType(EventClearAllLoading), 1)
	renders := tr.byType(EventRender)
	require.Len(t, renders, 1)
	state := renders[0].State
	require.NotNil(t, state)
	assert.Equal(t, "main", state.Snapshot.Branch)
	assert.Equal(t, models.TabChanges, state.ActiveTab)
	assert.Equal(t, 20, state.CommitsLimit)
	assert.NotEmpty(t, state.Branches)
	assert.NotEmpty(t, state.Commits)
}

func TestInvisibleSurfaceSkipsRefetchOnQuietPeriod(t *testing.T) {
	backend := newFakeBackend()
	d, _ := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdRefresh})
	statusCalls := backend.callCount("status")

	d.Handle(context.Background(), Command{Type: CmdVisibility, Visible: false})
	d.OnQuietPeriod()

	assert.Equal(t, statusCalls, backend.callCount("status"), "no refetch while hidden")
	_, ok := d.Cache().Get()
	assert.False(t, ok, "cache still invalidated while hidden")

	// Becoming visible forces the refetch the invalidation deferred.
	d.Handle(context.Background(), Command{Type: CmdVisibility, Visible: true})
	assert.Equal(t, statusCalls+1, backend.callCount("status"))
}

func TestSwitchTabValidation(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdSwitchTab, Tab: models.TabCommits})
	assert.Equal(t, models.TabCommits, d.State().ActiveTab)
	require.Len(t, tr.byType(EventRender), 1)

	d.Handle(context.Background(), Command{Type: CmdSwitchTab, Tab: "bogus"})
	assert.Equal(t, models.TabCommits, d.State().ActiveTab)
	require.Len(t, tr.byType(EventNotify), 1)
}

func TestOpenDiffEmitsDiffEvent(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdOpenDiff, Path: "main.go"})

	diffs := tr.byType(EventDiff)
	require.Len(t, diffs, 1)
	assert.Equal(t, "main.go", diffs[0].Title)
	assert.Equal(t, []string{FileToken("main.go")}, tr.clearedTokens())
}

func TestStageFileRequiresPath(t *testing.T) {
	backend := newFakeBackend()
	d, tr := newTestDispatcher(t, backend, nil)

	d.Handle(context.Background(), Command{Type: CmdStageFile, Path: "  "})

	assert.Zero(t, backend.callCount("stageFiles"))
	require.Len(t, tr.byType(EventNotify), 1)
	assert.Equal(t, SeverityWarning, tr.byType(EventNotify)[0].Level)
}
