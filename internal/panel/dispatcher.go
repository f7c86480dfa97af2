package panel

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/chmouel/lazypanel/internal/generate"
	"github.com/chmouel/lazypanel/internal/log"
	"github.com/chmouel/lazypanel/internal/models"
)

// pendingReply is a confirmation or fallback round-trip awaiting the
// surface's answer. A reply for an unknown or already-answered id is
// ignored: the surface may be torn down between request and reply.
type pendingReply struct {
	onAccept  func(ctx context.Context)
	onDecline func(ctx context.Context)
}

// Dispatcher receives inbound commands, enforces per-command pre and post
// conditions, drives the loading-state lifecycle and routes to the backend
// and the generation session. All backend and generation errors are caught
// here; nothing propagates past the dispatch boundary.
type Dispatcher struct {
	backend   Backend
	generator Generator
	transport Transport
	cache     *StatusCache
	session   *GenerationSession
	opts      Options

	// baseCtx outlives a single Handle call; generation and debounce
	// flushes run against it.
	baseCtx context.Context

	mu       sync.Mutex
	state    SurfaceState
	branches []models.Branch
	commits  []models.CommitInfo
	busy     map[string]bool
	pending  map[int]pendingReply
	replySeq int
	// fallbackID is the outstanding offerFallback round-trip, if any. A
	// new generation invalidates it so a superseded offer can never
	// deliver into the conversation that replaced it.
	fallbackID int
}

// NewDispatcher wires a dispatcher to its collaborators. A nil generator
// means generation is unavailable and every request goes straight to the
// fallback offer.
func NewDispatcher(backend Backend, generator Generator, transport Transport, opts Options) *Dispatcher {
	opts = opts.withDefaults()
	return &Dispatcher{
		backend:   backend,
		generator: generator,
		transport: transport,
		cache:     NewStatusCache(opts.StaleWindow),
		session:   NewGenerationSession(),
		opts:      opts,
		baseCtx:   context.Background(),
		state: SurfaceState{
			ActiveTab:    models.TabChanges,
			CommitsLimit: opts.CommitsInitial,
			Visible:      true,
		},
		busy:    make(map[string]bool),
		pending: make(map[int]pendingReply),
	}
}

// Bind sets the context used by asynchronous work (generation completions,
// debounce flushes). Run calls it; tests may too.
func (d *Dispatcher) Bind(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.baseCtx = ctx
}

// Cache exposes the status cache for wiring the debouncer and tests.
func (d *Dispatcher) Cache() *StatusCache { return d.cache }

// Session exposes the generation session state for tests and surfaces.
func (d *Dispatcher) Session() *GenerationSession { return d.session }

// State returns a copy of the surface state.
func (d *Dispatcher) State() SurfaceState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Handle processes one inbound command. Commands arrive in transport
// order; git operations run to completion within the call, generation is
// dispatched asynchronously under the single-flight session.
func (d *Dispatcher) Handle(ctx context.Context, cmd Command) {
	log.Printf("handle: %s", cmd.Type)
	switch cmd.Type {
	case CmdRefresh:
		d.setBusy(TokenRefresh)
		d.cache.Invalidate()
		d.refetch(ctx)
		d.clearLoading(TokenRefresh)
	case CmdStageAll:
		d.mutate(ctx, TokenStageAll, false, func() error { return d.backend.StageAll(ctx) })
	case CmdStageFile:
		if !d.requirePath(cmd.Path, FileToken(cmd.Path)) {
			return
		}
		d.mutate(ctx, FileToken(cmd.Path), false, func() error {
			return d.backend.StageFiles(ctx, []string{cmd.Path})
		})
	case CmdUnstageFile:
		if !d.requirePath(cmd.Path, FileToken(cmd.Path)) {
			return
		}
		d.mutate(ctx, FileToken(cmd.Path), false, func() error {
			return d.backend.UnstageFiles(ctx, []string{cmd.Path})
		})
	case CmdCommit:
		d.handleCommit(ctx, cmd.Message, false)
	case CmdCommitAndPush:
		d.handleCommit(ctx, cmd.Message, true)
	case CmdPush:
		d.mutate(ctx, TokenPush, true, func() error { return d.backend.Push(ctx) })
	case CmdPull:
		d.mutate(ctx, TokenPull, false, func() error { return d.backend.Pull(ctx) })
	case CmdFetch:
		d.mutate(ctx, TokenFetch, false, func() error { return d.backend.Fetch(ctx) })
	case CmdDiscard:
		d.handleDiscard(cmd.Path)
	case CmdOpenDiff:
		d.handleOpenDiff(ctx, cmd.Path)
	case CmdCreateBranch:
		if !d.requireName(cmd.Name, TokenCreateBranch) {
			return
		}
		d.mutate(ctx, TokenCreateBranch, false, func() error {
			return d.backend.CreateBranch(ctx, cmd.Name)
		})
	case CmdSwitchBranch:
		if !d.requireName(cmd.Name, BranchToken(cmd.Name)) {
			return
		}
		d.mutate(ctx, BranchToken(cmd.Name), false, func() error {
			return d.backend.CheckoutBranch(ctx, cmd.Name)
		})
	case CmdDeleteBranch:
		d.handleDeleteBranch(cmd.Name)
	case CmdLoadMore:
		d.handleLoadMore(ctx)
	case CmdOpenCommitDiff:
		d.handleOpenCommitDiff(ctx, cmd.Hash)
	case CmdGenerateMessage:
		d.handleGenerate(ctx)
	case CmdStopGeneration:
		if d.session.Cancel() {
			d.clearLoading(TokenGenerate)
		}
	case CmdSwitchTab:
		d.handleSwitchTab(cmd.Tab)
	case CmdAttach:
		d.handleAttach(ctx)
	case CmdVisibility:
		d.handleVisibility(ctx, cmd.Visible)
	case CmdReply:
		d.handleReply(ctx, cmd.ID, cmd.Accepted)
	default:
		log.Printf("unknown command: %s", cmd.Type)
	}
}

// OnQuietPeriod is the debouncer flush: invalidate the cache, and refresh
// only while the surface is visible. An invisible surface keeps the cache
// invalidated so the next visibility transition forces a refetch.
func (d *Dispatcher) OnQuietPeriod() {
	d.cache.Invalidate()
	d.mu.Lock()
	visible := d.state.Visible
	ctx := d.baseCtx
	d.mu.Unlock()
	if visible {
		d.refetch(ctx)
	}
}

// mutate runs one backend mutation under a loading token, classifying the
// failure and ending with the implicit refresh on success. The token is
// cleared on every exit path.
func (d *Dispatcher) mutate(ctx context.Context, token string, pushClass bool, op func() error) {
	d.setBusy(token)
	defer d.clearLoading(token)

	if err := op(); err != nil {
		d.notifyError(err, pushClass)
		return
	}
	d.refreshAfterMutation(ctx)
}

func (d *Dispatcher) handleCommit(ctx context.Context, message string, andPush bool) {
	d.setBusy(TokenCommit)
	defer d.clearLoading(TokenCommit)

	if strings.TrimSpace(message) == "" {
		d.notifyWarning("Commit message is empty")
		return
	}
	if err := d.backend.Commit(ctx, message); err != nil {
		d.notifyError(err, false)
		return
	}
	if andPush {
		if err := d.backend.Push(ctx); err != nil {
			// The commit is not rolled back: report the push failure and
			// let the refreshed state show the partial success.
			d.notifyError(err, true)
			d.refreshAfterMutation(ctx)
			return
		}
	}
	d.refreshAfterMutation(ctx)
}

func (d *Dispatcher) handleDiscard(path string) {
	token := FileToken(path)
	if !d.requirePath(path, token) {
		return
	}
	d.setBusy(token)
	d.requestReply(EventConfirm, fmt.Sprintf("Discard changes to %s? This cannot be undone.", path),
		func(ctx context.Context) {
			defer d.clearLoading(token)
			if err := d.backend.DiscardChanges(ctx, []string{path}); err != nil {
				d.notifyError(err, false)
				return
			}
			d.refreshAfterMutation(ctx)
		},
		func(context.Context) {
			// Declining is a silent no-op.
			d.clearLoading(token)
		})
}

func (d *Dispatcher) handleDeleteBranch(name string) {
	token := BranchToken(name)
	if !d.requireName(name, token) {
		return
	}
	d.setBusy(token)
	d.requestReply(EventConfirm, fmt.Sprintf("Delete branch %s?", name),
		func(ctx context.Context) {
			defer d.clearLoading(token)
			if err := d.backend.DeleteBranch(ctx, name); err != nil {
				d.notifyError(err, false)
				return
			}
			d.refreshAfterMutation(ctx)
		},
		func(context.Context) {
			d.clearLoading(token)
		})
}

func (d *Dispatcher) handleLoadMore(ctx context.Context) {
	d.setBusy(TokenLoadMore)
	defer d.clearLoading(TokenLoadMore)

	d.mu.Lock()
	if d.state.CommitsLimit < d.opts.CommitsMax {
		d.state.CommitsLimit = d.opts.CommitsMax
	}
	limit := d.state.CommitsLimit
	d.mu.Unlock()

	commits, err := d.backend.CommitHistory(ctx, limit)
	if err != nil {
		d.notifyError(err, false)
		return
	}
	d.mu.Lock()
	d.commits = commits
	d.mu.Unlock()
	d.render()
}

func (d *Dispatcher) handleOpenDiff(ctx context.Context, path string) {
	token := FileToken(path)
	if !d.requirePath(path, token) {
		return
	}
	d.setBusy(token)
	defer d.clearLoading(token)

	body, err := d.backend.Diff(ctx, path)
	if err != nil {
		d.notifyError(err, false)
		return
	}
	d.transport.Send(Event{Type: EventDiff, Title: path, Body: body})
}

func (d *Dispatcher) handleOpenCommitDiff(ctx context.Context, hash string) {
	token := CommitToken(hash)
	if hash == "" {
		d.notifyWarning("No commit selected")
		d.clearLoading(token)
		return
	}
	d.setBusy(token)
	defer d.clearLoading(token)

	body, err := d.backend.CommitDiff(ctx, hash)
	if err != nil {
		d.notifyError(err, false)
		return
	}
	title := hash
	if len(title) > 8 {
		title = title[:8]
	}
	d.transport.Send(Event{Type: EventDiff, Title: title, Body: body})
}

func (d *Dispatcher) handleSwitchTab(tab models.Tab) {
	if !tab.Valid() {
		d.notifyWarning(fmt.Sprintf("Unknown tab %q", tab))
		return
	}
	d.mu.Lock()
	d.state.ActiveTab = tab
	d.mu.Unlock()
	d.render()
}

// handleAttach answers a freshly (re)attached surface with a full state
// push, refetching when the cache cannot serve.
func (d *Dispatcher) handleAttach(ctx context.Context) {
	d.mu.Lock()
	d.state.Visible = true
	d.mu.Unlock()

	d.transport.Send(Event{Type: EventClearAllLoading})
	if _, ok := d.cache.Get(); !ok {
		d.refetch(ctx)
		return
	}
	d.render()
}

func (d *Dispatcher) handleVisibility(ctx context.Context, visible bool) {
	d.mu.Lock()
	d.state.Visible = visible
	d.mu.Unlock()

	if !visible {
		return
	}
	if _, ok := d.cache.Get(); !ok {
		d.refetch(ctx)
		return
	}
	d.render()
}

func (d *Dispatcher) handleReply(ctx context.Context, id int, accepted bool) {
	d.mu.Lock()
	reply, ok := d.pending[id]
	if ok {
		delete(d.pending, id)
		if id == d.fallbackID {
			d.fallbackID = 0
		}
	}
	d.mu.Unlock()
	if !ok {
		log.Printf("reply for unknown id %d", id)
		return
	}
	if accepted {
		reply.onAccept(ctx)
		return
	}
	if reply.onDecline != nil {
		reply.onDecline(ctx)
	}
}

// handleGenerate starts a commit-message generation under the
// single-flight session, disposing any predecessor first.
func (d *Dispatcher) handleGenerate(ctx context.Context) {
	if d.session.State() == StateRequesting {
		// The predecessor is implicitly cancelled; settle its affordance
		// before the new request claims it.
		d.clearLoading(TokenGenerate)
	}
	d.dropPendingFallback()
	d.setBusy(TokenGenerate)

	snapshot := d.currentSnapshot(ctx)
	d.mu.Lock()
	base := d.baseCtx
	d.mu.Unlock()
	handle := d.session.Begin(base)
	// Generation runs asynchronously; show the busy affordance now.
	d.render()

	if d.generator == nil {
		d.failGeneration(handle, snapshot)
		return
	}
	go d.runGeneration(handle, snapshot)
}

func (d *Dispatcher) runGeneration(handle *Handle, snapshot *models.StatusSnapshot) {
	diff, err := d.backend.StagedDiff(handle.Context())
	if err != nil {
		diff = ""
	}
	message, err := d.generator.Generate(handle.Context(), snapshot, diff)
	switch {
	case err == nil:
		if d.session.Finish(handle) {
			d.clearLoading(TokenGenerate)
			d.transport.Send(Event{Type: EventMessageGenerated, Message: message})
		}
	case errors.Is(err, context.Canceled):
		// Cancellation is not an error. A disposed handle was settled by
		// whoever disposed it; a live handle cancelled through the host
		// context still owns the token.
		if d.session.Finish(handle) {
			d.clearLoading(TokenGenerate)
		}
	case errors.Is(err, generate.ErrUnavailable):
		d.failGeneration(handle, snapshot)
	default:
		if d.session.Finish(handle) {
			d.clearLoading(TokenGenerate)
			d.notifyError(err, false)
		}
	}
}

// failGeneration ends a request whose backend is unavailable and opens the
// fallback negotiation.
func (d *Dispatcher) failGeneration(handle *Handle, snapshot *models.StatusSnapshot) {
	if !d.session.OfferFallback(handle) {
		return
	}
	d.clearLoading(TokenGenerate)
	d.requestReply(EventOfferFallback,
		"Message generation is unavailable. Use a message derived from the changed files instead?",
		func(context.Context) {
			d.session.ResolveFallback()
			d.transport.Send(Event{Type: EventMessageGenerated, Message: generate.Fallback(snapshot)})
		},
		func(context.Context) {
			d.session.ResolveFallback()
		})
}

// requestReply registers a pending round-trip and pushes the request event.
// Fallback offers are additionally tracked so a new generation can
// invalidate them.
func (d *Dispatcher) requestReply(kind EventType, message string, onAccept, onDecline func(context.Context)) {
	d.mu.Lock()
	d.replySeq++
	id := d.replySeq
	d.pending[id] = pendingReply{onAccept: onAccept, onDecline: onDecline}
	if kind == EventOfferFallback {
		d.fallbackID = id
	}
	d.mu.Unlock()

	d.transport.Send(Event{Type: kind, ID: id, Message: message})
}

// dropPendingFallback withdraws an outstanding fallback offer. A reply to
// the withdrawn id is ignored like any unknown reply.
func (d *Dispatcher) dropPendingFallback() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fallbackID != 0 {
		delete(d.pending, d.fallbackID)
		d.fallbackID = 0
	}
}

// refreshAfterMutation invalidates the cache and, only while the surface
// is visible, refetches so it observes post-condition state.
func (d *Dispatcher) refreshAfterMutation(ctx context.Context) {
	d.cache.Invalidate()
	d.mu.Lock()
	visible := d.state.Visible
	d.mu.Unlock()
	if visible {
		d.refetch(ctx)
	}
}

// refetch pulls status, branches and history from the backend and pushes a
// full render. Fetch failures surface as non-blocking errors.
func (d *Dispatcher) refetch(ctx context.Context) {
	snapshot, err := d.backend.Status(ctx)
	if err != nil {
		d.notifyError(err, false)
		return
	}
	branches, err := d.backend.Branches(ctx)
	if err != nil {
		d.notifyError(err, false)
		return
	}
	d.mu.Lock()
	limit := d.state.CommitsLimit
	d.mu.Unlock()
	commits, err := d.backend.CommitHistory(ctx, limit)
	if err != nil {
		d.notifyError(err, false)
		return
	}

	d.cache.Set(snapshot)
	d.mu.Lock()
	d.branches = branches
	d.commits = commits
	d.state.LastRefreshAt = time.Now()
	d.mu.Unlock()
	d.render()
}

// currentSnapshot serves from the cache or fetches, caching the result. A
// fetch failure yields nil; generation copes with a missing snapshot.
func (d *Dispatcher) currentSnapshot(ctx context.Context) *models.StatusSnapshot {
	if snapshot, ok := d.cache.Get(); ok {
		return snapshot
	}
	snapshot, err := d.backend.Status(ctx)
	if err != nil {
		d.notifyError(err, false)
		return nil
	}
	d.cache.Set(snapshot)
	return snapshot
}

// render pushes the full current state. The state is always complete so a
// recreated surface needs nothing else.
func (d *Dispatcher) render() {
	snapshot, _ := d.cache.Get()

	d.mu.Lock()
	state := &RenderState{
		Snapshot:     snapshot,
		Branches:     d.branches,
		Commits:      d.commits,
		ActiveTab:    d.state.ActiveTab,
		CommitsLimit: d.state.CommitsLimit,
		Generating:   false,
	}
	for token := range d.busy {
		state.Busy = append(state.Busy, token)
	}
	d.mu.Unlock()
	sort.Strings(state.Busy)
	state.Generating = d.session.State() == StateRequesting

	d.transport.Send(Event{Type: EventRender, State: state})
}

func (d *Dispatcher) requirePath(path, token string) bool {
	if strings.TrimSpace(path) != "" {
		return true
	}
	d.notifyWarning("No file selected")
	d.clearLoading(token)
	return false
}

func (d *Dispatcher) requireName(name, token string) bool {
	if strings.TrimSpace(name) != "" {
		return true
	}
	d.notifyWarning("Branch name is empty")
	d.clearLoading(token)
	return false
}

func (d *Dispatcher) setBusy(token string) {
	d.mu.Lock()
	d.busy[token] = true
	d.mu.Unlock()
}

// clearLoading drops the busy flag and tells the surface. Safe to call for
// tokens that were never set.
func (d *Dispatcher) clearLoading(token string) {
	d.mu.Lock()
	delete(d.busy, token)
	d.mu.Unlock()
	d.transport.Send(Event{Type: EventClearLoading, Token: token})
}

func (d *Dispatcher) notifyWarning(message string) {
	d.transport.Send(Event{Type: EventNotify, Level: SeverityWarning, Message: message})
}

// notifyError reports a backend failure. Push-class errors present as
// blocking since they usually need a user decision.
func (d *Dispatcher) notifyError(err error, pushClass bool) {
	log.Printf("backend error: %v", err)
	d.transport.Send(Event{
		Type:     EventNotify,
		Level:    SeverityError,
		Message:  err.Error(),
		Blocking: pushClass,
	})
}
