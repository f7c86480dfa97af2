// Package panel implements the orchestration layer between the long-lived
// host process and a transient presentation surface: status caching,
// filesystem-change debouncing, single-flight commit-message generation and
// command dispatch, all over an ordered message transport.
package panel

import (
	"github.com/chmouel/lazypanel/internal/models"
)

// CommandType discriminates inbound surface intents.
type CommandType string

// Inbound command intents.
const (
	CmdRefresh         CommandType = "refresh"
	CmdStageAll        CommandType = "stageAll"
	CmdStageFile       CommandType = "stageFile"
	CmdUnstageFile     CommandType = "unstageFile"
	CmdCommit          CommandType = "commit"
	CmdCommitAndPush   CommandType = "commitAndPush"
	CmdPush            CommandType = "push"
	CmdPull            CommandType = "pull"
	CmdFetch           CommandType = "fetch"
	CmdDiscard         CommandType = "discard"
	CmdOpenDiff        CommandType = "openDiff"
	CmdCreateBranch    CommandType = "createBranch"
	CmdSwitchBranch    CommandType = "switchBranch"
	CmdDeleteBranch    CommandType = "deleteBranch"
	CmdLoadMore        CommandType = "loadMore"
	CmdOpenCommitDiff  CommandType = "openCommitDiff"
	CmdGenerateMessage CommandType = "generateCommitMessage"
	CmdStopGeneration  CommandType = "stopGeneration"
	CmdSwitchTab       CommandType = "switchTab"

	// Surface lifecycle intents.
	CmdAttach     CommandType = "attach"
	CmdVisibility CommandType = "visibility"
	// CmdReply answers a pending confirm or offerFallback round-trip.
	CmdReply CommandType = "reply"
)

// Command is the inbound protocol envelope. Only the fields relevant to
// Type are populated.
type Command struct {
	Type     CommandType `json:"type"`
	Path     string      `json:"path,omitempty"`
	Message  string      `json:"message,omitempty"`
	Name     string      `json:"name,omitempty"`
	Hash     string      `json:"hash,omitempty"`
	Tab      models.Tab  `json:"tab,omitempty"`
	Visible  bool        `json:"visible,omitempty"`
	ID       int         `json:"id,omitempty"`
	Accepted bool        `json:"accepted,omitempty"`
}

// EventType discriminates outbound events.
type EventType string

// Outbound event types.
const (
	EventRender           EventType = "render"
	EventClearLoading     EventType = "clearLoading"
	EventClearAllLoading  EventType = "clearAllLoading"
	EventMessageGenerated EventType = "commitMessageGenerated"
	EventNotify           EventType = "notify"
	EventConfirm          EventType = "confirm"
	EventOfferFallback    EventType = "offerFallback"
	EventDiff             EventType = "diff"
)

// Severity levels for notify events.
type Severity string

// Notification severities.
const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// RenderState is the full state push answering a render or rehydration
// request. It is always complete; the surface never has to merge
// incremental events to reconstruct it.
type RenderState struct {
	Snapshot     *models.StatusSnapshot `json:"snapshot,omitempty"`
	Branches     []models.Branch        `json:"branches,omitempty"`
	Commits      []models.CommitInfo    `json:"commits,omitempty"`
	ActiveTab    models.Tab             `json:"activeTab"`
	CommitsLimit int                    `json:"commitsLimit"`
	Busy         []string               `json:"busy,omitempty"`
	Generating   bool                   `json:"generating,omitempty"`
}

// Event is the outbound protocol envelope.
type Event struct {
	Type     EventType    `json:"type"`
	State    *RenderState `json:"state,omitempty"`
	Token    string       `json:"token,omitempty"`
	Message  string       `json:"message,omitempty"`
	Level    Severity     `json:"level,omitempty"`
	Blocking bool         `json:"blocking,omitempty"`
	ID       int          `json:"id,omitempty"`
	Title    string       `json:"title,omitempty"`
	Body     string       `json:"body,omitempty"`
}

// Loading token identifiers for the fixed affordances. Per-row tokens are
// derived with FileToken and BranchToken.
const (
	TokenRefresh      = "refreshBtn"
	TokenStageAll     = "stageAllBtn"
	TokenCommit       = "commitBtn"
	TokenPush         = "pushBtn"
	TokenPull         = "pullBtn"
	TokenFetch        = "fetchBtn"
	TokenGenerate     = "generateBtn"
	TokenLoadMore     = "loadMoreBtn"
	TokenCreateBranch = "createBranchBtn"
)

// FileToken returns the loading token for a per-file affordance.
func FileToken(path string) string { return "file:" + path }

// BranchToken returns the loading token for a per-branch affordance.
func BranchToken(name string) string { return "branch:" + name }

// CommitToken returns the loading token for a per-commit affordance.
func CommitToken(hash string) string { return "commit:" + hash }
