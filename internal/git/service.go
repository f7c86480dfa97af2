// Package git wraps the git commands that back the status panel.
package git

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/chmouel/lazypanel/internal/log"
	"github.com/chmouel/lazypanel/internal/models"
)

// BackendError reports a failed git invocation. Message carries the trimmed
// stderr when the command produced any.
type BackendError struct {
	Op      string
	Message string
}

func (e *BackendError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("git %s failed", e.Op)
	}
	return fmt.Sprintf("git %s: %s", e.Op, e.Message)
}

// Service runs git commands against a single repository.
type Service struct {
	repo string
}

// NewService constructs a Service rooted at repo.
func NewService(repo string) *Service {
	return &Service{repo: repo}
}

func (s *Service) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", s.repo}, args...)
	log.Printf("run: git %s", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, "git", full...)
	output, err := cmd.Output()
	if err != nil {
		op := args[0]
		if exitError, ok := err.(*exec.ExitError); ok {
			message := strings.TrimSpace(string(exitError.Stderr))
			log.Printf("error: git %s: %s", op, message)
			return "", &BackendError{Op: op, Message: message}
		}
		log.Printf("error: git %s: %v", op, err)
		return "", &BackendError{Op: op, Message: err.Error()}
	}
	return string(output), nil
}

// Root returns the repository toplevel directory.
func (s *Service) Root(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// GitDir returns the absolute .git directory of the repository.
func (s *Service) GitDir(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Status fetches the current repository snapshot from porcelain status.
func (s *Service) Status(ctx context.Context) (*models.StatusSnapshot, error) {
	out, err := s.run(ctx, "status", "--porcelain=v1", "-b", "--no-renames")
	if err != nil {
		return nil, err
	}
	return parseStatus(out), nil
}

// parseStatus parses `git status --porcelain=v1 -b` output.
func parseStatus(out string) *models.StatusSnapshot {
	snap := &models.StatusSnapshot{}
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "## ") {
			snap.Branch, snap.Ahead, snap.Behind = parseBranchHeader(line[3:])
			continue
		}
		if len(line) < 4 {
			continue
		}
		x, y, path := line[0], line[1], line[3:]
		if x == '?' && y == '?' {
			snap.Untracked = append(snap.Untracked, path)
			continue
		}
		if x != ' ' {
			snap.Staged = append(snap.Staged, path)
		}
		if y != ' ' {
			snap.Unstaged = append(snap.Unstaged, path)
		}
	}
	return snap
}

// parseBranchHeader parses the `## branch...upstream [ahead N, behind M]`
// header line of porcelain status.
func parseBranchHeader(header string) (branch string, ahead, behind int) {
	if idx := strings.Index(header, " ["); idx >= 0 {
		tracking := strings.TrimSuffix(header[idx+2:], "]")
		header = header[:idx]
		for _, part := range strings.Split(tracking, ", ") {
			if n, ok := strings.CutPrefix(part, "ahead "); ok {
				ahead, _ = strconv.Atoi(n)
			}
			if n, ok := strings.CutPrefix(part, "behind "); ok {
				behind, _ = strconv.Atoi(n)
			}
		}
	}
	branch = header
	if idx := strings.Index(branch, "..."); idx >= 0 {
		branch = branch[:idx]
	}
	// Detached HEAD or unborn branch headers keep their porcelain wording.
	branch = strings.TrimPrefix(branch, "No commits yet on ")
	return branch, ahead, behind
}

// StageFiles stages the given paths.
func (s *Service) StageFiles(ctx context.Context, paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	_, err := s.run(ctx, args...)
	return err
}

// StageAll stages every pending change including untracked files.
func (s *Service) StageAll(ctx context.Context) error {
	_, err := s.run(ctx, "add", "-A")
	return err
}

// UnstageFiles removes the given paths from the index.
func (s *Service) UnstageFiles(ctx context.Context, paths []string) error {
	args := append([]string{"reset", "HEAD", "--"}, paths...)
	_, err := s.run(ctx, args...)
	return err
}

// Commit records the staged changes with the given message.
func (s *Service) Commit(ctx context.Context, message string) error {
	_, err := s.run(ctx, "commit", "-m", message)
	return err
}

// Push publishes the current branch to its upstream.
func (s *Service) Push(ctx context.Context) error {
	_, err := s.run(ctx, "push")
	return err
}

// Pull integrates upstream changes into the current branch.
func (s *Service) Pull(ctx context.Context) error {
	_, err := s.run(ctx, "pull")
	return err
}

// Fetch updates remote-tracking refs.
func (s *Service) Fetch(ctx context.Context) error {
	_, err := s.run(ctx, "fetch")
	return err
}

// DiscardChanges throws away worktree modifications to the given paths.
// Untracked files are removed, tracked files restored from HEAD.
func (s *Service) DiscardChanges(ctx context.Context, paths []string) error {
	tracked, untracked, err := s.splitTracked(ctx, paths)
	if err != nil {
		return err
	}
	if len(tracked) > 0 {
		args := append([]string{"checkout", "--"}, tracked...)
		if _, err := s.run(ctx, args...); err != nil {
			return err
		}
	}
	if len(untracked) > 0 {
		args := append([]string{"clean", "-f", "--"}, untracked...)
		if _, err := s.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) splitTracked(ctx context.Context, paths []string) (tracked, untracked []string, err error) {
	args := append([]string{"ls-files", "--"}, paths...)
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, nil, err
	}
	known := make(map[string]bool)
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line != "" {
			known[line] = true
		}
	}
	for _, path := range paths {
		if known[path] {
			tracked = append(tracked, path)
		} else {
			untracked = append(untracked, path)
		}
	}
	return tracked, untracked, nil
}

// Branches lists local and remote branches.
func (s *Service) Branches(ctx context.Context) ([]models.Branch, error) {
	out, err := s.run(ctx, "for-each-ref",
		"--format=%(HEAD)%09%(refname:short)%09%(refname)",
		"refs/heads", "refs/remotes")
	if err != nil {
		return nil, err
	}
	var branches []models.Branch
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			continue
		}
		name := fields[1]
		if strings.HasSuffix(name, "/HEAD") {
			continue
		}
		branches = append(branches, models.Branch{
			Name:    name,
			Current: fields[0] == "*",
			Remote:  strings.HasPrefix(fields[2], "refs/remotes/"),
		})
	}
	return branches, nil
}

// CurrentBranch returns the checked-out branch name.
func (s *Service) CurrentBranch(ctx context.Context) (string, error) {
	out, err := s.run(ctx, "branch", "--show-current")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// CreateBranch creates and checks out a new branch.
func (s *Service) CreateBranch(ctx context.Context, name string) error {
	_, err := s.run(ctx, "checkout", "-b", name)
	return err
}

// CheckoutBranch switches to an existing branch.
func (s *Service) CheckoutBranch(ctx context.Context, name string) error {
	_, err := s.run(ctx, "checkout", name)
	return err
}

// DeleteBranch force-deletes a local branch.
func (s *Service) DeleteBranch(ctx context.Context, name string) error {
	_, err := s.run(ctx, "branch", "-D", name)
	return err
}

// logFieldSep separates the pretty-format fields in CommitHistory output.
const logFieldSep = "\x1f"

// CommitHistory returns up to limit commits, newest first.
func (s *Service) CommitHistory(ctx context.Context, limit int) ([]models.CommitInfo, error) {
	format := strings.Join([]string{"%H", "%an", "%aI", "%s", "%D"}, logFieldSep)
	out, err := s.run(ctx, "log", fmt.Sprintf("--max-count=%d", limit), "--pretty=format:"+format)
	if err != nil {
		return nil, err
	}
	var commits []models.CommitInfo
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		fields := strings.Split(line, logFieldSep)
		if len(fields) < 4 {
			continue
		}
		commit := models.CommitInfo{
			Hash:    fields[0],
			Author:  fields[1],
			Message: fields[3],
		}
		if date, err := time.Parse(time.RFC3339, fields[2]); err == nil {
			commit.Date = date
		}
		if len(fields) > 4 {
			commit.Refs = fields[4]
		}
		commits = append(commits, commit)
	}
	return commits, nil
}

// Diff returns the worktree diff for one path, falling back to the staged
// diff when the worktree is clean for it.
func (s *Service) Diff(ctx context.Context, path string) (string, error) {
	out, err := s.run(ctx, "diff", "--", path)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) != "" {
		return out, nil
	}
	return s.run(ctx, "diff", "--cached", "--", path)
}

// CommitDiff returns the full diff of one commit.
func (s *Service) CommitDiff(ctx context.Context, hash string) (string, error) {
	return s.run(ctx, "show", "--stat", "--patch", hash)
}

// StagedDiff returns the diff of the index against HEAD, used as generation
// input.
func (s *Service) StagedDiff(ctx context.Context) (string, error) {
	return s.run(ctx, "diff", "--cached")
}
