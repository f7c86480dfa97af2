// Package models defines the data objects shared across lazypanel packages.
package models

import "time"

// StatusSnapshot is an immutable point-in-time view of the repository
// file-state. A refresh replaces the whole snapshot, it is never mutated
// in place.
type StatusSnapshot struct {
	Branch    string   `json:"branch"`
	Ahead     int      `json:"ahead"`
	Behind    int      `json:"behind"`
	Staged    []string `json:"staged,omitempty"`
	Unstaged  []string `json:"unstaged,omitempty"`
	Untracked []string `json:"untracked,omitempty"`
}

// Clean reports whether the worktree has no pending changes.
func (s *StatusSnapshot) Clean() bool {
	return len(s.Staged) == 0 && len(s.Unstaged) == 0 && len(s.Untracked) == 0
}

// Branch represents a local or remote git branch.
type Branch struct {
	Name    string `json:"name"`
	Current bool   `json:"current"`
	Remote  bool   `json:"remote"`
}

// CommitInfo summarizes one entry of the commit history.
type CommitInfo struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Date    time.Time `json:"date"`
	Message string    `json:"message"`
	Refs    string    `json:"refs,omitempty"`
}

// Tab identifies one of the panel views.
type Tab string

// Panel tabs.
const (
	TabChanges  Tab = "changes"
	TabBranches Tab = "branches"
	TabCommits  Tab = "commits"
)

// Valid reports whether t names a known tab.
func (t Tab) Valid() bool {
	switch t {
	case TabChanges, TabBranches, TabCommits:
		return true
	}
	return false
}
