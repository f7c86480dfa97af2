package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/chmouel/lazypanel/internal/models"
	"github.com/chmouel/lazypanel/internal/panel"
)

// View renders the surface.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.windowWidth == 0 {
		return "Loading..."
	}

	switch m.modal {
	case modalDiff:
		return m.renderDiffModal()
	case modalConfirm, modalFallback, modalNotice:
		return m.renderMessageModal()
	case modalHelp:
		return m.renderHelpModal()
	}

	var b strings.Builder
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.renderBody())
	b.WriteString("\n")
	if m.inputMode != inputNone {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m *Model) renderTabs() string {
	render := func(tab models.Tab, label string) string {
		if tab == m.activeTab {
			return tabActiveStyle.Render(label)
		}
		return tabStyle.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		render(models.TabChanges, "1 Changes"),
		render(models.TabBranches, "2 Branches"),
		render(models.TabCommits, "3 Commits"),
	)
}

func (m *Model) renderBody() string {
	var body string
	switch m.activeTab {
	case models.TabBranches:
		body = m.renderBranches()
	case models.TabCommits:
		body = m.renderCommits()
	default:
		body = m.renderChanges()
	}
	height := maxInt(m.windowHeight-6, 3)
	return paneStyle.Width(maxInt(m.windowWidth-2, 20)).Height(height).Render(body)
}

func (m *Model) renderChanges() string {
	entries := m.changeEntries()
	if len(entries) == 0 {
		return helpStyle.Render("Working tree clean")
	}

	var lines []string
	for i, entry := range entries {
		var mark string
		switch entry.kind {
		case changeStaged:
			mark = stagedMarkStyle.Render("●")
		case changeUnstaged:
			mark = unstagedMarkStyle.Render("○")
		case changeUntracked:
			mark = untrackedMarkStyle.Render("?")
		}
		line := fmt.Sprintf("%s %s%s", mark, iconWithSpace(deviconForPath(entry.path)), entry.path)
		if m.busy[panel.FileToken(entry.path)] {
			line += " " + m.spinner.View()
		}
		if i == m.changeIndex {
			line = selectedRowStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBranches() string {
	if len(m.branches) == 0 {
		return helpStyle.Render("No branches")
	}

	var lines []string
	for i, branch := range m.branches {
		mark := "  "
		if branch.Current {
			mark = branchStyle.Render("* ")
		}
		line := fmt.Sprintf("%s%s %s", mark, iconBranch, branch.Name)
		if m.busy[panel.BranchToken(branch.Name)] {
			line += " " + m.spinner.View()
		}
		if i == m.branchIndex {
			line = selectedRowStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderCommits() string {
	if len(m.commits) == 0 {
		return helpStyle.Render("No commits")
	}

	var lines []string
	for i, commit := range m.commits {
		hash := commit.Hash
		if len(hash) > 8 {
			hash = hash[:8]
		}
		line := fmt.Sprintf("%s %s %s",
			iconCommit,
			branchStyle.Render(hash),
			commit.Message)
		if i == m.commitIndex {
			line = selectedRowStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}
	if m.busy[panel.TokenLoadMore] {
		lines = append(lines, "  "+m.spinner.View()+" loading more...")
	} else {
		lines = append(lines, helpStyle.Render(fmt.Sprintf("  showing up to %d  (m: more)", m.commitsLimit)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatusBar() string {
	var parts []string
	if m.snapshot != nil {
		branch := branchStyle.Render(m.snapshot.Branch)
		if m.snapshot.Ahead > 0 {
			branch += statusBarStyle.Render(fmt.Sprintf(" ↑%d", m.snapshot.Ahead))
		}
		if m.snapshot.Behind > 0 {
			branch += statusBarStyle.Render(fmt.Sprintf(" ↓%d", m.snapshot.Behind))
		}
		parts = append(parts, branch)
	}
	if m.generating || m.busy[panel.TokenGenerate] {
		parts = append(parts, m.spinner.View()+statusBarStyle.Render(" generating"))
	} else if len(m.busy) > 0 {
		parts = append(parts, m.spinner.View()+statusBarStyle.Render(" working"))
	}
	if m.note != "" {
		style := notifyInfoStyle
		switch m.noteLevel {
		case panel.SeverityWarning:
			style = notifyWarnStyle
		case panel.SeverityError:
			style = notifyErrorStyle
		}
		parts = append(parts, style.Render(m.note))
	}
	parts = append(parts, helpStyle.Render("?: help  q: quit"))
	return strings.Join(parts, "  ")
}

func (m *Model) renderDiffModal() string {
	title := branchStyle.Render(m.diffTitle)
	body := lipgloss.JoinVertical(lipgloss.Left,
		title,
		m.diffView.View(),
		helpStyle.Render("q: close  j/k: scroll"))
	return m.centered(modalStyle.Render(body))
}

func (m *Model) renderMessageModal() string {
	width := maxInt(minInt(m.windowWidth-10, 70), 24)
	message := wordwrap.String(m.modalMessage, width)

	var hint string
	switch m.modal {
	case modalConfirm, modalFallback:
		hint = "y: yes  n: no"
	default:
		hint = "enter: dismiss"
	}
	body := lipgloss.JoinVertical(lipgloss.Left, message, "", helpStyle.Render(hint))
	return m.centered(modalStyle.Render(body))
}

func (m *Model) renderHelpModal() string {
	help := strings.Join([]string{
		branchStyle.Render("Keys"),
		"",
		"1/2/3, tab   switch tab",
		"j/k          move selection",
		"r            refresh",
		"",
		"s/u          stage / unstage file",
		"a            stage all",
		"d, enter     open diff",
		"x            discard file",
		"c            commit (type message)",
		"C            commit and push last message",
		"g / G        generate / stop generating message",
		"P / p / f    push / pull / fetch",
		"",
		"enter        switch branch / open commit",
		"n / D        new branch / delete branch",
		"m            load more commits",
	}, "\n")
	return m.centered(modalStyle.Render(help))
}

func (m *Model) centered(content string) string {
	return lipgloss.Place(m.windowWidth, m.windowHeight,
		lipgloss.Center, lipgloss.Center, content)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
