package cli

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m model) (tea.Model, tea.Cmd) {
	active := &m.findingList
	if m.mode == panelErrors {
		active = &m.errorList
	}
	// Typed characters belong to the filter while one is being edited.
	if active.SettingFilter() {
		var cmd tea.Cmd
		*active, cmd = active.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "tab":
		if m.mode == panelFindings {
			m.mode = panelErrors
		} else {
			m.mode = panelFindings
		}
		return m, nil
	case "t":
		m.showTrend = !m.showTrend
		return m, nil
	case "o":
		target, ok := selectedSourceTarget(*active)
		if !ok {
			m.sourceJumpStatus = statusStyle.Render("No source target available.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	var cmd tea.Cmd
	*active, cmd = active.Update(msg)
	return m, cmd
}

type sourceTarget struct {
	file string
	line int
}

func selectedSourceTarget(l list.Model) (sourceTarget, bool) {
	selected, ok := l.SelectedItem().(item)
	if !ok || selected.file == "" {
		return sourceTarget{}, false
	}
	line := selected.line
	if line < 1 {
		line = 1
	}
	return sourceTarget{file: selected.file, line: line}, true
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "vi") || strings.Contains(editor, "nano") {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return sourceJumpResultMsg{target: label, err: err}
	})
}
