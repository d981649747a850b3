package cli

import (
	"fmt"
	"time"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/data/history"
	"virtualmod/internal/engine/classify"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	violationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	abortedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

type item struct {
	title, desc string
	file        string
	line        int
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

type model struct {
	findingList      list.Model
	errorList        list.Model
	mode             panelMode
	baseDir          string
	trendReport      *history.TrendReport
	showTrend        bool
	report           *ports.Report
	lastUpdate       time.Time
	sourceJumpStatus string
}

type panelMode int

const (
	panelFindings panelMode = iota
	panelErrors
)

type updateMsg struct {
	report *ports.Report
}

type sourceJumpResultMsg struct {
	target string
	err    error
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return handleKeyActions(msg, m)
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		width := msg.Width - h
		height := msg.Height - v - 8
		if height < 5 {
			height = 5
		}
		m.findingList.SetSize(width, height)
		m.errorList.SetSize(width, height)
	case updateMsg:
		if msg.report == nil {
			return m, nil
		}
		m.report = msg.report
		m.lastUpdate = time.Now()

		items := make([]list.Item, 0, len(msg.report.Findings))
		for _, f := range msg.report.Findings {
			items = append(items, item{
				title: fmt.Sprintf("%s:%d:%d", displayPath(m.baseDir, f.File), f.Line, f.Column),
				desc:  fmt.Sprintf("[%s] %s", f.Violation.Kind, f.Message),
				file:  f.File,
				line:  f.Line,
			})
		}
		m.findingList.SetItems(items)

		errorItems := make([]list.Item, 0, len(msg.report.FileErrors))
		for _, fe := range msg.report.FileErrors {
			errorItems = append(errorItems, item{
				title: displayPath(m.baseDir, fe.Path),
				desc:  fmt.Sprintf("[%s] %s", fe.Code, fe.Err),
				file:  fe.Path,
				line:  1,
			})
		}
		m.errorList.SetItems(errorItems)
	case sourceJumpResultMsg:
		if msg.err != nil {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Source jump failed: %v", msg.err))
		} else {
			m.sourceJumpStatus = statusStyle.Render(fmt.Sprintf("Opened source: %s", msg.target))
		}
	}

	var cmd tea.Cmd
	if m.mode == panelFindings {
		m.findingList, cmd = m.findingList.Update(msg)
	} else {
		m.errorList, cmd = m.errorList.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	files, edges := 0, 0
	if m.report != nil {
		files, edges = m.report.Summary.Files, m.report.Summary.Edges
	}
	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %d files | %d imports",
		m.lastUpdate.Format("15:04:05"), files, edges))

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Virtual Module Boundaries"), status, renderSummary(m.report))
	help := renderHelp(m)

	body := m.findingList.View()
	if m.mode == panelErrors {
		body = m.errorList.View()
	}
	if m.showTrend {
		body += "\n\n" + renderTrendOverlay(m.trendReport)
	}
	if m.sourceJumpStatus != "" {
		body += "\n\n" + m.sourceJumpStatus
	}

	return docStyle.Render(header + "\n" + help + "\n\n" + body)
}

func renderSummary(report *ports.Report) string {
	if report == nil {
		return statusStyle.Render("analyzing...")
	}
	if len(report.Findings) == 0 && len(report.FileErrors) == 0 {
		return successStyle.Render("Boundaries Clean")
	}
	return fmt.Sprintf("%s (%d index, %d parent, %d private) | %s",
		violationStyle.Render(fmt.Sprintf("%d violations", len(report.Findings))),
		report.Summary.ByKind[classify.KindIndexImport],
		report.Summary.ByKind[classify.KindParentModuleImport],
		report.Summary.ByKind[classify.KindPrivateModuleImport],
		abortedStyle.Render(fmt.Sprintf("%d aborted", len(report.FileErrors))))
}

func initialModel(baseDir string, trendReport *history.TrendReport) model {
	findingList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	findingList.Title = "Violations"
	findingList.SetShowStatusBar(false)
	findingList.SetFilteringEnabled(true)

	errorList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	errorList.Title = "Aborted Files"
	errorList.SetShowStatusBar(false)
	errorList.SetFilteringEnabled(true)

	return model{
		findingList: findingList,
		errorList:   errorList,
		mode:        panelFindings,
		baseDir:     baseDir,
		trendReport: trendReport,
		lastUpdate:  time.Now(),
	}
}
