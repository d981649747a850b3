package cli

import (
	"context"
	"errors"
	coreapp "virtualmod/internal/core/app"
	"virtualmod/internal/core/ports"
	"virtualmod/internal/data/history"

	tea "github.com/charmbracelet/bubbletea"
)

func runUI(ctx context.Context, app *coreapp.App, initial *ports.Report, trend *history.TrendReport) error {
	m := initialModel(app.Paths.BaseDir, trend)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	app.SetUpdateHandler(func(report *ports.Report) {
		p.Send(updateMsg{report: report})
	})
	defer app.SetUpdateHandler(nil)

	go p.Send(updateMsg{report: initial})

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
