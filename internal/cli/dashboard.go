package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/backlog-relay/internal/core"
)

// Style definitions.
var (
	dashTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	dashPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	dashHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	dashWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dashHelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type dashboardModel struct {
	width  int
	height int

	newCount       int
	processedCount int
	skippedCount   int
	itemsProcessed int
	runsCompleted  int
	failedItems    []string

	loading bool
	err     error
}

// dashDataMsg carries loaded data back to the model.
type dashDataMsg struct {
	newCount       int
	processedCount int
	skippedCount   int
	itemsProcessed int
	runsCompleted  int
	failedItems    []string
	err            error
}

func loadDashboardData() tea.Msg {
	var msg dashDataMsg

	if Config != nil {
		content, err := core.LoadDocument(Config.DocumentPath)
		switch {
		case err == nil:
			parsed := core.ParseDocument(content)
			msg.newCount = len(parsed.Items)
			msg.processedCount = parsed.AlreadyProcessed
			msg.skippedCount = parsed.Skipped
		case !os.IsNotExist(err):
			msg.err = err
			return msg
		}
	}

	if MetricsCalc != nil {
		metrics, err := MetricsCalc.Calculate(time.Now().AddDate(0, 0, -7))
		if err != nil {
			msg.err = err
			return msg
		}
		msg.itemsProcessed = metrics.ItemsProcessed
		msg.runsCompleted = metrics.RunsCompleted
		msg.failedItems = metrics.FailedItems
	}

	return msg
}

func newDashboardModel() dashboardModel {
	return dashboardModel{loading: true}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			m.loading = true
			return m, loadDashboardData
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case dashDataMsg:
		m.loading = false
		m.err = msg.err
		m.newCount = msg.newCount
		m.processedCount = msg.processedCount
		m.skippedCount = msg.skippedCount
		m.itemsProcessed = msg.itemsProcessed
		m.runsCompleted = msg.runsCompleted
		m.failedItems = msg.failedItems
	}
	return m, nil
}

func (m dashboardModel) View() string {
	var b strings.Builder

	b.WriteString(dashTitleStyle.Render("Backlog Relay Dashboard"))
	b.WriteString("\n\n")

	if m.loading {
		b.WriteString("Loading...\n")
		return b.String()
	}
	if m.err != nil {
		b.WriteString(dashWarnStyle.Render("Error: "+m.err.Error()) + "\n")
		return b.String()
	}

	document := dashHeaderStyle.Render("Document") + "\n" +
		fmt.Sprintf("NEW items:       %d\n", m.newCount) +
		fmt.Sprintf("PROCESSED items: %d\n", m.processedCount) +
		fmt.Sprintf("malformed:       %d", m.skippedCount)

	runs := dashHeaderStyle.Render("Last 7 days") + "\n" +
		fmt.Sprintf("runs completed:  %d\n", m.runsCompleted) +
		fmt.Sprintf("items processed: %d\n", m.itemsProcessed) +
		fmt.Sprintf("failed remote:   %d", len(m.failedItems))

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		dashPanelStyle.Render(document),
		dashPanelStyle.Render(runs),
	))
	b.WriteString("\n")

	if len(m.failedItems) > 0 {
		failures := dashHeaderStyle.Render("Items that failed remote integration")
		for _, title := range m.failedItems {
			failures += "\n" + dashWarnStyle.Render("- "+title)
		}
		b.WriteString(dashPanelStyle.Render(failures))
		b.WriteString("\n")
	}

	b.WriteString(dashHelpStyle.Render("r: refresh - q: quit"))
	b.WriteString("\n")
	return b.String()
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive dashboard of document state and run metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running dashboard: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
