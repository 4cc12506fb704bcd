package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/DeBrosOfficial/fsdeploy/pkg/migrations"
	"github.com/DeBrosOfficial/fsdeploy/pkg/store"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func statusText(s migrations.Status) string {
	switch s {
	case migrations.StatusApplied, migrations.StatusPlanned:
		return successStyle.Render(string(s))
	case migrations.StatusFailed:
		return errorStyle.Render(string(s))
	default:
		return subtitleStyle.Render(string(s))
	}
}

// renderReport summarises a migrate run.
func renderReport(r *migrations.Report) string {
	var s strings.Builder

	title := "Migrations"
	if r.DryRun {
		title += " (dry run)"
	}
	s.WriteString(titleStyle.Render(title) + "\n")
	s.WriteString(subtitleStyle.Render(fmt.Sprintf("network %s (id %s) • deployer %s • run %s",
		r.Network, r.NetworkID, r.Deployer.Hex(), r.RunID)) + "\n")

	if len(r.Migrations) == 0 {
		s.WriteString("\nNo migrations in range.\n")
		return s.String()
	}

	t := newTable("MIGRATION", "STATUS", "CONTRACT", "ADDRESS", "BLOCK", "GAS USED")
	for _, m := range r.Migrations {
		id := strconv.Itoa(m.Version) + "_" + m.Name
		if len(m.Steps) == 0 {
			t.Row(id, statusText(m.Status), "-", "-", "-", "-")
			continue
		}
		for i, step := range m.Steps {
			label, status := id, statusText(m.Status)
			if i > 0 {
				label, status = "", ""
			}
			block, gas := "-", "-"
			if !step.DryRun {
				block = strconv.FormatUint(step.BlockNumber, 10)
				gas = strconv.FormatUint(step.GasUsed, 10)
			}
			name := step.Name
			if name != step.Contract {
				name += " (" + step.Contract + ")"
			}
			t.Row(label, status, name, step.Address.Hex(), block, gas)
		}
	}
	s.WriteString(t.Render() + "\n")

	if !r.DryRun {
		s.WriteString(fmt.Sprintf("Deployed %d contract(s), %d gas in %s\n",
			len(r.Deployments()), r.TotalGasUsed(), r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	} else {
		s.WriteString(warningStyle.Render("Dry run: nothing was sent or recorded") + "\n")
	}
	return s.String()
}

// renderContracts lists deployed contracts of one network.
func renderContracts(networkID string, contracts []store.ContractRecord) string {
	if len(contracts) == 0 {
		return fmt.Sprintf("No contracts recorded for network %s.", networkID)
	}
	t := newTable("CONTRACT", "ADDRESS", "BLOCK", "MIGRATION", "DEPLOYED")
	for _, c := range contracts {
		t.Row(c.Name, c.Address, strconv.FormatUint(c.BlockNumber, 10), strconv.Itoa(c.Version), formatWhen(c.DeployedAt))
	}
	return titleStyle.Render("Network "+networkID) + "\n" + t.Render()
}

// renderPlanStatus lists planned migrations and whether each was applied.
func renderPlanStatus(networkID string, entries []migrations.PlanEntry) string {
	t := newTable("VERSION", "NAME", "STEPS", "STATUS", "COMPLETED", "RUN")
	for _, e := range entries {
		status, completed, run := warningStyle.Render("pending"), "-", "-"
		if e.Completed != nil {
			status = successStyle.Render("applied")
			completed = formatWhen(e.Completed.CompletedAt)
			run = shortID(e.Completed.RunID)
		}
		t.Row(strconv.Itoa(e.Migration.Version), e.Migration.Name, strconv.Itoa(len(e.Migration.Steps)), status, completed, run)
	}
	return titleStyle.Render("Migrations on network "+networkID) + "\n" + t.Render()
}

func renderRuns(runs []store.Run) string {
	t := newTable("RUN", "STARTED", "STATUS", "DRY RUN", "DEPLOYER")
	for _, r := range runs {
		status := string(r.Status)
		switch r.Status {
		case store.RunStatusSucceeded:
			status = successStyle.Render(status)
		case store.RunStatusFailed:
			status = errorStyle.Render(status)
		}
		t.Row(shortID(r.ID), formatWhen(r.StartedAt), status, strconv.FormatBool(r.DryRun), r.Deployer)
	}
	return t.Render()
}

func formatWhen(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
