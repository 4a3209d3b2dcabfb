package controller

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	m "playvars.dev/pkg/playvars/internal/model"
)

const noReportsMessage = "No templates found.\n"

var (
	okColor       = color.New(color.FgGreen)
	conflictColor = color.New(color.FgRed, color.Bold)
	addedColor    = color.New(color.FgGreen)
	removedColor  = color.New(color.FgRed)
	hunkColor     = color.New(color.FgCyan)
)

func renderReportsTable(reports []m.Report) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Template", "Directory", "Variables", "Details"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_LEFT,
	})

	for _, report := range reports {
		table.Append([]string{
			report.Playbook,
			string(report.PlaybookDir),
			variableCount(report),
			reportDetails(report),
		})
	}

	table.Render()

	return tableBuffer.String()
}

func variableCount(report m.Report) string {
	if report.Failed() {
		return "-"
	}

	return strconv.Itoa(len(report.Variables))
}

func reportDetails(report m.Report) string {
	if report.Failed() {
		return conflictColor.Sprint(report.Conflict.Message)
	}

	names := make([]string, 0, len(report.Variables))
	for _, v := range report.Variables {
		name := v.Name
		if !v.Required() {
			name += "?"
		}

		names = append(names, name)
	}

	return okColor.Sprint(strings.Join(names, ", "))
}

func formatSummary(summary m.Summary) string {
	conflicts := fmt.Sprintf("%d conflict(s)", summary.Conflicts)
	if summary.Conflicts > 0 {
		conflicts = conflictColor.Sprint(conflicts)
	}

	return fmt.Sprintf("%d template(s), %d cached, %d variable(s), %s\n",
		summary.Templates, summary.Cached, summary.Variables, conflicts)
}

func formatConflict(name string, conflict m.Conflict) string {
	return fmt.Sprintf("%s %s: %s\n", conflictColor.Sprint(conflict.Kind), name, conflict.Message)
}

func colorizeDiff(diff string) string {
	var b strings.Builder

	for _, line := range strings.SplitAfter(diff, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(line)
		case strings.HasPrefix(line, "+"):
			b.WriteString(addedColor.Sprint(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(removedColor.Sprint(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkColor.Sprint(line))
		default:
			b.WriteString(line)
		}
	}

	return b.String()
}
