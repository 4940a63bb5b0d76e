package main

import (
	"fmt"
	"io"
	"strings"

	"sdrprep/internal/report"
	"sdrprep/internal/stagedef"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func statusColor(status report.StageStatus) string {
	switch status {
	case report.StageSuccess, report.StageSatisfied:
		return ansiGreen
	case report.StageFailed, report.StageBlocked:
		return ansiRed
	case report.StageRunning, report.StageInterrupted:
		return ansiYellow
	default:
		return ""
	}
}

func colorizeStatus(status report.StageStatus, colorize bool) string {
	label := string(status)
	if !colorize {
		return label
	}
	if color := statusColor(status); color != "" {
		return color + label + ansiReset
	}
	return label
}

// writeStageTable renders the per-stage view shared by `run` and `status`.
func writeStageTable(out io.Writer, stages []stagedef.Stage, results map[string]report.StageResult, colorize bool) {
	rows := make([][]string, 0, len(stages))
	for _, stage := range stages {
		res, ok := results[stage.ID]
		if !ok {
			res = report.StageResult{StageID: stage.ID, Status: report.StagePending}
		}
		attempts := ""
		if res.Attempts > 0 {
			attempts = fmt.Sprintf("%d", res.Attempts)
		}
		detail := res.ErrMessage
		if res.ErrKind != "" && detail == "" {
			detail = res.ErrKind
		}
		rows = append(rows, []string{
			stage.ID,
			stage.DisplayLabel(),
			colorizeStatus(res.Status, colorize),
			attempts,
			truncateDetail(detail, 72),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Stage", "Label", "Status", "Attempts", "Detail"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
}

// writeFailureDetails prints the full diagnostic output for failed and
// blocked stages below the table, where nothing is truncated. Operators
// remediate from this text, so it is reproduced verbatim.
func writeFailureDetails(out io.Writer, stages []stagedef.Stage, results map[string]report.StageResult) {
	for _, stage := range stages {
		res, ok := results[stage.ID]
		if !ok || res.ErrMessage == "" {
			continue
		}
		switch res.Status {
		case report.StageFailed, report.StageBlocked:
			fmt.Fprintf(out, "\n%s (%s):\n%s\n", stage.ID, res.Status, res.ErrMessage)
		}
	}
}

func writeRunSummary(out io.Writer, rep *report.RunReport, colorize bool) {
	line := fmt.Sprintf("Run %s: %s", rep.RunID, rep.Status)
	if colorize {
		switch rep.Status {
		case report.RunCompleted:
			line = ansiGreen + line + ansiReset
		case report.RunFailed:
			line = ansiRed + line + ansiReset
		case report.RunAwaitingUser:
			line = ansiYellow + line + ansiReset
		default:
			line = ansiBlue + line + ansiReset
		}
	}
	fmt.Fprintln(out, line)
}

func truncateDetail(detail string, limit int) string {
	detail = strings.ReplaceAll(detail, "\n", " ")
	runes := []rune(detail)
	if len(runes) <= limit {
		return detail
	}
	return string(runes[:limit-3]) + "..."
}
