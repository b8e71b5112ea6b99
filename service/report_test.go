package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildReportMarkdown(t *testing.T) {
	now := time.Date(2026, 8, 29, 3, 17, 0, 0, time.UTC)
	markdown := buildReportMarkdown(&SweepSummary{
		Users:          3,
		TotalProcessed: 120,
		SuccessCount:   117,
		FailCount:      3,
	}, now)

	require.Contains(t, markdown, "2026-08-29")
	require.Contains(t, markdown, "Users swept: 3")
	require.Contains(t, markdown, "Messages processed: 120")
	require.Contains(t, markdown, "Embedded: 117")
	require.Contains(t, markdown, "Failed: 3")
}
