package service

import (
	"bytes"
	"fmt"
	"net/smtp"
	"os"
	"time"

	"github.com/jordan-wright/email"
	"github.com/yuin/goldmark"
)

// ReportService mails the nightly embedding-coverage report to the admin
// address. When SMTP is not configured the report is only logged.
type ReportService struct{}

func (r *ReportService) SendCoverageReport(summary *SweepSummary) error {
	markdown := buildReportMarkdown(summary, time.Now())

	host := os.Getenv("SMTP_HOST")
	if host == "" {
		logger.Infof("[report] SMTP not configured, skipping mail\n%s", markdown)
		return nil
	}
	port := os.Getenv("SMTP_PORT")
	if port == "" {
		port = "587"
	}

	var html bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &html); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}

	e := email.NewEmail()
	e.From = os.Getenv("SMTP_FROM")
	e.To = []string{os.Getenv("REPORT_TO")}
	e.Subject = fmt.Sprintf("Embedding coverage report %s", time.Now().Format("2006-01-02"))
	e.Text = []byte(markdown)
	e.HTML = html.Bytes()

	auth := smtp.PlainAuth("", os.Getenv("SMTP_USER"), os.Getenv("SMTP_PASSWORD"), host)
	if err := e.Send(host+":"+port, auth); err != nil {
		return fmt.Errorf("failed to send report mail: %w", err)
	}
	return nil
}

func buildReportMarkdown(summary *SweepSummary, now time.Time) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Embedding backfill sweep %s\n\n", now.Format("2006-01-02"))
	fmt.Fprintf(&b, "- Users swept: %d\n", summary.Users)
	fmt.Fprintf(&b, "- Messages processed: %d\n", summary.TotalProcessed)
	fmt.Fprintf(&b, "- Embedded: %d\n", summary.SuccessCount)
	fmt.Fprintf(&b, "- Failed: %d\n", summary.FailCount)
	return b.String()
}
