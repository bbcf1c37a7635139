package notifier

import (
	"bytes"
	"fmt"
	"html/template"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strings"
	"time"

	"goldflow/config"
	"goldflow/logger"
	"goldflow/models"
)

const (
	maxHTMLDetails = 100
	maxHTMLErrors  = 50
	maxTextDetails = 20
	maxTextErrors  = 10
)

// SummaryItem is one labelled line in the report header, rendered in the
// order given.
type SummaryItem struct {
	Label string
	Value string
}

// Report is one run's emailed summary.
type Report struct {
	Subject  string
	Workflow string
	Summary  []SummaryItem
	Details  []models.ChangeRecord
	Errors   []models.UpdateError
}

// Notifier sends run reports over SMTP. An unconfigured notifier is valid:
// SendReport then logs a warning and reports the mail as skipped, so a dev
// environment without mail credentials still completes runs.
type Notifier struct {
	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
	log      *logger.Log
}

func NewNotifier(cfg *config.Config) *Notifier {
	return &Notifier{
		host:     cfg.Notifier.SMTPHost,
		port:     cfg.Notifier.SMTPPort,
		user:     cfg.Notifier.SMTPUser,
		password: cfg.Notifier.SMTPPass,
		from:     cfg.Notifier.FromEmail,
		to:       cfg.Notifier.ToEmails,
		log:      logger.GetLogger(),
	}
}

func (n *Notifier) configured() bool {
	return n.host != "" && n.user != "" && n.password != "" && n.from != "" && len(n.to) > 0
}

// SendReport emails the run report and returns whether a mail actually went
// out. A delivery failure is logged, never fatal; the prices are already
// written by the time the report is assembled.
func (n *Notifier) SendReport(report Report) bool {
	log := n.log.WithComponent("notifier").WithFields(logger.Fields{
		"workflow": report.Workflow,
		"details":  len(report.Details),
		"errors":   len(report.Errors),
	})

	if !n.configured() {
		log.Warn("smtp not configured, skipping report email")
		return false
	}

	message, err := n.buildMessage(report)
	if err != nil {
		log.WithError(err).Error("failed to build report email")
		return false
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	auth := smtp.PlainAuth("", n.user, n.password, n.host)
	if err := smtp.SendMail(addr, auth, n.from, n.to, message); err != nil {
		log.WithError(err).Error("failed to send report email")
		return false
	}

	logger.IncrementReportSent(len(message))
	log.WithFields(logger.Fields{"recipients": len(n.to)}).Info("report email sent")
	return true
}

var htmlReport = template.Must(template.New("report").Parse(`<html>
<body style="font-family: Arial, sans-serif;">
<h2>{{.Subject}}</h2>
<table cellpadding="4">
{{range .Summary}}<tr><td><b>{{.Label}}</b></td><td>{{.Value}}</td></tr>
{{end}}</table>
{{if .Details}}
<h3>Price Changes{{if .DetailsTruncated}} (first {{len .Details}}){{end}}</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Product</th><th>Variant</th><th>Old Price</th><th>New Price</th><th>Compare At</th><th>Stone</th></tr>
{{range .Details}}<tr><td>{{.ProductTitle}}</td><td>{{.VariantTitle}}</td><td>{{.OldPrice}}</td><td>{{.NewPrice}}</td><td>{{.CompareAtPrice}}</td><td>{{.StoneType}}</td></tr>
{{end}}</table>
{{end}}
{{if .Errors}}
<h3>Errors{{if .ErrorsTruncated}} (first {{len .Errors}}){{end}}</h3>
<table border="1" cellpadding="4" cellspacing="0">
<tr><th>Target</th><th>Message</th></tr>
{{range .Errors}}<tr><td>{{.TargetID}}</td><td>{{.Message}}</td></tr>
{{end}}</table>
{{end}}
<p style="color:#888;font-size:12px;">Generated {{.GeneratedAt}}</p>
</body>
</html>`))

type htmlReportData struct {
	Subject          string
	Summary          []SummaryItem
	Details          []models.ChangeRecord
	DetailsTruncated bool
	Errors           []models.UpdateError
	ErrorsTruncated  bool
	GeneratedAt      string
}

func (n *Notifier) buildMessage(report Report) ([]byte, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	headers := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%s\r\n\r\n",
		n.from, strings.Join(n.to, ", "), report.Subject, writer.Boundary())

	textPart, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	if _, err := textPart.Write([]byte(n.textBody(report))); err != nil {
		return nil, err
	}

	htmlPart, err := writer.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html; charset=utf-8"}})
	if err != nil {
		return nil, err
	}
	data := htmlReportData{
		Subject:          report.Subject,
		Summary:          report.Summary,
		Details:          report.Details,
		DetailsTruncated: len(report.Details) > maxHTMLDetails,
		Errors:           report.Errors,
		ErrorsTruncated:  len(report.Errors) > maxHTMLErrors,
		GeneratedAt:      time.Now().Format("2006-01-02 15:04:05 MST"),
	}
	if data.DetailsTruncated {
		data.Details = data.Details[:maxHTMLDetails]
	}
	if data.ErrorsTruncated {
		data.Errors = data.Errors[:maxHTMLErrors]
	}
	if err := htmlReport.Execute(htmlPart, data); err != nil {
		return nil, err
	}

	if err := writer.Close(); err != nil {
		return nil, err
	}
	return append([]byte(headers), body.Bytes()...), nil
}

func (n *Notifier) textBody(report Report) string {
	var b strings.Builder
	b.WriteString(report.Subject + "\r\n\r\n")
	for _, item := range report.Summary {
		fmt.Fprintf(&b, "%s: %s\r\n", item.Label, item.Value)
	}

	if len(report.Details) > 0 {
		b.WriteString("\r\nPrice Changes:\r\n")
		limit := len(report.Details)
		if limit > maxTextDetails {
			limit = maxTextDetails
		}
		for _, d := range report.Details[:limit] {
			fmt.Fprintf(&b, "- %s / %s: %s -> %s (compare at %s)\r\n",
				d.ProductTitle, d.VariantTitle, d.OldPrice, d.NewPrice, d.CompareAtPrice)
		}
		if len(report.Details) > limit {
			fmt.Fprintf(&b, "... and %d more\r\n", len(report.Details)-limit)
		}
	}

	if len(report.Errors) > 0 {
		b.WriteString("\r\nErrors:\r\n")
		limit := len(report.Errors)
		if limit > maxTextErrors {
			limit = maxTextErrors
		}
		for _, e := range report.Errors[:limit] {
			fmt.Fprintf(&b, "- %s: %s\r\n", e.TargetID, e.Message)
		}
		if len(report.Errors) > limit {
			fmt.Fprintf(&b, "... and %d more\r\n", len(report.Errors)-limit)
		}
	}
	return b.String()
}
