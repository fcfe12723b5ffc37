package notify

import (
	"crypto/tls"
	"fmt"
	"html"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/invoxel/invoice-pipeline/constants"
	"github.com/invoxel/invoice-pipeline/internal/config"
	"github.com/invoxel/invoice-pipeline/internal/validate"
)

// Notifier sends a summary email when the fraction of INVALID records in
// a run meets the configured threshold. Delivery failures are reported to
// the caller for logging; they never affect the produced records.
type Notifier struct {
	cfg    config.EmailConfig
	logger *slog.Logger

	// send lets tests capture the outgoing message instead of dialing SMTP.
	send func(subject, body string) error
}

func NewNotifier(cfg config.EmailConfig, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	n := &Notifier{cfg: cfg, logger: logger}
	n.send = n.sendMail
	return n
}

// MaybeAlert evaluates the invalid percentage against the threshold and
// sends the alert email when it is met or exceeded.
func (n *Notifier) MaybeAlert(records []validate.Record) error {
	if !n.cfg.Enabled {
		n.logger.Info("email notifications are disabled")
		return nil
	}
	total := len(records)
	if total == 0 {
		n.logger.Info("no invoices processed, skipping email notification")
		return nil
	}

	var invalid []validate.Record
	for _, rec := range records {
		if rec.Status == constants.StatusInvalid {
			invalid = append(invalid, rec)
		}
	}
	pct := float64(len(invalid)) / float64(total) * 100

	if pct < n.cfg.ThresholdInvalidPercentage {
		n.logger.Info("invalid percentage below threshold, no email sent",
			"invalid_pct", fmt.Sprintf("%.2f", pct), "threshold", n.cfg.ThresholdInvalidPercentage)
		return nil
	}

	n.logger.Info("invalid percentage meets threshold, sending email",
		"invalid_pct", fmt.Sprintf("%.2f", pct), "threshold", n.cfg.ThresholdInvalidPercentage)

	subject := fmt.Sprintf("Invoice Pipeline Alert: %d/%d Invoices Invalid", len(invalid), total)
	body := buildBody(total, invalid, pct, n.cfg.ThresholdInvalidPercentage)
	if err := n.send(subject, body); err != nil {
		return fmt.Errorf("send alert email: %w", err)
	}
	n.logger.Info("email notification sent", "recipient", n.cfg.RecipientEmail)
	return nil
}

func buildBody(total int, invalid []validate.Record, pct, threshold float64) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	b.WriteString("<h2>Invoice Processing Summary</h2>")
	fmt.Fprintf(&b, "<p>Total Invoices Processed: %d</p>", total)
	fmt.Fprintf(&b, "<p>Invalid Invoices: %d (%.2f%%)</p>", len(invalid), pct)
	fmt.Fprintf(&b, "<p>Threshold for Alert: %.2f%%</p>", threshold)
	b.WriteString("<h3>Details of Invalid Invoices:</h3>")
	b.WriteString(`<table border="1" style="border-collapse: collapse; padding: 5px;">`)
	b.WriteString("<thead><tr><th>Filename</th><th>Errors</th></tr></thead><tbody>")
	for _, rec := range invalid {
		fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td></tr>",
			html.EscapeString(rec.Filename), html.EscapeString(rec.ErrorsJoined()))
	}
	b.WriteString("</tbody></table>")
	b.WriteString("</body></html>")
	return b.String()
}

// sendMail delivers the message over SMTP with implicit TLS.
func (n *Notifier) sendMail(subject, body string) error {
	password := n.cfg.SenderPassword()
	if n.cfg.SenderEmail == "" || password == "" || n.cfg.RecipientEmail == "" {
		return fmt.Errorf("sender email, password, or recipient not configured")
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPHost, n.cfg.SMTPPort)
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: n.cfg.SMTPHost})
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	client, err := smtp.NewClient(conn, n.cfg.SMTPHost)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp client: %w", err)
	}
	defer func() { _ = client.Close() }()

	auth := smtp.PlainAuth("", n.cfg.SenderEmail, password, n.cfg.SMTPHost)
	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("smtp auth: %w", err)
	}
	if err := client.Mail(n.cfg.SenderEmail); err != nil {
		return err
	}
	if err := client.Rcpt(n.cfg.RecipientEmail); err != nil {
		return err
	}

	wc, err := client.Data()
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		n.cfg.SenderEmail, n.cfg.RecipientEmail, subject, body)
	if _, err := wc.Write([]byte(msg)); err != nil {
		_ = wc.Close()
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return client.Quit()
}
