// Package mail delivers analysis reports and failure notices over SMTP.
package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"feedback-analysis-service/internal/config"
	"feedback-analysis-service/internal/domain/model"
	"feedback-analysis-service/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*SMTPNotifier)(nil)

// SMTPNotifier sends HTML mail through a STARTTLS-capable SMTP server.
type SMTPNotifier struct {
	cfg config.MailConfig
	log *zerolog.Logger
}

func NewSMTPNotifier(cfg config.MailConfig, log *zerolog.Logger) *SMTPNotifier {
	return &SMTPNotifier{cfg: cfg, log: log}
}

func (n *SMTPNotifier) NotifyCompletion(ctx context.Context, job *model.Job, reportHTML string) error {
	subject := fmt.Sprintf("Feedback Analysis Report - %s", job.Request.EventName)
	if err := n.send(ctx, job.Request.RecipientEmail, subject, reportHTML); err != nil {
		return fmt.Errorf("send report for job %s: %w", job.ID, err)
	}
	n.log.Info().Str("job_id", job.ID).Str("recipient", job.Request.RecipientEmail).Msg("report delivered")
	return nil
}

func (n *SMTPNotifier) NotifyFailure(ctx context.Context, job *model.Job, cause error) error {
	subject := fmt.Sprintf("Feedback Analysis Failed - %s", job.Request.EventName)
	body := fmt.Sprintf(`<html><body style="font-family: Arial, sans-serif;">
<h2>Analysis Failed: %s</h2>
<p>Your feedback analysis request could not be completed.</p>
<p><strong>Reason:</strong> %s</p>
<p>Please verify the worksheet is publicly accessible and try again.</p>
</body></html>`, job.Request.EventName, cause)

	if err := n.send(ctx, job.Request.RecipientEmail, subject, body); err != nil {
		return fmt.Errorf("send failure notice for job %s: %w", job.ID, err)
	}
	return nil
}

func (n *SMTPNotifier) send(ctx context.Context, to, subject, htmlBody string) error {
	addr := fmt.Sprintf("%s:%d", n.cfg.SMTPServer, n.cfg.SMTPPort)

	dialer := &net.Dialer{}
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Deadline = deadline
	} else {
		dialer.Timeout = 30 * time.Second
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}

	client, err := smtp.NewClient(conn, n.cfg.SMTPServer)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: n.cfg.SMTPServer}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.SMTPServer)
		if err := client.Auth(auth); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp rcpt to: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write([]byte(buildMessage(n.cfg.From, to, subject, htmlBody))); err != nil {
		w.Close()
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}
	return client.Quit()
}

func buildMessage(from, to, subject, htmlBody string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(htmlBody)
	b.WriteString("\r\n")
	return b.String()
}
