package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"text/template"

	"github.com/hibiken/asynq"

	"github.com/CacconeLabYale/TsetseCheckout/internal/core/services/checkout"
)

const confirmationSubject = "Your TsetseSampleDB requests."

const confirmationTemplate = `Dear {{.Username}},

The requests in the spreadsheet you uploaded have been processed and the
submission {{.PassOrFail}}.

{{.Details}}

This is an automated message; replies are not monitored. You may need to add
'{{.Sender}}' to your email 'safe-list' to keep these confirmations out of
your spam folder.
`

var confirmationTmpl = template.Must(template.New("confirmation").Parse(confirmationTemplate))

// EmailSender delivers one rendered message.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// EmailWorker consumes confirmation tasks and mails the per-row summary to
// the requester.
type EmailWorker struct {
	mailer EmailSender
	sender string
	logger *slog.Logger
}

// NewEmailWorker creates a confirmation email worker. sender is the address
// shown in the safe-list footer.
func NewEmailWorker(mailer EmailSender, sender string, logger *slog.Logger) *EmailWorker {
	if logger == nil {
		logger = slog.Default()
	}

	return &EmailWorker{
		mailer: mailer,
		sender: sender,
		logger: logger,
	}
}

// HandleConfirmation processes one email:checkout_confirmation task.
// Returning an error lets asynq retry with backoff.
func (w *EmailWorker) HandleConfirmation(ctx context.Context, task *asynq.Task) error {
	var notification checkout.BatchNotification
	if err := json.Unmarshal(task.Payload(), &notification); err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("failed to unmarshal confirmation payload: %v: %w", err, asynq.SkipRetry)
	}

	body, err := RenderConfirmation(notification, w.sender)
	if err != nil {
		return fmt.Errorf("failed to render confirmation: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.mailer.Send(ctx, notification.Recipient, confirmationSubject, body); err != nil {
		return err
	}

	w.logger.Info("confirmation email delivered",
		slog.String("recipient", notification.Recipient),
		slog.Bool("passed", notification.Passed),
		slog.Int("rows", len(notification.Rows)))

	return nil
}

// RenderConfirmation produces the plain-text confirmation body. Rows are
// framed by a rule of "=" characters and separated by a shorter "-" rule. A
// committed batch lists one request id per line; a rejected one lists every
// field failure per line.
func RenderConfirmation(n checkout.BatchNotification, sender string) (string, error) {
	mainLine := strings.Repeat("=", 50)
	midLine := strings.Repeat("-", 25)

	details := []string{"A per line summary of your requests:\n", mainLine}

	for i, row := range n.Rows {
		if i > 0 {
			details = append(details, midLine)
		}

		if n.Passed {
			details = append(details, fmt.Sprintf("Line %d: RequestNo: %s", row.Line, row.RequestID))
			continue
		}

		details = append(details, fmt.Sprintf("Line %d errors:", row.Line))
		for _, field := range sortedFields(row.Failures) {
			details = append(details, fmt.Sprintf("%s: %s", field, row.Failures[field]))
		}
	}

	details = append(details, mainLine)

	passOrFail := "FAILED"
	if n.Passed {
		passOrFail = "SUCCEEDED"
	}

	var buf strings.Builder
	err := confirmationTmpl.Execute(&buf, struct {
		Username   string
		PassOrFail string
		Details    string
		Sender     string
	}{
		Username:   n.Username,
		PassOrFail: passOrFail,
		Details:    strings.Join(details, "\n"),
		Sender:     sender,
	})
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}

func sortedFields(failures checkout.Failures) []string {
	fields := make([]string, 0, len(failures))
	for field := range failures {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}
