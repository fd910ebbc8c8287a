// Package notify forwards error events to an external webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Timeout bounds a single webhook delivery.
const Timeout = 2 * time.Second

// Long error texts are cut down to their head and tail before sending.
const (
	compressThreshold = 30
	keepLines         = 10
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Error     string `json:"error"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// Notifier posts error payloads to a webhook. A Notifier with an empty URL does nothing.
type Notifier struct {
	url        string
	service    string
	httpClient *http.Client
	now        func() time.Time
}

// New creates a Notifier.
func New(url, service string) *Notifier {
	return &Notifier{
		url:        url,
		service:    service,
		httpClient: &http.Client{Timeout: Timeout},
		now:        time.Now,
	}
}

// Enabled reports whether a webhook is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.url != ""
}

// Send posts msg, compressed, to the webhook.
func (n *Notifier) Send(ctx context.Context, msg string) error {
	if !n.Enabled() {
		return nil
	}

	body, err := json.Marshal(Payload{
		Error:     Compress(msg),
		Service:   n.service,
		Timestamp: n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Compress keeps the first and last 10 lines of a text longer than 30 lines.
func Compress(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) <= compressThreshold {
		return strings.Join(lines, "\n")
	}
	head := lines[:keepLines]
	tail := lines[len(lines)-keepLines:]
	return strings.Join(head, "\n") + "\n...\n" + strings.Join(tail, "\n")
}

// Writer is a zerolog.LevelWriter that forwards error-level entries. The
// webhook text is the entry's message followed by its error field.
type Writer struct {
	notifier *Notifier
	send     func(func())
}

// NewWriter creates a Writer. Deliveries run in their own goroutine so
// logging never blocks on the webhook.
func NewWriter(n *Notifier) *Writer {
	return &Writer{
		notifier: n,
		send:     func(f func()) { go f() },
	}
}

// Write implements io.Writer. Entries without a level are not forwarded.
func (w *Writer) Write(p []byte) (int, error) {
	return len(p), nil
}

// WriteLevel implements zerolog.LevelWriter.
func (w *Writer) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel || level == zerolog.NoLevel || !w.notifier.Enabled() {
		return len(p), nil
	}
	// p is reused by zerolog once this returns.
	text := entryText(p)
	w.send(func() {
		ctx, cancel := context.WithTimeout(context.Background(), Timeout)
		defer cancel()
		// The global logger carries this writer; report failures on stderr only.
		if err := w.notifier.Send(ctx, text); err != nil {
			fmt.Fprintf(stderr, "notify: %v\n", err)
		}
	})
	return len(p), nil
}

// entryText renders a JSON log entry as "message: error".
func entryText(p []byte) string {
	var fields map[string]any
	if err := json.Unmarshal(p, &fields); err != nil {
		return strings.TrimSpace(string(p))
	}
	msg, _ := fields[zerolog.MessageFieldName].(string)
	errText, _ := fields[zerolog.ErrorFieldName].(string)
	switch {
	case errText == "":
		return msg
	case msg == "":
		return errText
	default:
		return msg + ": " + errText
	}
}

var stderr = os.Stderr
