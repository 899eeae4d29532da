package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"reencode/internal/config"
)

const userAgent = "reencode/0.1"

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyTranscodeCompleted(ctx context.Context, summary Summary) error
	NotifyTranscodeFailed(ctx context.Context, summary Summary, kind string, err error) error
	TestNotification(ctx context.Context) error
}

// Summary describes one release transcode.
type Summary struct {
	Source  string
	Output  string
	Codec   string
	Files   int
	Elapsed time.Duration
}

// NewService builds a notification service backed by ntfy when configured.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyTranscodeCompleted(ctx context.Context, s Summary) error {
	message := fmt.Sprintf("🎵 %s → %s\n%d file(s) in %s",
		filepath.Base(s.Source), filepath.Base(s.Output), s.Files, s.Elapsed.Round(time.Second))
	return n.send(ctx, payload{
		title:   "reencode - " + s.Codec + " ready",
		message: message,
		tags:    []string{"reencode", "transcode", "completed"},
	})
}

func (n *ntfyService) NotifyTranscodeFailed(ctx context.Context, s Summary, kind string, err error) error {
	var builder strings.Builder
	builder.WriteString("❌ ")
	builder.WriteString(filepath.Base(s.Source))
	if kind != "" {
		builder.WriteString(" (" + kind + ")")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "reencode - " + s.Codec + " failed",
		message:  builder.String(),
		tags:     []string{"reencode", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "reencode - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"reencode", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyTranscodeCompleted(context.Context, Summary) error { return nil }

func (noopService) NotifyTranscodeFailed(context.Context, Summary, string, error) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
