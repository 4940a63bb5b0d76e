package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"sdrprep/internal/config"
	"sdrprep/internal/report"
	"sdrprep/internal/services"
)

const userAgent = "sdrprep/0.1.0"

// Service defines the notification surface exposed to the orchestrator and
// CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, rep *report.RunReport) error
	NotifyRunFailed(ctx context.Context, rep *report.RunReport) error
	NotifyRebootRequired(ctx context.Context, stageID string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notify.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notify.RequestTimeoutSeconds) * time.Second
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

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, rep *report.RunReport) error {
	data := payload{
		title:    "sdrprep - Ready",
		message:  fmt.Sprintf("Provisioning complete: %s", summarizeStages(rep)),
		tags:     []string{"sdrprep", "run", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, rep *report.RunReport) error {
	failed := make([]string, 0, 2)
	for _, res := range rep.Results {
		if res.Status == report.StageFailed || res.Status == report.StageBlocked {
			failed = append(failed, res.StageID)
		}
	}
	data := payload{
		title:    "sdrprep - Run Failed",
		message:  fmt.Sprintf("Provisioning stopped at: %s", strings.Join(failed, ", ")),
		tags:     []string{"sdrprep", "run", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRebootRequired(ctx context.Context, stageID string) error {
	data := payload{
		title:   "sdrprep - Action Needed",
		message: fmt.Sprintf("Stage %s needs a relogin or reboot; run 'sdrprep ack-reboot' afterwards", stageID),
		tags:    []string{"sdrprep", "run", "awaiting"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "sdrprep - Test",
		message:  "Notification system test",
		tags:     []string{"sdrprep", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func summarizeStages(rep *report.RunReport) string {
	var success, satisfied int
	for _, res := range rep.Results {
		switch res.Status {
		case report.StageSuccess:
			success++
		case report.StageSatisfied:
			satisfied++
		}
	}
	return fmt.Sprintf("%d stages run, %d already satisfied", success, satisfied)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "", "notify", "build ntfy request", err)
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
		return services.Wrap(services.ErrTransient, "", "notify", "send ntfy notification", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Sprintf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return services.Wrap(services.ErrTransient, "", "notify", detail, nil)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, *report.RunReport) error { return nil }
func (noopService) NotifyRunFailed(context.Context, *report.RunReport) error    { return nil }
func (noopService) NotifyRebootRequired(context.Context, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                      { return nil }
