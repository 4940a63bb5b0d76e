package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sdrprep/internal/config"
	"sdrprep/internal/notifications"
	"sdrprep/internal/report"
	"sdrprep/internal/services"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop service must not error: %v", err)
	}
}

func TestNotifyRunCompletedPostsToTopic(t *testing.T) {
	var gotTitle string
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notify.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	rep := &report.RunReport{
		Results: []report.StageResult{
			{StageID: "system-update", Status: report.StageSuccess},
			{StageID: "sdr-driver", Status: report.StageSatisfied},
		},
	}
	if err := svc.NotifyRunCompleted(context.Background(), rep); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if gotTitle != "sdrprep - Ready" {
		t.Fatalf("unexpected title %q", gotTitle)
	}
	if gotBody == "" {
		t.Fatal("expected message body")
	}
}

func TestNotifyRunFailedNamesStages(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notify.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	rep := &report.RunReport{
		Results: []report.StageResult{
			{StageID: "sdr-driver", Status: report.StageFailed},
			{StageID: "sdr-toolchain", Status: report.StageBlocked},
		},
	}
	if err := svc.NotifyRunFailed(context.Background(), rep); err != nil {
		t.Fatalf("notify: %v", err)
	}
	for _, want := range []string{"sdr-driver", "sdr-toolchain"} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("expected body to name %s, got %q", want, gotBody)
		}
	}
}

func TestSendSurfacesServerErrorAsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notify.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected non-2xx response to error")
	}
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("delivery failures must classify transient, got %v", err)
	}
}

func TestSendUnreachableEndpointIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	cfg := config.Default()
	cfg.Notify.NtfyTopic = endpoint
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("connection failure must classify transient, got %v", err)
	}
}
