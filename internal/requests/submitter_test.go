// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package requests

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestHTTPSubmitter_Submit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/requests" {
			t.Errorf("Expected POST /requests, got %s %s", r.Method, r.URL.Path)
		}
		var sub Submission
		if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
			t.Errorf("Unexpected body decode error: %v", err)
		}
		if sub.MediaID != "m-1" {
			t.Errorf("Expected media_id m-1, got %q", sub.MediaID)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "req-99"})
	}))
	defer srv.Close()

	submitter := NewHTTPSubmitter(srv.URL, time.Second)
	id, err := submitter.Submit(context.Background(), Submission{MediaType: "movie", MediaID: "m-1"})
	if err != nil {
		t.Fatalf("Unexpected submit error: %v", err)
	}
	if id != "req-99" {
		t.Errorf("Expected request ID req-99, got %q", id)
	}
}

func TestHTTPSubmitter_UpstreamErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "stack trace with internal details", http.StatusInternalServerError)
	}))
	defer srv.Close()

	submitter := NewHTTPSubmitter(srv.URL, time.Second)
	_, err := submitter.Submit(context.Background(), Submission{MediaID: "m-1"})
	if err == nil {
		t.Fatal("Expected error for upstream 500")
	}
}

func TestHTTPSubmitter_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	submitter := NewHTTPSubmitter(srv.URL, time.Second)
	if _, err := submitter.Submit(context.Background(), Submission{MediaID: "m-1"}); err == nil {
		t.Fatal("Expected error when the response has no id")
	}
}

func TestHTTPSubmitter_NotConfigured(t *testing.T) {
	submitter := NewHTTPSubmitter("", time.Second)

	_, err := submitter.Submit(context.Background(), Submission{MediaID: "m-1"})
	if !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Expected ErrNotConfigured, got %v", err)
	}
}
