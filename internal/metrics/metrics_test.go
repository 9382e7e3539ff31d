// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAdmissionDecisions_Counts(t *testing.T) {
	before := testutil.ToFloat64(AdmissionDecisions.WithLabelValues("allowed"))
	AdmissionDecisions.WithLabelValues("allowed").Inc()
	after := testutil.ToFloat64(AdmissionDecisions.WithLabelValues("allowed"))

	if after != before+1 {
		t.Errorf("Expected counter to increment by 1, got %f -> %f", before, after)
	}
}

func TestConnectionState_Gauge(t *testing.T) {
	ConnectionState.Set(2)
	if got := testutil.ToFloat64(ConnectionState); got != 2 {
		t.Errorf("Expected connection state 2, got %f", got)
	}
	ConnectionState.Set(0)
}

func TestSubmissions_LabelIsolation(t *testing.T) {
	failed := testutil.ToFloat64(Submissions.WithLabelValues("failed"))
	Submissions.WithLabelValues("succeeded").Inc()

	if got := testutil.ToFloat64(Submissions.WithLabelValues("failed")); got != failed {
		t.Errorf("Expected failed counter unchanged, got %f", got)
	}
}
