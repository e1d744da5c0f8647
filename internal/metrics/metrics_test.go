// Affinity - Personalization Scoring Service
// Copyright 2026 Affinity Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/affinitylabs/affinity

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRecommendation(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("hybrid", "false"))

	RecordRecommendation("hybrid", false, 25*time.Millisecond)

	after := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("hybrid", "false"))
	if after != before+1 {
		t.Errorf("counter = %f, want %f", after, before+1)
	}
}

func TestRecordRecommendationColdStart(t *testing.T) {
	before := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("collaborative", "true"))

	RecordRecommendation("collaborative", true, time.Millisecond)

	after := testutil.ToFloat64(RecommendationsTotal.WithLabelValues("collaborative", "true"))
	if after != before+1 {
		t.Errorf("cold start counter = %f, want %f", after, before+1)
	}
}

func TestCacheMetrics(t *testing.T) {
	hitsBefore := testutil.ToFloat64(CacheHits)
	missesBefore := testutil.ToFloat64(CacheMisses.WithLabelValues("expired"))
	bustsBefore := testutil.ToFloat64(CacheBusts)

	RecordCacheHit()
	RecordCacheMiss("expired")
	RecordCacheBust()
	SetCacheEntries(42)

	if got := testutil.ToFloat64(CacheHits); got != hitsBefore+1 {
		t.Errorf("hits = %f, want %f", got, hitsBefore+1)
	}
	if got := testutil.ToFloat64(CacheMisses.WithLabelValues("expired")); got != missesBefore+1 {
		t.Errorf("misses = %f, want %f", got, missesBefore+1)
	}
	if got := testutil.ToFloat64(CacheBusts); got != bustsBefore+1 {
		t.Errorf("busts = %f, want %f", got, bustsBefore+1)
	}
	if got := testutil.ToFloat64(CacheEntries); got != 42 {
		t.Errorf("entries = %f, want 42", got)
	}
}

func TestRecordChurnPrediction(t *testing.T) {
	before := testutil.ToFloat64(ChurnPredictionsTotal.WithLabelValues("high"))

	RecordChurnPrediction("high")

	if got := testutil.ToFloat64(ChurnPredictionsTotal.WithLabelValues("high")); got != before+1 {
		t.Errorf("counter = %f, want %f", got, before+1)
	}
}

func TestRecordModelLoad(t *testing.T) {
	RecordModelLoad("2026-08-15", nil)
	if got := testutil.ToFloat64(ModelSnapshotInfo.WithLabelValues("2026-08-15")); got != 1 {
		t.Errorf("snapshot info = %f, want 1", got)
	}

	// A newer version replaces the old label.
	RecordModelLoad("2026-08-22", nil)
	if got := testutil.ToFloat64(ModelSnapshotInfo.WithLabelValues("2026-08-22")); got != 1 {
		t.Errorf("snapshot info = %f, want 1", got)
	}

	// Failures leave the published version untouched.
	failuresBefore := testutil.ToFloat64(ModelLoadsTotal.WithLabelValues("failure"))
	RecordModelLoad("", errors.New("missing artifact"))
	if got := testutil.ToFloat64(ModelLoadsTotal.WithLabelValues("failure")); got != failuresBefore+1 {
		t.Errorf("failure counter = %f, want %f", got, failuresBefore+1)
	}
	if got := testutil.ToFloat64(ModelSnapshotInfo.WithLabelValues("2026-08-22")); got != 1 {
		t.Errorf("snapshot info after failed load = %f, want 1", got)
	}
}
