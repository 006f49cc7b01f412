// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister(t *testing.T) {
	registry := prometheus.NewRegistry()

	if err := Register(registry); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := Register(registry); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(TransitionsTotal.WithLabelValues("blocked"))
	TransitionsTotal.WithLabelValues("blocked").Inc()

	if got := testutil.ToFloat64(TransitionsTotal.WithLabelValues("blocked")); got != before+1 {
		t.Errorf("TransitionsTotal = %v, expected %v", got, before+1)
	}
}
