// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const healthCheckTimeout = 2 * time.Second

// Pinger is anything that can confirm its backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker provides store health check functionality
type HealthChecker struct {
	backend string
	store   Pinger
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(backend string, store Pinger) *HealthChecker {
	return &HealthChecker{backend: backend, store: store}
}

// Backend names the store being checked.
func (h *HealthChecker) Backend() string {
	return h.backend
}

// Check performs a store health check
func (h *HealthChecker) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logrus.Errorf("%s health check failed: %v", h.backend, err)
		return err
	}

	logrus.Debugf("%s health check passed", h.backend)
	return nil
}

// IsHealthy returns true if the store is accessible
func (h *HealthChecker) IsHealthy(ctx context.Context) bool {
	return h.Check(ctx) == nil
}
