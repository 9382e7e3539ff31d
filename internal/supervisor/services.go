// MediaNest - Media Dashboard Realtime Sync and Admission Control
// Copyright 2026 MediaNest contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/medianest/medianest

package supervisor

import (
	"context"

	"github.com/ThreeDotsLabs/watermill/message"
)

// RouterService adapts a Watermill message router to suture.Service.
type RouterService struct {
	router *message.Router
}

// NewRouterService wraps the push-message router for supervision.
func NewRouterService(router *message.Router) *RouterService {
	return &RouterService{router: router}
}

// Serve runs the router until the context ends. Watermill returns nil on
// a clean context cancellation; suture needs ctx.Err() to know the stop
// was ordered rather than a completed service.
func (s *RouterService) Serve(ctx context.Context) error {
	if err := s.router.Run(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logging.
func (s *RouterService) String() string {
	return "push-router"
}
