package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/water-reports/internal/dto"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/realtime"
	"github.com/ahmetcoskunkizilkaya/water-reports/internal/services"
	"github.com/gofiber/fiber/v2"
)

const keepAliveInterval = 15 * time.Second

// EventsHandler streams the filtered report list as Server-Sent Events.
// Every open stream owns one bridge subscription for its lifetime and
// receives a fresh "reports" event after each change.
type EventsHandler struct {
	ctx    context.Context
	bridge *realtime.Bridge
	query  *services.QueryService
	store  *services.ReportStore
}

// NewEventsHandler ties every stream to ctx; cancelling it closes them all.
func NewEventsHandler(ctx context.Context, bridge *realtime.Bridge, query *services.QueryService, store *services.ReportStore) *EventsHandler {
	return &EventsHandler{ctx: ctx, bridge: bridge, query: query, store: store}
}

func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	filter, err := services.ParseFilter(c.Query("filter"), c.Query("solved"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: err.Error(),
		})
	}
	query := services.ListQuery{
		Filter: filter,
		Search: c.Query("search"),
		Scope:  services.ScopePublic,
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		stream := &sseWriter{w: w}

		sub := h.bridge.Watch(h.ctx, func(ctx context.Context) error {
			reports, err := h.query.List(ctx, query)
			if err != nil {
				return err
			}
			payload := dto.ReportListResponse{Reports: make([]dto.ReportResponse, len(reports))}
			for i := range reports {
				payload.Reports[i] = dto.NewReportResponse(&reports[i], h.store.ResolveImageURL(reports[i].ImagePath))
			}
			if err := stream.event("reports", payload); err != nil {
				return realtime.ErrSubscriberGone
			}
			return nil
		})
		defer sub.Release()

		// Initial load.
		sub.Trigger()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sub.Done():
				return
			case <-ticker.C:
				if err := stream.comment("keep-alive"); err != nil {
					return
				}
			}
		}
	})

	slog.Info("report stream opened", "filter", filter.String(), "request_id", requestID(c))
	return nil
}

// sseWriter serialises writes from the refetch worker and the keep-alive
// loop onto the one response writer.
type sseWriter struct {
	mu sync.Mutex
	w  *bufio.Writer
}

func (s *sseWriter) event(name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *sseWriter) comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", text); err != nil {
		return err
	}
	return s.w.Flush()
}
