package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/gofiber/fiber/v2"
)

const (
	defaultPage     = 1
	defaultPageSize = 50
)

// DispatchReader exposes the audit trail for inspection.
type DispatchReader interface {
	ListDispatches(ctx context.Context, params repository.DispatchListParams) ([]domain.DispatchRecord, int64, error)
}

type DispatchHandler struct {
	reader DispatchReader
}

func NewDispatchHandler(reader DispatchReader) (*DispatchHandler, error) {
	if reader == nil {
		return nil, fmt.Errorf("dispatch reader is required")
	}
	return &DispatchHandler{reader: reader}, nil
}

func RegisterDispatchRoutes(router fiber.Router, reader DispatchReader) error {
	h, err := NewDispatchHandler(reader)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/dispatches", h.ListDispatches)

	return nil
}

type dispatchResponse struct {
	ID           string `json:"id"`
	ScheduleID   string `json:"scheduleId"`
	DueDate      string `json:"dueDate"`
	DueTime      string `json:"dueTime"`
	OwnerID      string `json:"ownerId"`
	Recipient    string `json:"recipient,omitempty"`
	Channel      string `json:"channel"`
	Outcome      string `json:"outcome"`
	AttemptCount int    `json:"attemptCount"`
	Detail       string `json:"detail,omitempty"`
	AttemptedAt  string `json:"attemptedAt,omitempty"`
}

func (h *DispatchHandler) ListDispatches(c *fiber.Ctx) error {
	params := repository.DispatchListParams{
		OwnerID:  c.Query("ownerId"),
		Page:     c.QueryInt("page", defaultPage),
		PageSize: c.QueryInt("pageSize", defaultPageSize),
	}

	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			return err
		}
		params.Date = &date
	}
	if raw := strings.TrimSpace(c.Query("outcome")); raw != "" {
		outcome, err := domain.ParseOutcomeFromString(raw)
		if err != nil {
			return err
		}
		params.Outcome = &outcome
	}

	records, total, err := h.reader.ListDispatches(c.Context(), params)
	if err != nil {
		return err
	}

	out := make([]dispatchResponse, 0, len(records))
	for i := range records {
		out = append(out, dispatchToResponse(&records[i]))
	}

	return c.JSON(fiber.Map{
		"dispatches": out,
		"total":      total,
	})
}

func dispatchToResponse(r *domain.DispatchRecord) dispatchResponse {
	resp := dispatchResponse{
		ID:           r.ID,
		ScheduleID:   r.ScheduleID,
		DueDate:      string(r.DueDate),
		DueTime:      string(r.DueTime),
		OwnerID:      r.OwnerID,
		Recipient:    r.Recipient,
		Channel:      r.Channel.String(),
		Outcome:      r.Outcome.String(),
		AttemptCount: r.AttemptCount,
		Detail:       r.Detail,
	}
	if r.AttemptedAt != nil {
		resp.AttemptedAt = r.AttemptedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
	}
	return resp
}
