package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// CatalogService is the data-entry surface the handlers delegate to.
type CatalogService interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	CreatePrescription(ctx context.Context, prescription *domain.Prescription) (*domain.Prescription, error)
	ListPrescriptions(ctx context.Context, ownerID string) ([]domain.Prescription, error)
	CreateSchedule(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error)
	GetSchedule(ctx context.Context, id string) (*domain.Schedule, error)
	ListSchedules(ctx context.Context, ownerID string) ([]domain.Schedule, error)
}

type CatalogHandler struct {
	service CatalogService
}

func NewCatalogHandler(service CatalogService) (*CatalogHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("catalog service is required")
	}
	return &CatalogHandler{service: service}, nil
}

func RegisterCatalogRoutes(router fiber.Router, service CatalogService) error {
	h, err := NewCatalogHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/users", h.CreateUser)
	v1.Get("/users", h.ListUsers)
	v1.Get("/users/:id", h.GetUser)
	v1.Post("/prescriptions", h.CreatePrescription)
	v1.Get("/prescriptions", h.ListPrescriptions)
	v1.Post("/schedules", h.CreateSchedule)
	v1.Get("/schedules", h.ListSchedules)
	v1.Get("/schedules/:id", h.GetSchedule)

	return nil
}

type createUserRequest struct {
	Name    string `json:"name"`
	Target  string `json:"target"`
	Channel string `json:"channel"`
}

type userResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Target  string `json:"target,omitempty"`
	Channel string `json:"channel"`
}

func (h *CatalogHandler) CreateUser(c *fiber.Ctx) error {
	var req createUserRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user := &domain.User{
		Name:   req.Name,
		Target: req.Target,
	}
	if strings.TrimSpace(req.Channel) != "" {
		channel, err := domain.ParseChannelFromString(req.Channel)
		if err != nil {
			return err
		}
		user.Channel = channel
	}

	created, err := h.service.CreateUser(c.Context(), user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(userToResponse(created))
}

func (h *CatalogHandler) GetUser(c *fiber.Ctx) error {
	user, err := h.service.GetUser(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(userToResponse(user))
}

func (h *CatalogHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.service.ListUsers(c.Context())
	if err != nil {
		return err
	}

	out := make([]userResponse, 0, len(users))
	for i := range users {
		out = append(out, userToResponse(&users[i]))
	}
	return c.JSON(fiber.Map{"users": out})
}

type createPrescriptionRequest struct {
	OwnerID    string `json:"ownerId"`
	Title      string `json:"title"`
	DoctorName string `json:"doctorName"`
	IssuedOn   string `json:"issuedOn"`
}

type prescriptionResponse struct {
	ID         string `json:"id"`
	OwnerID    string `json:"ownerId"`
	Title      string `json:"title"`
	DoctorName string `json:"doctorName,omitempty"`
	IssuedOn   string `json:"issuedOn,omitempty"`
}

func (h *CatalogHandler) CreatePrescription(c *fiber.Ctx) error {
	var req createPrescriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	prescription := &domain.Prescription{
		OwnerID:    req.OwnerID,
		Title:      req.Title,
		DoctorName: req.DoctorName,
	}
	if strings.TrimSpace(req.IssuedOn) != "" {
		issuedOn, err := domain.ParseDate(req.IssuedOn)
		if err != nil {
			return err
		}
		prescription.IssuedOn = issuedOn
	}

	created, err := h.service.CreatePrescription(c.Context(), prescription)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(prescriptionResponse{
		ID:         created.ID,
		OwnerID:    created.OwnerID,
		Title:      created.Title,
		DoctorName: created.DoctorName,
		IssuedOn:   string(created.IssuedOn),
	})
}

func (h *CatalogHandler) ListPrescriptions(c *fiber.Ctx) error {
	prescriptions, err := h.service.ListPrescriptions(c.Context(), c.Query("ownerId"))
	if err != nil {
		return err
	}

	out := make([]prescriptionResponse, 0, len(prescriptions))
	for i := range prescriptions {
		p := &prescriptions[i]
		out = append(out, prescriptionResponse{
			ID:         p.ID,
			OwnerID:    p.OwnerID,
			Title:      p.Title,
			DoctorName: p.DoctorName,
			IssuedOn:   string(p.IssuedOn),
		})
	}
	return c.JSON(fiber.Map{"prescriptions": out})
}

type createScheduleRequest struct {
	OwnerID        string   `json:"ownerId"`
	PrescriptionID *string  `json:"prescriptionId"`
	Name           string   `json:"name"`
	Dosage         string   `json:"dosage"`
	Times          []string `json:"times"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
}

type scheduleResponse struct {
	ID             string   `json:"id"`
	OwnerID        string   `json:"ownerId"`
	PrescriptionID *string  `json:"prescriptionId,omitempty"`
	Name           string   `json:"name"`
	Dosage         string   `json:"dosage,omitempty"`
	Times          []string `json:"times"`
	StartDate      string   `json:"startDate"`
	EndDate        string   `json:"endDate"`
}

func (h *CatalogHandler) CreateSchedule(c *fiber.Ctx) error {
	var req createScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	times := make([]domain.TimeOfDay, 0, len(req.Times))
	for _, raw := range req.Times {
		tod, err := domain.ParseTimeOfDay(raw)
		if err != nil {
			return err
		}
		times = append(times, tod)
	}

	startDate, err := domain.ParseDate(req.StartDate)
	if err != nil {
		return err
	}
	endDate, err := domain.ParseDate(req.EndDate)
	if err != nil {
		return err
	}

	schedule := &domain.Schedule{
		OwnerID:        req.OwnerID,
		PrescriptionID: req.PrescriptionID,
		Name:           req.Name,
		Dosage:         req.Dosage,
		Times:          times,
		StartDate:      startDate,
		EndDate:        endDate,
	}

	created, err := h.service.CreateSchedule(c.Context(), schedule)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(scheduleToResponse(created))
}

func (h *CatalogHandler) GetSchedule(c *fiber.Ctx) error {
	schedule, err := h.service.GetSchedule(c.Context(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(scheduleToResponse(schedule))
}

func (h *CatalogHandler) ListSchedules(c *fiber.Ctx) error {
	schedules, err := h.service.ListSchedules(c.Context(), c.Query("ownerId"))
	if err != nil {
		return err
	}

	out := make([]scheduleResponse, 0, len(schedules))
	for i := range schedules {
		out = append(out, scheduleToResponse(&schedules[i]))
	}
	return c.JSON(fiber.Map{"schedules": out})
}

func userToResponse(u *domain.User) userResponse {
	return userResponse{
		ID:      u.ID,
		Name:    u.Name,
		Target:  u.Target,
		Channel: u.Channel.String(),
	}
}

func scheduleToResponse(s *domain.Schedule) scheduleResponse {
	times := make([]string, 0, len(s.Times))
	for _, tod := range s.Times {
		times = append(times, string(tod))
	}

	return scheduleResponse{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		PrescriptionID: s.PrescriptionID,
		Name:           s.Name,
		Dosage:         s.Dosage,
		Times:          times,
		StartDate:      string(s.StartDate),
		EndDate:        string(s.EndDate),
	}
}
