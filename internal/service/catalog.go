package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CatalogService backs the thin data-entry API: users, prescriptions, and
// schedules the reminder engine reads. Validation is limited to domain
// invariants.
type CatalogService struct {
	schedules     repository.ScheduleRepository
	prescriptions repository.PrescriptionRepository
	users         repository.UserRepository
	records       repository.DispatchRepository
	logger        *zap.Logger
	newID         func() string
}

func NewCatalogService(
	schedules repository.ScheduleRepository,
	prescriptions repository.PrescriptionRepository,
	users repository.UserRepository,
	records repository.DispatchRepository,
	logger *zap.Logger,
) (*CatalogService, error) {
	if schedules == nil {
		return nil, fmt.Errorf("schedule repository is required")
	}
	if prescriptions == nil {
		return nil, fmt.Errorf("prescription repository is required")
	}
	if users == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if records == nil {
		return nil, fmt.Errorf("dispatch repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CatalogService{
		schedules:     schedules,
		prescriptions: prescriptions,
		users:         users,
		records:       records,
		logger:        logger,
		newID:         uuid.NewString,
	}, nil
}

func (s *CatalogService) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user == nil {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	if user.Channel == "" {
		user.Channel = domain.ChannelEmail
	}
	if err := user.Validate(); err != nil {
		return nil, err
	}

	user.ID = s.newID()
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *CatalogService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *CatalogService) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

func (s *CatalogService) CreatePrescription(ctx context.Context, prescription *domain.Prescription) (*domain.Prescription, error) {
	if prescription == nil {
		return nil, fmt.Errorf("%w: prescription is required", domain.ErrValidation)
	}
	if err := prescription.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, prescription.OwnerID); err != nil {
		return nil, err
	}

	prescription.ID = s.newID()
	if err := s.prescriptions.Create(ctx, prescription); err != nil {
		return nil, fmt.Errorf("failed to create prescription: %w", err)
	}
	return prescription, nil
}

func (s *CatalogService) ListPrescriptions(ctx context.Context, ownerID string) ([]domain.Prescription, error) {
	return s.prescriptions.List(ctx, ownerID)
}

func (s *CatalogService) CreateSchedule(ctx context.Context, schedule *domain.Schedule) (*domain.Schedule, error) {
	if schedule == nil {
		return nil, fmt.Errorf("%w: schedule is required", domain.ErrValidation)
	}
	if err := schedule.Validate(); err != nil {
		return nil, err
	}
	if err := s.ensureUserExists(ctx, schedule.OwnerID); err != nil {
		return nil, err
	}
	if schedule.PrescriptionID != nil {
		if _, err := s.prescriptions.GetByID(ctx, *schedule.PrescriptionID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: prescription %s does not exist", domain.ErrValidation, *schedule.PrescriptionID)
			}
			return nil, err
		}
	}

	schedule.ID = s.newID()
	if err := s.schedules.Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	s.logger.Info("schedule created",
		zap.String("scheduleId", schedule.ID),
		zap.String("ownerId", schedule.OwnerID),
		zap.Int("times", len(schedule.Times)),
	)
	return schedule, nil
}

func (s *CatalogService) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *CatalogService) ListSchedules(ctx context.Context, ownerID string) ([]domain.Schedule, error) {
	return s.schedules.List(ctx, ownerID)
}

func (s *CatalogService) ListDispatches(ctx context.Context, params repository.DispatchListParams) ([]domain.DispatchRecord, int64, error) {
	return s.records.List(ctx, params)
}

func (s *CatalogService) ensureUserExists(ctx context.Context, userID string) error {
	_, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: user %s does not exist", domain.ErrValidation, userID)
	}
	return err
}
