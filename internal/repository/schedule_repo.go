package repository

import (
	"context"
	"errors"

	"github.com/dosewatch/dosewatch/internal/domain"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context, ownerID string) ([]domain.Schedule, error)
	// FindActiveOn returns every schedule whose active range contains the
	// date, bounds inclusive, ordered by id for reproducible matching.
	FindActiveOn(ctx context.Context, d domain.Date) ([]domain.Schedule, error)
}

type GormScheduleRepo struct {
	db *gorm.DB
}

func NewGormScheduleRepo(db *gorm.DB) *GormScheduleRepo {
	return &GormScheduleRepo{db: db}
}

func (r *GormScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	model, err := scheduleModelFromDomain(s)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if s != nil {
		restored, err := scheduleModelToDomain(model)
		if err != nil {
			return err
		}
		*s = *restored
	}
	return nil
}

func (r *GormScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	var model ScheduleModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return scheduleModelToDomain(&model)
}

func (r *GormScheduleRepo) List(ctx context.Context, ownerID string) ([]domain.Schedule, error) {
	query := r.db.WithContext(ctx).Model(&ScheduleModel{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var models []ScheduleModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	return schedulesToDomain(models)
}

func (r *GormScheduleRepo) FindActiveOn(ctx context.Context, d domain.Date) ([]domain.Schedule, error) {
	var models []ScheduleModel
	err := r.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", string(d), string(d)).
		Order("id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	return schedulesToDomain(models)
}

func schedulesToDomain(models []ScheduleModel) ([]domain.Schedule, error) {
	schedules := make([]domain.Schedule, 0, len(models))
	for i := range models {
		schedule, err := scheduleModelToDomain(&models[i])
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, nil
}
