package repository

import (
	"context"
	"errors"

	"github.com/dosewatch/dosewatch/internal/domain"
	"gorm.io/gorm"
)

type PrescriptionRepository interface {
	Create(ctx context.Context, p *domain.Prescription) error
	GetByID(ctx context.Context, id string) (*domain.Prescription, error)
	List(ctx context.Context, ownerID string) ([]domain.Prescription, error)
}

type GormPrescriptionRepo struct {
	db *gorm.DB
}

func NewGormPrescriptionRepo(db *gorm.DB) *GormPrescriptionRepo {
	return &GormPrescriptionRepo{db: db}
}

func (r *GormPrescriptionRepo) Create(ctx context.Context, p *domain.Prescription) error {
	model := prescriptionModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if p != nil {
		*p = *prescriptionModelToDomain(model)
	}
	return nil
}

func (r *GormPrescriptionRepo) GetByID(ctx context.Context, id string) (*domain.Prescription, error) {
	var model PrescriptionModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return prescriptionModelToDomain(&model), nil
}

func (r *GormPrescriptionRepo) List(ctx context.Context, ownerID string) ([]domain.Prescription, error) {
	query := r.db.WithContext(ctx).Model(&PrescriptionModel{})
	if ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}

	var models []PrescriptionModel
	if err := query.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	prescriptions := make([]domain.Prescription, 0, len(models))
	for i := range models {
		prescriptions = append(prescriptions, *prescriptionModelToDomain(&models[i]))
	}
	return prescriptions, nil
}
