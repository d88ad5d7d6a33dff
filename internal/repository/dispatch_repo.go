package repository

import (
	"context"
	"errors"
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
	"gorm.io/gorm"
)

type DispatchListParams struct {
	Date     *domain.Date
	Outcome  *domain.Outcome
	OwnerID  string
	Page     int
	PageSize int
}

// DispatchRepository is the audit log for dispatch records. Insert doubles
// as the idempotency claim: the unique occurrence index rejects duplicates
// instead of silently dropping them.
type DispatchRepository interface {
	Insert(ctx context.Context, r *domain.DispatchRecord) error
	// Finalize moves a PENDING record to a terminal outcome exactly once.
	Finalize(ctx context.Context, occ domain.Occurrence, outcome domain.Outcome, attempts int, detail string, attemptedAt time.Time) error
	GetByOccurrence(ctx context.Context, occ domain.Occurrence) (*domain.DispatchRecord, error)
	List(ctx context.Context, params DispatchListParams) ([]domain.DispatchRecord, int64, error)
}

type GormDispatchRepo struct {
	db *gorm.DB
}

func NewGormDispatchRepo(db *gorm.DB) *GormDispatchRepo {
	return &GormDispatchRepo{db: db}
}

func (r *GormDispatchRepo) Insert(ctx context.Context, rec *domain.DispatchRecord) error {
	model := dispatchModelFromDomain(rec)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicateOccurrence
		}
		return err
	}
	if rec != nil {
		*rec = *dispatchModelToDomain(model)
	}
	return nil
}

func (r *GormDispatchRepo) Finalize(
	ctx context.Context,
	occ domain.Occurrence,
	outcome domain.Outcome,
	attempts int,
	detail string,
	attemptedAt time.Time,
) error {
	if !outcome.IsTerminal() {
		return domain.ErrValidation
	}

	result := r.db.WithContext(ctx).
		Model(&DispatchRecordModel{}).
		Where("schedule_id = ? AND due_date = ? AND due_time = ? AND outcome = ?",
			occ.ScheduleID, string(occ.Date), string(occ.Time), domain.OutcomePending).
		Updates(map[string]any{
			"outcome":       outcome,
			"attempt_count": attempts,
			"detail":        detail,
			"attempted_at":  attemptedAt.UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *GormDispatchRepo) GetByOccurrence(ctx context.Context, occ domain.Occurrence) (*domain.DispatchRecord, error) {
	var model DispatchRecordModel
	err := r.db.WithContext(ctx).
		Where("schedule_id = ? AND due_date = ? AND due_time = ?",
			occ.ScheduleID, string(occ.Date), string(occ.Time)).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return dispatchModelToDomain(&model), nil
}

func (r *GormDispatchRepo) List(ctx context.Context, params DispatchListParams) ([]domain.DispatchRecord, int64, error) {
	query := r.db.WithContext(ctx).Model(&DispatchRecordModel{})

	if params.Date != nil {
		query = query.Where("due_date = ?", string(*params.Date))
	}
	if params.Outcome != nil {
		query = query.Where("outcome = ?", *params.Outcome)
	}
	if params.OwnerID != "" {
		query = query.Where("owner_id = ?", params.OwnerID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []DispatchRecordModel
	err := query.
		Order("due_date DESC, due_time DESC, schedule_id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	records := make([]domain.DispatchRecord, 0, len(models))
	for i := range models {
		records = append(records, *dispatchModelToDomain(&models[i]))
	}

	return records, total, nil
}
