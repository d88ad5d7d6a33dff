package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
	"gorm.io/datatypes"
)

// UserModel is the persistence model for the users table.
type UserModel struct {
	ID        string         `gorm:"type:uuid;primaryKey"`
	Name      string         `gorm:"type:varchar(255);not null"`
	Target    string         `gorm:"type:varchar(255)"`
	Channel   domain.Channel `gorm:"type:varchar(10);not null"`
	CreatedAt time.Time
}

func (UserModel) TableName() string {
	return "users"
}

// PrescriptionModel is the persistence model for prescriptions.
type PrescriptionModel struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	OwnerID    string `gorm:"type:uuid;not null"`
	Title      string `gorm:"type:varchar(255);not null"`
	DoctorName string `gorm:"type:varchar(255)"`
	IssuedOn   string `gorm:"type:varchar(10)"`
	CreatedAt  time.Time
}

func (PrescriptionModel) TableName() string {
	return "prescriptions"
}

// ScheduleModel is the persistence model for medication_schedules.
type ScheduleModel struct {
	ID             string         `gorm:"type:uuid;primaryKey"`
	OwnerID        string         `gorm:"type:uuid;not null"`
	PrescriptionID *string        `gorm:"type:uuid"`
	Name           string         `gorm:"type:varchar(255);not null"`
	Dosage         string         `gorm:"type:varchar(255)"`
	Times          datatypes.JSON `gorm:"not null"`
	StartDate      string         `gorm:"type:varchar(10);not null"`
	EndDate        string         `gorm:"type:varchar(10);not null"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (ScheduleModel) TableName() string {
	return "medication_schedules"
}

// DispatchRecordModel is the persistence model for dispatch_records. The
// composite unique index over the occurrence key is what makes the claim
// insert atomic.
type DispatchRecordModel struct {
	ID           string         `gorm:"type:uuid;primaryKey"`
	ScheduleID   string         `gorm:"type:uuid;not null;uniqueIndex:ux_dispatch_occurrence,priority:1"`
	DueDate      string         `gorm:"type:varchar(10);not null;uniqueIndex:ux_dispatch_occurrence,priority:2"`
	DueTime      string         `gorm:"type:varchar(5);not null;uniqueIndex:ux_dispatch_occurrence,priority:3"`
	OwnerID      string         `gorm:"type:uuid;not null"`
	Recipient    string         `gorm:"type:varchar(255)"`
	Channel      domain.Channel `gorm:"type:varchar(10);not null"`
	Outcome      domain.Outcome `gorm:"type:varchar(20);not null"`
	AttemptCount int            `gorm:"not null;default:0"`
	Detail       string         `gorm:"type:text"`
	AttemptedAt  *time.Time     `gorm:"type:timestamptz"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (DispatchRecordModel) TableName() string {
	return "dispatch_records"
}

func userModelFromDomain(u *domain.User) *UserModel {
	if u == nil {
		return nil
	}

	return &UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Target:    u.Target,
		Channel:   u.Channel,
		CreatedAt: u.CreatedAt,
	}
}

func userModelToDomain(m *UserModel) *domain.User {
	if m == nil {
		return nil
	}

	return &domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Target:    m.Target,
		Channel:   m.Channel,
		CreatedAt: m.CreatedAt,
	}
}

func prescriptionModelFromDomain(p *domain.Prescription) *PrescriptionModel {
	if p == nil {
		return nil
	}

	return &PrescriptionModel{
		ID:         p.ID,
		OwnerID:    p.OwnerID,
		Title:      p.Title,
		DoctorName: p.DoctorName,
		IssuedOn:   string(p.IssuedOn),
		CreatedAt:  p.CreatedAt,
	}
}

func prescriptionModelToDomain(m *PrescriptionModel) *domain.Prescription {
	if m == nil {
		return nil
	}

	return &domain.Prescription{
		ID:         m.ID,
		OwnerID:    m.OwnerID,
		Title:      m.Title,
		DoctorName: m.DoctorName,
		IssuedOn:   domain.Date(m.IssuedOn),
		CreatedAt:  m.CreatedAt,
	}
}

func scheduleModelFromDomain(s *domain.Schedule) (*ScheduleModel, error) {
	if s == nil {
		return nil, nil
	}

	times := make([]string, 0, len(s.Times))
	for _, tod := range s.Times {
		times = append(times, string(tod))
	}
	rawTimes, err := json.Marshal(times)
	if err != nil {
		return nil, fmt.Errorf("failed to encode schedule times: %w", err)
	}

	return &ScheduleModel{
		ID:             s.ID,
		OwnerID:        s.OwnerID,
		PrescriptionID: s.PrescriptionID,
		Name:           s.Name,
		Dosage:         s.Dosage,
		Times:          datatypes.JSON(rawTimes),
		StartDate:      string(s.StartDate),
		EndDate:        string(s.EndDate),
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}, nil
}

func scheduleModelToDomain(m *ScheduleModel) (*domain.Schedule, error) {
	if m == nil {
		return nil, nil
	}

	var rawTimes []string
	if len(m.Times) > 0 {
		if err := json.Unmarshal(m.Times, &rawTimes); err != nil {
			return nil, fmt.Errorf("failed to decode schedule times for %s: %w", m.ID, err)
		}
	}
	times := make([]domain.TimeOfDay, 0, len(rawTimes))
	for _, raw := range rawTimes {
		times = append(times, domain.TimeOfDay(raw))
	}

	return &domain.Schedule{
		ID:             m.ID,
		OwnerID:        m.OwnerID,
		PrescriptionID: m.PrescriptionID,
		Name:           m.Name,
		Dosage:         m.Dosage,
		Times:          times,
		StartDate:      domain.Date(m.StartDate),
		EndDate:        domain.Date(m.EndDate),
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}, nil
}

func dispatchModelFromDomain(r *domain.DispatchRecord) *DispatchRecordModel {
	if r == nil {
		return nil
	}

	return &DispatchRecordModel{
		ID:           r.ID,
		ScheduleID:   r.ScheduleID,
		DueDate:      string(r.DueDate),
		DueTime:      string(r.DueTime),
		OwnerID:      r.OwnerID,
		Recipient:    r.Recipient,
		Channel:      r.Channel,
		Outcome:      r.Outcome,
		AttemptCount: r.AttemptCount,
		Detail:       r.Detail,
		AttemptedAt:  r.AttemptedAt,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func dispatchModelToDomain(m *DispatchRecordModel) *domain.DispatchRecord {
	if m == nil {
		return nil
	}

	return &domain.DispatchRecord{
		ID:           m.ID,
		ScheduleID:   m.ScheduleID,
		DueDate:      domain.Date(m.DueDate),
		DueTime:      domain.TimeOfDay(m.DueTime),
		OwnerID:      m.OwnerID,
		Recipient:    m.Recipient,
		Channel:      m.Channel,
		Outcome:      m.Outcome,
		AttemptCount: m.AttemptCount,
		Detail:       m.Detail,
		AttemptedAt:  m.AttemptedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}
