package service

import (
	"context"
	"sync"
	"time"

	"github.com/dosewatch/dosewatch/internal/domain"
	"github.com/dosewatch/dosewatch/internal/provider"
	"github.com/dosewatch/dosewatch/internal/repository"
)

type fakeScheduleRepo struct {
	createFn       func(ctx context.Context, s *domain.Schedule) error
	getByIDFn      func(ctx context.Context, id string) (*domain.Schedule, error)
	listFn         func(ctx context.Context, ownerID string) ([]domain.Schedule, error)
	findActiveOnFn func(ctx context.Context, d domain.Date) ([]domain.Schedule, error)
}

func (f *fakeScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	if f.createFn != nil {
		return f.createFn(ctx, s)
	}
	return nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeScheduleRepo) List(ctx context.Context, ownerID string) ([]domain.Schedule, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (f *fakeScheduleRepo) FindActiveOn(ctx context.Context, d domain.Date) ([]domain.Schedule, error) {
	if f.findActiveOnFn != nil {
		return f.findActiveOnFn(ctx, d)
	}
	return nil, nil
}

type fakeUserRepo struct {
	createFn  func(ctx context.Context, u *domain.User) error
	getByIDFn func(ctx context.Context, id string) (*domain.User, error)
	listFn    func(ctx context.Context) ([]domain.User, error)
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domain.User) error {
	if f.createFn != nil {
		return f.createFn(ctx, u)
	}
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeUserRepo) List(ctx context.Context) ([]domain.User, error) {
	if f.listFn != nil {
		return f.listFn(ctx)
	}
	return nil, nil
}

type fakePrescriptionRepo struct {
	createFn  func(ctx context.Context, p *domain.Prescription) error
	getByIDFn func(ctx context.Context, id string) (*domain.Prescription, error)
	listFn    func(ctx context.Context, ownerID string) ([]domain.Prescription, error)
}

func (f *fakePrescriptionRepo) Create(ctx context.Context, p *domain.Prescription) error {
	if f.createFn != nil {
		return f.createFn(ctx, p)
	}
	return nil
}

func (f *fakePrescriptionRepo) GetByID(ctx context.Context, id string) (*domain.Prescription, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakePrescriptionRepo) List(ctx context.Context, ownerID string) ([]domain.Prescription, error) {
	if f.listFn != nil {
		return f.listFn(ctx, ownerID)
	}
	return nil, nil
}

// fakeDispatchRepo keeps records in memory and enforces the unique
// occurrence key the way the real store does.
type fakeDispatchRepo struct {
	mu      sync.Mutex
	byKey   map[string]*domain.DispatchRecord
	inserts int

	insertFn   func(ctx context.Context, r *domain.DispatchRecord) error
	finalizeFn func(ctx context.Context, occ domain.Occurrence, outcome domain.Outcome, attempts int, detail string, attemptedAt time.Time) error
	getFn      func(ctx context.Context, occ domain.Occurrence) (*domain.DispatchRecord, error)
	listFn     func(ctx context.Context, params repository.DispatchListParams) ([]domain.DispatchRecord, int64, error)
}

func newFakeDispatchRepo() *fakeDispatchRepo {
	return &fakeDispatchRepo{byKey: make(map[string]*domain.DispatchRecord)}
}

func occurrenceKeyOf(r *domain.DispatchRecord) string {
	occ := domain.Occurrence{ScheduleID: r.ScheduleID, Date: r.DueDate, Time: r.DueTime}
	return occ.Key()
}

func (f *fakeDispatchRepo) Insert(ctx context.Context, r *domain.DispatchRecord) error {
	if f.insertFn != nil {
		return f.insertFn(ctx, r)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	key := occurrenceKeyOf(r)
	if _, exists := f.byKey[key]; exists {
		return domain.ErrDuplicateOccurrence
	}
	stored := *r
	f.byKey[key] = &stored
	f.inserts++
	return nil
}

func (f *fakeDispatchRepo) Finalize(ctx context.Context, occ domain.Occurrence, outcome domain.Outcome, attempts int, detail string, attemptedAt time.Time) error {
	if f.finalizeFn != nil {
		return f.finalizeFn(ctx, occ, outcome, attempts, detail, attemptedAt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record, exists := f.byKey[occ.Key()]
	if !exists || record.Outcome != domain.OutcomePending {
		return domain.ErrConflict
	}
	record.Outcome = outcome
	record.AttemptCount = attempts
	record.Detail = detail
	at := attemptedAt
	record.AttemptedAt = &at
	return nil
}

func (f *fakeDispatchRepo) GetByOccurrence(ctx context.Context, occ domain.Occurrence) (*domain.DispatchRecord, error) {
	if f.getFn != nil {
		return f.getFn(ctx, occ)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	record, exists := f.byKey[occ.Key()]
	if !exists {
		return nil, domain.ErrNotFound
	}
	copied := *record
	return &copied, nil
}

func (f *fakeDispatchRepo) List(ctx context.Context, params repository.DispatchListParams) ([]domain.DispatchRecord, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, params)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	records := make([]domain.DispatchRecord, 0, len(f.byKey))
	for _, r := range f.byKey {
		records = append(records, *r)
	}
	return records, int64(len(records)), nil
}

func (f *fakeDispatchRepo) record(occ domain.Occurrence) *domain.DispatchRecord {
	f.mu.Lock()
	defer f.mu.Unlock()

	record, exists := f.byKey[occ.Key()]
	if !exists {
		return nil
	}
	copied := *record
	return &copied
}

func (f *fakeDispatchRepo) recordCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byKey)
}

type fakeProvider struct {
	mu     sync.Mutex
	calls  int
	sendFn func(ctx context.Context, reminder provider.Reminder) (*provider.Response, error)
}

func (f *fakeProvider) Send(ctx context.Context, reminder provider.Reminder) (*provider.Response, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.sendFn != nil {
		return f.sendFn(ctx, reminder)
	}
	return &provider.Response{StatusCode: 200}, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, channel string) (bool, error)
	waitFn  func(ctx context.Context, channel string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, channel string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, channel)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, channel string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}
