package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
)

// fakeGrievanceRepo is an in-memory GrievanceRepository.
type fakeGrievanceRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.Grievance
}

func newFakeGrievanceRepo() *fakeGrievanceRepo {
	return &fakeGrievanceRepo{items: make(map[string]domain.Grievance)}
}

func (r *fakeGrievanceRepo) Create(_ context.Context, grievance *domain.Grievance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	grievance.ID = fmt.Sprintf("g-%d", r.seq)
	grievance.DateFiled = time.Now()
	grievance.UpdatedAt = grievance.DateFiled
	r.items[grievance.ID] = *grievance
	return nil
}

func (r *fakeGrievanceRepo) Update(_ context.Context, grievance *domain.Grievance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[grievance.ID]; !ok {
		return pgx.ErrNoRows
	}
	grievance.UpdatedAt = time.Now()
	r.items[grievance.ID] = *grievance
	return nil
}

func (r *fakeGrievanceRepo) GetByID(_ context.Context, id string) (*domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	grievance, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copy := grievance
	return &copy, nil
}

func (r *fakeGrievanceRepo) ListWithFilter(_ context.Context, filter repository.GrievanceFilter) ([]domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Grievance
	for _, grievance := range r.items {
		if filter.PetitionerID != nil && grievance.PetitionerID != *filter.PetitionerID {
			continue
		}
		if filter.Department != nil && grievance.Department != *filter.Department {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, status := range filter.Statuses {
				if grievance.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, grievance)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *fakeGrievanceRepo) ListPendingUnproposed(_ context.Context, limit int) ([]domain.Grievance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.Grievance
	for _, grievance := range r.items {
		if grievance.Status == domain.GrievanceStatusPending && grievance.ProposedOfficerID == nil {
			result = append(result, grievance)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *fakeGrievanceRepo) CountByDepartmentStatus(_ context.Context) ([]repository.DepartmentStatusCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]*repository.DepartmentStatusCount)
	var keys []string
	for _, grievance := range r.items {
		key := string(grievance.Department) + "|" + string(grievance.Status)
		if counts[key] == nil {
			counts[key] = &repository.DepartmentStatusCount{
				Department: grievance.Department,
				Status:     grievance.Status,
			}
			keys = append(keys, key)
		}
		counts[key].Count++
	}
	sort.Strings(keys)
	result := make([]repository.DepartmentStatusCount, 0, len(keys))
	for _, key := range keys {
		result = append(result, *counts[key])
	}
	return result, nil
}

// fakeStaffRepo is an in-memory StaffRepository with the same candidate
// ordering as the SQL implementation.
type fakeStaffRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.StaffMember
}

func newFakeStaffRepo() *fakeStaffRepo {
	return &fakeStaffRepo{items: make(map[string]domain.StaffMember)}
}

func (r *fakeStaffRepo) Create(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	staff.ID = fmt.Sprintf("s-%d", r.seq)
	staff.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	staff.UpdatedAt = staff.CreatedAt
	r.items[staff.ID] = *staff
	return nil
}

func (r *fakeStaffRepo) Update(_ context.Context, staff *domain.StaffMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[staff.ID]; !ok {
		return pgx.ErrNoRows
	}
	r.items[staff.ID] = *staff
	return nil
}

func (r *fakeStaffRepo) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copy := staff
	return &copy, nil
}

func (r *fakeStaffRepo) List(_ context.Context, filter repository.StaffFilter) ([]domain.StaffMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.StaffMember
	for _, staff := range r.items {
		if filter.Department != nil && staff.Department != *filter.Department {
			continue
		}
		if filter.Available != nil && staff.Available != *filter.Available {
			continue
		}
		result = append(result, staff)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.ActiveCaseCount != b.ActiveCaseCount {
			return a.ActiveCaseCount < b.ActiveCaseCount
		}
		switch {
		case a.LastAssignmentAt == nil && b.LastAssignmentAt != nil:
			return true
		case a.LastAssignmentAt != nil && b.LastAssignmentAt == nil:
			return false
		case a.LastAssignmentAt != nil && b.LastAssignmentAt != nil && !a.LastAssignmentAt.Equal(*b.LastAssignmentAt):
			return a.LastAssignmentAt.Before(*b.LastAssignmentAt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return result, nil
}

func (r *fakeStaffRepo) CountByDepartment(_ context.Context, dept domain.Department) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, staff := range r.items {
		if staff.Department == dept {
			count++
		}
	}
	return count, nil
}

func (r *fakeStaffRepo) AdjustActiveCases(_ context.Context, id string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	staff.ActiveCaseCount += delta
	if staff.ActiveCaseCount < 0 {
		staff.ActiveCaseCount = 0
	}
	r.items[id] = staff
	return nil
}

func (r *fakeStaffRepo) TouchLastAssignment(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staff, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	staff.LastAssignmentAt = &now
	r.items[id] = staff
	return nil
}

// fakeHistoryRepo is an in-memory AssignmentHistoryRepository.
type fakeHistoryRepo struct {
	mu      sync.Mutex
	seq     int
	records []domain.AssignmentRecord
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (r *fakeHistoryRepo) Create(_ context.Context, record *domain.AssignmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	record.ID = fmt.Sprintf("h-%d", r.seq)
	record.CreatedAt = time.Now()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeHistoryRepo) ListByGrievance(_ context.Context, grievanceID string) ([]domain.AssignmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.AssignmentRecord
	for _, record := range r.records {
		if record.GrievanceID == grievanceID {
			result = append(result, record)
		}
	}
	return result, nil
}

func (r *fakeHistoryRepo) DeclinedStaffIDs(_ context.Context, grievanceID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]struct{})
	var result []string
	for _, record := range r.records {
		if record.GrievanceID != grievanceID || record.Outcome != domain.OutcomeDeclined {
			continue
		}
		if _, ok := seen[record.StaffID]; ok {
			continue
		}
		seen[record.StaffID] = struct{}{}
		result = append(result, record.StaffID)
	}
	return result, nil
}

// fakeMessageRepo is an in-memory ChatMessageRepository.
type fakeMessageRepo struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.ChatMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{items: make(map[string]domain.ChatMessage)}
}

func (r *fakeMessageRepo) Create(_ context.Context, msg *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	msg.ID = fmt.Sprintf("m-%d", r.seq)
	msg.CreatedAt = time.Now().Add(time.Duration(r.seq) * time.Millisecond)
	r.items[msg.ID] = *msg
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id string) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.items[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copy := msg
	return &copy, nil
}

func (r *fakeMessageRepo) ListByGrievance(_ context.Context, grievanceID string) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.ChatMessage
	for _, msg := range r.items {
		if msg.GrievanceID == grievanceID {
			result = append(result, msg)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.items[id]
	if !ok {
		return pgx.ErrNoRows
	}
	msg.Read = true
	r.items[id] = msg
	return nil
}

// fakeUnreadStore is an in-memory UnreadStore.
type fakeUnreadStore struct {
	mu     sync.Mutex
	counts map[string]int64
	fail   bool
}

func newFakeUnreadStore() *fakeUnreadStore {
	return &fakeUnreadStore{counts: make(map[string]int64)}
}

func (s *fakeUnreadStore) key(userID, grievanceID string) string {
	return userID + "|" + grievanceID
}

func (s *fakeUnreadStore) Increment(_ context.Context, userID, grievanceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return 0, fmt.Errorf("store unavailable")
	}
	s.counts[s.key(userID, grievanceID)]++
	return s.counts[s.key(userID, grievanceID)], nil
}

func (s *fakeUnreadStore) Clear(_ context.Context, userID, grievanceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return fmt.Errorf("store unavailable")
	}
	delete(s.counts, s.key(userID, grievanceID))
	return nil
}

func (s *fakeUnreadStore) Get(_ context.Context, userID, grievanceID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[s.key(userID, grievanceID)], nil
}

// captureDispatcher records published events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func newCaptureDispatcher() *captureDispatcher {
	return &captureDispatcher{}
}

func (d *captureDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *captureDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *captureDispatcher) byType(eventType events.EventType) []events.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var result []events.Event
	for _, event := range d.events {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}
