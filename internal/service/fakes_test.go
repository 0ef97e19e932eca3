package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repositories with the same contracts as the mongo ones.

type fakeRaceRepo struct {
	mu      sync.Mutex
	races   map[primitive.ObjectID]domain.Race
	linkErr error
	// beforeLink runs at the start of LinkPlan, outside the lock.
	beforeLink func()
}

func newFakeRaceRepo(races ...domain.Race) *fakeRaceRepo {
	r := &fakeRaceRepo{races: map[primitive.ObjectID]domain.Race{}}
	for _, race := range races {
		r.races[race.ID] = race
	}
	return r
}

func (r *fakeRaceRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.Race, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	race, ok := r.races[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &race, nil
}

func (r *fakeRaceRepo) LinkPlan(_ context.Context, raceID, planID primitive.ObjectID, status domain.RaceStatus) error {
	if r.beforeLink != nil {
		r.beforeLink()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.linkErr != nil {
		return r.linkErr
	}
	race, ok := r.races[raceID]
	if !ok {
		return repository.ErrNotFound
	}
	if race.HasPlan() {
		return repository.ErrUpdateFailed
	}
	race.TrainingPlanID = &planID
	race.Status = status
	r.races[raceID] = race
	return nil
}

func (r *fakeRaceRepo) UpdateStatus(_ context.Context, raceID primitive.ObjectID, status domain.RaceStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	race, ok := r.races[raceID]
	if !ok {
		return repository.ErrNotFound
	}
	race.Status = status
	r.races[raceID] = race
	return nil
}

type fakePlanRepo struct {
	mu        sync.Mutex
	plans     map[primitive.ObjectID]domain.TrainingPlan
	createErr error
	seq       int
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: map[primitive.ObjectID]domain.TrainingPlan{}}
}

func (r *fakePlanRepo) Create(_ context.Context, plan *domain.TrainingPlan) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return primitive.NilObjectID, r.createErr
	}
	for _, p := range r.plans {
		if p.RaceID == plan.RaceID {
			return primitive.NilObjectID, repository.ErrDuplicateKey
		}
	}
	if plan.ID == primitive.NilObjectID {
		plan.ID = primitive.NewObjectID()
	}
	// Monotonic creation order without depending on the wall clock.
	r.seq++
	plan.CreatedAt = time.Unix(int64(r.seq), 0).UTC()
	plan.UpdatedAt = plan.CreatedAt
	r.plans[plan.ID] = *plan
	return plan.ID, nil
}

func (r *fakePlanRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r *fakePlanRepo) GetByRaceID(_ context.Context, raceID primitive.ObjectID) (*domain.TrainingPlan, error) {
	return r.newest(func(p domain.TrainingPlan) bool { return p.RaceID == raceID })
}

func (r *fakePlanRepo) GetLatestForUser(_ context.Context, userID primitive.ObjectID) (*domain.TrainingPlan, error) {
	p, err := r.newest(func(p domain.TrainingPlan) bool {
		return p.UserID == userID && p.Status == domain.PlanStatusActive
	})
	if err == nil {
		return p, nil
	}
	return r.newest(func(p domain.TrainingPlan) bool { return p.UserID == userID })
}

func (r *fakePlanRepo) newest(match func(domain.TrainingPlan) bool) (*domain.TrainingPlan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *domain.TrainingPlan
	for _, p := range r.plans {
		if !match(p) {
			continue
		}
		if best == nil || p.CreatedAt.After(best.CreatedAt) {
			p := p
			best = &p
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	return best, nil
}

func (r *fakePlanRepo) UpdateStatus(_ context.Context, id primitive.ObjectID, status domain.PlanStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Status = status
	r.plans[id] = p
	return nil
}

func (r *fakePlanRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.plans[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

func (r *fakePlanRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.plans)
}

type fakeDayRepo struct {
	mu         sync.Mutex
	days       map[primitive.ObjectID]domain.TrainingDay
	updates    int
	publishErr error
}

func newFakeDayRepo(days ...domain.TrainingDay) *fakeDayRepo {
	r := &fakeDayRepo{days: map[primitive.ObjectID]domain.TrainingDay{}}
	for _, d := range days {
		r.days[d.ID] = d
	}
	return r
}

func (r *fakeDayRepo) CreateMany(_ context.Context, days []domain.TrainingDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range days {
		days[i].Date = domain.DateOnly(days[i].Date)
		for _, existing := range r.days {
			if existing.UserID == days[i].UserID && existing.Date.Equal(days[i].Date) {
				return repository.ErrDuplicateKey
			}
		}
		if days[i].ID == primitive.NilObjectID {
			days[i].ID = primitive.NewObjectID()
		}
		r.days[days[i].ID] = days[i]
	}
	return nil
}

func (r *fakeDayRepo) DeleteByPlanID(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, d := range r.days {
		if d.TrainingPlanID == planID {
			delete(r.days, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeDayRepo) GetByID(_ context.Context, id primitive.ObjectID) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok || d.Pending {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (r *fakeDayRepo) PublishByPlanID(_ context.Context, planID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.publishErr != nil {
		return 0, r.publishErr
	}
	var n int64
	for id, d := range r.days {
		if d.TrainingPlanID == planID && d.Pending {
			d.Pending = false
			r.days[id] = d
			n++
		}
	}
	return n, nil
}

func (r *fakeDayRepo) GetByUserAndDate(_ context.Context, userID primitive.ObjectID, date time.Time) (*domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	date = domain.DateOnly(date)
	for _, d := range r.days {
		if d.UserID == userID && d.Date.Equal(date) && !d.Pending {
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeDayRepo) GetByPlanAndWeek(_ context.Context, planID primitive.ObjectID, weekIndex int) ([]domain.TrainingDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []domain.TrainingDay{}
	for _, d := range r.days {
		if d.TrainingPlanID == planID && d.WeekIndex == weekIndex && !d.Pending {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (r *fakeDayRepo) UpdateActual(_ context.Context, id primitive.ObjectID, version int64, actual domain.ActualWorkout, analysis *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok || d.Pending {
		return repository.ErrNotFound
	}
	if d.Version != version {
		return repository.ErrVersionConflict
	}
	d.Version++
	d.Actual = actual
	if analysis != nil {
		d.Analysis = *analysis
	}
	r.days[id] = d
	r.updates++
	return nil
}

func (r *fakeDayRepo) UpdateFeedback(_ context.Context, id primitive.ObjectID, version int64, feedback domain.Feedback, analysis *domain.Analysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.days[id]
	if !ok || d.Pending {
		return repository.ErrNotFound
	}
	if d.Version != version {
		return repository.ErrVersionConflict
	}
	d.Version++
	d.Feedback = feedback
	if analysis != nil {
		d.Analysis = *analysis
	}
	r.days[id] = d
	r.updates++
	return nil
}

func (r *fakeDayRepo) Progress(_ context.Context, planID primitive.ObjectID) (*domain.TrainingProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := &domain.TrainingProgress{}
	for _, d := range r.days {
		if d.TrainingPlanID != planID || d.Pending || d.Planned.Type == domain.WorkoutRest {
			continue
		}
		p.TotalDays++
		p.PlannedMileage += d.Planned.Mileage
		if d.Actual.Completed {
			p.CompletedDays++
			p.ActualMileage += d.Actual.Mileage
		}
	}
	return p, nil
}

func (r *fakeDayRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.days)
}

func (r *fakeDayRepo) updateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.updates
}

func (r *fakeDayRepo) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, d := range r.days {
		if d.Pending {
			n++
		}
	}
	return n
}

type fakeLockRepo struct {
	mu       sync.Mutex
	held     map[string]string
	acquired int
}

func newFakeLockRepo() *fakeLockRepo {
	return &fakeLockRepo{held: map[string]string{}}
}

func (r *fakeLockRepo) Acquire(_ context.Context, key, owner string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.held[key]; ok {
		return repository.ErrLockHeld
	}
	r.held[key] = owner
	r.acquired++
	return nil
}

func (r *fakeLockRepo) Release(_ context.Context, key, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.held[key] == owner {
		delete(r.held, key)
	}
	return nil
}

type fakeStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
	puts    int
	putErr  error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: map[string][]byte{}}
}

func (s *fakeStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), body...)
	s.puts++
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://archive.test/" + key + "?signature=x", nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

// fixedClock returns a clock that can be moved forward by tests.
type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
