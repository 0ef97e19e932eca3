package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"alcyxob/runplan/internal/domain"
	"alcyxob/runplan/internal/planner"
	"alcyxob/runplan/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	// Monday
	testNow = time.Date(2026, 3, 2, 6, 0, 0, 0, time.UTC)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type planFixture struct {
	races *fakeRaceRepo
	plans *fakePlanRepo
	days  *fakeDayRepo
	locks *fakeLockRepo
	clock *fixedClock
	svc   PlanService
}

func newPlanFixture(races ...domain.Race) *planFixture {
	f := &planFixture{
		races: newFakeRaceRepo(races...),
		plans: newFakePlanRepo(),
		days:  newFakeDayRepo(),
		locks: newFakeLockRepo(),
		clock: &fixedClock{now: testNow},
	}
	f.svc = NewPlanService(f.races, f.plans, f.days, f.locks, PlanServiceConfig{
		DefaultBaselineMileage: 20,
		Now:                    f.clock.Now,
	}, discardLogger(), nil)
	return f
}

func testRace(owner primitive.ObjectID, daysOut int) domain.Race {
	return domain.Race{
		ID:                    primitive.NewObjectID(),
		UserID:                owner,
		Name:                  "Spring Half",
		RaceDate:              domain.DateOnly(testNow).AddDate(0, 0, daysOut),
		GoalTime:              "1:45:00",
		Baseline5K:            "25:00",
		BaselineWeeklyMileage: 20,
		DistanceMiles:         13.1,
		Status:                domain.RaceStatusPlanning,
	}
}

func TestGeneratePlan_PersistsPlanAndDays(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	plan, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, 12, plan.TotalWeeks)
	assert.Equal(t, domain.PlanStatusDraft, plan.Status)
	assert.Equal(t, planner.DefaultAthleteAge, plan.AthleteAge)
	assert.Len(t, plan.Weeks, 12)
	assert.Len(t, plan.WeeklyMileage, 12)
	assert.Equal(t, domain.PhaseSpan{Weeks: 2, StartWeek: 11, EndWeek: 12}, plan.PhaseOverview["taper"])
	assert.Equal(t, 84, f.days.count())
	assert.Zero(t, f.days.pendingCount(), "days are published once the race is linked")
	assert.Equal(t, 1, f.plans.count())

	// every day id listed on the plan resolves to a stored day of that week
	for _, w := range plan.Weeks {
		require.Len(t, w.DayIDs, 7)
		for _, id := range w.DayIDs {
			day, err := f.days.GetByID(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, w.WeekIndex, day.WeekIndex)
			assert.Equal(t, plan.ID, day.TrainingPlanID)
			assert.Equal(t, owner, day.UserID)
		}
	}

	stored, err := f.races.GetByID(context.Background(), race.ID)
	require.NoError(t, err)
	require.True(t, stored.HasPlan())
	assert.Equal(t, plan.ID, *stored.TrainingPlanID)
	assert.Equal(t, domain.RaceStatusTraining, stored.Status)
	assert.Empty(t, f.locks.held, "lock must be released")
}

func TestGeneratePlan_FirstDayIsToday(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 30)
	f := newPlanFixture(race)

	_, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 40)
	require.NoError(t, err)

	day, err := f.days.GetByUserAndDate(context.Background(), owner, testNow)
	require.NoError(t, err)
	assert.Equal(t, 0, day.WeekIndex)
	assert.Equal(t, 0, day.DayIndex)
	assert.Equal(t, "Monday", day.DayName)
	assert.Equal(t, domain.WorkoutRest, day.Planned.Type)
}

func TestGeneratePlan_InsufficientLeadTime(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 20)
	f := newPlanFixture(race)

	plan, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.ErrorIs(t, err, planner.ErrInsufficientLeadTime)
	assert.Nil(t, plan)
	assert.Zero(t, f.days.count())
	assert.Zero(t, f.plans.count())
	assert.Zero(t, f.locks.acquired)

	stored, _ := f.races.GetByID(context.Background(), race.ID)
	assert.False(t, stored.HasPlan())
}

func TestGeneratePlan_RejectsBadInput(t *testing.T) {
	owner := primitive.NewObjectID()

	badBaseline := testRace(owner, 84)
	badBaseline.Baseline5K = "fast"
	noOwner := testRace(primitive.NilObjectID, 84)
	someoneElses := testRace(primitive.NewObjectID(), 84)

	tests := []struct {
		name    string
		raceID  primitive.ObjectID
		wantErr error
	}{
		{"unknown race", primitive.NewObjectID(), ErrRaceNotFound},
		{"invalid baseline", badBaseline.ID, ErrInvalidBaseline},
		{"race without owner", noOwner.ID, ErrMissingOwner},
		{"race of another user", someoneElses.ID, ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newPlanFixture(badBaseline, noOwner, someoneElses)
			_, err := f.svc.GeneratePlan(context.Background(), owner, tt.raceID, 0)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.days.count())
			assert.Zero(t, f.plans.count())
		})
	}
}

func TestGeneratePlan_SecondCallDoesNotDuplicate(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	_, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	assert.ErrorIs(t, err, ErrPlanAlreadyGenerated)
	assert.Equal(t, 84, f.days.count())
	assert.Equal(t, 1, f.plans.count())
}

func TestGeneratePlan_OverlappingRaceRollsBack(t *testing.T) {
	owner := primitive.NewObjectID()
	first := testRace(owner, 84)
	second := testRace(owner, 91)
	f := newPlanFixture(first, second)

	_, err := f.svc.GeneratePlan(context.Background(), owner, first.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.GeneratePlan(context.Background(), owner, second.ID, 0)
	assert.ErrorIs(t, err, ErrDuplicateTrainingDay)
	assert.Equal(t, 84, f.days.count(), "no day of the failed plan may remain")
	assert.Equal(t, 1, f.plans.count())

	stored, _ := f.races.GetByID(context.Background(), second.ID)
	assert.False(t, stored.HasPlan())
}

func TestGeneratePlan_LinkFailureRollsBack(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)
	f.races.linkErr = repository.ErrUpdateFailed

	_, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	assert.ErrorIs(t, err, ErrPlanAlreadyGenerated)
	assert.Zero(t, f.days.count())
	assert.Zero(t, f.plans.count())
	assert.Empty(t, f.locks.held)
}

func TestGeneratePlan_DaysHiddenUntilRaceLinked(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)
	reconcile := NewReconcileService(f.days, newFakeStorage(), discardLogger(), nil, f.clock.Now)

	linkAttempted := false
	f.races.beforeLink = func() {
		linkAttempted = true
		require.Equal(t, 84, f.days.count(), "days are written before the link")

		_, err := f.days.GetByUserAndDate(context.Background(), owner, testNow)
		assert.ErrorIs(t, err, repository.ErrNotFound)

		_, err = reconcile.Hydrate(context.Background(), owner, testNow, activity("early-run", 3, 25))
		assert.ErrorIs(t, err, ErrNoPlannedDay)
	}

	plan, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)
	require.True(t, linkAttempted)

	day, err := f.days.GetByUserAndDate(context.Background(), owner, testNow)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, day.TrainingPlanID)
	assert.False(t, day.Actual.Completed, "nothing was reconciled onto the hidden day")
}

func TestGeneratePlan_PublishFailureLeavesPlanForActivation(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)
	f.days.publishErr = errors.New("primary stepped down")

	_, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	assert.ErrorIs(t, err, ErrDaysNotPublished)
	assert.Equal(t, 84, f.days.pendingCount())
	assert.Equal(t, 1, f.plans.count(), "the linked plan is kept")

	_, err = f.days.GetByUserAndDate(context.Background(), owner, testNow)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	plan, err := f.svc.GetPlanForRace(context.Background(), owner, race.ID)
	require.NoError(t, err)

	f.days.publishErr = nil
	activated, err := f.svc.ActivatePlan(context.Background(), owner, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusActive, activated.Status)
	assert.Zero(t, f.days.pendingCount())

	_, err = f.days.GetByUserAndDate(context.Background(), owner, testNow)
	assert.NoError(t, err)
}

func TestGeneratePlan_LockHeld(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)
	f.locks.held["plan:"+race.ID.Hex()] = "another-worker"

	_, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	assert.ErrorIs(t, err, ErrGenerationInProgress)
	assert.Zero(t, f.days.count())
	assert.Equal(t, "another-worker", f.locks.held["plan:"+race.ID.Hex()])
}

func TestGetPlanForRace(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	_, err := f.svc.GetPlanForRace(context.Background(), owner, race.ID)
	assert.ErrorIs(t, err, ErrPlanNotFound)

	generated, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)

	got, err := f.svc.GetPlanForRace(context.Background(), owner, race.ID)
	require.NoError(t, err)
	assert.Equal(t, generated.ID, got.ID)

	_, err = f.svc.GetPlanForRace(context.Background(), primitive.NewObjectID(), race.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestActivatePlan(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	plan, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)
	require.NoError(t, f.races.UpdateStatus(context.Background(), race.ID, domain.RaceStatusPlanning))

	activated, err := f.svc.ActivatePlan(context.Background(), owner, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusActive, activated.Status)

	stored, _ := f.races.GetByID(context.Background(), race.ID)
	assert.Equal(t, domain.RaceStatusTraining, stored.Status)

	// second activation is a no-op
	again, err := f.svc.ActivatePlan(context.Background(), owner, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusActive, again.Status)
	assert.Zero(t, f.days.updateCount(), "activation never touches days")
	assert.Equal(t, 84, f.days.count())
}

func TestActivatePlan_Errors(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	plan, err := f.svc.GeneratePlan(context.Background(), owner, race.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.ActivatePlan(context.Background(), owner, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = f.svc.ActivatePlan(context.Background(), primitive.NewObjectID(), plan.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, f.plans.UpdateStatus(context.Background(), plan.ID, domain.PlanStatusArchived))
	_, err = f.svc.ActivatePlan(context.Background(), owner, plan.ID)
	assert.ErrorIs(t, err, ErrPlanNotActivatable)
}

func TestActivatePlan_RejectsPlanItsRaceDoesNotReference(t *testing.T) {
	owner := primitive.NewObjectID()
	race := testRace(owner, 84)
	f := newPlanFixture(race)

	orphan := &domain.TrainingPlan{
		ID:     primitive.NewObjectID(),
		UserID: owner,
		RaceID: race.ID,
		Status: domain.PlanStatusDraft,
	}
	_, err := f.plans.Create(context.Background(), orphan)
	require.NoError(t, err)

	_, err = f.svc.ActivatePlan(context.Background(), owner, orphan.ID)
	assert.ErrorIs(t, err, ErrPlanNotActivatable)

	stored, err := f.plans.GetByID(context.Background(), orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanStatusDraft, stored.Status)
}
