package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-blackswan/focusdeck/pkg/kvstore"
)

func testSeeds() []SeedProject {
	return []SeedProject{
		{ID: "alpha", Name: "Alpha", Goal: "Ship alpha", Category: CategoryCommercial, Milestones: []string{"First cut"}},
		{ID: "bravo", Name: "Bravo", Goal: "Keep bravo alive", Category: CategorySacred, Milestones: []string{"First cut"}},
		{ID: "signalcrypt", Name: "SignalCrypt", Goal: "First batch", Category: CategoryCommercial, Milestones: []string{"First cut"}},
	}
}

func setupService(t *testing.T) (*Service, *kvstore.MemoryStore) {
	t.Helper()
	kv := kvstore.NewMemoryStore()
	svc, err := New(context.Background(), kv, testSeeds(), zerolog.Nop())
	require.NoError(t, err)
	return svc, kv
}

func TestNew_SeedsDefaults(t *testing.T) {
	svc, _ := setupService(t)

	projects := svc.Projects()
	require.Len(t, projects, 3)

	for _, p := range projects {
		st, err := svc.State(p.ID)
		require.NoError(t, err)
		assert.Equal(t, StagePlanning, st.Stage)

		led, err := svc.Ledger(p.ID)
		require.NoError(t, err)
		assert.Nil(t, led.ConfidenceScore)
	}

	// Starter checklist seeded once per project.
	assert.Len(t, svc.Milestones(""), 3)

	// First project becomes the selection.
	assert.Equal(t, "alpha", svc.Settings().SelectedProject)
}

func TestRequestStageChange_ConfidenceUnset(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	err := svc.RequestStageChange(ctx, "signalcrypt", StageBuilding)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransitionConfidenceUnset, terr.Code)

	st, err := svc.State("signalcrypt")
	require.NoError(t, err)
	assert.Equal(t, StagePlanning, st.Stage, "rejected transition must not mutate")
}

func TestRequestStageChange_ConfidenceTooLow(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(2)))

	err := svc.RequestStageChange(ctx, "alpha", StageBuilding)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransitionConfidenceTooLow, terr.Code)
}

func TestRequestStageChange_BuildingConflict(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(4)))
	require.NoError(t, svc.SetConfidence(ctx, "bravo", intPtr(5)))
	require.NoError(t, svc.RequestStageChange(ctx, "alpha", StageBuilding))

	err := svc.RequestStageChange(ctx, "bravo", StageBuilding)
	var terr *TransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, TransitionBuildingConflict, terr.Code)
	assert.Equal(t, []string{"Alpha"}, terr.Conflicts)

	st, err := svc.State("bravo")
	require.NoError(t, err)
	assert.Equal(t, StagePlanning, st.Stage)
}

func TestRequestStageChange_NeverIntroducesSecondBuilder(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	for _, id := range []string{"alpha", "bravo", "signalcrypt"} {
		require.NoError(t, svc.SetConfidence(ctx, id, intPtr(5)))
	}

	// Churn through transitions; the engine must hold the invariant.
	_ = svc.RequestStageChange(ctx, "alpha", StageBuilding)
	_ = svc.RequestStageChange(ctx, "bravo", StageBuilding)
	_ = svc.RequestStageChange(ctx, "signalcrypt", StageBuilding)
	_ = svc.RequestStageChange(ctx, "alpha", StageShipping)
	_ = svc.RequestStageChange(ctx, "bravo", StageBuilding)
	_ = svc.RequestStageChange(ctx, "signalcrypt", StageBuilding)

	building := 0
	for _, p := range svc.Projects() {
		st, err := svc.State(p.ID)
		require.NoError(t, err)
		if st.Stage == StageBuilding {
			building++
		}
	}
	assert.LessOrEqual(t, building, 1)
}

func TestRequestStageChange_PlanningAlwaysSucceeds(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(4)))
	require.NoError(t, svc.RequestStageChange(ctx, "alpha", StageBuilding))

	// No confidence, another project building: planning is still open.
	require.NoError(t, svc.RequestStageChange(ctx, "signalcrypt", StagePlanning))
	require.NoError(t, svc.RequestStageChange(ctx, "alpha", StagePlanning))
}

func TestRequestStageChange_UnknownProject(t *testing.T) {
	svc, _ := setupService(t)
	err := svc.RequestStageChange(context.Background(), "nope", StagePlanning)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestRequestStageChange_TouchesLedger(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	require.NoError(t, svc.RequestStageChange(ctx, "alpha", StageMaintenance))

	led, err := svc.Ledger("alpha")
	require.NoError(t, err)
	assert.Equal(t, base.UnixMilli(), led.LastUpdated)
}

func TestSetConfidence_RangeAndIdempotence(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.SetConfidence(ctx, "alpha", intPtr(0)), ErrConfidenceRange)
	assert.ErrorIs(t, svc.SetConfidence(ctx, "alpha", intPtr(6)), ErrConfidenceRange)

	t1 := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Minute)

	svc.now = func() time.Time { return t1 }
	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(4)))

	svc.now = func() time.Time { return t2 }
	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(4)))

	led, err := svc.Ledger("alpha")
	require.NoError(t, err)
	require.NotNil(t, led.ConfidenceScore)
	assert.Equal(t, 4, *led.ConfidenceScore)
	assert.Equal(t, t2.UnixMilli(), led.LastUpdated, "second call's timestamp wins")

	// Clearing is allowed.
	require.NoError(t, svc.SetConfidence(ctx, "alpha", nil))
	led, _ = svc.Ledger("alpha")
	assert.Nil(t, led.ConfidenceScore)
}

func TestSetLedgerText(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.SetLedgerText(ctx, "alpha", FieldMission, "one thing done well"))
	require.NoError(t, svc.SetLedgerText(ctx, "alpha", FieldKillCriteria, "no traction by Q4"))

	led, err := svc.Ledger("alpha")
	require.NoError(t, err)
	assert.Equal(t, "one thing done well", led.Mission)
	assert.Equal(t, "no traction by Q4", led.KillCriteria)
	assert.NotZero(t, led.LastUpdated)

	assert.ErrorIs(t, svc.SetLedgerText(ctx, "alpha", LedgerField("bogus"), "x"), ErrUnknownField)
}

func TestServiceStatePersistsAcrossReload(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()

	svc, err := New(ctx, kv, testSeeds(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, svc.SetConfidence(ctx, "alpha", intPtr(4)))
	require.NoError(t, svc.RequestStageChange(ctx, "alpha", StageBuilding))
	_, err = svc.AddTask(ctx, "alpha", "write the readme")
	require.NoError(t, err)

	// Fresh service over the same store sees the same world.
	svc2, err := New(ctx, kv, testSeeds(), zerolog.Nop())
	require.NoError(t, err)

	st, err := svc2.State("alpha")
	require.NoError(t, err)
	assert.Equal(t, StageBuilding, st.Stage)

	led, err := svc2.Ledger("alpha")
	require.NoError(t, err)
	require.NotNil(t, led.ConfidenceScore)
	assert.Equal(t, 4, *led.ConfidenceScore)

	tasks := svc2.Tasks("alpha")
	require.Len(t, tasks, 1)
	assert.Equal(t, "write the readme", tasks[0].Text)
}

func TestNew_CorruptCollectionFallsBackToDefault(t *testing.T) {
	kv := kvstore.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, kv.Set(ctx, keyTasks, "{{{not json"))

	svc, err := New(ctx, kv, testSeeds(), zerolog.Nop())
	require.NoError(t, err, "corrupt collections must never crash the load")
	assert.Empty(t, svc.Tasks(""))
}

func TestUpdateSettings(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	require.NoError(t, svc.UpdateSettings(ctx, "bravo", EnergyHigh))
	got := svc.Settings()
	assert.Equal(t, "bravo", got.SelectedProject)
	assert.Equal(t, EnergyHigh, got.Energy)

	assert.ErrorIs(t, svc.UpdateSettings(ctx, "missing", EnergyLow), ErrProjectNotFound)
	assert.True(t, errors.Is(svc.UpdateSettings(ctx, "alpha", Energy("turbo")), ErrInvalidEnergy))
}
