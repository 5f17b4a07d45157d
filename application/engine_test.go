package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/deadline"
	"github.com/legisflow/legisflow/domain/notification"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/domain/stage"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
)

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{now: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// monday is 2025-01-06 09:00 UTC.
var monday = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

type fixture struct {
	engine        *Engine
	clock         *testClock
	stages        *memory.StageStore
	history       *memory.HistoryStore
	notifications *memory.NotificationStore
	routing       *memory.RoutingStore
	catalog       *memory.CatalogStore
}

func seedCatalog(t *testing.T, store *memory.CatalogStore) {
	t.Helper()
	ctx := context.Background()

	units := []*catalog.Unit{
		{ID: "board", Name: "Presiding Board", Category: catalog.UnitCategoryPresidingBoard, Active: true, Order: 1},
		{ID: "ccj", Name: "Constitution and Justice Committee", Category: catalog.UnitCategoryCommittee, Active: true, Order: 2},
		{ID: "plenary", Name: "Plenary", Category: catalog.UnitCategoryPlenary, Active: true, Order: 3},
	}
	for _, u := range units {
		if err := store.SaveUnit(ctx, u); err != nil {
			t.Fatalf("SaveUnit() error = %v", err)
		}
	}

	stageTypes := []*catalog.StageType{
		{ID: "received", Name: "Received", RegimentalDeadline: 5, UnitID: "board", Order: 1},
		{ID: "review", Name: "Committee Review", RegimentalDeadline: 10, Order: 2},
		{ID: "vote", Name: "Plenary Vote", Unit: "plenary", Order: 3},
		{ID: "filing", Name: "Filing", Order: 4},
	}
	for _, st := range stageTypes {
		if err := store.SaveStageType(ctx, st); err != nil {
			t.Fatalf("SaveStageType() error = %v", err)
		}
	}

	if err := store.SaveProposalType(ctx, &catalog.ProposalType{ID: "bill", Code: "PL", Name: "Bill", Active: true}); err != nil {
		t.Fatalf("SaveProposalType() error = %v", err)
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		clock:         newTestClock(monday),
		stages:        memory.NewStageStore(),
		history:       memory.NewHistoryStore(),
		notifications: memory.NewNotificationStore(),
		routing:       memory.NewRoutingStore(),
		catalog:       memory.NewCatalogStore(),
	}
	seedCatalog(t, f.catalog)

	base := []Option{
		WithCatalog(f.catalog),
		WithStageStore(f.stages),
		WithHistoryStore(f.history),
		WithNotificationStore(f.notifications),
		WithRoutingStore(f.routing),
		WithClock(f.clock.Now),
	}
	engine, err := NewEngineWithOptions(append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewEngineWithOptions() error = %v", err)
	}
	f.engine = engine
	return f
}

// addTramitationRule stores the three-step rule used across scenarios:
// Received@board, Review@ccj (30 days), Vote@plenary (15 days).
func (f *fixture) addTramitationRule(t *testing.T, conditions map[string]routing.Condition) *routing.Rule {
	t.Helper()
	ctx := context.Background()

	rule, err := f.engine.CreateRule(ctx, &routing.Rule{
		Name:       "Ordinary bill",
		Conditions: conditions,
		Active:     true,
		Order:      1,
	})
	if err != nil {
		t.Fatalf("CreateRule() error = %v", err)
	}

	steps := []*routing.Step{
		{Name: "Received", StageTypeID: "received", UnitID: "board"},
		{
			Name:          "Committee Review",
			Description:   "Sent to committee",
			StageTypeID:   "review",
			UnitID:        "ccj",
			DeadlineDays:  30,
			Notifications: []routing.Payload{{Channel: "email", Recipient: "ccj@chamber.example"}, {}},
			Alerts:        []routing.Payload{{Extra: map[string]string{"level": "high"}}},
		},
		{Name: "Plenary Vote", StageTypeID: "vote", UnitID: "plenary", DeadlineDays: 15},
	}
	for _, s := range steps {
		s.RuleID = rule.ID
		if _, err := f.engine.AddStep(ctx, s); err != nil {
			t.Fatalf("AddStep() error = %v", err)
		}
	}
	return rule
}

func (f *fixture) createInitial(t *testing.T, proposalID string) *stage.Instance {
	t.Helper()
	inst, err := f.engine.CreateInitialStage(context.Background(), proposalID, "received", "", CreateOptions{ActorID: "clerk"})
	if err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}
	return inst
}

func TestNewEngine_RequiresStores(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config EngineConfig
	}{
		{"missing catalog", EngineConfig{Stages: memory.NewStageStore(), Routing: memory.NewRoutingStore()}},
		{"missing stages", EngineConfig{Catalog: memory.NewCatalogStore(), Routing: memory.NewRoutingStore()}},
		{"missing routing", EngineConfig{Catalog: memory.NewCatalogStore(), Stages: memory.NewStageStore()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewEngine(tt.config); !errors.Is(err, ErrMissingStore) {
				t.Errorf("NewEngine() error = %v, want ErrMissingStore", err)
			}
		})
	}
}

func TestNewEngine_Defaults(t *testing.T) {
	t.Parallel()

	e, err := NewEngine(EngineConfig{
		Catalog: memory.NewCatalogStore(),
		Stages:  memory.NewStageStore(),
		Routing: memory.NewRoutingStore(),
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if e.history == nil || e.notifications == nil || e.settings == nil {
		t.Error("optional stores should default to memory stores")
	}
	if e.lockTTL != DefaultLockTTL {
		t.Errorf("lockTTL = %v, want %v", e.lockTTL, DefaultLockTTL)
	}
	if e.Lenient() {
		t.Error("engine should be strict by default")
	}
}

func TestCreateInitialStage(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	inst := f.createInitial(t, "p-1")

	if inst.UnitID != "board" {
		t.Errorf("UnitID = %s, want stage type unit board", inst.UnitID)
	}
	if inst.Automatic {
		t.Error("initial stage must not be automatic")
	}
	want := deadline.AddBusinessDays(monday, 5)
	if inst.Deadline == nil || !inst.Deadline.Equal(want) {
		t.Errorf("Deadline = %v, want %v", inst.Deadline, want)
	}
	if inst.DaysOverdue == nil || *inst.DaysOverdue != 0 {
		t.Errorf("DaysOverdue = %v, want 0", inst.DaysOverdue)
	}

	entries, _ := f.engine.Entries(ctx, "p-1")
	if len(entries) != 1 || entries[0].Action != "CREATED" {
		t.Errorf("history = %v, want one CREATED entry", entries)
	}

	_, err := f.engine.CreateInitialStage(ctx, "p-1", "received", "", CreateOptions{})
	if !errors.Is(err, stage.ErrStageInProgress) {
		t.Errorf("second CreateInitialStage() error = %v, want ErrStageInProgress", err)
	}

	_, err = f.engine.CreateInitialStage(ctx, "p-2", "unknown", "board", CreateOptions{})
	if !errors.Is(err, catalog.ErrStageTypeNotFound) {
		t.Errorf("unknown stage type error = %v, want ErrStageTypeNotFound", err)
	}

	_, err = f.engine.CreateInitialStage(ctx, "p-3", "received", "senate", CreateOptions{})
	if !errors.Is(err, catalog.ErrUnitNotFound) {
		t.Errorf("unknown unit error = %v, want ErrUnitNotFound", err)
	}

	_, err = f.engine.CreateInitialStage(ctx, "p-4", "ghost", "board", CreateOptions{DeadlineDays: 5})
	if !errors.Is(err, catalog.ErrStageTypeNotFound) {
		t.Errorf("unknown stage type with explicit deadline error = %v, want ErrStageTypeNotFound", err)
	}

	_, err = f.engine.CreateInitialStage(ctx, "p-5", "filing", "senate", CreateOptions{DeadlineDays: 5})
	if !errors.Is(err, catalog.ErrUnitNotFound) {
		t.Errorf("unknown unit with explicit deadline error = %v, want ErrUnitNotFound", err)
	}
	if f.stages.Len() != 1 {
		t.Errorf("stages = %d, want only the first stage", f.stages.Len())
	}
}

func TestCreateInitialStage_CancelledContext(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.engine.CreateInitialStage(ctx, "p-1", "received", "", CreateOptions{}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if f.stages.Len() != 0 {
		t.Error("no stage should be written")
	}
}

func TestQueries_CurrentAndHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addTramitationRule(t, nil)

	if cur, err := f.engine.CurrentStage(ctx, "p-1"); err != nil || cur != nil {
		t.Fatalf("CurrentStage() on untouched proposal = %v, %v", cur, err)
	}

	first := f.createInitial(t, "p-1")
	f.clock.Set(monday.Add(time.Hour))
	res, err := f.engine.Advance(ctx, first.ID, AdvanceOptions{})
	if err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	cur, err := f.engine.CurrentStage(ctx, "p-1")
	if err != nil {
		t.Fatalf("CurrentStage() error = %v", err)
	}
	if cur.ID != res.NewStage.ID {
		t.Errorf("CurrentStage() = %s, want %s", cur.ID, res.NewStage.ID)
	}

	all, err := f.engine.StageHistory(ctx, "p-1")
	if err != nil {
		t.Fatalf("StageHistory() error = %v", err)
	}
	if len(all) != 2 || all[0].ID != first.ID || all[1].ID != res.NewStage.ID {
		t.Errorf("StageHistory() order wrong: %v", all)
	}

	if _, err := f.engine.GetStage(ctx, "missing"); !errors.Is(err, stage.ErrStageNotFound) {
		t.Errorf("GetStage(missing) error = %v", err)
	}
}

func TestListOverdue(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	late := f.createInitial(t, "p-late")
	if _, err := f.engine.CreateInitialStage(ctx, "p-ok", "received", "", CreateOptions{DeadlineDays: 20}); err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}
	if _, err := f.engine.CreateInitialStage(ctx, "p-none", "filing", "board", CreateOptions{}); err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}

	// Five business days from Monday is the next Monday; check two days later.
	f.clock.Set(monday.AddDate(0, 0, 9))

	overdue, err := f.engine.ListOverdue(ctx)
	if err != nil {
		t.Fatalf("ListOverdue() error = %v", err)
	}
	if len(overdue) != 1 || overdue[0].ID != late.ID {
		t.Fatalf("ListOverdue() = %v, want only %s", overdue, late.ID)
	}
	if *overdue[0].DaysOverdue != 2 {
		t.Errorf("DaysOverdue = %d, want 2", *overdue[0].DaysOverdue)
	}

	stored, _ := f.engine.GetStage(ctx, late.ID)
	if *stored.DaysOverdue != 0 {
		t.Error("ListOverdue must not persist DaysOverdue")
	}
}

func TestListDueWithin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t, WithSettings(memory.NewSettingsStore(map[string]string{
		routing.SettingAlertLeadDays: "3",
	})))

	soon, err := f.engine.CreateInitialStage(ctx, "p-soon", "received", "", CreateOptions{DeadlineDays: 3})
	if err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}
	if _, err := f.engine.CreateInitialStage(ctx, "p-later", "received", "", CreateOptions{DeadlineDays: 12}); err != nil {
		t.Fatalf("CreateInitialStage() error = %v", err)
	}

	due, err := f.engine.ListDueWithin(ctx, 0)
	if err != nil {
		t.Fatalf("ListDueWithin() error = %v", err)
	}
	if len(due) != 1 || due[0].ID != soon.ID {
		t.Errorf("ListDueWithin(setting) = %v, want %s", due, soon.ID)
	}

	due, err = f.engine.ListDueWithin(ctx, 15)
	if err != nil {
		t.Fatalf("ListDueWithin() error = %v", err)
	}
	if len(due) != 2 {
		t.Errorf("ListDueWithin(15) returned %d, want 2", len(due))
	}

	if err := f.engine.Settings().Set(ctx, routing.SettingAlertLeadDays, "soon"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := f.engine.ListDueWithin(ctx, 0); !errors.Is(err, routing.ErrInvalidSetting) {
		t.Errorf("ListDueWithin() error = %v, want ErrInvalidSetting", err)
	}
}

func TestListCatalog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	units, err := f.engine.ListCatalog(ctx, catalog.KindUnits, true)
	if err != nil {
		t.Fatalf("ListCatalog() error = %v", err)
	}
	want := []string{"board", "ccj", "plenary"}
	if len(units) != len(want) {
		t.Fatalf("ListCatalog(units) = %d entries, want %d", len(units), len(want))
	}
	for i, u := range units {
		if u.EntryID() != want[i] {
			t.Errorf("units[%d] = %s, want %s", i, u.EntryID(), want[i])
		}
	}

	if _, err := f.engine.ListCatalog(ctx, "sessions", false); !errors.Is(err, catalog.ErrUnknownKind) {
		t.Errorf("ListCatalog(sessions) error = %v", err)
	}
}

func TestNotificationsQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	f.addTramitationRule(t, nil)

	first := f.createInitial(t, "p-1")
	if _, err := f.engine.Advance(ctx, first.ID, AdvanceOptions{}); err != nil {
		t.Fatalf("Advance() error = %v", err)
	}

	pending, err := f.engine.Notifications(ctx, notification.ListFilter{
		ProposalID: "p-1",
		Status:     []notification.Status{notification.StatusPending},
	})
	if err != nil {
		t.Fatalf("Notifications() error = %v", err)
	}
	if len(pending) != 3 {
		t.Errorf("pending notifications = %d, want 3", len(pending))
	}
}
