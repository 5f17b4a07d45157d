package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/legisflow/legisflow/domain/catalog"
	"github.com/legisflow/legisflow/domain/routing"
	"github.com/legisflow/legisflow/infrastructure/storage/memory"
)

func TestCatalogStore_Units(t *testing.T) {
	t.Parallel()

	store := memory.NewCatalogStore()
	ctx := context.Background()
	_ = store.SaveUnit(ctx, &catalog.Unit{ID: "plenary", Name: "Plenary", Active: true, Order: 3})
	_ = store.SaveUnit(ctx, &catalog.Unit{ID: "board", Name: "Board", Active: true, Order: 1})
	_ = store.SaveUnit(ctx, &catalog.Unit{ID: "ccj", Name: "Justice Committee", Active: false, Order: 2})

	all, err := store.ListUnits(ctx, catalog.ListFilter{})
	if err != nil {
		t.Fatalf("ListUnits() error = %v", err)
	}
	if len(all) != 3 || all[0].ID != "board" || all[1].ID != "ccj" {
		t.Errorf("ListUnits() not ordered by display order")
	}

	active, _ := store.ListUnits(ctx, catalog.ListFilter{ActiveOnly: true})
	if len(active) != 2 {
		t.Errorf("active units = %d, want 2", len(active))
	}

	if _, err := store.GetUnit(ctx, "missing"); !errors.Is(err, catalog.ErrUnitNotFound) {
		t.Errorf("GetUnit(missing) error = %v", err)
	}
	if err := store.SaveUnit(ctx, &catalog.Unit{ID: "x"}); !errors.Is(err, catalog.ErrInvalidEntry) {
		t.Errorf("SaveUnit(invalid) error = %v", err)
	}
}

func TestCatalogStore_StageTypes(t *testing.T) {
	t.Parallel()

	store := memory.NewCatalogStore()
	ctx := context.Background()
	st := &catalog.StageType{ID: "received", Name: "Received", RegimentalDeadline: 5, Unit: "board"}
	if err := store.SaveStageType(ctx, st); err != nil {
		t.Fatalf("SaveStageType() error = %v", err)
	}

	got, err := store.GetStageType(ctx, "received")
	if err != nil {
		t.Fatalf("GetStageType() error = %v", err)
	}
	if got.ResponsibleUnit() != "board" {
		t.Errorf("ResponsibleUnit() = %s, want board", got.ResponsibleUnit())
	}

	got.Name = "changed"
	again, _ := store.GetStageType(ctx, "received")
	if again.Name != "Received" {
		t.Error("GetStageType() returned a shared reference")
	}
}

func TestCatalogStore_ProposalTypes(t *testing.T) {
	t.Parallel()

	store := memory.NewCatalogStore()
	ctx := context.Background()
	_ = store.SaveProposalType(ctx, &catalog.ProposalType{ID: "pl", Code: "PL", Name: "Bill", Active: true})
	_ = store.SaveProposalType(ctx, &catalog.ProposalType{ID: "pl", Code: "PL", Name: "Bill of Law", Active: true})

	list, _ := store.ListProposalTypes(ctx, catalog.ListFilter{})
	if len(list) != 1 || list[0].Name != "Bill of Law" {
		t.Errorf("SaveProposalType() should replace existing entry")
	}
}

func TestSettingsStore(t *testing.T) {
	t.Parallel()

	store := memory.NewSettingsStore(map[string]string{routing.SettingAlertLeadDays: "2"})
	ctx := context.Background()

	v, err := store.Get(ctx, routing.SettingAlertLeadDays)
	if err != nil || v != "2" {
		t.Errorf("Get() = %q, %v", v, err)
	}
	if _, err := store.Get(ctx, routing.SettingDefaultRecipient); !errors.Is(err, routing.ErrSettingNotFound) {
		t.Errorf("Get(missing) error = %v", err)
	}

	_ = store.Set(ctx, routing.SettingDefaultRecipient, "clerk@example.org")
	all, _ := store.All(ctx)
	all["injected"] = "x"
	again, _ := store.All(ctx)
	if len(again) != 2 {
		t.Errorf("All() = %v, want 2 settings", again)
	}
}
