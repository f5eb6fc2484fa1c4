package models_test

import (
	"testing"

	"bitbucket.org/frotanube/fleet_backend/models"
	"bitbucket.org/frotanube/fleet_backend/utils"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.InventoryItemStatus
		want     bool
	}{
		{models.ItemStatusAvailable, models.ItemStatusInUse, true},
		{models.ItemStatusAvailable, models.ItemStatusEndOfLife, true},
		{models.ItemStatusInUse, models.ItemStatusEndOfLife, true},
		{models.ItemStatusInUse, models.ItemStatusAvailable, false},
		{models.ItemStatusEndOfLife, models.ItemStatusAvailable, false},
		{models.ItemStatusEndOfLife, models.ItemStatusInUse, false},
		{models.ItemStatusAvailable, models.ItemStatusAvailable, false},
	}
	for _, c := range cases {
		if got := models.CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v; want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestInventoryItemStatus_IsTerminal(t *testing.T) {
	if models.ItemStatusAvailable.IsTerminal() || models.ItemStatusInUse.IsTerminal() {
		t.Error("AVAILABLE and IN_USE must not be terminal")
	}
	if !models.ItemStatusEndOfLife.IsTerminal() {
		t.Error("END_OF_LIFE must be terminal")
	}
}

func TestParseInventoryItemStatus(t *testing.T) {
	for _, valid := range []string{"AVAILABLE", "IN_USE", "END_OF_LIFE"} {
		if _, err := models.ParseInventoryItemStatus(valid); err != nil {
			t.Errorf("ParseInventoryItemStatus(%q): unexpected error %v", valid, err)
		}
	}
	for _, invalid := range []string{"", "available", "INSTALLED", "IN USE"} {
		if _, err := models.ParseInventoryItemStatus(invalid); err == nil {
			t.Errorf("ParseInventoryItemStatus(%q): expected error", invalid)
		}
	}
}

func TestParsePartCategory(t *testing.T) {
	for _, valid := range []string{"Part", "Fluid", "Consumable", "Tire", "Other"} {
		if _, err := models.ParsePartCategory(valid); err != nil {
			t.Errorf("ParsePartCategory(%q): unexpected error %v", valid, err)
		}
	}
	if _, err := models.ParsePartCategory("Engine"); err == nil {
		t.Error("ParsePartCategory(\"Engine\"): expected error")
	}
}

func txn(id int, txnType models.InventoryTransactionType) *models.InventoryTransaction {
	return &models.InventoryTransaction{ID: id, InventoryItemId: 1, Type: txnType}
}

func TestReplayItemStatus(t *testing.T) {
	cases := []struct {
		name string
		in   []*models.InventoryTransaction
		want models.InventoryItemStatus
	}{
		{
			name: "entry only",
			in:   []*models.InventoryTransaction{txn(1, models.TransactionTypeEntry)},
			want: models.ItemStatusAvailable,
		},
		{
			name: "initial adjustment only",
			in:   []*models.InventoryTransaction{txn(1, models.TransactionTypeInitialAdjustment)},
			want: models.ItemStatusAvailable,
		},
		{
			name: "entry then install",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeInstallation),
			},
			want: models.ItemStatusInUse,
		},
		{
			name: "full lifecycle",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeInstallation),
				txn(3, models.TransactionTypeEndOfLife),
			},
			want: models.ItemStatusEndOfLife,
		},
		{
			name: "install then discard",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeInstallation),
				txn(3, models.TransactionTypeDiscard),
			},
			want: models.ItemStatusEndOfLife,
		},
		{
			name: "retired while available",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeEndOfLife),
			},
			want: models.ItemStatusEndOfLife,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := models.ReplayItemStatus(c.in)
			if err != nil {
				t.Fatalf("ReplayItemStatus: %v", err)
			}
			if got != c.want {
				t.Fatalf("ReplayItemStatus = %s; want %s", got, c.want)
			}
		})
	}
}

func TestReplayItemStatus_OrderIndependent(t *testing.T) {
	shuffled := []*models.InventoryTransaction{
		txn(3, models.TransactionTypeEndOfLife),
		txn(1, models.TransactionTypeEntry),
		txn(2, models.TransactionTypeInstallation),
	}
	got, err := models.ReplayItemStatus(shuffled)
	if err != nil {
		t.Fatalf("ReplayItemStatus: %v", err)
	}
	if got != models.ItemStatusEndOfLife {
		t.Fatalf("ReplayItemStatus = %s; want %s", got, models.ItemStatusEndOfLife)
	}
}

func TestReplayItemStatus_RejectsIllegalLedgers(t *testing.T) {
	cases := []struct {
		name string
		in   []*models.InventoryTransaction
	}{
		{name: "empty ledger", in: nil},
		{
			name: "install without entry",
			in:   []*models.InventoryTransaction{txn(1, models.TransactionTypeInstallation)},
		},
		{
			name: "double entry",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeEntry),
			},
		},
		{
			name: "install after end of life",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeEndOfLife),
				txn(3, models.TransactionTypeInstallation),
			},
		},
		{
			name: "retire twice",
			in: []*models.InventoryTransaction{
				txn(1, models.TransactionTypeEntry),
				txn(2, models.TransactionTypeEndOfLife),
				txn(3, models.TransactionTypeDiscard),
			},
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := models.ReplayItemStatus(c.in); err == nil {
				t.Fatal("expected error")
			} else if !utils.IsValidationError(err) {
				t.Fatalf("expected validation error; got %v", err)
			}
		})
	}
}
