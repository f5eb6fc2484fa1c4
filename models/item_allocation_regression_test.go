package models_test

import (
	"sync"
	"testing"

	"bitbucket.org/frotanube/fleet_backend/models"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

// Regression: concurrent stock entries for the same part must never produce
// duplicate item identifiers; the sequence stays dense.
func TestAddInventoryItems_ConcurrentAllocation(t *testing.T) {
	ctx := setupIntegration(t)

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:     "Palheta limpador",
		Category: models.PartCategoryConsumable,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	const workers = 8
	const perWorker = 5
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := models.AddInventoryItems(ctx, &models.NewInventoryItems{
				PartId:   part.ID,
				Quantity: perWorker,
			})
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("AddInventoryItems: %v", err)
	}

	items, err := models.ListInventoryItems(ctx, part.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	if len(items) != workers*perWorker {
		t.Fatalf("expected %d items; got %d", workers*perWorker, len(items))
	}
	seen := make(map[int]bool, len(items))
	for _, item := range items {
		if seen[item.ItemIdentifier] {
			t.Fatalf("duplicate item identifier %d", item.ItemIdentifier)
		}
		seen[item.ItemIdentifier] = true
	}
	for i := 1; i <= workers*perWorker; i++ {
		if !seen[i] {
			t.Fatalf("identifier sequence has a hole at %d", i)
		}
	}

	// One ENTRY ledger row per item.
	transactions, err := models.GetTransactionsByPartId(ctx, part.ID, 0, 0)
	if err != nil {
		t.Fatalf("GetTransactionsByPartId: %v", err)
	}
	entries := 0
	for _, txn := range transactions {
		if txn.Type == models.TransactionTypeEntry {
			entries++
		}
	}
	if entries != workers*perWorker {
		t.Fatalf("expected %d ENTRY ledger rows; got %d", workers*perWorker, entries)
	}
}

// Regression: every read and write is scoped to the caller's organization;
// another org's resources behave as if they do not exist.
func TestTenantIsolation(t *testing.T) {
	ctx := setupIntegration(t)

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Radiador",
		Category:        models.PartCategoryPart,
		SerialNumber:    "RAD-001",
		InitialQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	other, err := models.CreateOrganization(ctx, &models.NewOrganization{Name: "Outra Frota"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	otherCtx := utils.SetOrganizationIdInContext(ctx, other.ID)

	if _, err := models.GetPartWithStock(otherCtx, part.ID); err == nil {
		t.Fatal("expected NotFound for another org's part")
	} else if !utils.IsNotFoundError(err) {
		t.Fatalf("expected not found error; got %v", err)
	}

	if _, err := models.AddInventoryItems(otherCtx, &models.NewInventoryItems{
		PartId: part.ID, Quantity: 1,
	}); err == nil {
		t.Fatal("expected NotFound adding items to another org's part")
	} else if !utils.IsNotFoundError(err) {
		t.Fatalf("expected not found error; got %v", err)
	}

	items, err := models.ListInventoryItems(ctx, part.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	if _, err := models.ChangeInventoryItemStatus(otherCtx, items[0].ID, &models.ItemTransition{
		NewStatus: models.ItemStatusEndOfLife,
	}); err == nil {
		t.Fatal("expected NotFound transitioning another org's item")
	} else if !utils.IsNotFoundError(err) {
		t.Fatalf("expected not found error; got %v", err)
	}

	// Same serial number in another org is not a conflict.
	if _, err := models.CreatePart(otherCtx, &models.NewPart{
		Name:         "Radiador",
		Category:     models.PartCategoryPart,
		SerialNumber: "RAD-001",
	}); err != nil {
		t.Fatalf("CreatePart in other org: %v", err)
	}
}

// Regression: the part listing carries per-row derived stock and only counts
// AVAILABLE items.
func TestListParts_DerivedStock(t *testing.T) {
	ctx := setupIntegration(t)

	withStock, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Disco de freio",
		Category:        models.PartCategoryPart,
		Brand:           "Fremax",
		SerialNumber:    "FRX-9001",
		Value:           decimal.NewFromInt(320),
		InitialQuantity: 4,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	empty, err := models.CreatePart(ctx, &models.NewPart{
		Name:     "Junta do cabeçote",
		Category: models.PartCategoryPart,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	// Retire one item: stock 4 -> 3.
	items, err := models.ListInventoryItems(ctx, withStock.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	if _, err := models.ChangeInventoryItemStatus(ctx, items[0].ID, &models.ItemTransition{
		NewStatus: models.ItemStatusEndOfLife,
	}); err != nil {
		t.Fatalf("ChangeInventoryItemStatus: %v", err)
	}

	parts, err := models.ListParts(ctx, "", 0, 0)
	if err != nil {
		t.Fatalf("ListParts: %v", err)
	}
	stocks := make(map[int]int, len(parts))
	for _, p := range parts {
		stocks[p.ID] = p.Stock
	}
	if stocks[withStock.ID] != 3 {
		t.Fatalf("expected derived stock 3; got %d", stocks[withStock.ID])
	}
	if stocks[empty.ID] != 0 {
		t.Fatalf("expected derived stock 0; got %d", stocks[empty.ID])
	}

	// Search narrows by name and by brand.
	filtered, err := models.ListParts(ctx, "freio", 0, 0)
	if err != nil {
		t.Fatalf("ListParts(search): %v", err)
	}
	if len(filtered) != 1 || filtered[0].ID != withStock.ID {
		t.Fatalf("expected search to match exactly the brake disc; got %d rows", len(filtered))
	}
	byBrand, err := models.ListParts(ctx, "fremax", 0, 0)
	if err != nil {
		t.Fatalf("ListParts(brand search): %v", err)
	}
	if len(byBrand) != 1 || byBrand[0].ID != withStock.ID {
		t.Fatalf("expected brand search to match exactly the brake disc; got %d rows", len(byBrand))
	}

	// Duplicate serial number in the same org is a conflict; a duplicate
	// name alone is not.
	if _, err := models.CreatePart(ctx, &models.NewPart{
		Name:         "Disco de freio dianteiro",
		Category:     models.PartCategoryPart,
		SerialNumber: "FRX-9001",
	}); err == nil {
		t.Fatal("expected conflict on duplicate serial number")
	} else if !utils.IsConflictError(err) {
		t.Fatalf("expected conflict error; got %v", err)
	}
	if _, err := models.CreatePart(ctx, &models.NewPart{
		Name:     "Disco de freio",
		Category: models.PartCategoryPart,
	}); err != nil {
		t.Fatalf("duplicate name without serial number must be allowed: %v", err)
	}
}
