package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/models"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"bitbucket.org/frotanube/fleet_backend/workflow"
	"github.com/shopspring/decimal"
)

// Regression: installing a part on a vehicle must atomically pick the FIFO
// item, move it to IN_USE, append the INSTALLATION ledger entry, register
// the component and project the part value as a vehicle cost.
func TestInstallComponent_FullLifecycle(t *testing.T) {
	ctx := setupIntegration(t)

	vehicle, err := models.CreateVehicle(ctx, &models.NewVehicle{LicensePlate: "ABC1D23", Brand: "Volvo", Model: "FH 540"})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Filtro de combustível",
		Category:        models.PartCategoryPart,
		Value:           decimal.NewFromFloat(120.50),
		InitialQuantity: 3,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	if part.Stock != 3 {
		t.Fatalf("expected initial stock 3; got %d", part.Stock)
	}

	component, err := workflow.InstallComponent(ctx, part.ID, vehicle.ID, time.Time{}, "troca programada")
	if err != nil {
		t.Fatalf("InstallComponent: %v", err)
	}

	// FIFO: the lowest identifier goes first.
	history, err := models.GetItemWithHistory(ctx, component.InventoryItemId)
	if err != nil {
		t.Fatalf("GetItemWithHistory: %v", err)
	}
	if history.Item.ItemIdentifier != 1 {
		t.Fatalf("expected FIFO item identifier 1; got %d", history.Item.ItemIdentifier)
	}
	if history.Item.Status != models.ItemStatusInUse {
		t.Fatalf("expected item status IN_USE; got %s", history.Item.Status)
	}
	if history.Item.VehicleId == nil || *history.Item.VehicleId != vehicle.ID {
		t.Fatalf("expected installed item linked to vehicle %d", vehicle.ID)
	}
	if history.Item.InstalledAt == nil {
		t.Fatal("expected installed item to carry the installation time")
	}
	if len(history.Transactions) != 2 {
		t.Fatalf("expected 2 ledger entries; got %d", len(history.Transactions))
	}
	if history.Transactions[0].Type != models.TransactionTypeEntry {
		t.Fatalf("expected first entry ENTRY; got %s", history.Transactions[0].Type)
	}
	install := history.Transactions[1]
	if install.Type != models.TransactionTypeInstallation {
		t.Fatalf("expected second entry INSTALLATION; got %s", install.Type)
	}
	if install.VehicleId == nil || *install.VehicleId != vehicle.ID {
		t.Fatalf("expected installation entry linked to vehicle %d", vehicle.ID)
	}

	wantDescription := fmt.Sprintf("Instalação: %s (Cód. Item: %d)", part.Name, history.Item.ItemIdentifier)
	if component.Description != wantDescription {
		t.Fatalf("component description = %q; want %q", component.Description, wantDescription)
	}
	if component.InventoryTransactionId != install.ID {
		t.Fatalf("component must link the installation ledger entry")
	}

	// Cost projection: one PartsComponents cost carrying the part value.
	costs, err := models.ListVehicleCosts(ctx, vehicle.ID, nil, nil)
	if err != nil {
		t.Fatalf("ListVehicleCosts: %v", err)
	}
	if len(costs) != 1 {
		t.Fatalf("expected 1 vehicle cost; got %d", len(costs))
	}
	if costs[0].CostType != models.CostTypePartsComponents {
		t.Fatalf("expected cost type PartsComponents; got %s", costs[0].CostType)
	}
	if costs[0].Amount.Cmp(decimal.NewFromFloat(120.50)) != 0 {
		t.Fatalf("expected cost amount 120.50; got %s", costs[0].Amount.String())
	}
	if costs[0].Description != wantDescription {
		t.Fatalf("cost description = %q; want %q", costs[0].Description, wantDescription)
	}

	// Stock shrank to 2.
	part, err = models.GetPartWithStock(ctx, part.ID)
	if err != nil {
		t.Fatalf("GetPartWithStock: %v", err)
	}
	if part.Stock != 2 {
		t.Fatalf("expected stock 2 after installation; got %d", part.Stock)
	}

	// Discard: component closes, item goes terminal with a DISCARD entry.
	discarded, err := workflow.DiscardComponent(ctx, component.ID, time.Time{}, "desgaste")
	if err != nil {
		t.Fatalf("DiscardComponent: %v", err)
	}
	if utils.DereferencePtr(discarded.IsActive) {
		t.Fatal("expected discarded component inactive")
	}
	if discarded.UninstallationDate == nil {
		t.Fatal("expected uninstallation date set")
	}

	history, err = models.GetItemWithHistory(ctx, component.InventoryItemId)
	if err != nil {
		t.Fatalf("GetItemWithHistory after discard: %v", err)
	}
	if history.Item.Status != models.ItemStatusEndOfLife {
		t.Fatalf("expected item END_OF_LIFE after discard; got %s", history.Item.Status)
	}
	last := history.Transactions[len(history.Transactions)-1]
	if last.Type != models.TransactionTypeDiscard {
		t.Fatalf("expected final entry DISCARD; got %s", last.Type)
	}

	// The whole ledger still replays to the stored status.
	replayed, err := models.ReplayItemStatus(history.Transactions)
	if err != nil {
		t.Fatalf("ReplayItemStatus: %v", err)
	}
	if replayed != history.Item.Status {
		t.Fatalf("replayed status %s != stored status %s", replayed, history.Item.Status)
	}

	// Discarding twice is rejected.
	if _, err := workflow.DiscardComponent(ctx, component.ID, time.Time{}, ""); err == nil {
		t.Fatal("expected error on double discard")
	} else if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error on double discard; got %v", err)
	}
}

// Regression: illegal lifecycle transitions must be rejected and leave no
// ledger entries behind.
func TestChangeInventoryItemStatus_RejectsIllegalTransitions(t *testing.T) {
	ctx := setupIntegration(t)

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Correia dentada",
		Category:        models.PartCategoryPart,
		InitialQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	items, err := models.ListInventoryItems(ctx, part.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	itemId := items[0].ID

	// AVAILABLE -> END_OF_LIFE directly is allowed (damaged on the shelf).
	if _, err := models.ChangeInventoryItemStatus(ctx, itemId, &models.ItemTransition{
		NewStatus: models.ItemStatusEndOfLife,
		Notes:     "danificado na prateleira",
	}); err != nil {
		t.Fatalf("ChangeInventoryItemStatus to END_OF_LIFE: %v", err)
	}

	// Terminal means terminal.
	for _, target := range []models.InventoryItemStatus{models.ItemStatusAvailable, models.ItemStatusInUse} {
		_, err := models.ChangeInventoryItemStatus(ctx, itemId, &models.ItemTransition{NewStatus: target})
		if err == nil {
			t.Fatalf("expected error transitioning END_OF_LIFE -> %s", target)
		}
		if !utils.IsValidationError(err) {
			t.Fatalf("expected validation error; got %v", err)
		}
	}

	history, err := models.GetItemWithHistory(ctx, itemId)
	if err != nil {
		t.Fatalf("GetItemWithHistory: %v", err)
	}
	if len(history.Transactions) != 2 {
		t.Fatalf("rejected transitions must not append ledger entries; got %d", len(history.Transactions))
	}

	// Installing without a vehicle is rejected and rolled back.
	part2, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Amortecedor",
		Category:        models.PartCategoryPart,
		InitialQuantity: 1,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	items2, err := models.ListInventoryItems(ctx, part2.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	if _, err := models.ChangeInventoryItemStatus(ctx, items2[0].ID, &models.ItemTransition{
		NewStatus: models.ItemStatusInUse,
	}); err == nil {
		t.Fatal("expected error installing without vehicle")
	}
	history2, err := models.GetItemWithHistory(ctx, items2[0].ID)
	if err != nil {
		t.Fatalf("GetItemWithHistory: %v", err)
	}
	if history2.Item.Status != models.ItemStatusAvailable {
		t.Fatalf("failed installation must roll back; item status %s", history2.Item.Status)
	}
	if len(history2.Transactions) != 1 {
		t.Fatalf("failed installation must roll back its ledger entry; got %d entries", len(history2.Transactions))
	}
}

// Regression: a transition that drops available stock below the part's
// minimum queues exactly one low stock notification in the outbox, committed
// with the stock movement.
func TestLowStockNotification_Queued(t *testing.T) {
	ctx := setupIntegration(t)

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Lona de freio",
		Category:        models.PartCategoryPart,
		MinimumStock:    2,
		InitialQuantity: 2,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}
	items, err := models.ListInventoryItems(ctx, part.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}

	// 2 -> 1 crosses the minimum.
	if _, err := models.ChangeInventoryItemStatus(ctx, items[0].ID, &models.ItemTransition{
		NewStatus: models.ItemStatusEndOfLife,
	}); err != nil {
		t.Fatalf("ChangeInventoryItemStatus: %v", err)
	}

	pending := models.NotificationPublishStatusPending
	records, err := models.ListNotifications(ctx, &pending, 0, 0)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	var lowStock []*models.NotificationRecord
	for _, r := range records {
		if r.NotificationType == models.NotificationTypeLowStock && r.RelatedEntityId == part.ID {
			lowStock = append(lowStock, r)
		}
	}
	if len(lowStock) != 1 {
		t.Fatalf("expected 1 low stock notification; got %d", len(lowStock))
	}
	if !strings.Contains(lowStock[0].Message, part.Name) {
		t.Fatalf("notification message %q must name the part", lowStock[0].Message)
	}
	if !utils.DereferencePtr(lowStock[0].SendToManagers) {
		t.Fatal("low stock notifications go to managers")
	}
}

// Regression: installing a part with no AVAILABLE items fails as a business
// rule violation and leaves no rows behind.
func TestInstallComponent_InsufficientStock(t *testing.T) {
	ctx := setupIntegration(t)

	vehicle, err := models.CreateVehicle(ctx, &models.NewVehicle{LicensePlate: "XYZ9A88", Brand: "Scania", Model: "R 450"})
	if err != nil {
		t.Fatalf("CreateVehicle: %v", err)
	}
	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:     "Correia dentada",
		Category: models.PartCategoryPart,
		Value:    decimal.NewFromInt(85),
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	_, err = workflow.InstallComponent(ctx, part.ID, vehicle.ID, time.Time{}, "")
	if err == nil {
		t.Fatal("expected install on an empty part to fail")
	}
	if !utils.IsValidationError(err) {
		t.Fatalf("expected validation error; got %v", err)
	}
	if !strings.Contains(err.Error(), "insufficient stock") {
		t.Fatalf("expected insufficient stock message; got %v", err)
	}

	// Nothing was created: no ledger entries, components or costs.
	db := config.GetDB()
	var ledgerCount int64
	if err := db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("part_id = ?", part.ID).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("expected empty ledger; got %d entries", ledgerCount)
	}
	components, err := models.ListVehicleComponents(ctx, vehicle.ID, true)
	if err != nil {
		t.Fatalf("ListVehicleComponents: %v", err)
	}
	if len(components) != 0 {
		t.Fatalf("expected no components; got %d", len(components))
	}
	costs, err := models.ListVehicleCosts(ctx, vehicle.ID, nil, nil)
	if err != nil {
		t.Fatalf("ListVehicleCosts: %v", err)
	}
	if len(costs) != 0 {
		t.Fatalf("expected no costs; got %d", len(costs))
	}
}

// Regression: a part with AVAILABLE or IN_USE items cannot be deleted; once
// every item is END_OF_LIFE deletion succeeds and takes the items and their
// ledger entries with it.
func TestDeletePart_BlockedWhileItemsLive(t *testing.T) {
	ctx := setupIntegration(t)

	part, err := models.CreatePart(ctx, &models.NewPart{
		Name:            "Bateria 100Ah",
		Category:        models.PartCategoryPart,
		InitialQuantity: 2,
	})
	if err != nil {
		t.Fatalf("CreatePart: %v", err)
	}

	if _, err := models.DeletePart(ctx, part.ID); err == nil {
		t.Fatal("expected delete to be blocked while items are AVAILABLE")
	} else if !utils.IsConflictError(err) {
		t.Fatalf("expected conflict error; got %v", err)
	}

	items, err := models.ListInventoryItems(ctx, part.ID, nil)
	if err != nil {
		t.Fatalf("ListInventoryItems: %v", err)
	}
	for _, item := range items {
		if _, err := models.ChangeInventoryItemStatus(ctx, item.ID, &models.ItemTransition{
			NewStatus: models.ItemStatusEndOfLife,
		}); err != nil {
			t.Fatalf("ChangeInventoryItemStatus: %v", err)
		}
	}

	if _, err := models.DeletePart(ctx, part.ID); err != nil {
		t.Fatalf("DeletePart after all items retired: %v", err)
	}

	// Items and ledger entries cascade with the part.
	db := config.GetDB()
	var itemCount int64
	if err := db.WithContext(ctx).Model(&models.InventoryItem{}).
		Where("part_id = ?", part.ID).Count(&itemCount).Error; err != nil {
		t.Fatalf("count items: %v", err)
	}
	if itemCount != 0 {
		t.Fatalf("expected items removed with the part; %d remain", itemCount)
	}
	var ledgerCount int64
	if err := db.WithContext(ctx).Model(&models.InventoryTransaction{}).
		Where("part_id = ?", part.ID).Count(&ledgerCount).Error; err != nil {
		t.Fatalf("count ledger: %v", err)
	}
	if ledgerCount != 0 {
		t.Fatalf("expected ledger entries removed with the part; %d remain", ledgerCount)
	}
}

// --- integration plumbing ---

func setupIntegration(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", fmt.Sprintf("127.0.0.1:%s", redisPort))
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "fleet_test")

	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()
	models.MigrateTable()

	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test")

	organization, err := models.CreateOrganization(ctx, &models.NewOrganization{
		Name:  fmt.Sprintf("Frota Teste %d", time.Now().UnixNano()),
		Email: "teste@frota.test",
	})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	return utils.SetOrganizationIdInContext(ctx, organization.ID)
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fleet-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "redis-cli", "ping")
		if err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("fleet-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=fleet_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
