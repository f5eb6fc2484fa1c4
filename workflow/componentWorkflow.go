package workflow

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/models"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"gorm.io/gorm"
)

// InstallComponent mounts the next available item of a part (FIFO by item
// identifier) on a vehicle. Picking, the status change, the ledger entry,
// the component row and the cost projection commit atomically.
func InstallComponent(ctx context.Context, partId int, vehicleId int, date time.Time, notes string) (*models.VehicleComponent, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := utils.ValidateResourceId[models.Part](ctx, organizationId, partId); err != nil {
		return nil, utils.NewNotFoundError("part not found")
	}
	if err := utils.ValidateResourceId[models.Vehicle](ctx, organizationId, vehicleId); err != nil {
		return nil, utils.NewNotFoundError("vehicle not found")
	}

	db := config.GetDB()
	var itemId int
	err := db.Transaction(func(tx *gorm.DB) error {
		item, err := models.LockNextAvailableItem(tx, ctx, organizationId, partId)
		if err != nil {
			return err
		}
		itemId = item.ID
		_, err = models.TransitionItem(tx, ctx, item, &models.ItemTransition{
			NewStatus: models.ItemStatusInUse,
			VehicleId: vehicleId,
			Date:      date,
			Notes:     notes,
		})
		return err
	})
	if err != nil {
		config.LogError(config.GetLogger(), "componentWorkflow.go", "InstallComponent", "Transaction", partId, err)
		return nil, err
	}

	var component models.VehicleComponent
	if err := db.WithContext(ctx).
		Where("organization_id = ? AND inventory_item_id = ? AND is_active = ?", organizationId, itemId, true).
		Order("id DESC").First(&component).Error; err != nil {
		return nil, err
	}
	return &component, nil
}

// DiscardComponent retires an installed component: the component row is
// deactivated with the uninstallation date and its item goes END_OF_LIFE
// with a DISCARD ledger entry.
func DiscardComponent(ctx context.Context, componentId int, date time.Time, notes string) (*models.VehicleComponent, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	component, err := utils.FetchModel[models.VehicleComponent](ctx, organizationId, componentId)
	if err != nil {
		return nil, err
	}
	if !utils.DereferencePtr(component.IsActive) {
		return nil, utils.NewValidationError("component is already discarded")
	}

	if date.IsZero() {
		date = time.Now().UTC()
	}

	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		item, err := models.LockItemById(tx, ctx, organizationId, component.InventoryItemId)
		if err != nil {
			return err
		}
		_, err = models.TransitionItem(tx, ctx, item, &models.ItemTransition{
			NewStatus: models.ItemStatusEndOfLife,
			VehicleId: component.VehicleId,
			Date:      date,
			Notes:     notes,
			Discard:   true,
		})
		return err
	})
	if err != nil {
		config.LogError(config.GetLogger(), "componentWorkflow.go", "DiscardComponent", "Transaction", componentId, err)
		return nil, err
	}

	return utils.FetchModel[models.VehicleComponent](ctx, organizationId, componentId)
}
