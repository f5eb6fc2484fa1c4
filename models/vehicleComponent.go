package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VehicleComponent records one physical item mounted on a vehicle. It stays
// linked to the ledger entry that installed it; discarding flips IsActive
// and stamps the uninstallation date instead of deleting the row.
type VehicleComponent struct {
	ID                     int             `gorm:"primary_key" json:"id"`
	OrganizationId         int             `gorm:"index;not null" json:"organization_id"`
	VehicleId              int             `gorm:"index;not null" json:"vehicle_id"`
	PartId                 int             `gorm:"index;not null" json:"part_id"`
	InventoryItemId        int             `gorm:"index;not null" json:"inventory_item_id"`
	InventoryTransactionId int             `gorm:"not null" json:"inventory_transaction_id"`
	Description            string          `gorm:"size:500" json:"description"`
	Value                  decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"value"`
	InstallationDate       time.Time       `gorm:"not null" json:"installation_date"`
	UninstallationDate     *time.Time      `json:"uninstallation_date"`
	IsActive               *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt              time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Vehicle *Vehicle `gorm:"foreignKey:VehicleId" json:"vehicle,omitempty"`
	Part    *Part    `gorm:"foreignKey:PartId;constraint:OnDelete:CASCADE" json:"part,omitempty"`
}

func (c VehicleComponent) GetOrganizationId() int {
	return c.OrganizationId
}

func componentDescription(part *Part, itemIdentifier int) string {
	return fmt.Sprintf("Instalação: %s (Cód. Item: %d)", part.Name, itemIdentifier)
}

// registerComponentInstallation creates the component row and, when the part
// carries a value, projects it onto the vehicle as a PartsComponents cost.
func registerComponentInstallation(tx *gorm.DB, ctx context.Context, part *Part, item *InventoryItem, record *InventoryTransaction, vehicleId int, date time.Time) error {
	component := VehicleComponent{
		OrganizationId:         item.OrganizationId,
		VehicleId:              vehicleId,
		PartId:                 part.ID,
		InventoryItemId:        item.ID,
		InventoryTransactionId: record.ID,
		Description:            componentDescription(part, item.ItemIdentifier),
		Value:                  part.Value,
		InstallationDate:       date,
		IsActive:               utils.NewTrue(),
	}
	if err := tx.WithContext(ctx).Create(&component).Error; err != nil {
		return err
	}

	if part.Value.IsPositive() {
		cost := VehicleCost{
			OrganizationId:     item.OrganizationId,
			VehicleId:          vehicleId,
			VehicleComponentId: &component.ID,
			CostType:           CostTypePartsComponents,
			Description:        component.Description,
			Amount:             part.Value,
			CostDate:           date,
		}
		if err := tx.WithContext(ctx).Create(&cost).Error; err != nil {
			return err
		}
	}
	return nil
}

// deactivateComponent closes the active component of an item that reached
// end of life while installed.
func deactivateComponent(tx *gorm.DB, ctx context.Context, item *InventoryItem, date time.Time) error {
	var component VehicleComponent
	err := tx.WithContext(ctx).
		Where("organization_id = ? AND inventory_item_id = ? AND is_active = ?", item.OrganizationId, item.ID, true).
		Order("id DESC").First(&component).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// item was IN_USE without a component row; nothing to close
			return nil
		}
		return err
	}

	return tx.WithContext(ctx).Model(&component).Updates(map[string]interface{}{
		"IsActive":           false,
		"UninstallationDate": date,
	}).Error
}

// ListVehicleComponents lists a vehicle's components, active ones unless
// includeInactive is set, newest installation first.
func ListVehicleComponents(ctx context.Context, vehicleId int, includeInactive bool) ([]*VehicleComponent, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := utils.ValidateResourceId[Vehicle](ctx, organizationId, vehicleId); err != nil {
		return nil, utils.NewNotFoundError("vehicle not found")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Where("organization_id = ? AND vehicle_id = ?", organizationId, vehicleId)
	if !includeInactive {
		dbCtx = dbCtx.Where("is_active = ?", true)
	}

	var components []*VehicleComponent
	if err := dbCtx.Preload("Part").Order("installation_date DESC, id DESC").Find(&components).Error; err != nil {
		return nil, err
	}
	return components, nil
}

func GetVehicleComponent(ctx context.Context, id int) (*VehicleComponent, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}
	return utils.FetchModel[VehicleComponent](ctx, organizationId, id, "Part", "Vehicle")
}
