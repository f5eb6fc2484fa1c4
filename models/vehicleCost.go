package models

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

// VehicleCost is one expense attributed to a vehicle. Component
// installations project a cost here automatically; other cost types come
// from manual entry.
type VehicleCost struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	OrganizationId     int             `gorm:"index;not null" json:"organization_id"`
	VehicleId          int             `gorm:"index;not null" json:"vehicle_id"`
	VehicleComponentId *int            `gorm:"index" json:"vehicle_component_id"`
	CostType           CostType        `gorm:"size:30;not null" json:"cost_type"`
	Description        string          `gorm:"size:500" json:"description"`
	Amount             decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	CostDate           time.Time       `gorm:"not null" json:"cost_date"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (c VehicleCost) GetOrganizationId() int {
	return c.OrganizationId
}

type NewVehicleCost struct {
	VehicleId   int             `json:"vehicle_id" binding:"required"`
	CostType    CostType        `json:"cost_type" binding:"required"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	CostDate    time.Time       `json:"cost_date"`
}

func (input *NewVehicleCost) validate(ctx context.Context, organizationId int) error {
	switch input.CostType {
	case CostTypeFuel, CostTypeMaintenance, CostTypeFine, CostTypeInsurance, CostTypeOther:
	case CostTypePartsComponents:
		return utils.NewValidationError("component costs are created by installations")
	default:
		return utils.NewValidationError("invalid cost type")
	}
	if !input.Amount.IsPositive() {
		return utils.NewValidationError("cost amount must be positive")
	}
	if err := utils.ValidateResourceId[Vehicle](ctx, organizationId, input.VehicleId); err != nil {
		return utils.NewNotFoundError("vehicle not found")
	}
	return nil
}

func CreateVehicleCost(ctx context.Context, input *NewVehicleCost) (*VehicleCost, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := input.validate(ctx, organizationId); err != nil {
		return nil, err
	}

	costDate := input.CostDate
	if costDate.IsZero() {
		costDate = time.Now().UTC()
	}

	db := config.GetDB()
	cost := VehicleCost{
		OrganizationId: organizationId,
		VehicleId:      input.VehicleId,
		CostType:       input.CostType,
		Description:    input.Description,
		Amount:         input.Amount,
		CostDate:       costDate,
	}
	if err := db.WithContext(ctx).Create(&cost).Error; err != nil {
		return nil, err
	}
	return &cost, nil
}

// ListVehicleCosts lists a vehicle's costs in a date window, newest first.
func ListVehicleCosts(ctx context.Context, vehicleId int, from *time.Time, to *time.Time) ([]*VehicleCost, error) {
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
	if from != nil {
		dbCtx = dbCtx.Where("cost_date >= ?", *from)
	}
	if to != nil {
		dbCtx = dbCtx.Where("cost_date <= ?", *to)
	}

	var costs []*VehicleCost
	if err := dbCtx.Order("cost_date DESC, id DESC").Find(&costs).Error; err != nil {
		return nil, err
	}
	return costs, nil
}

// VehicleCostSummary totals a vehicle's costs per type.
type VehicleCostSummary struct {
	VehicleId int                          `json:"vehicle_id"`
	Total     decimal.Decimal              `json:"total"`
	ByType    map[CostType]decimal.Decimal `json:"by_type"`
}

func GetVehicleCostSummary(ctx context.Context, vehicleId int, from *time.Time, to *time.Time) (*VehicleCostSummary, error) {
	costs, err := ListVehicleCosts(ctx, vehicleId, from, to)
	if err != nil {
		return nil, err
	}

	summary := VehicleCostSummary{
		VehicleId: vehicleId,
		Total:     decimal.Zero,
		ByType:    make(map[CostType]decimal.Decimal),
	}
	for _, cost := range costs {
		summary.Total = summary.Total.Add(cost.Amount)
		current, ok := summary.ByType[cost.CostType]
		if !ok {
			current = decimal.Zero
		}
		summary.ByType[cost.CostType] = current.Add(cost.Amount)
	}
	return &summary, nil
}
