package models

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
)

type Vehicle struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId int       `gorm:"index;not null" json:"organization_id"`
	LicensePlate   string    `gorm:"size:10;not null" json:"license_plate" binding:"required"`
	Brand          string    `gorm:"size:100" json:"brand"`
	Model          string    `gorm:"size:100" json:"model"`
	Year           int       `json:"year"`
	Odometer       int       `json:"odometer"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (v Vehicle) GetOrganizationId() int {
	return v.OrganizationId
}

type NewVehicle struct {
	LicensePlate string `json:"license_plate" binding:"required"`
	Brand        string `json:"brand"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	Odometer     int    `json:"odometer"`
}

func (input *NewVehicle) validate(ctx context.Context, organizationId int, id int) error {
	if err := utils.ValidateUnique[Vehicle](ctx, organizationId, "license_plate", input.LicensePlate, id); err != nil {
		return err
	}
	return nil
}

func CreateVehicle(ctx context.Context, input *NewVehicle) (*Vehicle, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	vehicle := Vehicle{
		OrganizationId: organizationId,
		LicensePlate:   input.LicensePlate,
		Brand:          input.Brand,
		Model:          input.Model,
		Year:           input.Year,
		Odometer:       input.Odometer,
		IsActive:       utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&vehicle).Error; err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Vehicle](organizationId); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func UpdateVehicle(ctx context.Context, id int, input *NewVehicle) (*Vehicle, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	vehicle, err := utils.FetchModel[Vehicle](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&vehicle).Updates(map[string]interface{}{
		"LicensePlate": input.LicensePlate,
		"Brand":        input.Brand,
		"Model":        input.Model,
		"Year":         input.Year,
		"Odometer":     input.Odometer,
	}).Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*vehicle, organizationId); err != nil {
		return nil, err
	}
	return vehicle, nil
}

func GetVehicle(ctx context.Context, id int) (*Vehicle, error) {
	return GetResource[Vehicle](ctx, id)
}

func ListVehicles(ctx context.Context) ([]*Vehicle, error) {
	return ListAllResource[Vehicle, Vehicle](ctx, "license_plate")
}
