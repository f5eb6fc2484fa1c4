package models

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
)

type Organization struct {
	ID           int       `gorm:"primary_key" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name" binding:"required"`
	FederalTaxId string    `gorm:"size:20" json:"federal_tax_id"`
	Phone        string    `gorm:"size:20" json:"phone"`
	Email        string    `gorm:"size:255" json:"email"`
	IsActive     *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Organizations are the tenant root; the guard plugin never scopes them.
func (o Organization) GetOrganizationId() int {
	return o.ID
}

type NewOrganization struct {
	Name         string `json:"name" binding:"required"`
	FederalTaxId string `json:"federal_tax_id"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
}

func (input *NewOrganization) validate() error {
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("invalid phone number")
		}
	}
	return nil
}

func CreateOrganization(ctx context.Context, input *NewOrganization) (*Organization, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	db := config.GetDB()
	organization := Organization{
		Name:         input.Name,
		FederalTaxId: input.FederalTaxId,
		Phone:        input.Phone,
		Email:        input.Email,
		IsActive:     utils.NewTrue(),
	}
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	if err := db.WithContext(ctx).Create(&organization).Error; err != nil {
		return nil, err
	}
	return &organization, nil
}

func GetOrganizationById(ctx context.Context, id int) (*Organization, error) {
	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	// find in redis first
	result, err := utils.RetrieveRedis[Organization](id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result, err = utils.FetchSingleModel[Organization](ctx, id)
		if err != nil {
			return nil, err
		}
		if err := utils.StoreRedis[Organization](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func UpdateOrganization(ctx context.Context, id int, input *NewOrganization) (*Organization, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	ctx = utils.SetSkipTenantScopeInContext(ctx, true)
	organization, err := utils.FetchSingleModel[Organization](ctx, id)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&organization).Updates(map[string]interface{}{
		"Name":         input.Name,
		"FederalTaxId": input.FederalTaxId,
		"Phone":        input.Phone,
		"Email":        input.Email,
	}).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Organization](id); err != nil {
		return nil, err
	}
	return organization, nil
}
