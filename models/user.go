package models

import (
	"context"
	"time"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
)

type User struct {
	ID             int       `gorm:"primary_key" json:"id"`
	OrganizationId int       `gorm:"index;not null" json:"organization_id"`
	Name           string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Email          string    `gorm:"size:255;not null" json:"email" binding:"required"`
	Phone          string    `gorm:"size:20" json:"phone"`
	IsManager      *bool     `gorm:"not null;default:false" json:"is_manager"`
	IsActive       *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u User) GetOrganizationId() int {
	return u.OrganizationId
}

type NewUser struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	IsManager *bool  `json:"is_manager"`
}

func (input *NewUser) validate(ctx context.Context, organizationId int, id int) error {
	if err := utils.ValidateUnique[User](ctx, organizationId, "email", input.Email, id); err != nil {
		return err
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return utils.NewValidationError("invalid phone number")
		}
	}
	return nil
}

func CreateUser(ctx context.Context, input *NewUser) (*User, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	isManager := input.IsManager
	if isManager == nil {
		isManager = utils.NewFalse()
	}

	db := config.GetDB()
	user := User{
		OrganizationId: organizationId,
		Name:           input.Name,
		Email:          input.Email,
		Phone:          input.Phone,
		IsManager:      isManager,
		IsActive:       utils.NewTrue(),
	}
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func GetUser(ctx context.Context, id int) (*User, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}
	return utils.FetchModel[User](ctx, organizationId, id)
}

// ListManagerUserIds returns the ids of active manager users of the org.
// Used to fan notifications out to the people who act on low stock.
func ListManagerUserIds(ctx context.Context, organizationId int) ([]int, error) {
	db := config.GetDB()
	var ids []int
	if err := db.WithContext(ctx).Model(&User{}).
		Where("organization_id = ? AND is_manager = ? AND is_active = ?", organizationId, true, true).
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
