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

// Part is the catalog entry. Stock is never stored: it is derived as the
// count of AVAILABLE serialized items of the part.
type Part struct {
	ID             int             `gorm:"primary_key" json:"id"`
	OrganizationId int             `gorm:"index;not null" json:"organization_id"`
	Name           string          `gorm:"size:255;not null" json:"name" binding:"required"`
	Description    string          `gorm:"size:500" json:"description"`
	Category       PartCategory    `gorm:"size:20;not null" json:"category"`
	Brand          string          `gorm:"size:100" json:"brand"`
	PartNumber     string          `gorm:"size:100;index" json:"part_number"`
	SerialNumber   string          `gorm:"size:100;index" json:"serial_number"`
	Value          decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"value"`
	MinimumStock   int             `gorm:"not null;default:0" json:"minimum_stock"`
	Location       string          `gorm:"size:100" json:"location"`
	Notes          string          `gorm:"size:1000" json:"notes"`
	LifespanKm     int             `gorm:"default:0" json:"lifespan_km"`
	PhotoUrl       string          `gorm:"size:500" json:"photo_url"`
	ThumbnailUrl   string          `gorm:"size:500" json:"thumbnail_url"`
	InvoiceUrl     string          `gorm:"size:500" json:"invoice_url"`
	IsActive       *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	Stock int `gorm:"-" json:"stock"`
}

func (p Part) GetOrganizationId() int {
	return p.OrganizationId
}

type NewPart struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Category        PartCategory    `json:"category" binding:"required"`
	Brand           string          `json:"brand"`
	PartNumber      string          `json:"part_number"`
	SerialNumber    string          `json:"serial_number"`
	Value           decimal.Decimal `json:"value"`
	MinimumStock    int             `json:"minimum_stock"`
	Location        string          `json:"location"`
	Notes           string          `json:"notes"`
	LifespanKm      int             `json:"lifespan_km"`
	InitialQuantity int             `json:"initial_quantity"`
}

func (input *NewPart) validate(ctx context.Context, organizationId int, id int) error {
	if _, err := ParsePartCategory(string(input.Category)); err != nil {
		return utils.NewValidationError("invalid part category")
	}
	if input.Value.IsNegative() {
		return utils.NewValidationError("part value cannot be negative")
	}
	if input.MinimumStock < 0 {
		return utils.NewValidationError("minimum stock cannot be negative")
	}
	if input.InitialQuantity < 0 {
		return utils.NewValidationError("initial quantity cannot be negative")
	}
	if input.LifespanKm < 0 {
		return utils.NewValidationError("lifespan km cannot be negative")
	}
	if input.SerialNumber != "" {
		if err := utils.ValidateUnique[Part](ctx, organizationId, "serial_number", input.SerialNumber, id); err != nil {
			return err
		}
	}
	return nil
}

// CreatePart registers a catalog entry; an initial quantity, when given,
// materializes that many AVAILABLE items with ENTRY ledger entries, all in
// one transaction.
func CreatePart(ctx context.Context, input *NewPart) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if err := input.validate(ctx, organizationId, 0); err != nil {
		return nil, err
	}

	db := config.GetDB()
	part := Part{
		OrganizationId: organizationId,
		Name:           input.Name,
		Description:    input.Description,
		Category:       input.Category,
		Brand:          input.Brand,
		PartNumber:     input.PartNumber,
		SerialNumber:   input.SerialNumber,
		Value:          input.Value,
		MinimumStock:   input.MinimumStock,
		Location:       input.Location,
		Notes:          input.Notes,
		LifespanKm:     input.LifespanKm,
		IsActive:       utils.NewTrue(),
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Create(&part).Error; err != nil {
			return err
		}
		if input.InitialQuantity > 0 {
			items, err := createInventoryItems(tx, ctx, &part, input.InitialQuantity, TransactionTypeEntry, "")
			if err != nil {
				return err
			}
			part.Stock = len(items)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Part](organizationId); err != nil {
		return nil, err
	}
	return &part, nil
}

func UpdatePart(ctx context.Context, id int, input *NewPart) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, organizationId, id); err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&part).Updates(map[string]interface{}{
		"Name":         input.Name,
		"Description":  input.Description,
		"Category":     input.Category,
		"Brand":        input.Brand,
		"PartNumber":   input.PartNumber,
		"SerialNumber": input.SerialNumber,
		"Value":        input.Value,
		"MinimumStock": input.MinimumStock,
		"Location":     input.Location,
		"Notes":        input.Notes,
		"LifespanKm":   input.LifespanKm,
	}).Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*part, organizationId); err != nil {
		return nil, err
	}
	return part, nil
}

// UploadPartInvoice stores the purchase invoice document and records its URL.
func UploadPartInvoice(ctx context.Context, storage utils.StorageProvider, id int, data []byte, contentType string) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("parts/%d/invoices/%s", organizationId, utils.GenerateUniqueFilename())
	invoiceUrl, err := storage.SaveFile(ctx, objectKey, data, contentType)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&part).Update("InvoiceUrl", invoiceUrl).Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*part, organizationId); err != nil {
		return nil, err
	}
	return part, nil
}

// DeletePart refuses while any item of the part is still AVAILABLE or
// IN_USE; the ledger history of END_OF_LIFE items is kept.
func DeletePart(ctx context.Context, id int) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	count, err := utils.ResourceCountWhere[InventoryItem](ctx, organizationId,
		"part_id = ? AND status <> ?", id, ItemStatusEndOfLife)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.NewConflictError("part has items that are not end of life")
	}

	// Items and components cascade with the part via their foreign keys;
	// the ledger has no part foreign key, so it is cleared explicitly.
	db := config.GetDB()
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).
			Where("organization_id = ? AND part_id = ?", organizationId, id).
			Delete(&InventoryTransaction{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Delete(&part).Error
	})
	if err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*part, organizationId); err != nil {
		return nil, err
	}
	return part, nil
}

// GetPartWithStock fetches a part and fills the derived Stock field.
func GetPartWithStock(ctx context.Context, id int) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	stock, err := utils.ResourceCountWhere[InventoryItem](ctx, organizationId,
		"part_id = ? AND status = ?", id, ItemStatusAvailable)
	if err != nil {
		return nil, err
	}
	part.Stock = int(stock)
	return part, nil
}

// ListParts pages through the org's catalog, newest first, each row carrying
// its derived stock via a grouped count subquery.
func ListParts(ctx context.Context, search string, limit int, offset int) ([]*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	if limit <= 0 || limit > config.SearchLimit {
		limit = config.SearchLimit
	}
	if offset < 0 {
		offset = 0
	}

	db := config.GetDB()
	stockQuery := db.Model(&InventoryItem{}).
		Select("part_id, COUNT(*) AS available_count").
		Where("organization_id = ? AND status = ?", organizationId, ItemStatusAvailable).
		Group("part_id")

	dbCtx := db.WithContext(ctx).Model(&Part{}).
		Select("parts.*, COALESCE(stocks.available_count, 0) AS stock").
		Joins("LEFT JOIN (?) AS stocks ON stocks.part_id = parts.id", stockQuery).
		Where("parts.organization_id = ?", organizationId)
	if search != "" {
		pattern := "%" + search + "%"
		dbCtx = dbCtx.Where("parts.name LIKE ? OR parts.brand LIKE ? OR parts.part_number LIKE ?",
			pattern, pattern, pattern)
	}

	var parts []*Part
	if err := dbCtx.Order("parts.id DESC").Limit(limit).Offset(offset).Find(&parts).Error; err != nil {
		return nil, err
	}
	return parts, nil
}

// UploadPartPhoto stores the image plus a 200px thumbnail and records both
// URLs on the part.
func UploadPartPhoto(ctx context.Context, storage utils.StorageProvider, id int, data []byte, contentType string) (*Part, error) {
	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	part, err := utils.FetchModel[Part](ctx, organizationId, id)
	if err != nil {
		return nil, err
	}

	objectKey := fmt.Sprintf("parts/%d/%s", organizationId, utils.GenerateUniqueFilename())
	photoUrl, err := storage.SaveFile(ctx, objectKey, data, contentType)
	if err != nil {
		return nil, err
	}

	thumbnailUrl := ""
	thumbnail, err := utils.MakeThumbnail(data)
	if err != nil {
		// a part photo without a thumbnail is still usable
		config.LogError(config.GetLogger(), "models", "UploadPartPhoto", "thumbnail", objectKey, err)
	} else {
		thumbnailUrl, err = storage.SaveFile(ctx, utils.ThumbnailObjectKey(objectKey), thumbnail, "image/jpeg")
		if err != nil {
			return nil, err
		}
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&part).Updates(map[string]interface{}{
		"PhotoUrl":     photoUrl,
		"ThumbnailUrl": thumbnailUrl,
	}).Error; err != nil {
		return nil, err
	}

	if err := RemoveRedisBoth(*part, organizationId); err != nil {
		return nil, err
	}
	return part, nil
}
