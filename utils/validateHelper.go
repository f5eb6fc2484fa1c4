package utils

import (
	"context"
	"errors"
	"reflect"

	"bitbucket.org/frotanube/fleet_backend/config"
)

// check if id exists, scoped to the organization, return RecordNotFound error
func ValidateResourceId[T any](ctx context.Context, organizationId int, id interface{}) error {

	count, err := ResourceCountWhere[T](ctx, organizationId, "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}

	return nil
}

func ValidateUnique[T any](ctx context.Context, organizationId int, column string, value interface{}, exceptId interface{}) error {
	var count int64
	var err error
	if reflect.ValueOf(exceptId).IsZero() {
		count, err = ResourceCountWhere[T](ctx, organizationId, column+" = ?", value)
	} else {
		count, err = ResourceCountWhere[T](ctx, organizationId, column+" = ? AND NOT id = ?", value, exceptId)
	}

	if err != nil {
		return err
	}
	if count > 0 {
		return NewConflictError("duplicate " + column)
	}
	return nil
}

// count records, using WHERE organization_id = ? AND $condition
// organizationId can be zero for admin user
func ResourceCountWhere[T any](ctx context.Context, organizationId int, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	db := config.GetDB()
	if db == nil {
		return 0, errors.New("database not initialized")
	}
	dbCtx := db.WithContext(ctx).Model(&model)
	if organizationId > 0 {
		dbCtx = dbCtx.Where("organization_id = ?", organizationId)
	}
	if err := dbCtx.Where(condition, value...).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
