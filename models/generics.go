package models

import (
	"context"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/utils"
)

type Resource interface {
	GetOrganizationId() int
}

// first find in redis, then in db, using ctx's organization_id in WHERE, cache result
// (may return RecordNotFound error)
func GetResource[T Resource](ctx context.Context, id int, associations ...string) (*T, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}
	// find in redis
	result, err := utils.RetrieveRedis[T](id)
	if err != nil {
		return nil, err
	}
	// if not found in redis
	if result == nil {
		// fetch from db
		result, err = utils.FetchModel[T](ctx, organizationId, id, associations...)
		if err != nil {
			return nil, err
		}

		// store in redis
		if err := utils.StoreRedis[T](result, id); err != nil {
			return nil, err
		}
	} else {
		// if found in redis
		// check if organization ids match
		if (*result).GetOrganizationId() != organizationId {
			return nil, utils.NewNotFoundError("resource not found")
		}
	}

	return result, nil
}

// list all resources, redis or db, cache result
func ListAllResource[ModelT any, AllModelT any](ctx context.Context, orders ...string) ([]*AllModelT, error) {

	organizationId, ok := utils.GetOrganizationIdFromContext(ctx)
	if !ok || organizationId == 0 {
		return nil, utils.NewValidationError("organization id is required")
	}

	// first try redis cache
	results, err := utils.RetrieveRedisList[AllModelT](organizationId)
	if err != nil {
		return nil, err
	}
	// if not exists in redis
	if results == nil {
		// fetch from db
		db := config.GetDB()
		var model ModelT
		dbCtx := db.WithContext(ctx).Where("organization_id = ?", organizationId)
		for _, order := range orders {
			dbCtx.Order(order)
		}
		if err = dbCtx.Model(&model).Find(&results).Error; err != nil {
			return nil, err
		}

		// caching the result
		if err := utils.StoreRedisList[AllModelT](results, organizationId); err != nil {
			return nil, err
		}
	}

	return results, nil
}

// RemoveRedisBoth clears both the single-item cache and the org's list cache
// after a write.
func RemoveRedisBoth[T Identifier](model T, organizationId int) error {
	if err := utils.RemoveRedisItem[T](model.GetId()); err != nil {
		return err
	}
	return utils.RemoveRedisList[T](organizationId)
}
