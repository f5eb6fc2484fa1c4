package models

import "errors"

type PartCategory string

const (
	PartCategoryPart       PartCategory = "Part"
	PartCategoryFluid      PartCategory = "Fluid"
	PartCategoryConsumable PartCategory = "Consumable"
	PartCategoryTire       PartCategory = "Tire"
	PartCategoryOther      PartCategory = "Other"
)

func ParsePartCategory(s string) (PartCategory, error) {
	switch PartCategory(s) {
	case PartCategoryPart, PartCategoryFluid, PartCategoryConsumable, PartCategoryTire, PartCategoryOther:
		return PartCategory(s), nil
	}
	return "", errors.New("invalid part category")
}

type InventoryItemStatus string

const (
	ItemStatusAvailable InventoryItemStatus = "AVAILABLE"
	ItemStatusInUse     InventoryItemStatus = "IN_USE"
	ItemStatusEndOfLife InventoryItemStatus = "END_OF_LIFE"
)

func ParseInventoryItemStatus(s string) (InventoryItemStatus, error) {
	switch InventoryItemStatus(s) {
	case ItemStatusAvailable, ItemStatusInUse, ItemStatusEndOfLife:
		return InventoryItemStatus(s), nil
	}
	return "", errors.New("invalid inventory item status")
}

// IsTerminal reports whether no further transition can leave this status.
func (s InventoryItemStatus) IsTerminal() bool {
	return s == ItemStatusEndOfLife
}

type InventoryTransactionType string

const (
	TransactionTypeEntry             InventoryTransactionType = "ENTRY"
	TransactionTypeInstallation      InventoryTransactionType = "INSTALLATION"
	TransactionTypeEndOfLife         InventoryTransactionType = "END_OF_LIFE"
	TransactionTypeDiscard           InventoryTransactionType = "DISCARD"
	TransactionTypeInitialAdjustment InventoryTransactionType = "INITIAL_ADJUSTMENT"
)

type CostType string

const (
	CostTypeFuel            CostType = "Fuel"
	CostTypeMaintenance     CostType = "Maintenance"
	CostTypePartsComponents CostType = "PartsComponents"
	CostTypeFine            CostType = "Fine"
	CostTypeInsurance       CostType = "Insurance"
	CostTypeOther           CostType = "Other"
)

type NotificationType string

const (
	NotificationTypeLowStock         NotificationType = "LowStock"
	NotificationTypeComponentInstall NotificationType = "ComponentInstall"
	NotificationTypeComponentDiscard NotificationType = "ComponentDiscard"
)

type NotificationPublishStatus string

const (
	NotificationPublishStatusPending    NotificationPublishStatus = "PENDING"
	NotificationPublishStatusProcessing NotificationPublishStatus = "PROCESSING"
	NotificationPublishStatusSent       NotificationPublishStatus = "SENT"
	NotificationPublishStatusFailed     NotificationPublishStatus = "FAILED"
	NotificationPublishStatusDead       NotificationPublishStatus = "DEAD"
)

// allowedTransitions is the component lifecycle state machine. A status may
// only move forward; END_OF_LIFE is terminal.
var allowedTransitions = map[InventoryItemStatus][]InventoryItemStatus{
	ItemStatusAvailable: {ItemStatusInUse, ItemStatusEndOfLife},
	ItemStatusInUse:     {ItemStatusEndOfLife},
	ItemStatusEndOfLife: {},
}

func CanTransition(from, to InventoryItemStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// transactionTypeForTransition maps a status transition to the ledger entry
// type recorded for it.
func transactionTypeForTransition(from, to InventoryItemStatus) (InventoryTransactionType, error) {
	switch {
	case from == ItemStatusAvailable && to == ItemStatusInUse:
		return TransactionTypeInstallation, nil
	case to == ItemStatusEndOfLife:
		return TransactionTypeEndOfLife, nil
	}
	return "", errors.New("no ledger entry type for transition")
}
