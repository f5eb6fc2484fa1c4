package models

import (
	"log"

	"bitbucket.org/frotanube/fleet_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Organization{}, &User{},
		&Vehicle{}, &VehicleComponent{}, &VehicleCost{},
		&Part{}, &InventoryItem{}, &InventoryTransaction{},
		&NotificationRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
