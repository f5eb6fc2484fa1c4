package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/models"
	"bitbucket.org/frotanube/fleet_backend/utils"
	"github.com/shopspring/decimal"
)

// Seeds a demo organization with a couple of vehicles and parts with initial
// stock. Development fixture only.
func main() {
	name := flag.String("name", "Frota Demo", "Organization name")
	confirm := flag.String("confirm", "", "Type SEED to proceed")
	flag.Parse()

	if strings.TrimSpace(*confirm) != "SEED" {
		fmt.Fprintln(os.Stderr, "set --confirm=SEED to proceed")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	if config.GetDB() == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	models.MigrateTable()

	ctx := context.Background()
	organization, err := models.CreateOrganization(ctx, &models.NewOrganization{
		Name:  *name,
		Email: "contato@frotademo.com.br",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "create organization: %v\n", err)
		os.Exit(1)
	}
	ctx = utils.SetOrganizationIdInContext(ctx, organization.ID)
	ctx = utils.SetUserNameInContext(ctx, "Seeder")

	vehicles := []models.NewVehicle{
		{LicensePlate: "BRA2E19", Brand: "Volvo", Model: "FH 540", Year: 2021, Odometer: 182000},
		{LicensePlate: "RIO2A18", Brand: "Scania", Model: "R 450", Year: 2019, Odometer: 365000},
	}
	for i := range vehicles {
		if _, err := models.CreateVehicle(ctx, &vehicles[i]); err != nil {
			fmt.Fprintf(os.Stderr, "create vehicle %s: %v\n", vehicles[i].LicensePlate, err)
			os.Exit(1)
		}
	}

	parts := []models.NewPart{
		{Name: "Filtro de óleo", Category: models.PartCategoryPart, Brand: "Mann", Value: decimal.NewFromFloat(89.90), MinimumStock: 4, InitialQuantity: 10},
		{Name: "Pneu 295/80 R22.5", Category: models.PartCategoryTire, Brand: "Michelin", Value: decimal.NewFromFloat(2450.00), MinimumStock: 6, InitialQuantity: 12},
		{Name: "Óleo 15W40 (20L)", Category: models.PartCategoryFluid, Brand: "Mobil", Value: decimal.NewFromFloat(480.00), MinimumStock: 2, InitialQuantity: 5},
	}
	for i := range parts {
		if _, err := models.CreatePart(ctx, &parts[i]); err != nil {
			fmt.Fprintf(os.Stderr, "create part %s: %v\n", parts[i].Name, err)
			os.Exit(1)
		}
	}

	fmt.Printf("seeded organization %d (%s): %d vehicles, %d parts\n",
		organization.ID, organization.Name, len(vehicles), len(parts))
}
