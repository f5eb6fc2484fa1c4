package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"bitbucket.org/frotanube/fleet_backend/config"
	"bitbucket.org/frotanube/fleet_backend/workflow"
)

func main() {
	organizationID := flag.Int("organization-id", 0, "Required: organization id")
	flag.Parse()

	if *organizationID <= 0 {
		fmt.Fprintln(os.Stderr, "--organization-id is required")
		os.Exit(1)
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized")
		os.Exit(1)
	}
	logger := config.GetLogger()

	mismatches, err := workflow.VerifyLedgerConsistency(context.Background(), logger, *organizationID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger verification failed: %v\n", err)
		os.Exit(1)
	}

	if len(mismatches) == 0 {
		fmt.Printf("organization %d: all item statuses match their ledgers\n", *organizationID)
		return
	}

	fmt.Printf("organization %d: %d mismatched items\n", *organizationID, len(mismatches))
	out, _ := json.MarshalIndent(mismatches, "", "  ")
	fmt.Println(string(out))
	os.Exit(2)
}
