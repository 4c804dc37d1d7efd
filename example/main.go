package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ideamans/go-sheetrec"
	"github.com/ideamans/go-sheetrec/adapters/googlesheets"
	log "github.com/sirupsen/logrus"
)

const spreadsheetID = "your-spreadsheet-id"

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	// Initialize the Google Sheets service with a JSON key file
	service, err := googlesheets.NewWithJSONKeyFile(ctx, googlesheets.Config{}, "./service-account.json")
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	// Create client using recommended defaults for Google Sheets
	clientConfig := googlesheets.DefaultClientConfig()
	clientConfig.Profiling = true
	clientConfig.RenameRules = map[string]string{"e_mail": "email"}

	client := sheetrec.New(service, clientConfig)
	client.Open()
	defer client.Close()

	sheet, err := client.SheetByName(ctx, spreadsheetID, "users")
	if err != nil {
		return err
	}

	users, err := client.Records(ctx, spreadsheetID, sheet, sheetrec.Rows)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	// Query records
	results, err := users.Query(sheetrec.Where("age", "between", [2]interface{}{25, 35}).Page(0, 10))
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}

	fmt.Printf("Found %d users aged 25-35:\n", len(results))
	for _, record := range results {
		name := record.GetAsString("name", "Unknown")
		age := record.GetAsInt64("age", 0)
		fmt.Printf("  Row %d: %s (age: %d)\n", record.Position(), name, age)
	}

	// Update a record; only changed cells are written
	if len(results) > 0 {
		first := results[0]
		if err := first.SetTime("last_login", time.Now()); err != nil {
			return err
		}
		if err := first.SetInt64("login_count", first.GetAsInt64("login_count", 0)+1); err != nil {
			return err
		}
		if err := first.Save(ctx); err != nil {
			log.WithError(err).Warn("Failed to update record")
		} else {
			fmt.Printf("Updated record at row %d\n", first.Position())
		}
	}

	// Insert a new record below the header
	user, err := client.BuildRecord(ctx, spreadsheetID, sheet, sheetrec.Rows, map[string]interface{}{
		"name":  "John Doe",
		"email": "john@example.com",
		"age":   30,
	})
	if err != nil {
		return err
	}
	user.SetExternalID("user-john")
	if err := user.Save(ctx); err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	fmt.Printf("Inserted user at row %d\n", user.Position())

	return client.Session().ProfileDumpFile("sheetrec-profile.txt")
}
