package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ideamans/go-sheetrec"
	"github.com/ideamans/go-sheetrec/adapters/excel"
	log "github.com/sirupsen/logrus"
)

const workbook = "example_data"

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	// Create the Excel service (no authentication required)
	service, err := excel.New(&excel.Config{Dir: "."})
	if err != nil {
		return fmt.Errorf("failed to create Excel service: %w", err)
	}

	// Seed a workbook on first run
	if _, err := os.Stat(service.Path(workbook)); os.IsNotExist(err) {
		err := service.CreateWorkbook(ctx, workbook, "users", [][]interface{}{
			{"Name", "E-mail", "Age", "Department", "Active", "Joined At"},
			{"Alice Johnson", "alice@example.com", 30, "Engineering", true, sheetrec.ToSerialDate(time.Now())},
			{"Bob Smith", "bob@example.com", 25, "Marketing", true, sheetrec.ToSerialDate(time.Now().Add(-24 * time.Hour))},
			{"Charlie Brown", "charlie@example.com", 35, "Engineering", false, sheetrec.ToSerialDate(time.Now().Add(-48 * time.Hour))},
		})
		if err != nil {
			return err
		}
		fmt.Println("Created", service.Path(workbook))
	}

	// Create client using recommended defaults for Excel
	client := sheetrec.New(service, excel.DefaultClientConfig())
	client.Open()
	defer client.Close()

	sheet, err := client.SheetByName(ctx, workbook, "users")
	if err != nil {
		return err
	}
	users, err := client.Records(ctx, workbook, sheet, sheetrec.Rows)
	if err != nil {
		return err
	}

	// 1. Query records
	fmt.Println("Querying active engineers...")
	results, err := users.Query(sheetrec.Where("department", "==", "Engineering").And("active", "==", true))
	if err != nil {
		return err
	}
	for _, r := range results {
		fmt.Printf("  Row %d: %s <%s> joined %s\n",
			r.Position(),
			r.GetAsString("name", ""),
			r.GetAsString("e_mail", ""),
			r.GetAsTime("joined_at", time.Time{}).Format("2006-01-02"))
	}

	// 2. Sort and count
	users.Sort("age", true, 0)
	fmt.Printf("Oldest user: %s\n", users.First().GetAsString("name", ""))
	fmt.Printf("Active users: %d\n", users.Count(sheetrec.FieldsEqual(map[string]interface{}{"active": true})))

	// 3. Update a record
	bob := users.Find(sheetrec.FieldsEqual(map[string]interface{}{"name": "Bob Smith"}))
	if bob != nil {
		if err := bob.SetInt64("age", bob.GetAsInt64("age", 0)+1); err != nil {
			return err
		}
		for _, c := range bob.Changes() {
			fmt.Printf("Changing %s: %v -> %v\n", c.Field, c.Previous, c.Value)
		}
		if err := bob.Save(ctx); err != nil {
			return fmt.Errorf("failed to save: %w", err)
		}
	}

	// 4. Insert and delete
	diana, err := client.BuildRecord(ctx, workbook, sheet, sheetrec.Rows, map[string]interface{}{
		"name":       "Diana Prince",
		"e_mail":     "diana@example.com",
		"age":        28,
		"department": "Sales",
		"active":     true,
	})
	if err != nil {
		return err
	}
	diana.SetExternalID("diana")
	if err := diana.Save(ctx); err != nil {
		return err
	}
	fmt.Printf("Inserted Diana at row %d\n", diana.Position())

	if err := diana.Destroy(ctx); err != nil {
		return err
	}
	fmt.Println("Deleted Diana again")

	metadata, err := service.Metadata(ctx, workbook)
	if err != nil {
		return err
	}
	fmt.Printf("Metadata entries left: %d\n", len(metadata))
	return nil
}
