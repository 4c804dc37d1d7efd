package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ideamans/go-sheetrec"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var whereOperators = []string{">=", "<=", "!=", "==", ">", "<", "="}

func newSheetsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sheets DOCUMENT",
		Short: "List the sheets of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := opts.openClient(ctx)
			if err != nil {
				return err
			}
			defer opts.closeClient(client, cmd)

			sheets, err := client.Service().ListSheets(ctx, args[0])
			if err != nil {
				return fmt.Errorf("failed to list sheets: %w", err)
			}
			for _, s := range sheets {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", s.ID, s.Title)
			}
			return nil
		},
	}
}

func newDumpCmd(opts *options) *cobra.Command {
	var (
		where      []string
		sortField  string
		descending bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "dump DOCUMENT SHEET",
		Short: "Print records as JSON lines",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := sheetrec.Query{Limit: limit}
			for _, w := range where {
				cond, err := parseWhere(w)
				if err != nil {
					return err
				}
				query.Conditions = append(query.Conditions, cond)
			}

			ctx := cmd.Context()
			client, err := opts.openClient(ctx)
			if err != nil {
				return err
			}
			defer opts.closeClient(client, cmd)

			records, err := loadRecords(cmd, opts, client, args[0], args[1])
			if err != nil {
				return err
			}
			if sortField != "" {
				records.Sort(sortField, descending, nil)
			}
			matched, err := records.Query(query)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, r := range matched {
				line := r.Values()
				line["_position"] = r.Position()
				if err := enc.Encode(line); err != nil {
					return err
				}
			}
			log.WithField("records", len(matched)).Debug("Dumped records")
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, `Filter such as "status=active" or "score>=30" (repeatable)`)
	cmd.Flags().StringVar(&sortField, "sort", "", "Sort by field")
	cmd.Flags().BoolVar(&descending, "desc", false, "Sort descending")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of records")
	return cmd
}

func newSetCmd(opts *options) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "set DOCUMENT SHEET POSITION FIELD VALUE",
		Short: "Set one field of the record at POSITION",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[2], err)
			}

			ctx := cmd.Context()
			client, err := opts.openClient(ctx)
			if err != nil {
				return err
			}
			defer opts.closeClient(client, cmd)

			record, err := findRecord(cmd, opts, client, args[0], args[1], position)
			if err != nil {
				return err
			}

			var value interface{} = args[4]
			if !raw {
				value = parseValue(args[4])
			}
			if err := record.Set(args[3], value); err != nil {
				return err
			}
			if !record.Changed() {
				log.Info("Value unchanged")
				return nil
			}
			if err := record.Save(ctx); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
			log.WithFields(log.Fields{
				"position": position,
				"field":    args[3],
			}).Info("Saved record")
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Store VALUE as text without detecting numbers and booleans")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete DOCUMENT SHEET POSITION",
		Short: "Delete the record at POSITION",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid position %q: %w", args[2], err)
			}

			ctx := cmd.Context()
			client, err := opts.openClient(ctx)
			if err != nil {
				return err
			}
			defer opts.closeClient(client, cmd)

			record, err := findRecord(cmd, opts, client, args[0], args[1], position)
			if err != nil {
				return err
			}
			if err := record.Destroy(ctx); err != nil {
				return fmt.Errorf("failed to delete record: %w", err)
			}
			log.WithField("position", position).Info("Deleted record")
			return nil
		},
	}
}

func loadRecords(cmd *cobra.Command, opts *options, client *sheetrec.Client, documentID, sheetName string) (*sheetrec.Collection, error) {
	ctx := cmd.Context()
	sheet, err := client.SheetByName(ctx, documentID, sheetName)
	if err != nil {
		return nil, err
	}
	return client.Records(ctx, documentID, sheet, opts.dimension())
}

func findRecord(cmd *cobra.Command, opts *options, client *sheetrec.Client, documentID, sheetName string, position int) (*sheetrec.Record, error) {
	records, err := loadRecords(cmd, opts, client, documentID, sheetName)
	if err != nil {
		return nil, err
	}
	record := records.Find(func(r *sheetrec.Record) bool {
		return r.Position() == position
	})
	if record == nil {
		return nil, fmt.Errorf("no record at position %d", position)
	}
	return record, nil
}

// parseWhere reads "field<op>value"; "=" is an alias of "=="
func parseWhere(s string) (sheetrec.Condition, error) {
	for _, op := range whereOperators {
		if i := strings.Index(s, op); i > 0 {
			field := strings.TrimSpace(s[:i])
			value := strings.TrimSpace(s[i+len(op):])
			if op == "=" {
				op = "=="
			}
			return sheetrec.Condition{Field: field, Operator: op, Value: parseValue(value)}, nil
		}
	}
	return sheetrec.Condition{}, fmt.Errorf("invalid filter %q", s)
}

func parseValue(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
