package sheetrec_test

import (
	"context"
	"sync"
	"time"

	"github.com/ideamans/go-sheetrec"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type metadataCall struct {
	Sheet    string
	Position int
	Key      string
	Value    string
}

// fakeService serves fixed sheet values and records every mutating call
type fakeService struct {
	mu sync.Mutex

	sheets []sheetrec.Sheet
	values map[string][][]interface{} // sheet title -> rows, row-major

	reads    []string
	writes   [][]sheetrec.ValueRange
	inserts  []int
	deletes  []int
	metadata []metadataCall
	appends  []sheetrec.ValueRange
	clears   []string
	notes    map[string]string // sheet!cell -> note

	readErrs   []error // returned by successive ReadRange calls before succeeding
	writeErrs  []error
	insertErrs []error
	appendErrs []error
}

func newFakeService() *fakeService {
	return &fakeService{
		sheets: []sheetrec.Sheet{{ID: 7, Title: "People"}},
		values: map[string][][]interface{}{
			"People": {
				{"Name", "Email Address", "Status", "Score"},
				{"Alice", "alice@example.com", "active", float64(30)},
				{"Bob", "bob@example.com", "inactive", float64(25)},
				{"Carol", "carol@example.com", "active", float64(41)},
			},
		},
	}
}

func popErr(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

func (f *fakeService) ReadRange(ctx context.Context, documentID, rng string, dim sheetrec.MajorDimension) ([][]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reads = append(f.reads, rng)
	if err := popErr(&f.readErrs); err != nil {
		return nil, err
	}

	sheet, ref := sheetrec.SplitRange(rng)
	grid := f.values[sheet]
	if dim == sheetrec.Columns {
		grid = transpose(grid)
	}
	switch ref {
	case "1:1", "A:A":
		if len(grid) == 0 {
			return nil, nil
		}
		return grid[:1], nil
	}
	return grid, nil
}

func (f *fakeService) WriteBatch(ctx context.Context, documentID string, data []sheetrec.ValueRange, dim sheetrec.MajorDimension) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(&f.writeErrs); err != nil {
		return err
	}
	f.writes = append(f.writes, data)
	return nil
}

func (f *fakeService) InsertEmpty(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(&f.insertErrs); err != nil {
		return err
	}
	f.inserts = append(f.inserts, at)
	return nil
}

func (f *fakeService) DeletePosition(ctx context.Context, documentID string, sheet sheetrec.Sheet, at int, dim sheetrec.MajorDimension) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.deletes = append(f.deletes, at)
	return nil
}

func (f *fakeService) AttachMetadata(ctx context.Context, documentID string, sheet sheetrec.Sheet, position int, dim sheetrec.MajorDimension, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.metadata = append(f.metadata, metadataCall{Sheet: sheet.Title, Position: position, Key: key, Value: value})
	return nil
}

func (f *fakeService) ListSheets(ctx context.Context, documentID string) ([]sheetrec.Sheet, error) {
	return f.sheets, nil
}

func (f *fakeService) AppendRows(ctx context.Context, documentID, rng string, values [][]interface{}, dim sheetrec.MajorDimension) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := popErr(&f.appendErrs); err != nil {
		return err
	}
	f.appends = append(f.appends, sheetrec.ValueRange{Range: rng, Values: values})
	return nil
}

func (f *fakeService) ClearRange(ctx context.Context, documentID, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.clears = append(f.clears, rng)
	return nil
}

func (f *fakeService) AddNote(ctx context.Context, documentID string, sheet sheetrec.Sheet, cell, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.notes == nil {
		f.notes = map[string]string{}
	}
	f.notes[sheet.Title+"!"+cell] = note
	return nil
}

func transpose(grid [][]interface{}) [][]interface{} {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	out := make([][]interface{}, width)
	for c := 0; c < width; c++ {
		for _, row := range grid {
			if c < len(row) {
				out[c] = append(out[c], row[c])
			} else {
				out[c] = append(out[c], "")
			}
		}
	}
	return out
}

// newTestClient returns an opened client whose retries never actually sleep
func newTestClient(svc sheetrec.Service) (*sheetrec.Client, *[]time.Duration, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client := sheetrec.New(svc, &sheetrec.Config{
		MaxAttempts: 3,
		Logger:      logger,
	})
	var sleeps []time.Duration
	client.Retry().Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	client.Open()
	return client, &sleeps, hook
}
