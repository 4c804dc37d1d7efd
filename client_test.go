package sheetrec_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ideamans/go-sheetrec"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SheetByName(t *testing.T) {
	svc := newFakeService()
	svc.sheets = append(svc.sheets, sheetrec.Sheet{ID: 8, Title: "Archive"})
	client, _, _ := newTestClient(svc)

	sheet, err := client.SheetByName(context.Background(), "doc", "people")
	require.NoError(t, err)
	assert.Equal(t, int64(7), sheet.ID)

	_, err = client.SheetByName(context.Background(), "doc", "Missing")
	assert.True(t, errors.Is(err, sheetrec.ErrSheetNotFound))

	_, err = client.SheetByName(context.Background(), "", "People")
	assert.Equal(t, sheetrec.ErrMissingDocument, err)
}

func TestClient_SchemaIsCachedPerSession(t *testing.T) {
	svc := newFakeService()
	client, _, _ := newTestClient(svc)
	ctx := context.Background()

	schema, err := client.Schema(ctx, "doc", people, sheetrec.Rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email_address", "status", "score"}, schema.Fields())

	_, err = client.Schema(ctx, "doc", people, sheetrec.Rows)
	require.NoError(t, err)
	assert.Equal(t, []string{"People!1:1"}, svc.reads)

	client.Close()
	_, err = client.Schema(ctx, "doc", people, sheetrec.Rows)
	assert.Equal(t, sheetrec.ErrNoSession, err)

	client.Open()
	_, err = client.Schema(ctx, "doc", people, sheetrec.Rows)
	require.NoError(t, err)
	assert.Len(t, svc.reads, 2)
}

func TestClient_SchemaWithoutHeader(t *testing.T) {
	svc := newFakeService()
	svc.values["Empty"] = nil
	svc.values["Numbers"] = [][]interface{}{{float64(1), float64(2)}}
	client, _, _ := newTestClient(svc)

	_, err := client.Schema(context.Background(), "doc", sheetrec.Sheet{ID: 1, Title: "Empty"}, sheetrec.Rows)
	assert.True(t, errors.Is(err, sheetrec.ErrNoSchema))

	_, err = client.Schema(context.Background(), "doc", sheetrec.Sheet{ID: 2, Title: "Numbers"}, sheetrec.Rows)
	assert.True(t, errors.Is(err, sheetrec.ErrNoSchema))
	assert.Equal(t, 0, client.Session().Size())
}

func TestClient_FromRangeValues(t *testing.T) {
	client, _, _ := newTestClient(newFakeService())
	sheet := sheetrec.Sheet{ID: 3, Title: "Data"}

	records, err := client.FromRangeValues([][]interface{}{
		{"Name", "Age"},
		{"A", float64(1)},
		{"B"},
		{},
	}, "doc", sheet, sheetrec.Rows)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, positions(records))
	assert.Nil(t, records[1].Get("age"))
	assert.Nil(t, records[2].Get("name"))

	// the header is cached and reused for the next batch
	records, err = client.FromRangeValues([][]interface{}{{"ignored"}, {"C", float64(3)}}, "doc", sheet, sheetrec.Rows)
	require.NoError(t, err)
	assert.Equal(t, "C", records[0].Get("name"))

	_, err = client.FromRangeValues(nil, "doc", sheet, sheetrec.Rows)
	assert.True(t, errors.Is(err, sheetrec.ErrNoSchema))
}

func TestClient_Records(t *testing.T) {
	t.Run("requires an open session", func(t *testing.T) {
		client, _, _ := newTestClient(newFakeService())
		client.Close()
		_, err := client.Records(context.Background(), "doc", people, sheetrec.Rows)
		assert.Equal(t, sheetrec.ErrNoSession, err)
	})

	t.Run("requires a document", func(t *testing.T) {
		client, _, _ := newTestClient(newFakeService())
		_, err := client.Records(context.Background(), "", people, sheetrec.Rows)
		assert.Equal(t, sheetrec.ErrMissingDocument, err)
	})

	t.Run("reads the sheet grid when its size is known", func(t *testing.T) {
		svc := newFakeService()
		client, _, _ := newTestClient(svc)
		sheet := sheetrec.Sheet{ID: 7, Title: "People", RowCount: 1000, ColumnCount: 26}

		records, err := client.Records(context.Background(), "doc", sheet, sheetrec.Rows)
		require.NoError(t, err)
		assert.Equal(t, 3, records.Len())
		assert.Equal(t, []string{"People!A1:Z1000"}, svc.reads)
	})

	t.Run("retries transient read failures", func(t *testing.T) {
		svc := newFakeService()
		svc.readErrs = []error{&sheetrec.RemoteError{Kind: sheetrec.KindTransientTransport, Message: "connection reset"}}
		client, sleeps, hook := newTestClient(svc)

		records, err := client.Records(context.Background(), "doc", people, sheetrec.Rows)
		require.NoError(t, err)
		assert.Equal(t, 3, records.Len())
		assert.Len(t, *sleeps, 1)
		assert.NotEmpty(t, warnings(hook))
	})
}

func TestClient_Profiling(t *testing.T) {
	svc := newFakeService()
	client := sheetrec.New(svc, &sheetrec.Config{Profiling: true})
	client.Open()
	ctx := context.Background()

	records, err := client.Records(ctx, "doc", people, sheetrec.Rows)
	require.NoError(t, err)
	alice := records.First()
	require.NoError(t, alice.Set("status", "away"))
	require.NoError(t, alice.Save(ctx))

	r := client.NewRecord("doc", people, sheetrec.Rows)
	require.NoError(t, r.Set("name", "Eve"))
	require.NoError(t, r.Save(ctx))
	require.NoError(t, r.Destroy(ctx))

	s := client.Session()
	// the insert reuses the schema cached by Records
	assert.Equal(t, 1, s.ProfileCount("get_range"))
	assert.Equal(t, 2, s.ProfileCount("batch_write"))
	assert.Equal(t, 1, s.ProfileCount("insert_dimension"))
	assert.Equal(t, 1, s.ProfileCount("delete_dimension"))
	assert.Equal(t, 0, s.ProfileCount("create_metadata"))
}

func warnings(hook *test.Hook) []string {
	var out []string
	for _, e := range hook.AllEntries() {
		if e.Level.String() == "warning" {
			out = append(out, e.Message)
		}
	}
	return out
}

func TestClient_ReadRanges(t *testing.T) {
	svc := newFakeService()
	svc.values["Archive"] = [][]interface{}{{"Name"}, {"Zed"}}
	client, _, _ := newTestClient(svc)

	got, err := client.ReadRanges(context.Background(), "doc", []string{"People!1:1", "Archive"}, sheetrec.Rows)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []interface{}{"Name", "Email Address", "Status", "Score"}, got[0][0])
	assert.Equal(t, [][]interface{}{{"Name"}, {"Zed"}}, got[1])
	assert.Equal(t, []string{"People!1:1", "Archive"}, svc.reads)

	_, err = client.ReadRanges(context.Background(), "", []string{"People"}, sheetrec.Rows)
	assert.Equal(t, sheetrec.ErrMissingDocument, err)
}

func TestClient_AppendRange(t *testing.T) {
	svc := newFakeService()
	svc.appendErrs = []error{&sheetrec.RemoteError{Kind: sheetrec.KindTransientServer, Code: 503}}
	client, sleeps, _ := newTestClient(svc)
	ctx := context.Background()

	rows := [][]interface{}{{"Dave", "dave@example.com"}}
	require.NoError(t, client.AppendRange(ctx, "doc", "People", rows, sheetrec.Rows))
	assert.Equal(t, []sheetrec.ValueRange{{Range: "People", Values: rows}}, svc.appends)
	assert.Len(t, *sleeps, 1)

	require.NoError(t, client.AppendRange(ctx, "doc", "People", nil, sheetrec.Rows))
	assert.Len(t, svc.appends, 1)
}

func TestClient_ClearRangeAndAddNote(t *testing.T) {
	svc := newFakeService()
	client, _, _ := newTestClient(svc)
	ctx := context.Background()

	require.NoError(t, client.ClearRange(ctx, "doc", "People!B2:C3"))
	assert.Equal(t, []string{"People!B2:C3"}, svc.clears)

	require.NoError(t, client.AddNote(ctx, "doc", people, "B2", "checked"))
	assert.Equal(t, map[string]string{"People!B2": "checked"}, svc.notes)

	err := client.AddNote(ctx, "doc", people, "People!B2", "x")
	assert.True(t, errors.Is(err, sheetrec.ErrInvalidColumn))
	assert.Equal(t, sheetrec.ErrMissingDocument, client.ClearRange(ctx, "", "People"))
}
