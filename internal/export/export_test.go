package export_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/nhle/po-intake/internal/export"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/testutil"
)

var now = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func TestDocumentRoundTrip(t *testing.T) {
	sub := testutil.ValidSubmission()
	sub.ID = 12
	sub.CreatedAt = now
	sub.Timestamp = now.UnixMilli()

	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, export.NewDocument([]model.Submission{sub}, now)))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "1.0", doc["version"])
	assert.Equal(t, "2024-03-15T09:30:00.000Z", doc["timestamp"])

	subs, err := export.ParseDocument(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(12), subs[0].ID)
	assert.Equal(t, sub.Meta, subs[0].Meta)
	assert.True(t, subs[0].CreatedAt.Equal(now))
	assert.Equal(t, sub.Timestamp, subs[0].Timestamp)
}

func TestEmptyDocumentHasArray(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, export.NewDocument(nil, now)))
	assert.Contains(t, buf.String(), `"pos": []`)
}

func TestParseDocument(t *testing.T) {
	subs, err := export.ParseDocument([]byte(`[{"id": 3, "meta": {"projectName": "A"}}]`))
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "A", subs[0].Meta.ProjectName)

	_, err = export.ParseDocument([]byte(`{"version": "1.0"}`))
	assert.Error(t, err)
	_, err = export.ParseDocument([]byte(`[1, 2]`))
	assert.Error(t, err)
	_, err = export.ParseDocument([]byte(`"nope"`))
	assert.Error(t, err)
	_, err = export.ParseDocument([]byte(`{`))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "apex_po_export_all_2024-03-15.json", export.Filename("all", now))
}

func TestScheduleWorkbook(t *testing.T) {
	sub := testutil.ValidSubmission()
	sub.ID = 5
	sub.CreatedAt = now
	sub.Schedule = append(sub.Schedule, model.ScheduleLine{
		PrimeLine: "2", BudgetCode: "=SUM(A1)", Description: "Sheathing",
		Qty: 4, Unit: 25, Scheduled: 100, ApexContractValue: 150,
	})

	data, err := export.ScheduleWorkbook(sub)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	sheets := f.GetSheetList()
	require.Equal(t, []string{"Schedule of Values"}, sheets)
	sheet := sheets[0]

	title, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Riverside Lofts", title)

	header, err := f.GetCellValue(sheet, "I4")
	require.NoError(t, err)
	assert.Equal(t, "Profit", header)

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 7)

	assert.Equal(t, "50", rows[4][5])
	assert.Equal(t, "-10", rows[4][8])
	assert.Equal(t, "'=SUM(A1)", rows[5][1])
	assert.Equal(t, "Totals", rows[6][2])
	assert.Equal(t, "150", rows[6][5])
	assert.Equal(t, "40", rows[6][8])
}
