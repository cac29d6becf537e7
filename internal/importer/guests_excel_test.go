package importer

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/wedding-planner/internal/model"
)

func strp(s string) *string { return &s }

func workbook(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestTemplate_HeaderOnly(t *testing.T) {
	data, err := Template()
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, sheetName, f.GetSheetName(0))
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, GuestHeader, rows[0])

	parsed, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, parsed)
}

func TestExportThenParse(t *testing.T) {
	guests := []model.Guest{
		{ID: "g1", Name: "Ann Lee", RSVPStatus: model.RSVPYes, Email: strp("ann@example.com"), GroupName: strp("bride's family"), PlusOnes: 1},
		{ID: "g2", Name: "Bob", RSVPStatus: model.RSVPPending, Dietary: strp("vegan")},
	}
	data, err := Export(guests)
	require.NoError(t, err)

	in, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, in, 2)
	assert.Equal(t, "Ann Lee", in[0].Name)
	assert.Equal(t, "yes", in[0].RSVPStatus)
	assert.Equal(t, "bride's family", *in[0].GroupName)
	assert.Equal(t, 1, in[0].PlusOnes)
	assert.Nil(t, in[0].Phone)
	assert.Equal(t, "vegan", *in[1].Dietary)
	assert.Zero(t, in[1].PlusOnes)
}

func TestParse_ReorderedColumnsAndBlankRows(t *testing.T) {
	data := workbook(t, [][]any{
		{"plus ones", "NAME", "rsvp"},
		{"2", "Cy", "no"},
		{"", "", ""},
		{"", "Dee", ""},
	})
	in, err := Parse(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, in, 2)
	assert.Equal(t, model.GuestInput{Name: "Cy", RSVPStatus: "no", PlusOnes: 2}, in[0])
	assert.Equal(t, "Dee", in[1].Name)
}

func TestParse_Errors(t *testing.T) {
	var ve *model.ValidationError

	_, err := Parse(bytes.NewReader([]byte("definitely not a zip")))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "file", ve.Field)

	_, err = Parse(bytes.NewReader(workbook(t, [][]any{{"Email"}, {"a@b.c"}})))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, model.CodeRequired, ve.Code)

	_, err = Parse(bytes.NewReader(workbook(t, [][]any{{"Name", "Plus Ones"}, {"Ann", "two"}})))
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "row 2 plus_ones", ve.Field)
}
