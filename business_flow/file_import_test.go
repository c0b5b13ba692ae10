package businessflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestFileImporterCSV(t *testing.T) {
	importer := NewFileImporter()

	t.Run("destination and name columns", func(t *testing.T) {
		path := writeTempFile(t, "recipients.csv", "98912000001,Sara\n98912000002,Reza\n98912000003\n")

		rows, err := importer.Import(path)
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, FileRow{Destination: "98912000001", Name: "Sara"}, rows[0])
		assert.Equal(t, FileRow{Destination: "98912000002", Name: "Reza"}, rows[1])
		assert.Equal(t, FileRow{Destination: "98912000003"}, rows[2])
	})

	t.Run("whitespace trimmed", func(t *testing.T) {
		path := writeTempFile(t, "recipients.csv", " 98912000001 , Sara \n")

		rows, err := importer.Import(path)
		require.NoError(t, err)
		assert.Equal(t, "98912000001", rows[0].Destination)
		assert.Equal(t, "Sara", rows[0].Name)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := importer.Import(filepath.Join(t.TempDir(), "missing.csv"))
		assert.Error(t, err)
	})
}

func TestFileImporterXLSX(t *testing.T) {
	importer := NewFileImporter()

	path := filepath.Join(t.TempDir(), "recipients.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "98912000001"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Sara"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "98912000002"))
	require.NoError(t, f.SaveAs(path))

	rows, err := importer.Import(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, FileRow{Destination: "98912000001", Name: "Sara"}, rows[0])
	assert.Equal(t, FileRow{Destination: "98912000002"}, rows[1])
}

func TestFileImporterUnsupportedFormat(t *testing.T) {
	importer := NewFileImporter()

	_, err := importer.Import("recipients.txt")
	assert.True(t, IsUnsupportedFileFormat(err))

	_, err = importer.Import("recipients")
	assert.True(t, IsUnsupportedFileFormat(err))
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
