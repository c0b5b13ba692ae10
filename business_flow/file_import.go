package businessflow

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// FileRow is one parsed line of an uploaded recipient file: the destination
// in the first column and an optional substitution name in the second.
type FileRow struct {
	Destination string
	Name        string
}

// FileImporter parses uploaded recipient files into ordered rows.
type FileImporter struct{}

func NewFileImporter() *FileImporter {
	return &FileImporter{}
}

// Import dispatches on the file extension. Anything other than csv or xlsx
// is rejected before any rows are read.
func (i *FileImporter) Import(path string) ([]FileRow, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return i.importCSV(path)
	case ".xlsx":
		return i.importXLSX(path)
	default:
		return nil, NewBusinessErrorf("INPUT_FILE_FORMAT", "Unsupported recipient file %q", ErrUnsupportedFileFormat, filepath.Base(path))
	}
}

func (i *FileImporter) importCSV(path string) ([]FileRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_FILE_OPEN_FAILED", "Failed to open recipient file", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_FILE_PARSE_FAILED", "Failed to parse recipient CSV", err)
	}

	var rows []FileRow
	for _, record := range records {
		rows = append(rows, rowFromColumns(record))
	}
	return rows, nil
}

func (i *FileImporter) importXLSX(path string) ([]FileRow, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_FILE_OPEN_FAILED", "Failed to open recipient workbook", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, NewBusinessError("RECIPIENT_FILE_PARSE_FAILED", "Failed to parse recipient workbook", err)
	}

	var rows []FileRow
	for _, record := range records {
		rows = append(rows, rowFromColumns(record))
	}
	return rows, nil
}

func rowFromColumns(cols []string) FileRow {
	var row FileRow
	if len(cols) > 0 {
		row.Destination = strings.TrimSpace(cols[0])
	}
	if len(cols) > 1 {
		row.Name = strings.TrimSpace(cols[1])
	}
	return row
}
