// Package sniffer reads uploaded spreadsheets (XLSX workbooks and CSV/TSV text)
// into named sheets of header-keyed rows, detecting the format and delimiter.
package sniffer

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/xuri/excelize/v2"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/import/normalizer"
)

// Format is the container format of an upload.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

var (
	ErrEmptyFile         = errors.New("file is empty")
	ErrNoHeadersFound    = errors.New("could not find data headers")
	ErrUnsupportedFormat = errors.New("unsupported file format")
)

var (
	zipMagic = []byte("PK\x03\x04")
	// legacy .xls (OLE2 compound document)
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0}
	utf8BOM  = []byte{0xEF, 0xBB, 0xBF}
)

// Workbook is a parsed upload.
type Workbook struct {
	Format Format
	Sheets []dataset.Sheet
	// Fingerprint identifies the header layout across uploads of the same spreadsheet.
	Fingerprint string
}

// DetectFormat decides how an upload should be read from its content, falling back
// to the file extension only to reject spreadsheet names whose bytes are not a workbook.
func DetectFormat(data []byte, fileName string) (Format, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX, nil
	case bytes.HasPrefix(data, oleMagic):
		return "", fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupportedFormat)
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm", ".xls":
		return "", fmt.Errorf("%w: %s is not a valid workbook", ErrUnsupportedFormat, fileName)
	}
	return FormatCSV, nil
}

// ReadWorkbook parses an upload into sheets. XLSX sheets keep workbook order; a CSV
// file becomes a single sheet named after the file.
func ReadWorkbook(data []byte, fileName string) (*Workbook, error) {
	format, err := DetectFormat(data, fileName)
	if err != nil {
		return nil, err
	}

	var sheets []dataset.Sheet
	switch format {
	case FormatXLSX:
		sheets, err = readXLSX(data)
	default:
		sheets, err = readCSV(data, fileName)
	}
	if err != nil {
		return nil, err
	}

	var headers []string
	for _, s := range sheets {
		headers = append(headers, s.Columns...)
	}
	if len(headers) == 0 {
		return nil, ErrNoHeadersFound
	}

	return &Workbook{
		Format:      format,
		Sheets:      sheets,
		Fingerprint: generateFingerprint(headers),
	}, nil
}

func readXLSX(data []byte) ([]dataset.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	names := f.GetSheetList()
	sheets := make([]dataset.Sheet, 0, len(names))
	for _, name := range names {
		records, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		sheets = append(sheets, buildSheet(name, records, xlsxCellParser(f, name)))
	}
	return sheets, nil
}

// xlsxCellParser keeps cells stored as strings as text, so "007" typed into a
// text cell is not read back as the number 7. Other cells go through ParseCell.
func xlsxCellParser(f *excelize.File, sheet string) cellParser {
	return func(row, col int, raw string) (dataset.Scalar, bool) {
		cell, err := excelize.CoordinatesToCellName(col+1, row+1)
		if err != nil {
			return normalizer.ParseCell(raw)
		}
		typ, err := f.GetCellType(sheet, cell)
		if err != nil {
			return normalizer.ParseCell(raw)
		}
		switch typ {
		case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
			s := strings.TrimSpace(raw)
			if s == "" {
				return dataset.Null(), false
			}
			return dataset.Text(s), true
		default:
			return normalizer.ParseCell(raw)
		}
	}
}

func readCSV(data []byte, fileName string) ([]dataset.Sheet, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectDelimiter(data)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV: %w", err)
		}
		records = append(records, record)
	}

	name := strings.TrimSuffix(filepath.Base(fileName), filepath.Ext(fileName))
	if name == "" || name == "." {
		name = "Sheet1"
	}
	return []dataset.Sheet{buildSheet(name, records, csvCellParser)}, nil
}

// detectDelimiter picks the candidate occurring most often on the first non-empty
// line, earlier candidates winning ties. Single-column files fall back to ','.
func detectDelimiter(data []byte) rune {
	delimiters := []rune{';', '\t', ',', '|'}

	var first string
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) != "" {
			first = line
			break
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if count := strings.Count(first, string(d)); count > bestCount {
			best, bestCount = d, count
		}
	}
	return best
}

// cellParser converts the raw cell at the zero-based record row and column.
type cellParser func(row, col int, raw string) (dataset.Scalar, bool)

func csvCellParser(_, _ int, raw string) (dataset.Scalar, bool) {
	return normalizer.ParseCell(raw)
}

// buildSheet turns raw records into a sheet. The first row with any content is the
// header; columns with a blank header are dropped and repeated headers get the
// first free numeric suffix. Blank cells are left out of rows and rows without any
// value are skipped.
func buildSheet(name string, records [][]string, parse cellParser) dataset.Sheet {
	sheet := dataset.Sheet{Name: name}

	headerAt := -1
	for i, rec := range records {
		if !blankRecord(rec) {
			headerAt = i
			break
		}
	}
	if headerAt < 0 {
		return sheet
	}

	header := records[headerAt]
	keys := make([]string, len(header))
	used := make(map[string]bool, len(header))
	suffix := make(map[string]int)
	for i, raw := range header {
		h := normalizer.CleanHeader(raw)
		if h == "" {
			continue
		}
		for base := h; used[h]; {
			suffix[base]++
			h = fmt.Sprintf("%s_%d", base, suffix[base])
		}
		used[h] = true
		keys[i] = h
		sheet.Columns = append(sheet.Columns, h)
	}

	for r := headerAt + 1; r < len(records); r++ {
		row := make(dataset.Row, len(keys))
		for i, raw := range records[r] {
			if i >= len(keys) || keys[i] == "" {
				continue
			}
			if v, ok := parse(r, i, raw); ok {
				row[keys[i]] = v
			}
		}
		if len(row) > 0 {
			sheet.Rows = append(sheet.Rows, row)
		}
	}
	return sheet
}

func blankRecord(rec []string) bool {
	for _, cell := range rec {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// generateFingerprint hashes the normalized header names.
func generateFingerprint(headers []string) string {
	var normalized []string
	for _, h := range headers {
		clean := strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return -1
		}, h)
		if clean != "" {
			normalized = append(normalized, clean)
		}
	}

	joined := strings.Join(normalized, "|")
	hash := sha256.Sum256([]byte(joined))
	return hex.EncodeToString(hash[:])
}
