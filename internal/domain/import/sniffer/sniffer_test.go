package sniffer

import (
	"errors"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

// Brazilian export with BOM, semicolons and a blank line before the header
const sampleSemicolonCSV = "\ufeff\n" +
	"Data;Descrição;Valor;Categoria\n" +
	"2024-01-02;Pingo Doce;45,23;Alimentação\n" +
	";;;\n" +
	"2024-01-03;Netflix;12.99;\n"

const sampleAmericanCSV = `Date,Description,Amount,Category
01/02/2024,Starbucks,-5.40,Food & Dining
01/05/2024,Payroll,2500.00,Income
`

const sampleTSV = "Mês\tReceita\tReceita\n2024-01\t150000\t1\n"

func buildXLSX(t *testing.T, sheets map[string][][]any, order []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				t.Fatalf("SetSheetName failed: %v", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			t.Fatalf("NewSheet failed: %v", err)
		}
		for r, row := range sheets[name] {
			cell, _ := excelize.CoordinatesToCellName(1, r+1)
			values := row
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				t.Fatalf("SetSheetRow failed: %v", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("WriteToBuffer failed: %v", err)
	}
	return buf.Bytes()
}

func TestReadWorkbook_SemicolonCSV(t *testing.T) {
	wb, err := ReadWorkbook([]byte(sampleSemicolonCSV), "extrato.csv")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	if wb.Format != FormatCSV {
		t.Errorf("Expected format csv, got %s", wb.Format)
	}
	if len(wb.Sheets) != 1 {
		t.Fatalf("Expected 1 sheet, got %d", len(wb.Sheets))
	}

	sheet := wb.Sheets[0]
	if sheet.Name != "extrato" {
		t.Errorf("Expected sheet named after the file, got %q", sheet.Name)
	}

	expected := []string{"Data", "Descrição", "Valor", "Categoria"}
	if len(sheet.Columns) != len(expected) {
		t.Fatalf("Expected %d columns, got %v", len(expected), sheet.Columns)
	}
	for i, c := range expected {
		if sheet.Columns[i] != c {
			t.Errorf("Column %d: expected %q, got %q", i, c, sheet.Columns[i])
		}
	}

	if len(sheet.Rows) != 2 {
		t.Fatalf("Expected 2 rows (blank row skipped), got %d", len(sheet.Rows))
	}
	if !sheet.Rows[0]["Valor"].Equal(dataset.Text("45,23")) {
		t.Errorf("Regional amounts stay text at ingestion, got %v", sheet.Rows[0]["Valor"])
	}
	if !sheet.Rows[1]["Valor"].Equal(dataset.Number(12.99)) {
		t.Errorf("Expected number 12.99, got %v", sheet.Rows[1]["Valor"])
	}
	if _, ok := sheet.Rows[1]["Categoria"]; ok {
		t.Error("Blank cells should be absent from the row")
	}
}

func TestReadWorkbook_AmericanCSV(t *testing.T) {
	wb, err := ReadWorkbook([]byte(sampleAmericanCSV), "export.csv")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	rows := wb.Sheets[0].Rows
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if !rows[0]["Amount"].Equal(dataset.Number(-5.4)) {
		t.Errorf("Expected -5.4, got %v", rows[0]["Amount"])
	}
	if !rows[0]["Category"].Equal(dataset.Text("Food & Dining")) {
		t.Errorf("Unexpected category %v", rows[0]["Category"])
	}
}

func TestReadWorkbook_TSVDuplicateHeaders(t *testing.T) {
	wb, err := ReadWorkbook([]byte(sampleTSV), "dados.tsv")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	cols := wb.Sheets[0].Columns
	if len(cols) != 3 || cols[1] != "Receita" || cols[2] != "Receita_1" {
		t.Errorf("Expected repeated header to be suffixed, got %v", cols)
	}
	if !wb.Sheets[0].Rows[0]["Receita_1"].Equal(dataset.Number(1)) {
		t.Errorf("Unexpected value %v", wb.Sheets[0].Rows[0]["Receita_1"])
	}
}

func TestReadWorkbook_XLSX(t *testing.T) {
	data := buildXLSX(t, map[string][][]any{
		"Vendas": {
			{"Produto", "Valor", ""},
			{"Consultoria", 1500, "ignored"},
			{nil, nil},
			{"Auditoria", 2750.5},
		},
		"Vazia": {},
	}, []string{"Vendas", "Vazia"})

	wb, err := ReadWorkbook(data, "relatorio.xlsx")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}
	if wb.Format != FormatXLSX {
		t.Errorf("Expected format xlsx, got %s", wb.Format)
	}
	if len(wb.Sheets) != 2 {
		t.Fatalf("Expected 2 sheets, got %d", len(wb.Sheets))
	}
	if wb.Sheets[0].Name != "Vendas" || wb.Sheets[1].Name != "Vazia" {
		t.Errorf("Sheets out of workbook order: %s, %s", wb.Sheets[0].Name, wb.Sheets[1].Name)
	}

	vendas := wb.Sheets[0]
	if len(vendas.Columns) != 2 {
		t.Errorf("Expected blank header column dropped, got %v", vendas.Columns)
	}
	if len(vendas.Rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(vendas.Rows))
	}
	if !vendas.Rows[0]["Valor"].Equal(dataset.Number(1500)) {
		t.Errorf("Expected 1500, got %v", vendas.Rows[0]["Valor"])
	}
	if !vendas.Rows[1]["Valor"].Equal(dataset.Number(2750.5)) {
		t.Errorf("Expected 2750.5, got %v", vendas.Rows[1]["Valor"])
	}
	if len(wb.Sheets[1].Columns) != 0 || len(wb.Sheets[1].Rows) != 0 {
		t.Error("Expected empty sheet to have no columns or rows")
	}
}

func TestReadWorkbook_SuffixCollision(t *testing.T) {
	wb, err := ReadWorkbook([]byte("A,A,A_1\n1,2,3\n"), "dup.csv")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	sheet := wb.Sheets[0]
	want := []string{"A", "A_1", "A_1_1"}
	if len(sheet.Columns) != len(want) {
		t.Fatalf("Expected columns %v, got %v", want, sheet.Columns)
	}
	for i, c := range want {
		if sheet.Columns[i] != c {
			t.Errorf("Expected column %d to be %q, got %q", i, c, sheet.Columns[i])
		}
	}
	if len(sheet.Rows) != 1 || len(sheet.Rows[0]) != 3 {
		t.Fatalf("Expected one row with 3 values, got %v", sheet.Rows)
	}
	for i, c := range want {
		if !sheet.Rows[0][c].Equal(dataset.Number(float64(i + 1))) {
			t.Errorf("Expected %s = %d, got %v", c, i+1, sheet.Rows[0][c])
		}
	}
}

func TestReadWorkbook_XLSXTextCells(t *testing.T) {
	data := buildXLSX(t, map[string][][]any{
		"Clientes": {
			{"Codigo", "Quantidade"},
			{"007", 7},
			{"  ", 8},
		},
	}, []string{"Clientes"})

	wb, err := ReadWorkbook(data, "clientes.xlsx")
	if err != nil {
		t.Fatalf("ReadWorkbook failed: %v", err)
	}

	rows := wb.Sheets[0].Rows
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if !rows[0]["Codigo"].Equal(dataset.Text("007")) {
		t.Errorf("Expected text cell to stay \"007\", got %v", rows[0]["Codigo"])
	}
	if !rows[0]["Quantidade"].Equal(dataset.Number(7)) {
		t.Errorf("Expected numeric cell 7, got %v", rows[0]["Quantidade"])
	}
	if rows[1].Has("Codigo") {
		t.Errorf("Expected blank text cell to be absent, got %v", rows[1]["Codigo"])
	}
}

func TestReadWorkbook_Errors(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		fileName string
		want     error
	}{
		{"empty", []byte("  \n"), "a.csv", ErrEmptyFile},
		{"legacy xls", []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1}, "a.xls", ErrUnsupportedFormat},
		{"fake xlsx", []byte("not a workbook"), "a.xlsx", ErrUnsupportedFormat},
		{"only blank rows", []byte(";;\n;;\n"), "a.csv", ErrNoHeadersFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadWorkbook(tt.data, tt.fileName)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		input    string
		expected rune
	}{
		{"a;b;c", ';'},
		{"a\tb\tc", '\t'},
		{"a,b,c", ','},
		{"a|b|c", '|'},
		{"single", ','},
		{"\n\na;b,c;d", ';'},
	}

	for _, tt := range tests {
		if got := detectDelimiter([]byte(tt.input)); got != tt.expected {
			t.Errorf("detectDelimiter(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestGenerateFingerprint(t *testing.T) {
	a := generateFingerprint([]string{"Data", "Valor (R$)"})
	b := generateFingerprint([]string{"data", "VALOR R$"})
	c := generateFingerprint([]string{"Valor", "Data"})

	if a != b {
		t.Error("Fingerprint should ignore case and punctuation")
	}
	if a == c {
		t.Error("Fingerprint should depend on header order")
	}
	if len(a) != 64 {
		t.Errorf("Expected SHA256 hex length 64, got %d", len(a))
	}
}
