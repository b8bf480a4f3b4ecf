package normalizer

import (
	"testing"

	"github.com/implementacao-techfala/dashboardfinanceiro/internal/domain/dataset"
)

func TestParseAmount_European(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"45,23", 45.23},
		{"1.234,56", 1234.56},
		{"1.000.000,00", 1000000},
		{"0,99", 0.99},
		{"-45,23", -45.23},
		{"  45,23  ", 45.23},
		{"R$ 1.500,00", 1500},
	}

	for _, tc := range tests {
		got, err := ParseAmount(tc.input, true)
		if err != nil {
			t.Errorf("ParseAmount(%q, true) error: %v", tc.input, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("ParseAmount(%q, true) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseAmount_American(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"45.23", 45.23},
		{"1,234.56", 1234.56},
		{"1,000,000.00", 1000000},
		{"-29.99", -29.99},
		{"$45.23", 45.23},
	}

	for _, tc := range tests {
		got, err := ParseAmount(tc.input, false)
		if err != nil {
			t.Errorf("ParseAmount(%q, false) error: %v", tc.input, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("ParseAmount(%q, false) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, input := range []string{"", "   ", "abc"} {
		if _, err := ParseAmount(input, true); err == nil {
			t.Errorf("ParseAmount(%q) expected error", input)
		}
	}
}

func TestIsEuropeanFormat(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"1.234,56", true},
		{"1,234.56", false},
		{"45,23", true},
		{"45.23", false},
		{"1.500", true},
		{"1.000.000", true},
		{"1500", false},
	}

	for _, tc := range tests {
		if got := IsEuropeanFormat(tc.input); got != tc.expected {
			t.Errorf("IsEuropeanFormat(%q) = %v, want %v", tc.input, got, tc.expected)
		}
	}
}

func TestParseCell(t *testing.T) {
	tests := []struct {
		input   string
		want    dataset.Scalar
		present bool
	}{
		{"", dataset.Null(), false},
		{"   ", dataset.Null(), false},
		{"1500", dataset.Number(1500), true},
		{" -2.5 ", dataset.Number(-2.5), true},
		{"1e3", dataset.Number(1000), true},
		{"2024-01", dataset.Text("2024-01"), true},
		{"R$ 1.500,00", dataset.Text("R$ 1.500,00"), true},
		{"NaN", dataset.Text("NaN"), true},
		{"Inf", dataset.Text("Inf"), true},
		{"0x10", dataset.Text("0x10"), true},
		{"  Zov ", dataset.Text("Zov"), true},
	}

	for _, tc := range tests {
		got, present := ParseCell(tc.input)
		if present != tc.present {
			t.Errorf("ParseCell(%q) present = %v, want %v", tc.input, present, tc.present)
			continue
		}
		if present && !got.Equal(tc.want) {
			t.Errorf("ParseCell(%q) = %v (%s), want %v (%s)", tc.input, got, got.Kind(), tc.want, tc.want.Kind())
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		input dataset.Scalar
		want  float64
		ok    bool
	}{
		{dataset.Number(12.5), 12.5, true},
		{dataset.Text("300"), 300, true},
		{dataset.Text("R$ 1.500,00"), 1500, true},
		{dataset.Text("1,234.56"), 1234.56, true},
		{dataset.Text("Zov"), 0, false},
		{dataset.Text("2024-01-15"), 0, false},
		{dataset.Null(), 0, false},
	}

	for _, tc := range tests {
		got, ok := ToNumber(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ToNumber(%v) = (%v, %v), want (%v, %v)", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestCleanHeader(t *testing.T) {
	if got := CleanHeader("  Receita   Total\t(R$) "); got != "Receita Total (R$)" {
		t.Errorf("CleanHeader = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Recebimento Clientes", 15); got != "Recebimento Cli" {
		t.Errorf("Truncate = %q", got)
	}
	if got := Truncate("Ação", 15); got != "Ação" {
		t.Errorf("Truncate = %q", got)
	}
}
