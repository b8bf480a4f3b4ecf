// Package dataset holds the loosely-typed tabular model shared by the import pipeline:
// scalar cells, rows keyed by column name, sheets and the persisted per-page dataset.
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind identifies the variant stored in a Scalar.
type Kind uint8

const (
	KindNull Kind = iota
	KindText
	KindNumber
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	default:
		return "null"
	}
}

// Scalar is a single cell value: text, number or null.
// The zero value is null.
type Scalar struct {
	kind Kind
	text string
	num  float64
}

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// Text wraps a string value.
func Text(s string) Scalar { return Scalar{kind: KindText, text: s} }

// Number wraps a numeric value.
func Number(f float64) Scalar { return Scalar{kind: KindNumber, num: f} }

func (v Scalar) Kind() Kind   { return v.kind }
func (v Scalar) IsNull() bool { return v.kind == KindNull }

// Str returns the text value when the scalar holds text.
func (v Scalar) Str() (string, bool) {
	return v.text, v.kind == KindText
}

// Num returns the numeric value when the scalar holds a number.
func (v Scalar) Num() (float64, bool) {
	return v.num, v.kind == KindNumber
}

// String renders the scalar the way it is shown to users in previews.
func (v Scalar) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// Equal reports whether two scalars hold the same variant and value.
func (v Scalar) Equal(o Scalar) bool {
	return v.kind == o.kind && v.text == o.text && v.num == o.num
}

func (v Scalar) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		if math.IsNaN(v.num) || math.IsInf(v.num, 0) {
			return []byte("null"), nil
		}
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

func (v *Scalar) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Null()
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Text(strconv.FormatBool(b))
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("unsupported cell value %s: %w", data, err)
		}
		*v = Number(f)
	}
	return nil
}

// Row is one record keyed by column name. A missing key means the cell was absent.
type Row map[string]Scalar

// Clone returns a shallow copy of the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the key is present with a non-null value.
func (r Row) Has(key string) bool {
	v, ok := r[key]
	return ok && !v.IsNull()
}

// Sheet is one tab of an uploaded workbook (a CSV is a single sheet).
type Sheet struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Source labels where a dataset came from.
type Source string

const (
	SourceFile         Source = "file"
	SourceGoogleSheets Source = "googlesheets"
)

// Dataset is the persisted, mapped data of one dashboard page, keyed by sheet name.
type Dataset struct {
	PageID     string           `json:"pageId"`
	Sheets     map[string][]Row `json:"data"`
	FileName   string           `json:"fileName"`
	Source     Source           `json:"dataSource"`
	UploadedAt time.Time        `json:"uploadedAt"`
}

// SheetNames returns the dataset's sheet names in no particular order.
func (d *Dataset) SheetNames() []string {
	names := make([]string, 0, len(d.Sheets))
	for name := range d.Sheets {
		names = append(names, name)
	}
	return names
}

// RowCount sums the rows across all sheets.
func (d *Dataset) RowCount() int {
	total := 0
	for _, rows := range d.Sheets {
		total += len(rows)
	}
	return total
}

// Merge overlays other's sheets onto d, replacing same-named sheets.
func (d *Dataset) Merge(other *Dataset) {
	if d.Sheets == nil {
		d.Sheets = make(map[string][]Row, len(other.Sheets))
	}
	for name, rows := range other.Sheets {
		d.Sheets[name] = rows
	}
	d.FileName = other.FileName
	d.Source = other.Source
	d.UploadedAt = other.UploadedAt
}
