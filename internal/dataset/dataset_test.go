package dataset

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/xuri/excelize/v2"
)

func TestReadCSVInfersKinds(t *testing.T) {
	in := "\ufeff学号,姓名,语文,数学,备注\n1,Ann,90,80,ok\n2,Bob,85.5,,late\n3,Cid,70,60,\n"
	ds, err := ReadCSV("scores.csv", strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	want := []Column{
		{Name: "学号", Kind: KindNumeric},
		{Name: "姓名", Kind: KindText},
		{Name: "语文", Kind: KindNumeric},
		{Name: "数学", Kind: KindNumeric},
		{Name: "备注", Kind: KindText},
	}
	if diff := cmp.Diff(want, ds.Columns); diff != "" {
		t.Fatalf("columns mismatch (-want +got):\n%s", diff)
	}
	if len(ds.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(ds.Rows))
	}
	if got := ds.Rows[1][2].Num; got != 85.5 {
		t.Fatalf("expected 85.5, got %v", got)
	}
	if !ds.Rows[1][3].Missing {
		t.Fatalf("expected empty math cell to be missing")
	}
}

func TestReadCSVSniffsSemicolonAndLocale(t *testing.T) {
	in := "Name;Score\nA;1.000,5\nB;9,5\n"
	ds, err := ReadCSV("x.csv", strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Columns[1].Kind != KindNumeric {
		t.Fatalf("expected numeric Score column")
	}
	if ds.Rows[0][1].Num != 1000.5 || ds.Rows[1][1].Num != 9.5 {
		t.Fatalf("unexpected values: %v %v", ds.Rows[0][1].Num, ds.Rows[1][1].Num)
	}
}

func TestReadCSVPadsShortRowsAndNamesEmptyHeaders(t *testing.T) {
	in := "Name,,Math\nA,1\nB,2,3\n"
	ds, err := ReadCSV("x.csv", strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if ds.Columns[1].Name != "column_2" {
		t.Fatalf("expected generated header, got %q", ds.Columns[1].Name)
	}
	if len(ds.Rows[0]) != 3 || !ds.Rows[0][2].Missing {
		t.Fatalf("expected padded missing cell, got %+v", ds.Rows[0])
	}
}

func TestDuplicateHeadersAreRenamed(t *testing.T) {
	in := "name,math,math,math.1, math \nA,1,2,3,4\n"
	ds, err := ReadCSV("dup.csv", strings.NewReader(in), Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	var got []string
	for _, c := range ds.Columns {
		got = append(got, c.Name)
	}
	if diff := cmp.Diff([]string{"name", "math", "math.2", "math.1", "math.3"}, got); diff != "" {
		t.Fatalf("header mismatch (-want +got):\n%s", diff)
	}
	if i := ds.ColumnIndex("math.3"); i != 4 || ds.Rows[0][i].Num != 4 {
		t.Fatalf("math.3 should resolve to the last column, got index %d", i)
	}
}

func TestReadCSVEmptyInput(t *testing.T) {
	ds, err := ReadCSV("empty.csv", strings.NewReader(""), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ds.Columns) != 0 || len(ds.Rows) != 0 {
		t.Fatalf("expected empty dataset, got %+v", ds)
	}
}

func TestAllEmptyColumnIsText(t *testing.T) {
	ds := FromRecords("x", []string{"a", "b"}, [][]string{{"1", ""}, {"2", " "}}, Options{})
	if ds.Columns[0].Kind != KindNumeric || ds.Columns[1].Kind != KindText {
		t.Fatalf("unexpected kinds: %+v", ds.Columns)
	}
}

func TestMaxRows(t *testing.T) {
	in := "n,v\na,1\nb,2\nc,3\n"
	ds, err := ReadCSV("x.csv", strings.NewReader(in), Options{MaxRows: 2})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(ds.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(ds.Rows))
	}
}

func TestLoadFileXLSX(t *testing.T) {
	wb := excelize.NewFile()
	defer wb.Close()
	if _, err := wb.NewSheet("Scores"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	cells := map[string]any{
		"A1": "Name", "B1": "Math", "C1": "Art",
		"A2": "Ann", "B2": 91, "C2": 75,
		"A3": "Bob", "B3": 64, "C3": 88,
	}
	for cell, v := range cells {
		if err := wb.SetCellValue("Scores", cell, v); err != nil {
			t.Fatalf("set %s: %v", cell, err)
		}
	}
	buf, err := wb.WriteToBuffer()
	if err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/in/scores.xlsx", buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	ds, err := LoadFile(fs, "/in/scores.xlsx", Options{SheetName: "scores"})
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if ds.Name != "scores.xlsx" || len(ds.Rows) != 2 {
		t.Fatalf("unexpected dataset: %+v", ds)
	}
	if ds.Columns[1].Kind != KindNumeric || ds.Rows[1][1].Num != 64 {
		t.Fatalf("unexpected Math column: %+v / %+v", ds.Columns[1], ds.Rows[1][1])
	}

	if _, err := LoadFile(fs, "/in/scores.xlsx", Options{SheetName: "Missing"}); err == nil || !strings.Contains(err.Error(), "Available sheets") {
		t.Fatalf("expected sheet-not-found error, got %v", err)
	}
}
