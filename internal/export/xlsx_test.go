package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/scoreloom-cli/internal/classify"
	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

func analyze(t *testing.T) *stats.Result {
	t.Helper()
	in := "name,math,english\nP,90,\nQ,80,70\nR,70,90\n"
	ds, err := dataset.ReadCSV("scores", strings.NewReader(in), dataset.Options{})
	if err != nil {
		t.Fatal(err)
	}
	res, err := stats.Analyze(ds, classify.Classify(ds.Columns))
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestWriteWorkbook(t *testing.T) {
	res := analyze(t)
	var buf bytes.Buffer
	if err := Write(&buf, res.Record, res.Derived); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if diff := cmp.Diff([]string{SheetStatistics, SheetRankings, SheetStudents}, f.GetSheetList()); diff != "" {
		t.Fatalf("sheets (-want +got):\n%s", diff)
	}

	students, err := f.GetRows(SheetStudents)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Name", "math", "english", "total", "average"}, students[0]); diff != "" {
		t.Fatalf("header (-want +got):\n%s", diff)
	}
	// P has no english score: that cell stays blank.
	if len(students) != 4 || students[1][0] != "P" || students[1][2] != "" {
		t.Fatalf("unexpected student rows: %v", students)
	}

	rankings, err := f.GetRows(SheetRankings)
	if err != nil {
		t.Fatal(err)
	}
	if rankings[1][0] != "math" || rankings[1][2] != "P" {
		t.Fatalf("first ranking row: %v", rankings[1])
	}
}

func TestWorkbookWithoutDerived(t *testing.T) {
	res := analyze(t)
	f, err := Workbook(res.Record, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if len(f.GetSheetList()) != 2 {
		t.Fatalf("got sheets %v", f.GetSheetList())
	}
	rows, err := f.GetRows(SheetStatistics)
	if err != nil {
		t.Fatal(err)
	}
	if rows[1][0] != "math" || rows[1][1] != "mean" || rows[1][2] != "80" {
		t.Fatalf("first statistic row: %v", rows[1])
	}
}

func TestWorkbookNilRecord(t *testing.T) {
	if _, err := Workbook(nil, nil); err == nil {
		t.Fatal("expected error")
	}
}
