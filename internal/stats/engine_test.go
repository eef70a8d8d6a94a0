package stats

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/KaramelBytes/scoreloom-cli/internal/classify"
	"github.com/KaramelBytes/scoreloom-cli/internal/dataset"
)

var equateNumbers = cmp.Comparer(func(a, b Number) bool {
	return a == b || (!a.Valid() && !b.Valid())
})

func load(t *testing.T, csv string) (*dataset.Dataset, classify.Classification) {
	t.Helper()
	ds, err := dataset.ReadCSV("test.csv", strings.NewReader(csv), dataset.Options{})
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	return ds, classify.Classify(ds.Columns)
}

func analyze(t *testing.T, csv string) *Result {
	t.Helper()
	ds, cls := load(t, csv)
	res, err := Analyze(ds, cls)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return res
}

const threeByTwo = "name,s1,s2\nA,90,80\nB,80,90\nC,70,70\n"

func TestAnalyzeEndToEnd(t *testing.T) {
	res := analyze(t, threeByTwo)
	d := res.Derived
	if diff := cmp.Diff([]float64{170, 170, 140}, d.Total); diff != "" {
		t.Fatalf("total mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{85, 85, 70}, d.Average); diff != "" {
		t.Fatalf("average mismatch (-want +got):\n%s", diff)
	}
	rk := res.Record.Rankings
	if l, _ := rk.SubjectLeaders.Get("s1"); l != (Entry{Name: "A", Score: 90}) {
		t.Fatalf("unexpected s1 leader: %+v", l)
	}
	if rk.TotalLeader == nil || rk.TotalLeader.Name != "A" || rk.TotalLeader.Total != 170 {
		t.Fatalf("unexpected total leader: %+v", rk.TotalLeader)
	}
	wantScores := Ordered[Number]{{Key: "s1", Value: 90}, {Key: "s2", Value: 80}}
	if diff := cmp.Diff(wantScores, rk.TotalLeader.Scores); diff != "" {
		t.Fatalf("leader breakdown mismatch (-want +got):\n%s", diff)
	}
	if rk.AverageLeader == nil || rk.AverageLeader.Name != "A" || rk.AverageLeader.Average != 85 {
		t.Fatalf("unexpected average leader: %+v", rk.AverageLeader)
	}
	var names []string
	for _, e := range rk.TotalTop3 {
		names = append(names, e.Name)
	}
	if diff := cmp.Diff([]string{"A", "B", "C"}, names); diff != "" {
		t.Fatalf("total top3 mismatch (-want +got):\n%s", diff)
	}
	if got := res.Record.BasicInfo.Statistics.Keys(); !cmp.Equal(got, []string{"s1", "s2", TotalKey, AverageKey}) {
		t.Fatalf("unexpected statistics keys: %v", got)
	}
}

func TestDerivedAggregatesRecomputable(t *testing.T) {
	res := analyze(t, "name,a,b,c\nx,50.5,61,70\ny,99,12.25,40\nz,60,60,60\nw,0,100,33\n")
	d := res.Derived
	for i := range d.Names {
		sum := 0.0
		for _, v := range d.Scores[i] {
			sum += v
		}
		if d.Total[i] != sum {
			t.Errorf("row %d: total %v != %v", i, d.Total[i], sum)
		}
		if math.Abs(d.Average[i]-sum/float64(len(d.Subjects))) > 1e-9 {
			t.Errorf("row %d: average %v", i, d.Average[i])
		}
	}
	for _, s := range d.Subjects {
		st, _ := res.Record.BasicInfo.Statistics.Get(s)
		max, _ := st.Get(KeyMax)
		leader, _ := res.Record.Rankings.SubjectLeaders.Get(s)
		top, _ := res.Record.Rankings.SubjectTop3.Get(s)
		if leader.Score != max {
			t.Errorf("%s: leader %v != max %v", s, leader.Score, max)
		}
		if top[0] != leader {
			t.Errorf("%s: top3[0] %+v != leader %+v", s, top[0], leader)
		}
	}
}

func TestSubjectStatistics(t *testing.T) {
	res := analyze(t, "name,math\na,50\nb,60\nc,70\nd,81\n")
	st, ok := res.Record.BasicInfo.Statistics.Get("math")
	if !ok {
		t.Fatalf("missing math statistics")
	}
	want := Summary{
		{Key: KeyMean, Value: 65.25},
		{Key: KeyMax, Value: 81},
		{Key: KeyMin, Value: 50},
		{Key: KeyStdDev, Value: 13.3},
		{Key: KeyPassRate, Value: 75},
	}
	if diff := cmp.Diff(want, st, equateNumbers); diff != "" {
		t.Fatalf("statistics mismatch (-want +got):\n%s", diff)
	}
	avg, _ := res.Record.BasicInfo.Statistics.Get(AverageKey)
	if diff := cmp.Diff([]string{KeyClassAverage, KeyHighestAverage, KeyLowestAverage}, avg.Keys()); diff != "" {
		t.Fatalf("average keys mismatch (-want +got):\n%s", diff)
	}
	total, _ := res.Record.BasicInfo.Statistics.Get(TotalKey)
	if _, ok := total.Get(KeyPassRate); ok {
		t.Fatalf("total statistics must not carry a pass rate")
	}
}

func TestPassRateAllPassing(t *testing.T) {
	res := analyze(t, "name,a,b\nx,60,99\ny,75,60\nz,100,61\n")
	for _, s := range []string{"a", "b"} {
		st, _ := res.Record.BasicInfo.Statistics.Get(s)
		if pr, _ := st.Get(KeyPassRate); pr != 100 {
			t.Errorf("%s: pass rate %v, want 100", s, pr)
		}
	}
}

func TestPassRateCountsMissingRows(t *testing.T) {
	res := analyze(t, "name,a,b\nx,70,1\ny,,2\nz,50,3\n")
	st, _ := res.Record.BasicInfo.Statistics.Get("a")
	if pr, _ := st.Get(KeyPassRate); pr != 33.33 {
		t.Fatalf("pass rate %v, want 33.33", pr)
	}
}

func TestTieBreakFirstRowWins(t *testing.T) {
	csv := "name,math,art\nP,88,1\nQ,95,2\nR,95,3\nS,95,4\n"
	for i := 0; i < 5; i++ {
		res := analyze(t, csv)
		l, _ := res.Record.Rankings.SubjectLeaders.Get("math")
		if l.Name != "Q" {
			t.Fatalf("run %d: leader %q, want Q", i, l.Name)
		}
		top, _ := res.Record.Rankings.SubjectTop3.Get("math")
		got := []string{top[0].Name, top[1].Name, top[2].Name}
		if !cmp.Equal(got, []string{"Q", "R", "S"}) {
			t.Fatalf("run %d: top3 %v", i, got)
		}
	}
}

func TestTopIndices(t *testing.T) {
	vals := []float64{3, math.NaN(), 5, 5, 1}
	if got := TopIndices(vals, 3); !cmp.Equal(got, []int{2, 3, 0}) {
		t.Fatalf("TopIndices = %v", got)
	}
	if got := TopIndices(vals, 10); len(got) != 4 {
		t.Fatalf("expected NaN skipped, got %v", got)
	}
}

func TestSingleRowStdIsNaN(t *testing.T) {
	res := analyze(t, "name,a,b\nsolo,70,80\n")
	st, _ := res.Record.BasicInfo.Statistics.Get("a")
	std, _ := st.Get(KeyStdDev)
	if std.Valid() {
		t.Fatalf("expected NaN std, got %v", std)
	}
	b, err := res.Record.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(`"std_dev": null`)) {
		t.Fatalf("expected null std_dev in:\n%s", b)
	}
	back, err := ParseRecord(b)
	if err != nil {
		t.Fatalf("ParseRecord: %v", err)
	}
	if diff := cmp.Diff(res.Record, back, equateNumbers, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestZeroSubjects(t *testing.T) {
	res := analyze(t, "id,name\n1,a\n2,b\n")
	rec := res.Record
	if rec.BasicInfo.TotalStudents != 2 {
		t.Fatalf("total_students = %d, want 2", rec.BasicInfo.TotalStudents)
	}
	if len(rec.BasicInfo.Subjects) != 0 || len(rec.BasicInfo.Statistics) != 0 {
		t.Fatalf("expected empty statistics: %+v", rec.BasicInfo)
	}
	if len(rec.Rankings.SubjectLeaders) != 0 || rec.Rankings.TotalLeader != nil || len(rec.Rankings.TotalTop3) != 0 {
		t.Fatalf("expected empty rankings: %+v", rec.Rankings)
	}
	if res.Derived.Rows() != 0 {
		t.Fatalf("expected empty derived table")
	}
	b, err := rec.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !bytes.Contains(b, []byte(`"charts": []`)) || !bytes.Contains(b, []byte(`"statistics": {}`)) {
		t.Fatalf("unexpected empty record encoding:\n%s", b)
	}
}

func TestNameFallback(t *testing.T) {
	res := analyze(t, "code,pupil,math\nk1,Ann,70\nk2,Bob,90\n")
	if !res.NameFallback || res.NameColumn != "pupil" {
		t.Fatalf("expected positional fallback to pupil, got %q (%v)", res.NameColumn, res.NameFallback)
	}
	l, _ := res.Record.Rankings.SubjectLeaders.Get("math")
	if l.Name != "Bob" {
		t.Fatalf("leader %q, want Bob", l.Name)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	ds, cls := load(t, "学号,姓名,语文,数学,英语\n1,甲,88,92,79\n2,乙,92,88,95\n3,丙,60,59,61\n4,丁,92,70,\n")
	var first []byte
	for i := 0; i < 3; i++ {
		res, err := Analyze(ds, cls)
		if err != nil {
			t.Fatalf("Analyze: %v", err)
		}
		b, err := res.Record.Marshal()
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if first == nil {
			first = b
			continue
		}
		if !bytes.Equal(first, b) {
			t.Fatalf("run %d differs:\n%s\nvs\n%s", i, first, b)
		}
	}
}

func TestParseRecordMalformed(t *testing.T) {
	if _, err := ParseRecord([]byte(`{"basic_info": [}`)); err == nil {
		t.Fatalf("expected error for malformed record")
	}
	if _, err := ParseRecord([]byte(`{"basic_info": {"statistics": []}}`)); err == nil {
		t.Fatalf("expected error for array statistics")
	}
}

func TestRecordSummary(t *testing.T) {
	res := analyze(t, threeByTwo)
	s := res.Record.Summary()
	for _, want := range []string{
		"Class size: 3 students",
		"Subjects: s1, s2",
		"  - pass_rate: 100",
		"  - s2 first: B (90)",
		"  - total first: A (170)",
		"  - average first: A (85)",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("summary missing %q:\n%s", want, s)
		}
	}
}

func TestReservedColumnNamesAreDropped(t *testing.T) {
	res := analyze(t, "name,math,art,total\nA,90,80,170\nB,60,70,130\n")
	if diff := cmp.Diff([]string{"total"}, res.Reserved); diff != "" {
		t.Fatalf("reserved (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"math", "art"}, res.Record.BasicInfo.Subjects); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}
	// The input total column is not summed into the derived total.
	if res.Derived.Total[0] != 170 || res.Derived.Total[1] != 130 {
		t.Fatalf("derived totals %v", res.Derived.Total)
	}
}

func TestDuplicateSubjectColumnsSumSeparately(t *testing.T) {
	res := analyze(t, "name,math,math\nA,90,10\nB,80,20\n")
	if diff := cmp.Diff([]string{"math", "math.1"}, res.Record.BasicInfo.Subjects); diff != "" {
		t.Fatalf("subjects (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]float64{100, 100}, res.Derived.Total); diff != "" {
		t.Fatalf("total mismatch (-want +got):\n%s", diff)
	}
	tl := res.Record.Rankings.TotalLeader
	if tl == nil || tl.Name != "A" || tl.Total != 100 {
		t.Fatalf("unexpected total leader: %+v", tl)
	}
	want := Ordered[Number]{{Key: "math", Value: 90}, {Key: "math.1", Value: 10}}
	if diff := cmp.Diff(want, tl.Scores); diff != "" {
		t.Fatalf("leader breakdown mismatch (-want +got):\n%s", diff)
	}
}
