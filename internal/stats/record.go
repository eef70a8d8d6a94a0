package stats

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Statistics keys. Subject and total summaries use the first group; the
// average summary uses the class/highest/lowest keys instead.
const (
	KeyMean           = "mean"
	KeyMax            = "max"
	KeyMin            = "min"
	KeyStdDev         = "std_dev"
	KeyPassRate       = "pass_rate"
	KeyClassAverage   = "class_average"
	KeyHighestAverage = "highest_average"
	KeyLowestAverage  = "lowest_average"
)

// Aggregate column names appended to the derived table.
const (
	TotalKey   = "total"
	AverageKey = "average"
)

// Summary is one statistics record.
type Summary = Ordered[Number]

// Record is the machine-readable result of an analysis run.
type Record struct {
	BasicInfo BasicInfo  `json:"basic_info"`
	Rankings  Rankings   `json:"rankings"`
	Charts    []ChartRef `json:"charts"`
}

type BasicInfo struct {
	TotalStudents int              `json:"total_students"`
	Subjects      []string         `json:"subjects"`
	Statistics    Ordered[Summary] `json:"statistics"`
}

type Rankings struct {
	SubjectLeaders Ordered[Entry]   `json:"subject_leaders"`
	SubjectTop3    Ordered[[]Entry] `json:"subject_top3"`
	TotalLeader    *TotalEntry      `json:"total_leader,omitempty"`
	AverageLeader  *AverageEntry    `json:"average_leader,omitempty"`
	TotalTop3      []TotalEntry     `json:"total_top3"`
}

// Entry is a ranked name and score for one subject.
type Entry struct {
	Name  string `json:"name"`
	Score Number `json:"score"`
}

// TotalEntry is a ranked row with its total and per-subject breakdown.
type TotalEntry struct {
	Name   string          `json:"name"`
	Total  Number          `json:"total"`
	Scores Ordered[Number] `json:"scores"`
}

type AverageEntry struct {
	Name    string `json:"name"`
	Average Number `json:"average"`
}

// ChartRef locates one published chart artifact.
type ChartRef struct {
	Role   string `json:"role"`
	Title  string `json:"title"`
	Path   string `json:"path,omitempty"`
	Failed bool   `json:"failed,omitempty"`
}

// NewRecord returns an empty record for a table of n rows.
func NewRecord(n int) *Record {
	return &Record{
		BasicInfo: BasicInfo{
			TotalStudents: n,
			Subjects:      []string{},
			Statistics:    Ordered[Summary]{},
		},
		Rankings: Rankings{
			SubjectLeaders: Ordered[Entry]{},
			SubjectTop3:    Ordered[[]Entry]{},
			TotalTop3:      []TotalEntry{},
		},
		Charts: []ChartRef{},
	}
}

// Marshal encodes the record as indented JSON. Identical records always
// produce identical bytes.
func (r *Record) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return b, nil
}

// ParseRecord decodes a record produced by Marshal.
func ParseRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if r.BasicInfo.Subjects == nil {
		r.BasicInfo.Subjects = []string{}
	}
	if r.Charts == nil {
		r.Charts = []ChartRef{}
	}
	if r.Rankings.TotalTop3 == nil {
		r.Rankings.TotalTop3 = []TotalEntry{}
	}
	return &r, nil
}

// Summary renders a plain-text digest of the record for prompts and logs:
// class size, subjects, every statistics record, then the leaders.
func (r *Record) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Class size: %d students\n", r.BasicInfo.TotalStudents)
	fmt.Fprintf(&b, "Subjects: %s\n", strings.Join(r.BasicInfo.Subjects, ", "))
	b.WriteString("\nStatistics:\n")
	for _, s := range r.BasicInfo.Statistics {
		fmt.Fprintf(&b, "\n%s:\n", s.Key)
		for _, kv := range s.Value {
			fmt.Fprintf(&b, "  - %s: %s\n", kv.Key, kv.Value)
		}
	}
	b.WriteString("\nTop students:\n")
	for _, l := range r.Rankings.SubjectLeaders {
		fmt.Fprintf(&b, "  - %s first: %s (%s)\n", l.Key, l.Value.Name, l.Value.Score)
	}
	if tl := r.Rankings.TotalLeader; tl != nil {
		fmt.Fprintf(&b, "  - total first: %s (%s)\n", tl.Name, tl.Total)
	}
	if al := r.Rankings.AverageLeader; al != nil {
		fmt.Fprintf(&b, "  - average first: %s (%s)\n", al.Name, al.Average)
	}
	return b.String()
}
