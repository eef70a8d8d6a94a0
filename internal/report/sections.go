package report

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/scoreloom-cli/internal/chart"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

var medals = []string{"🥇", "🥈", "🥉"}

// Marker returns the ordinal marker for a 1-based rank.
func Marker(rank int) string {
	if rank >= 1 && rank <= len(medals) {
		return medals[rank-1]
	}
	return "🏅"
}

// BasicInfoSection lists row count, subjects, statistics dimensions, and chart count.
func BasicInfoSection(rec *stats.Record, chartCount int) Section {
	bi := rec.BasicInfo
	return Section{
		ID:    "basic-info",
		Title: "Basic Information",
		Blocks: []Block{InfoList{Items: []InfoItem{
			{Label: "Students", Value: strconv.Itoa(bi.TotalStudents)},
			{Label: "Subjects", Value: strings.Join(bi.Subjects, ", ")},
			{Label: "Statistics dimensions", Value: strconv.Itoa(len(bi.Statistics))},
			{Label: "Charts", Value: strconv.Itoa(chartCount)},
		}}},
	}
}

// StatisticsSection renders one metric table per statistics key.
func StatisticsSection(rec *stats.Record) Section {
	s := Section{ID: "statistics", Title: "Subject Statistics"}
	for _, st := range rec.BasicInfo.Statistics {
		t := Table{Heading: st.Key, Columns: []string{"Metric", "Value"}}
		for _, kv := range st.Value {
			t.Rows = append(t.Rows, []string{kv.Key, kv.Value.String()})
		}
		s.Blocks = append(s.Blocks, t)
	}
	return s
}

// LeadersSection renders a card for each subject leader, then the total and
// average leaders.
func LeadersSection(rec *stats.Record) Section {
	rk := rec.Rankings
	cards := Cards{Heading: "Subject Leaders"}
	for _, l := range rk.SubjectLeaders {
		cards.Items = append(cards.Items, Card{Title: l.Key, Value: l.Value.Name, Detail: l.Value.Score.String() + " pts"})
	}
	if rk.TotalLeader != nil {
		cards.Items = append(cards.Items, Card{Title: stats.TotalKey, Value: rk.TotalLeader.Name, Detail: rk.TotalLeader.Total.String() + " pts"})
	}
	if rk.AverageLeader != nil {
		cards.Items = append(cards.Items, Card{Title: stats.AverageKey, Value: rk.AverageLeader.Name, Detail: rk.AverageLeader.Average.String() + " pts"})
	}
	s := Section{ID: "leaders", Title: "Top Students"}
	if len(cards.Items) > 0 {
		s.Blocks = []Block{cards}
	}
	return s
}

// PodiumSection renders the total-score top list with rank markers.
func PodiumSection(rec *stats.Record) Section {
	s := Section{ID: "podium", Title: "Total Score Podium"}
	if len(rec.Rankings.TotalTop3) == 0 {
		return s
	}
	p := Podium{}
	for i, e := range rec.Rankings.TotalTop3 {
		parts := make([]string, 0, len(e.Scores))
		for _, kv := range e.Scores {
			parts = append(parts, fmt.Sprintf("%s: %s", kv.Key, kv.Value))
		}
		p.Entries = append(p.Entries, PodiumEntry{
			Marker:    Marker(i + 1),
			Name:      e.Name,
			Score:     e.Total.String(),
			Breakdown: strings.Join(parts, " | "),
		})
	}
	s.Blocks = []Block{p}
	return s
}

// SubjectTop3Section renders a ranked table per subject.
func SubjectTop3Section(rec *stats.Record) Section {
	s := Section{ID: "subject-top3", Title: "Subject Top 3"}
	for _, subject := range rec.BasicInfo.Subjects {
		entries, ok := rec.Rankings.SubjectTop3.Get(subject)
		if !ok {
			continue
		}
		t := Table{Heading: subject, Columns: []string{"Rank", "Name", "Score"}}
		for i, e := range entries {
			t.Rows = append(t.Rows, []string{Marker(i + 1), e.Name, e.Score.String()})
		}
		s.Blocks = append(s.Blocks, t)
	}
	return s
}

// ChartsSection embeds each chart in order. Failed charts get a notice;
// charts that were never planned are simply absent.
func ChartsSection(arts []chart.Artifact) Section {
	s := Section{ID: "charts", Title: "Charts"}
	for i, a := range arts {
		title := a.Role.Title()
		if a.OK() {
			s.Blocks = append(s.Blocks, Figure{Index: i + 1, Title: title, PNG: a.Data})
			continue
		}
		text := "Chart failed to load: " + title
		if a.Path != "" {
			text += " (" + a.Path + ")"
		}
		s.Blocks = append(s.Blocks, Notice{Index: i + 1, Title: title, Text: text})
	}
	return s
}

// NarrativeSection splits text on blank lines and wraps each paragraph.
// Empty text yields an empty section body.
func NarrativeSection(text string, markdown bool) Section {
	s := Section{ID: "narrative", Title: "Narrative Analysis", KeepEmpty: true}
	if paras := SplitParagraphs(text); len(paras) > 0 {
		s.Blocks = []Block{Paragraphs{Items: paras, Markdown: markdown}}
	}
	return s
}

// SplitParagraphs returns the trimmed, non-empty blank-line separated blocks of text.
func SplitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ErrMalformedRecord is returned when assembly is handed an unusable record.
var ErrMalformedRecord = errors.New("malformed statistics record")
