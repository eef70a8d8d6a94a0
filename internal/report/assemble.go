package report

import (
	"fmt"

	"github.com/KaramelBytes/scoreloom-cli/internal/chart"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Narrative formats.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// Options controls document assembly.
type Options struct {
	Title           string
	Subtitle        string
	NarrativeFormat string
	Footer          []string
}

// DefaultFooter is the attribution footer.
var DefaultFooter = []string{
	"Generated by scoreloom",
	"Statistics: montanaflynn/stats | Charts: gonum/plot",
}

func (o Options) withDefaults() Options {
	if o.Title == "" {
		o.Title = "Class Score Analysis Report"
	}
	if o.NarrativeFormat == "" {
		o.NarrativeFormat = FormatText
	}
	if o.Footer == nil {
		o.Footer = DefaultFooter
	}
	return o
}

// Build lays out the document without rendering it.
func Build(rec *stats.Record, charts []chart.Artifact, narrative string, opt Options) (Document, error) {
	if rec == nil {
		return Document{}, fmt.Errorf("%w: nil record", ErrMalformedRecord)
	}
	if err := validate(rec); err != nil {
		return Document{}, err
	}
	opt = opt.withDefaults()
	switch opt.NarrativeFormat {
	case FormatText, FormatMarkdown:
	default:
		return Document{}, fmt.Errorf("unknown narrative format %q", opt.NarrativeFormat)
	}
	return Document{
		Title:    opt.Title,
		Subtitle: opt.Subtitle,
		Sections: []Section{
			BasicInfoSection(rec, len(charts)),
			StatisticsSection(rec),
			LeadersSection(rec),
			PodiumSection(rec),
			SubjectTop3Section(rec),
			ChartsSection(charts),
			NarrativeSection(narrative, opt.NarrativeFormat == FormatMarkdown),
		},
		Footer: opt.Footer,
	}, nil
}

// Assemble renders the complete report. Output is fully determined by its inputs.
func Assemble(rec *stats.Record, charts []chart.Artifact, narrative string, opt Options) (string, error) {
	doc, err := Build(rec, charts, narrative, opt)
	if err != nil {
		return "", err
	}
	return doc.Render(), nil
}

// AssembleJSON parses a serialized record and assembles it. A record that
// cannot be parsed aborts assembly with ErrMalformedRecord.
func AssembleJSON(data []byte, charts []chart.Artifact, narrative string, opt Options) (string, error) {
	rec, err := stats.ParseRecord(data)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return Assemble(rec, charts, narrative, opt)
}

// validate checks that every listed subject has statistics.
func validate(rec *stats.Record) error {
	for _, s := range rec.BasicInfo.Subjects {
		if _, ok := rec.BasicInfo.Statistics.Get(s); !ok {
			return fmt.Errorf("%w: no statistics for subject %q", ErrMalformedRecord, s)
		}
	}
	return nil
}
