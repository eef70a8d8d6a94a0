package chart

import (
	"bytes"
	"fmt"
	"path"

	"github.com/KaramelBytes/scoreloom-cli/internal/host"
	"github.com/KaramelBytes/scoreloom-cli/internal/stats"
)

// Publish writes each successful artifact to dir on h as chart_<role>.png and
// reads it back, so embedded bytes are exactly what the host stored. A write
// or read failure marks only that artifact failed.
func Publish(h host.Host, dir string, arts []Artifact) []Artifact {
	out := make([]Artifact, len(arts))
	for i, a := range arts {
		out[i] = a
		if !a.OK() {
			continue
		}
		name := path.Join(dir, a.Role.FileName())
		out[i].Path = name
		if err := h.WriteFile(name, a.Data); err != nil {
			out[i].Data, out[i].Err = nil, fmt.Errorf("publish %s: %w", a.Role, err)
			continue
		}
		data, err := h.ReadFile(name)
		if err != nil {
			out[i].Data, out[i].Err = nil, fmt.Errorf("publish %s: %w", a.Role, err)
			continue
		}
		if !bytes.Equal(data, a.Data) {
			out[i].Data, out[i].Err = nil, fmt.Errorf("publish %s: read back %d bytes, wrote %d", a.Role, len(data), len(a.Data))
			continue
		}
		out[i].Data = data
	}
	return out
}

// Load rebuilds artifacts from a record's chart list by reading each
// published file from h. Charts recorded as failed stay failed.
func Load(h host.Host, refs []stats.ChartRef) []Artifact {
	out := make([]Artifact, 0, len(refs))
	for _, ref := range refs {
		a := Artifact{Role: Role(ref.Role), Title: ref.Title, Path: ref.Path}
		if a.Title == "" {
			a.Title = a.Role.Title()
		}
		switch {
		case ref.Failed:
			a.Err = fmt.Errorf("chart %s failed when the run was recorded", ref.Role)
		case ref.Path == "":
			a.Err = fmt.Errorf("chart %s has no path", ref.Role)
		default:
			data, err := h.ReadFile(ref.Path)
			if err != nil {
				a.Err = fmt.Errorf("load %s: %w", ref.Role, err)
			} else {
				a.Data = data
			}
		}
		out = append(out, a)
	}
	return out
}
