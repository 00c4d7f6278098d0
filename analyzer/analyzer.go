// Package analyzer turns the raw line output of an rsync run in itemized
// mode into a typed report: per-item change records in encounter order plus
// the aggregate transfer statistics. It owns no I/O; input arrives fully
// materialized from a collaborator.
package analyzer

import (
	"fmt"
	"strings"

	"rsyncsight/parser"
	"rsyncsight/stats"
)

// ChangeType is the category of file-system entity a change touched.
type ChangeType string

const (
	ChangeFile      ChangeType = "file"
	ChangeDirectory ChangeType = "directory"
	ChangeSymlink   ChangeType = "symlink"
	ChangeDevice    ChangeType = "device"
	ChangeSpecial   ChangeType = "special"
	ChangeDeletion  ChangeType = "deletion"
	ChangeUnknown   ChangeType = "unknown"
)

// ChangeFlags projects the eight meaningful attribute slots of a record,
// plus the deletion bit carried by message records.
type ChangeFlags struct {
	Checksum    bool `json:"checksum,omitempty"`
	Size        bool `json:"size,omitempty"`
	Timestamp   bool `json:"timestamp,omitempty"`
	Permissions bool `json:"permissions,omitempty"`
	Owner       bool `json:"owner,omitempty"`
	Group       bool `json:"group,omitempty"`
	ACL         bool `json:"acl,omitempty"`
	Xattr       bool `json:"xattr,omitempty"`
	Deletion    bool `json:"deletion,omitempty"`
}

// ItemizedChange is the public, denormalized view of one decoded record.
type ItemizedChange struct {
	Type   ChangeType  `json:"type"`
	Path   string      `json:"path"`
	Target string      `json:"target,omitempty"`
	Flags  ChangeFlags `json:"flags"`
}

// AnalysisResult is the sole output of one analysis: a value object with no
// reference back to the engine that produced it. Errors and Warnings repeat
// the sequences captured in Stats for consumer convenience.
type AnalysisResult struct {
	Changes  []ItemizedChange `json:"changes"`
	Stats    stats.Statistics `json:"statistics"`
	DryRun   bool             `json:"dry_run"`
	Errors   []string         `json:"errors,omitempty"`
	Warnings []string         `json:"warnings,omitempty"`
}

// Line is the minimal carrier collaborators use to hand over one line of
// rsync output.
type Line struct {
	Record string `json:"record"`
}

// OutputData is the fully materialized output of one rsync run.
type OutputData struct {
	Lines []Line `json:"lines"`
}

// Records flattens the carrier back to plain lines.
func (d OutputData) Records() []string {
	out := make([]string, len(d.Lines))
	for i, l := range d.Lines {
		out[i] = l.Record
	}
	return out
}

const dryRunMarker = "(DRY RUN)"

// Analyze scans the lines once, in order, classifying each as a dry-run
// marker, an itemized or message record, a statistics-bearing line, or
// noise. It returns nil when there is nothing rsync-shaped to report: an
// empty input, or one with no statistics block at all. Itemized records
// without a statistics block also yield nil; a statistics block with
// missing fields succeeds with those fields zeroed.
func Analyze(lines []string) *AnalysisResult {
	if len(lines) == 0 {
		return nil
	}
	res := &AnalysisResult{}
	var acc stats.Accumulator
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if strings.Contains(line, dryRunMarker) {
			res.DryRun = true
			if trimmed == dryRunMarker {
				continue
			}
			// rsync appends the marker to its totals line; fall through so
			// the counters on it are still extracted.
		}
		if rec, ok := parser.ParseLine(line); ok {
			res.Changes = append(res.Changes, changeFromRecord(rec))
			continue
		}
		acc.Add(line)
	}
	st, found := acc.Result()
	if !found {
		return nil
	}
	res.Stats = st
	res.Errors = st.Errors
	res.Warnings = st.Warnings
	return res
}

// AnalyzeText splits a multi-line blob on line breaks and analyzes it.
func AnalyzeText(text string) *AnalysisResult {
	if text == "" {
		return nil
	}
	return Analyze(strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n"))
}

func changeFromRecord(rec parser.Record) ItemizedChange {
	if rec.IsMessage() {
		ch := ItemizedChange{Type: ChangeUnknown, Path: rec.Path}
		if rec.IsDeletion() {
			ch.Type = ChangeDeletion
			ch.Flags.Deletion = true
		}
		return ch
	}
	return ItemizedChange{
		Type:   entityChangeType(rec.EntityType),
		Path:   rec.Path,
		Target: rec.Target,
		Flags: ChangeFlags{
			Checksum:    rec.HasAttribute(parser.AttrChecksum),
			Size:        rec.HasAttribute(parser.AttrSize),
			Timestamp:   rec.HasAttribute(parser.AttrTime),
			Permissions: rec.HasAttribute(parser.AttrPermissions),
			Owner:       rec.HasAttribute(parser.AttrOwner),
			Group:       rec.HasAttribute(parser.AttrGroup),
			ACL:         rec.HasAttribute(parser.AttrACL),
			Xattr:       rec.HasAttribute(parser.AttrXattr),
		},
	}
}

func entityChangeType(entity byte) ChangeType {
	switch entity {
	case parser.EntityFile:
		return ChangeFile
	case parser.EntityDirectory:
		return ChangeDirectory
	case parser.EntitySymlink:
		return ChangeSymlink
	case parser.EntityDevice:
		return ChangeDevice
	case parser.EntitySpecial:
		return ChangeSpecial
	default:
		return ChangeUnknown
	}
}

// ChangesByType groups the itemized changes into per-category counts.
func (r *AnalysisResult) ChangesByType() map[ChangeType]int {
	counts := make(map[ChangeType]int, len(r.Changes))
	for _, ch := range r.Changes {
		counts[ch.Type]++
	}
	return counts
}

// summaryOrder fixes the category listing order in Summary output.
var summaryOrder = []ChangeType{
	ChangeFile, ChangeDirectory, ChangeSymlink, ChangeDevice,
	ChangeSpecial, ChangeDeletion, ChangeUnknown,
}

// Summary renders a short human-readable digest of the result.
func (r *AnalysisResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d changes", len(r.Changes))
	counts := r.ChangesByType()
	if len(counts) > 0 {
		parts := make([]string, 0, len(counts))
		for _, t := range summaryOrder {
			if n := counts[t]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s: %d", t, n))
			}
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(parts, ", "))
	}
	fmt.Fprintf(&b, "\n%d of %d files transferred, %d deleted",
		r.Stats.RegularFilesTransferred, r.Stats.TotalFiles.Total, r.Stats.FilesDeleted)
	fmt.Fprintf(&b, "\n%d bytes sent, %d bytes received, speedup %.2f, match efficiency %.1f%%",
		r.Stats.BytesSent, r.Stats.BytesReceived, r.Stats.Speedup, r.Stats.Efficiency()*100)
	if r.DryRun {
		b.WriteString("\ndry run: no changes were applied")
	}
	if len(r.Errors) > 0 || len(r.Warnings) > 0 {
		fmt.Fprintf(&b, "\n%d errors, %d warnings", len(r.Errors), len(r.Warnings))
	}
	return b.String()
}
