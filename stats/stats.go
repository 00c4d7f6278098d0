// Package stats extracts the trailing summary block that rsync emits with
// --stats into typed counters. Lines are matched one pass at a time against
// the fixed label set; numbers tolerate comma thousands separators. Locales
// with other separators are not supported.
package stats

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// FileCount mirrors rsync's "N (reg: R, dir: D, link: L)" breakdown. Total
// is reported independently of the sub-counts and need not equal their sum.
type FileCount struct {
	Total       int64 `json:"total"`
	Regular     int64 `json:"regular"`
	Directories int64 `json:"directories"`
	Links       int64 `json:"links"`
}

// Statistics holds the aggregate transfer counters from one rsync run.
// Byte counters are int64 so multi-terabyte transfers do not overflow.
type Statistics struct {
	TotalFiles              FileCount `json:"total_files"`
	FilesCreated            FileCount `json:"files_created"`
	FilesDeleted            int64     `json:"files_deleted"`
	RegularFilesTransferred int64     `json:"regular_files_transferred"`
	TotalFileSize           int64     `json:"total_file_size"`
	TotalTransferredSize    int64     `json:"total_transferred_size"`
	LiteralData             int64     `json:"literal_data"`
	MatchedData             int64     `json:"matched_data"`
	BytesSent               int64     `json:"bytes_sent"`
	BytesReceived           int64     `json:"bytes_received"`
	Speedup                 float64   `json:"speedup"`
	Errors                  []string  `json:"errors,omitempty"`
	Warnings                []string  `json:"warnings,omitempty"`
}

// Label indices; order must match the labels slice below.
const (
	labelNumFiles = iota
	labelNumCreated
	labelNumDeleted
	labelNumTransferred
	labelTotalSize
	labelTransferredSize
	labelLiteralData
	labelMatchedData
	labelBytesSent
	labelBytesReceived
	labelSpeedup
	labelError
	labelWarning
)

var labels = []string{
	labelNumFiles:        "Number of files:",
	labelNumCreated:      "Number of created files:",
	labelNumDeleted:      "Number of deleted files:",
	labelNumTransferred:  "Number of regular files transferred:",
	labelTotalSize:       "Total file size:",
	labelTransferredSize: "Total transferred file size:",
	labelLiteralData:     "Literal data:",
	labelMatchedData:     "Matched data:",
	labelBytesSent:       "Total bytes sent:",
	labelBytesReceived:   "Total bytes received:",
	labelSpeedup:         "speedup is",
	labelError:           "ERROR:",
	labelWarning:         "WARNING:",
}

// labelMatcher front-loads label detection so most lines (itemized records,
// progress noise) are dismissed in a single multi-pattern pass instead of
// fourteen prefix checks each.
var labelMatcher = ahocorasick.NewStringMatcher(labels)

// Extract scans every line for the known statistics labels and returns the
// populated counters. The boolean is false when no counter-bearing label
// appears anywhere in the input; ERROR/WARNING lines are captured but do
// not count as statistics on their own. Duplicate labels overwrite, so the
// last occurrence wins. Malformed numbers leave their field at zero.
func Extract(lines []string) (Statistics, bool) {
	var acc Accumulator
	for _, line := range lines {
		acc.Add(line)
	}
	return acc.Result()
}

// Accumulator folds lines into Statistics one at a time, for callers that
// already iterate the input for other reasons.
type Accumulator struct {
	stats Statistics
	found bool
}

// Add folds one line and reports whether it carried a counter-bearing
// label. ERROR/WARNING lines are captured but report false.
func (a *Accumulator) Add(line string) bool {
	if applyLine(&a.stats, line) {
		a.found = true
		return true
	}
	return false
}

// Result returns the counters seen so far; the boolean mirrors Extract's.
func (a *Accumulator) Result() (Statistics, bool) {
	return a.stats, a.found
}

// Efficiency is the fraction of transferred content satisfied by
// delta-matching rather than literal data, in [0, 1]. Zero when nothing
// moved.
func (s Statistics) Efficiency() float64 {
	total := s.LiteralData + s.MatchedData
	if total <= 0 {
		return 0
	}
	return float64(s.MatchedData) / float64(total)
}

// applyLine folds one line into s and reports whether the line carried a
// numeric statistics label.
func applyLine(s *Statistics, line string) bool {
	hits := labelMatcher.MatchThreadSafe([]byte(line))
	if len(hits) == 0 {
		return false
	}
	counted := false
	for _, hit := range hits {
		switch hit {
		case labelNumFiles:
			// The matcher reports substring hits anywhere in the line;
			// every label except speedup must anchor at column 0.
			if strings.HasPrefix(line, labels[labelNumFiles]) {
				s.TotalFiles = parseFileCount(rest(line, labelNumFiles))
				counted = true
			}
		case labelNumCreated:
			if strings.HasPrefix(line, labels[labelNumCreated]) {
				s.FilesCreated = parseFileCount(rest(line, labelNumCreated))
				counted = true
			}
		case labelNumDeleted:
			if strings.HasPrefix(line, labels[labelNumDeleted]) {
				if n, ok := leadingCount(rest(line, labelNumDeleted)); ok {
					s.FilesDeleted = n
				}
				counted = true
			}
		case labelNumTransferred:
			if strings.HasPrefix(line, labels[labelNumTransferred]) {
				if n, ok := leadingCount(rest(line, labelNumTransferred)); ok {
					s.RegularFilesTransferred = n
				}
				counted = true
			}
		case labelTotalSize:
			counted = applyBytes(line, labelTotalSize, &s.TotalFileSize) || counted
		case labelTransferredSize:
			counted = applyBytes(line, labelTransferredSize, &s.TotalTransferredSize) || counted
		case labelLiteralData:
			counted = applyBytes(line, labelLiteralData, &s.LiteralData) || counted
		case labelMatchedData:
			counted = applyBytes(line, labelMatchedData, &s.MatchedData) || counted
		case labelBytesSent:
			counted = applyBytes(line, labelBytesSent, &s.BytesSent) || counted
		case labelBytesReceived:
			counted = applyBytes(line, labelBytesReceived, &s.BytesReceived) || counted
		case labelSpeedup:
			// rsync prints the speedup mid-line: "total size is N  speedup is R".
			if idx := strings.Index(line, labels[labelSpeedup]); idx >= 0 {
				if f, ok := leadingFloat(line[idx+len(labels[labelSpeedup]):]); ok {
					s.Speedup = f
				}
				counted = true
			}
		case labelError:
			if strings.HasPrefix(line, labels[labelError]) {
				s.Errors = append(s.Errors, strings.TrimSpace(line))
			}
		case labelWarning:
			if strings.HasPrefix(line, labels[labelWarning]) {
				s.Warnings = append(s.Warnings, strings.TrimSpace(line))
			}
		}
	}
	return counted
}

// IsStatsLine reports whether the line carries a numeric statistics label.
func IsStatsLine(line string) bool {
	var scratch Statistics
	return applyLine(&scratch, line)
}

func applyBytes(line string, label int, dst *int64) bool {
	if !strings.HasPrefix(line, labels[label]) {
		return false
	}
	if n, ok := leadingCount(rest(line, label)); ok {
		*dst = n
	}
	return true
}

func rest(line string, label int) string {
	return line[len(labels[label]):]
}

// leadingCount reads the first comma-separated integer in s. It never
// produces a negative value; the token scan only admits digits and commas.
func leadingCount(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t")
	var n int64
	seen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= '0' && c <= '9' {
			n = n*10 + int64(c-'0')
			seen = true
			continue
		}
		if c == ',' && seen {
			continue
		}
		break
	}
	return n, seen
}

// leadingFloat reads a comma-tolerant decimal such as "1,865.63".
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeft(s, " \t")
	whole, ok := leadingCount(s)
	if !ok {
		return 0, false
	}
	f := float64(whole)
	// Skip past the integer part to an optional fraction.
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == ',') {
		i++
	}
	if i < len(s) && s[i] == '.' {
		scale := 1.0
		for i++; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
			scale /= 10
			f += float64(s[i]-'0') * scale
		}
	}
	return f, true
}

// parseFileCount handles "N (reg: R, dir: D, link: L)". The sub-counts may
// appear in any order; missing ones default to zero.
func parseFileCount(s string) FileCount {
	var fc FileCount
	if n, ok := leadingCount(s); ok {
		fc.Total = n
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return fc
	}
	group := s[open+1:]
	if end := strings.IndexByte(group, ')'); end >= 0 {
		group = group[:end]
	}
	fc.Regular = subCount(group, "reg:")
	fc.Directories = subCount(group, "dir:")
	fc.Links = subCount(group, "link:")
	return fc
}

func subCount(group, label string) int64 {
	idx := strings.Index(group, label)
	if idx < 0 {
		return 0
	}
	n, _ := leadingCount(group[idx+len(label):])
	return n
}
