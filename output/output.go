package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"os"
	"sync"

	"rsyncsight/analyzer"
	"rsyncsight/config"
	"rsyncsight/logger"
	"rsyncsight/systeminfo"
	"rsyncsight/utils"
)

// SchemaVersion tags every exported record so downstream consumers can
// detect layout changes.
const SchemaVersion = "1.0"

// RunInfo describes one ingest: where the text came from and when the
// analysis ran. Source timestamps are only present for file inputs.
type RunInfo struct {
	Source             string `json:"source"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time,omitempty"`
	LinesRead          int    `json:"lines_read"`
	SourceModTime      string `json:"source_mod_time,omitempty"`
	SourceAccessTime   string `json:"source_access_time,omitempty"`
	SourceChangeTime   string `json:"source_change_time,omitempty"`
	SourceCreationTime string `json:"source_creation_time,omitempty"`
}

// report is the single-document JSON layout.
type report struct {
	SchemaVersion string                      `json:"schema_version"`
	Run           *RunInfo                    `json:"run,omitempty"`
	SystemInfo    *systeminfo.SystemInfo      `json:"system_info,omitempty"`
	DryRun        bool                        `json:"dry_run"`
	ChangesByType map[analyzer.ChangeType]int `json:"changes_by_type"`
	Changes       []analyzer.ItemizedChange   `json:"changes"`
	Statistics    interface{}                 `json:"statistics"`
	Errors        []string                    `json:"errors,omitempty"`
	Warnings      []string                    `json:"warnings,omitempty"`
}

// ndjsonRecord is one line of the ndjson layout.
type ndjsonRecord struct {
	RecordType    string      `json:"record_type"`
	SchemaVersion string      `json:"schema_version"`
	Payload       interface{} `json:"payload"`
}

type Writer struct {
	file    *os.File
	buf     *bufio.Writer
	csvw    *csv.Writer
	mu      sync.Mutex
	cfg     *config.Config
	sysInfo *systeminfo.SystemInfo
	run     *RunInfo
	otel    *otelLogger
	format  string
}

func New(cfg *config.Config, sysInfo *systeminfo.SystemInfo, run *RunInfo) (*Writer, error) {
	format := cfg.OutputFormat
	if format == "" {
		format = "json"
	}

	w := &Writer{
		cfg:     cfg,
		sysInfo: sysInfo,
		run:     run,
		format:  format,
	}
	otel, err := newOtelLogger(cfg)
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else {
		w.otel = otel
	}

	f, err := os.OpenFile(cfg.OutputFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	w.file = f
	w.buf = bufio.NewWriterSize(f, 64*1024)
	if format == "csv" {
		w.csvw = csv.NewWriter(w.buf)
		if err := w.csvw.Write(csvHeader); err != nil {
			f.Close()
			return nil, err
		}
	}
	return w, nil
}

// SetRunInfo replaces the run metadata before the report is written.
func (w *Writer) SetRunInfo(run RunInfo) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.run = &run
}

// WriteResult serializes one analysis. The matcher, when non-nil, filters
// which changes are exported; statistics always reflect the full run.
func (w *Writer) WriteResult(res *analyzer.AnalysisResult, matcher *utils.PatternMatcher) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	changes := res.Changes
	if matcher != nil {
		changes = make([]analyzer.ItemizedChange, 0, len(res.Changes))
		for _, ch := range res.Changes {
			if matcher.ShouldInclude(ch.Path) {
				changes = append(changes, ch)
			}
		}
	}

	var err error
	switch w.format {
	case "csv":
		err = w.writeCSV(res, changes)
	case "ndjson":
		err = w.writeNDJSON(res, changes)
	default:
		err = w.writeJSON(res, changes)
	}
	if err != nil {
		return err
	}
	w.emitRecordsLocked(res, changes)
	return w.flush()
}

func (w *Writer) writeJSON(res *analyzer.AnalysisResult, changes []analyzer.ItemizedChange) error {
	doc := report{
		SchemaVersion: SchemaVersion,
		Run:           w.run,
		SystemInfo:    w.sysInfo,
		DryRun:        res.DryRun,
		ChangesByType: res.ChangesByType(),
		Changes:       changes,
		Statistics:    res.Stats,
		Errors:        res.Errors,
		Warnings:      res.Warnings,
	}
	data, err := jsonMarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	_, err = w.buf.WriteString("\n")
	return err
}

func (w *Writer) writeNDJSON(res *analyzer.AnalysisResult, changes []analyzer.ItemizedChange) error {
	if w.sysInfo != nil {
		if err := w.writeNDJSONRecord("system_info", w.sysInfo); err != nil {
			return err
		}
	}
	if w.run != nil {
		if err := w.writeNDJSONRecord("run", w.run); err != nil {
			return err
		}
	}
	for i := range changes {
		if err := w.writeNDJSONRecord("change", changes[i]); err != nil {
			return err
		}
	}
	if err := w.writeNDJSONRecord("statistics", res.Stats); err != nil {
		return err
	}
	return w.writeNDJSONRecord("summary", map[string]interface{}{
		"dry_run":         res.DryRun,
		"changes_by_type": res.ChangesByType(),
		"errors":          len(res.Errors),
		"warnings":        len(res.Warnings),
	})
}

func (w *Writer) writeNDJSONRecord(recordType string, payload interface{}) error {
	data, err := jsonMarshal(ndjsonRecord{
		RecordType:    recordType,
		SchemaVersion: SchemaVersion,
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	if _, err := w.buf.Write(data); err != nil {
		return err
	}
	_, err = w.buf.WriteString("\n")
	return err
}

var csvHeader = []string{
	"record_type",
	"schema_version",
	"change_type",
	"path",
	"target",
	"flags",
	"statistics",
	"run",
	"system_info",
}

func (w *Writer) writeCSV(res *analyzer.AnalysisResult, changes []analyzer.ItemizedChange) error {
	if w.sysInfo != nil {
		if err := w.csvw.Write([]string{"system_info", SchemaVersion, "", "", "", "", "", "", jsonString(w.sysInfo)}); err != nil {
			return err
		}
	}
	if w.run != nil {
		if err := w.csvw.Write([]string{"run", SchemaVersion, "", "", "", "", "", jsonString(w.run), ""}); err != nil {
			return err
		}
	}
	for _, ch := range changes {
		row := []string{
			"change",
			SchemaVersion,
			string(ch.Type),
			ch.Path,
			ch.Target,
			jsonString(ch.Flags),
			"", "", "",
		}
		if err := w.csvw.Write(row); err != nil {
			return err
		}
	}
	if err := w.csvw.Write([]string{"statistics", SchemaVersion, "", "", "", "", jsonString(res.Stats), "", ""}); err != nil {
		return err
	}
	w.csvw.Flush()
	return w.csvw.Error()
}

func (w *Writer) emitRecordsLocked(res *analyzer.AnalysisResult, changes []analyzer.ItemizedChange) {
	if w.otel == nil {
		return
	}
	if w.sysInfo != nil {
		w.otel.Emit("system_info", w.sysInfo)
	}
	for i := range changes {
		w.otel.Emit("change", changes[i])
	}
	w.otel.Emit("statistics", res.Stats)
	if w.run != nil {
		w.otel.Emit("run", w.run)
	}
}

func (w *Writer) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.flush()
	if w.file != nil {
		_ = w.file.Sync()
		_ = w.file.Close()
	}
	if w.otel != nil {
		w.otel.Shutdown()
	}
}

func (w *Writer) flush() error {
	if w.csvw != nil {
		w.csvw.Flush()
		if err := w.csvw.Error(); err != nil {
			return err
		}
	}
	if w.buf != nil {
		return w.buf.Flush()
	}
	return nil
}

func jsonString(value interface{}) string {
	if value == nil {
		return ""
	}
	data, err := jsonMarshal(value)
	if err != nil {
		return ""
	}
	return string(data)
}

// Path returns the report file location, for user-facing log lines.
func (w *Writer) Path() string {
	return fmt.Sprintf("%s (%s)", w.cfg.OutputFileName, w.format)
}
