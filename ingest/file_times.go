package ingest

import (
	"time"

	"github.com/djherbis/times"
)

// FileTimes carries the input file's timestamps into the report, RFC 3339
// formatted. Change and creation times stay empty where the platform does
// not expose them.
type FileTimes struct {
	ModTime      string
	AccessTime   string
	ChangeTime   string
	CreationTime string
}

func fileTimes(path string) (FileTimes, error) {
	ts, err := times.Stat(path)
	if err != nil {
		return FileTimes{}, err
	}
	result := FileTimes{
		ModTime:    ts.ModTime().Format(time.RFC3339),
		AccessTime: ts.AccessTime().Format(time.RFC3339),
	}
	if ts.HasChangeTime() {
		result.ChangeTime = ts.ChangeTime().Format(time.RFC3339)
	}
	if ts.HasBirthTime() {
		result.CreationTime = ts.BirthTime().Format(time.RFC3339)
	}
	return result, nil
}
