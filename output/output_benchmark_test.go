package output

import "testing"

func BenchmarkMarshalReport(b *testing.B) {
	res := sampleResult()
	if res == nil {
		b.Fatal("sample result should not be absent")
	}
	doc := report{
		SchemaVersion: SchemaVersion,
		Run:           &RunInfo{Source: "nightly.log", LinesRead: 7},
		DryRun:        res.DryRun,
		ChangesByType: res.ChangesByType(),
		Changes:       res.Changes,
		Statistics:    res.Stats,
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := jsonMarshalIndent(doc, "", "  "); err != nil {
			b.Fatal(err)
		}
	}
}
