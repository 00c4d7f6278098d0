package output

import (
	"testing"

	"rsyncsight/config"

	otelLog "go.opentelemetry.io/otel/log"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
)

func findAttr(kvs []otelLog.KeyValue, key string) (otelLog.Value, bool) {
	for _, kv := range kvs {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return otelLog.Value{}, false
}

func TestResolveOtelEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "https://logs.example.test/v1/logs")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://fallback.example.test")

	cfg := &config.Config{OtelEndpoint: "  https://explicit.example.test  ", OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://explicit.example.test" {
		t.Fatalf("expected explicit endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://logs.example.test/v1/logs" {
		t.Fatalf("expected logs env endpoint, got %q", got)
	}

	t.Setenv("OTEL_EXPORTER_OTLP_LOGS_ENDPOINT", "")
	cfg = &config.Config{OtelFromEnv: true}
	if got := resolveOtelEndpoint(cfg); got != "https://fallback.example.test" {
		t.Fatalf("expected fallback env endpoint, got %q", got)
	}

	cfg = &config.Config{OtelFromEnv: false}
	if got := resolveOtelEndpoint(cfg); got != "" {
		t.Fatalf("expected empty endpoint when env fallback disabled, got %q", got)
	}
}

func TestSanitizePayloadChange(t *testing.T) {
	changePayload := map[string]interface{}{
		"type":   "symlink",
		"path":   "links/current",
		"target": "releases/v2",
		"flags":  map[string]interface{}{"timestamp": true},
	}
	sanitized, ok := sanitizePayload("change", changePayload, otelPolicy{}).(map[string]interface{})
	if !ok {
		t.Fatalf("expected sanitized change payload map")
	}
	if _, ok := sanitized["path"]; ok {
		t.Fatal("expected change path to be stripped")
	}
	if _, ok := sanitized["target"]; ok {
		t.Fatal("expected change target to be stripped")
	}
	if _, ok := sanitized["type"]; !ok {
		t.Fatal("expected change type to survive")
	}
	if _, ok := changePayload["path"]; !ok {
		t.Fatal("expected original payload to remain unchanged")
	}

	kept, ok := sanitizePayload("change", changePayload, otelPolicy{includePaths: true}).(map[string]interface{})
	if !ok {
		t.Fatalf("expected passthrough payload map")
	}
	if _, ok := kept["path"]; !ok {
		t.Fatal("expected path to survive when path export is enabled")
	}
}

func TestSanitizePayloadRun(t *testing.T) {
	runPayload := map[string]interface{}{
		"source":     "/var/log/rsync/nightly.log",
		"lines_read": 120,
	}
	sanitized, ok := sanitizePayload("run", runPayload, otelPolicy{}).(map[string]interface{})
	if !ok {
		t.Fatalf("expected sanitized run payload map")
	}
	if _, ok := sanitized["source"]; ok {
		t.Fatal("expected run source to be stripped")
	}
	if _, ok := sanitized["lines_read"]; !ok {
		t.Fatal("expected lines_read to survive")
	}
}

func TestSemanticAttributesChange(t *testing.T) {
	payload := map[string]interface{}{
		"type":   "symlink",
		"path":   "links/current",
		"target": "releases/v2",
	}

	attrs := semanticAttributes("change", payload, otelPolicy{includePaths: true})
	if value, ok := findAttr(attrs, string(semconv.FilePathKey)); !ok || value.AsString() != "links/current" {
		t.Fatalf("expected file path semantic attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.FileNameKey)); !ok || value.AsString() != "current" {
		t.Fatalf("expected file name semantic attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, "rsyncsight.change.type"); !ok || value.AsString() != "symlink" {
		t.Fatalf("expected change type semantic attribute, got %#v", value)
	}

	attrsNoPaths := semanticAttributes("change", payload, otelPolicy{})
	if _, ok := findAttr(attrsNoPaths, string(semconv.FilePathKey)); ok {
		t.Fatal("did not expect file path semantic attribute when paths are disabled")
	}
	if _, ok := findAttr(attrsNoPaths, "rsyncsight.change.target"); ok {
		t.Fatal("did not expect target semantic attribute when paths are disabled")
	}
}

func TestSemanticAttributesStatistics(t *testing.T) {
	payload := map[string]interface{}{
		"total_file_size": int64(1024576),
		"literal_data":    int64(300),
		"matched_data":    int64(700),
		"speedup":         3.2,
	}

	attrs := semanticAttributes("statistics", payload, otelPolicy{})
	if value, ok := findAttr(attrs, "rsyncsight.stats.total_file_size"); !ok || value.AsInt64() != 1024576 {
		t.Fatalf("expected total_file_size semantic attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, "rsyncsight.stats.speedup"); !ok || value.AsFloat64() != 3.2 {
		t.Fatalf("expected speedup semantic attribute, got %#v", value)
	}
}

func TestSemanticAttributesSystemInfo(t *testing.T) {
	payload := map[string]interface{}{
		"hostname":         "backup01",
		"os":               "linux",
		"platform_version": "12.1",
	}

	attrs := semanticAttributes("system_info", payload, otelPolicy{})
	if value, ok := findAttr(attrs, string(semconv.HostNameKey)); !ok || value.AsString() != "backup01" {
		t.Fatalf("expected host name semantic attribute, got %#v", value)
	}
	if value, ok := findAttr(attrs, string(semconv.OSVersionKey)); !ok || value.AsString() != "12.1" {
		t.Fatalf("expected os version semantic attribute, got %#v", value)
	}
}

func TestPayloadToMapFromStruct(t *testing.T) {
	payload := RunInfo{
		Source:    "nightly.log",
		StartTime: "2026-08-26T00:00:00Z",
		LinesRead: 42,
	}
	data := payloadToMap(payload)
	if data == nil {
		t.Fatal("expected payloadToMap to decode struct payload")
	}
	if got := getStringField(data, "start_time"); got != payload.StartTime {
		t.Fatalf("expected start_time=%q, got %q", payload.StartTime, got)
	}
	if got, ok := getInt64Field(data, "lines_read"); !ok || got != 42 {
		t.Fatalf("expected lines_read=42, got %d (ok=%v)", got, ok)
	}
}

func TestToLogValueCompositeTypes(t *testing.T) {
	mapValue := toLogValue(map[string]string{"a": "b"})
	if mapValue.Kind() != otelLog.KindMap {
		t.Fatalf("expected map kind, got %v", mapValue.Kind())
	}
	sliceValue := toLogValue([]string{"x", "y", "z"})
	if sliceValue.Kind() != otelLog.KindSlice || len(sliceValue.AsSlice()) != 3 {
		t.Fatalf("expected slice kind/len, got kind=%v len=%d", sliceValue.Kind(), len(sliceValue.AsSlice()))
	}
	if empty := toLogValue(struct{}{}); empty.Kind() != otelLog.KindEmpty {
		t.Fatalf("expected empty kind for unsupported type, got %v", empty.Kind())
	}
}

func TestOtelLoggerEndpointAndValidation(t *testing.T) {
	var nilLogger *otelLogger
	if got := nilLogger.Endpoint(); got != "" {
		t.Fatalf("expected empty endpoint for nil logger, got %q", got)
	}

	ol := &otelLogger{endpoint: "https://otel.example.test"}
	if got := ol.Endpoint(); got != "https://otel.example.test" {
		t.Fatalf("unexpected endpoint from logger: %q", got)
	}

	loggerNilCfg, err := newOtelLogger(nil)
	if err != nil {
		t.Fatalf("newOtelLogger(nil) returned error: %v", err)
	}
	if loggerNilCfg != nil {
		t.Fatal("expected nil logger for nil config")
	}

	_, err = newOtelLogger(&config.Config{
		OtelEndpoint:    "localhost:4318",
		OtelServiceName: "rsyncsight",
		OtelTimeout:     1,
	})
	if err == nil {
		t.Fatal("expected validation error for endpoint without scheme")
	}
}

func TestToLogKeyValuesSortedOrder(t *testing.T) {
	values := map[string]interface{}{
		"zeta":   1,
		"alpha":  2,
		"middle": 3,
	}
	kvs := toLogKeyValues(values)
	if len(kvs) != 3 {
		t.Fatalf("expected 3 key values, got %d", len(kvs))
	}
	if kvs[0].Key != "alpha" || kvs[1].Key != "middle" || kvs[2].Key != "zeta" {
		t.Fatalf("expected sorted keys, got order %q, %q, %q", kvs[0].Key, kvs[1].Key, kvs[2].Key)
	}
}
