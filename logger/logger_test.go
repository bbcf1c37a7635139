package logger

import (
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestWithFieldsChaining(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test").WithFields(Fields{"run_id": "abc"})
	if v, ok := entry.Entry.Data["run_id"]; !ok || v != "abc" {
		t.Fatalf("chained field missing: %v", entry.Entry.Data)
	}
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field lost on chaining: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestFlowCounters(t *testing.T) {
	IncrementRateFetch(128)
	RecordFlowMessage("repricer", 42)

	v, ok := flows.Load("rate_api")
	if !ok {
		t.Fatal("rate_api flow not recorded")
	}
	if fs := v.(*flowStat); fs.messages < 1 || fs.bytes < 128 {
		t.Errorf("unexpected flow stat: %+v", fs)
	}
	if _, ok := flows.Load("repricer"); !ok {
		t.Fatal("repricer flow not recorded")
	}
}
