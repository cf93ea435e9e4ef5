package logger

import "testing"

func TestSanitizeKVsRedactsAndHashes(t *testing.T) {
	out := sanitizeKVs([]interface{}{
		"user_id", "7c9e6679-7425-40de-944b-e07fc1f90ae7",
		"heatmap_url", "https://cdn.example.com/forehead.png",
		"scan_id", "scan-123",
	})
	if len(out) != 6 {
		t.Fatalf("expected 6 values, got %d", len(out))
	}
	if s, _ := out[1].(string); len(s) != len("hash:")+12 {
		t.Fatalf("user_id should be hashed, got %v", out[1])
	}
	if out[3] != "[REDACTED]" {
		t.Fatalf("heatmap_url should be redacted, got %v", out[3])
	}
	if out[5] != "scan-123" {
		t.Fatalf("scan_id should pass through, got %v", out[5])
	}
}

func TestNopLoggerIsUsable(t *testing.T) {
	log := Nop().With("module", "test")
	log.Info("hello", "k", "v")
	log.Sync()
}
