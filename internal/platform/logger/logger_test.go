package logger

import "testing"

func TestSanitizeKVs_RedactsSensitiveKeys(t *testing.T) {
	out := sanitizeKVs([]interface{}{"token", "abc.def.ghi", "agent_id", "a1", "db_dsn", "root:root@tcp"})

	if out[1] != "[REDACTED]" {
		t.Errorf("expected token redacted, got %v", out[1])
	}
	if out[3] != "a1" {
		t.Errorf("expected agent_id untouched, got %v", out[3])
	}
	if out[5] != "[REDACTED]" {
		t.Errorf("expected dsn redacted, got %v", out[5])
	}
}

func TestSanitizeKVs_OddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"key", "value", "dangling"})
	if len(out) != 3 || out[2] != "dangling" {
		t.Errorf("unexpected output: %v", out)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New("dev", "loud"); err == nil {
		t.Error("expected error for invalid level")
	}
}
