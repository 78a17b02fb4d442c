package snowflake

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMarshalJSONAsString(t *testing.T) {
	id := ID(123456789)
	data, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"123456789"` {
		t.Errorf("expected quoted string, got %s", string(data))
	}
}

func TestUnmarshalJSONString(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`"987654321"`), &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id != ID(987654321) {
		t.Errorf("expected 987654321, got %d", id)
	}
}

func TestUnmarshalJSONNumberCompat(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`42`), &id); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if id != ID(42) {
		t.Errorf("expected 42, got %d", id)
	}
}

func TestUnmarshalJSONInvalid(t *testing.T) {
	var id ID
	if err := json.Unmarshal([]byte(`"not-a-number"`), &id); err == nil {
		t.Error("expected error for non-numeric string")
	}
}

func TestParse(t *testing.T) {
	id, err := Parse("1234")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id != ID(1234) {
		t.Errorf("expected 1234, got %d", id)
	}
	if _, err := Parse("abc"); err == nil {
		t.Error("expected error for invalid id string")
	}
}

func TestTimeRoundsToEmbeddedMillis(t *testing.T) {
	// An ID whose timestamp field is exactly 1000ms past the epoch.
	id := ID(1000 << timestampShift)
	want := time.UnixMilli(epoch + 1000)
	if got := id.Time(); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}
