package lineproto

import "testing"

func TestParseBasic(t *testing.T) {
	r, err := Parse("cpu,host=a value=1 1000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Measurement != "cpu" {
		t.Errorf("measurement = %q, want cpu", r.Measurement)
	}
	if r.Tags["host"] != "a" {
		t.Errorf("tags[host] = %q, want a", r.Tags["host"])
	}
	if r.Fields["value"] != "1" {
		t.Errorf("fields[value] = %q, want 1", r.Fields["value"])
	}
	if r.Timestamp != 1000000000 {
		t.Errorf("timestamp = %d, want 1000000000", r.Timestamp)
	}
}

func TestParseMissingTimestampUsesWallClock(t *testing.T) {
	r, err := Parse("cpu value=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Timestamp <= 0 {
		t.Errorf("expected a positive wall-clock timestamp, got %d", r.Timestamp)
	}
}

func TestParseIgnoresSegmentsWithoutEquals(t *testing.T) {
	r, err := Parse("cpu,host=a,bogus value=1,alsobogus 5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := r.Tags["bogus"]; ok {
		t.Errorf("expected 'bogus' tag segment without '=' to be ignored")
	}
	if len(r.Fields) != 1 {
		t.Errorf("expected only one valid field, got %v", r.Fields)
	}
}

func TestParseTooFewTokensIsMalformed(t *testing.T) {
	_, err := Parse("cpu")
	if err != ErrMalformedLine {
		t.Errorf("expected ErrMalformedLine, got %v", err)
	}
}

func TestKey(t *testing.T) {
	r := &Record{Measurement: "cpu", Timestamp: 42}
	if got, want := r.Key(), "cpu:42"; got != want {
		t.Errorf("Key() = %q, want %q", got, want)
	}
}

func TestRoundTrip(t *testing.T) {
	r, err := Parse("cpu,host=a value=1,msg=ok 1000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := r.Serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}

	got, err := Deserialize(data)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if got.Measurement != r.Measurement || got.Timestamp != r.Timestamp {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, r)
	}
	if got.Tags["host"] != "a" || got.Fields["value"] != "1" || got.Fields["msg"] != "ok" {
		t.Fatalf("round trip field/tag mismatch: %+v", got)
	}
}
