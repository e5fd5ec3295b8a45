package timex

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTime_UnixMethods(t *testing.T) {
	// Create a fixed time
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tt := Time(now)

	// Test Unix()
	if tt.Unix() != now.Unix() {
		t.Errorf("Unix() = %v, want %v", tt.Unix(), now.Unix())
	}

	// Test UnixMilli()
	if tt.UnixMilli() != now.UnixMilli() {
		t.Errorf("UnixMilli() = %v, want %v", tt.UnixMilli(), now.UnixMilli())
	}

	// Test UnixMicro()
	if tt.UnixMicro() != now.UnixMicro() {
		t.Errorf("UnixMicro() = %v, want %v", tt.UnixMicro(), now.UnixMicro())
	}

	// Test UnixNano()
	if tt.UnixNano() != now.UnixNano() {
		t.Errorf("UnixNano() = %v, want %v", tt.UnixNano(), now.UnixNano())
	}

	// Verify it's not returning time.Now() by waiting a bit
	time.Sleep(10 * time.Millisecond)
	if tt.Unix() != now.Unix() {
		t.Errorf("Unix() changed after sleep, it should be static. got %v, want %v", tt.Unix(), now.Unix())
	}
}

func TestTime_JSONRoundTrip(t *testing.T) {
	tt := Time(time.Date(2024, 1, 1, 12, 0, 0, 123*int(time.Millisecond), time.UTC))

	data, err := json.Marshal(tt)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-01-01T12:00:00.123Z"` {
		t.Errorf("Marshal() = %s, want %q", data, "2024-01-01T12:00:00.123Z")
	}

	var got Time
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !got.Time().Equal(tt.Time()) {
		t.Errorf("round trip = %v, want %v", got, tt)
	}
}

func TestTime_UnmarshalNull(t *testing.T) {
	var got Time
	if err := json.Unmarshal([]byte(`null`), &got); err != nil {
		t.Fatalf("Unmarshal(null) error = %v", err)
	}
	if !got.IsZero() {
		t.Errorf("Unmarshal(null) = %v, want zero", got)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("2024-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Time().Equal(want) {
		t.Errorf("Parse() = %v, want %v", got, want)
	}

	// Fractional seconds are accepted and preserved.
	got, err = Parse("2024-01-01T00:00:00.456Z")
	if err != nil {
		t.Fatalf("Parse() with millis error = %v", err)
	}
	if got.Time().Nanosecond() != 456*int(time.Millisecond) {
		t.Errorf("Parse() dropped fractional seconds: %v", got)
	}

	if _, err := Parse("not-a-time"); err == nil {
		t.Error("Parse() with garbage input should return error")
	}
}

func TestNowAfter(t *testing.T) {
	past := Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	if got := NowAfter(past); !got.After(past) {
		t.Errorf("NowAfter(past) = %v, not after %v", got, past)
	}

	// A previous stamp at or ahead of the clock still advances.
	ahead := Time(time.Now().UTC().Add(time.Hour))
	got := NowAfter(ahead)
	if !got.After(ahead) {
		t.Errorf("NowAfter(ahead) = %v, not after %v", got, ahead)
	}
	if diff := got.Time().Sub(ahead.Time()); diff != time.Millisecond {
		t.Errorf("NowAfter(ahead) advanced by %v, want 1ms", diff)
	}
}
