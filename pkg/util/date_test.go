package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestBucketHourly(t *testing.T) {
	in := time.Date(2024, 10, 10, 10, 42, 31, 0, time.UTC)
	got := Bucket(in, time.Hour)
	want := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("bucket = %v, want %v", got, want)
	}
}

func TestStartRoundTrip(t *testing.T) {
	in := time.Date(2024, 10, 10, 10, 0, 0, 0, time.UTC)
	s := FormatStart(in)
	if s != "2024-10-10 10:00:00" {
		t.Fatalf("unexpected format %q", s)
	}
	back, err := ParseStart(s)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	if !back.Equal(in) {
		t.Fatalf("round trip %v != %v", back, in)
	}
}
