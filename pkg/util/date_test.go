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

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestAlignRange(t *testing.T) {
    from := time.Date(2024, 10, 10, 10, 13, 42, 0, time.UTC)
    to := time.Date(2024, 10, 10, 11, 7, 9, 0, time.UTC)

    gotFrom, gotTo := AlignRange(from, to, "5m")
    if gotFrom.Minute() != 10 || gotTo.Minute() != 5 {
        t.Fatalf("unexpected 5m alignment %v %v", gotFrom, gotTo)
    }

    gotFrom, gotTo = AlignRange(from, to, "1h")
    if gotFrom.Minute() != 0 || gotTo.Minute() != 0 {
        t.Fatalf("unexpected 1h alignment %v %v", gotFrom, gotTo)
    }
}