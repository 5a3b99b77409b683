package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func mkTick(id string, at time.Time, st TickStatus) Tick {
	return Tick{
		ID:          TickID(id),
		WebsiteID:   "W1",
		ValidatorID: "V1",
		Status:      st,
		LatencyMS:   42.0,
		CreatedAt:   at,
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		code int
		want TickStatus
	}{
		{200, StatusGood},
		{201, StatusBad},
		{301, StatusBad},
		{503, StatusBad},
		{0, StatusBad},
	}
	for _, c := range cases {
		if got := Classify(c.code); got != c.want {
			t.Fatalf("Classify(%d)=%s want %s", c.code, got, c.want)
		}
	}
}

func TestLatestTick_EmptyIsNil(t *testing.T) {
	if got := LatestTick(nil); got != nil {
		t.Fatalf("want nil for empty slice, got %+v", got)
	}
	if got := DeriveStatus(nil); got != StatusUnknown {
		t.Fatalf("want Unknown for empty slice, got %s", got)
	}
}

func TestLatestTick_NewestWinsRegardlessOfOrder(t *testing.T) {
	base := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	a := mkTick("a", base, StatusGood)
	b := mkTick("b", base.Add(time.Second), StatusBad)
	c := mkTick("c", base.Add(2*time.Second), StatusGood)

	orders := [][]Tick{
		{a, b, c},
		{c, b, a},
		{b, c, a},
	}
	for i, ticks := range orders {
		got := LatestTick(ticks)
		if got == nil || got.ID != "c" {
			t.Fatalf("order %d: want tick c, got %+v", i, got)
		}
		if st := DeriveStatus(ticks); st != StatusGood {
			t.Fatalf("order %d: want Good, got %s", i, st)
		}
	}
}

func TestLatestTick_TieBreaksDeterministically(t *testing.T) {
	at := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	a := mkTick("aaa", at, StatusGood)
	b := mkTick("zzz", at, StatusBad)

	// Same timestamp from two validators: the lexically greater ID must win
	// every time, in either input order, or status flickers.
	for i := 0; i < 5; i++ {
		if got := LatestTick([]Tick{a, b}); got.ID != "zzz" {
			t.Fatalf("want zzz, got %s", got.ID)
		}
		if got := LatestTick([]Tick{b, a}); got.ID != "zzz" {
			t.Fatalf("reversed: want zzz, got %s", got.ID)
		}
	}
}

func TestTick_JSONShape(t *testing.T) {
	tk := Tick{
		ID:          "T1",
		WebsiteID:   "W1",
		ValidatorID: "V1",
		Status:      StatusGood,
		LatencyMS:   12.5,
		CreatedAt:   time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC),
	}
	b, err := json.Marshal(tk)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	// Wire names follow the collector's public contract.
	for _, k := range []string{"id", "websiteId", "validatorId", "status", "latency", "createdAt"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing field %q in %s", k, b)
		}
	}
	if m["status"] != "Good" {
		t.Fatalf("want status Good, got %v", m["status"])
	}
}
