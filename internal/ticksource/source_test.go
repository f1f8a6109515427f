package ticksource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Jetpackjules/Kalshi-Trader-sub002/internal/model"
)

func writeLog(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func drain(t *testing.T, s *Source) []model.Tick {
	t.Helper()
	var ticks []model.Tick
	for {
		tick, ok := s.Next()
		if !ok {
			break
		}
		ticks = append(ticks, tick)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	return ticks
}

func TestMergeOrdering(t *testing.T) {
	dir := t.TempDir()
	// File a starts later than file b; the merge must interleave.
	a := writeLog(t, dir, "highny.csv", ""+
		"1756562400000000,HIGHNY-25AUG31-T52,40,55,60,45\n"+
		"1756562460000000,HIGHNY-25AUG31-T52,41,55,59,45\n")
	b := writeLog(t, dir, "highchi.csv", ""+
		"1756562340000000,HIGHCHI-25AUG31-T60,30,65,70,35\n"+
		"1756562430000000,HIGHCHI-25AUG31-T60,31,65,69,35\n")

	s, err := Open([]string{a, b}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ticks := drain(t, s)
	if len(ticks) != 4 {
		t.Fatalf("got %d ticks, want 4", len(ticks))
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i].Time.Before(ticks[i-1].Time) {
			t.Errorf("tick %d out of order: %v before %v", i, ticks[i].Time, ticks[i-1].Time)
		}
	}
	wantSources := []string{"highchi", "highny", "highchi", "highny"}
	for i, want := range wantSources {
		if ticks[i].Source != want {
			t.Errorf("ticks[%d].Source = %q, want %q", i, ticks[i].Source, want)
		}
	}
}

func TestSameTimestampTiebreak(t *testing.T) {
	dir := t.TempDir()
	// Identical timestamps: explicit seq column decides, then source tag.
	a := writeLog(t, dir, "b_series.csv",
		"1756562400000000,B-25AUG31-T52,40,55,60,45,42,7\n")
	b := writeLog(t, dir, "a_series.csv",
		"1756562400000000,A-25AUG31-T60,30,65,70,35,33,7\n")
	c := writeLog(t, dir, "c_series.csv",
		"1756562400000000,C-25AUG31-T70,20,75,80,25,22,3\n")

	s, err := Open([]string{a, b, c}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ticks := drain(t, s)
	got := []string{ticks[0].Source, ticks[1].Source, ticks[2].Source}
	want := []string{"c_series", "a_series", "b_series"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
	if ticks[0].Seq != 3 {
		t.Errorf("explicit seq not honored: got %d, want 3", ticks[0].Seq)
	}
}

func TestMalformedRowsSkippedAndCounted(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "messy.csv", ""+
		"timestamp,ticker,yes_bid,no_bid,implied_no_ask,implied_yes_ask,last\n"+ // header
		"1756562400000000,HIGHNY-25AUG31-T52,40,55,60,45\n"+
		"1756562410000000,HIGHNY-25AUG31-T52,forty,55,60,45\n"+ // non-numeric price
		"1756562420000000,HIGHNY-25AUG31-T52,40\n"+ // too few fields
		"not-a-time,HIGHNY-25AUG31-T52,40,55,60,45\n"+ // bad timestamp
		"1756562430000000,HIGHNY-25AUG31-T52,140,55,60,45\n"+ // price out of range
		"1756562440000000,HIGHNY-25AUG31-T52,41,55,59,45,42\n")

	s, err := Open([]string{path}, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ticks := drain(t, s)
	if len(ticks) != 2 {
		t.Fatalf("got %d ticks, want 2", len(ticks))
	}
	if ticks[1].LastPrice != 42 {
		t.Errorf("LastPrice = %d, want 42", ticks[1].LastPrice)
	}

	stats := s.Stats()
	if stats.Malformed["messy"] != 4 {
		t.Errorf("malformed count = %d, want 4", stats.Malformed["messy"])
	}
	if stats.TotalMalformed() != 4 {
		t.Errorf("TotalMalformed = %d, want 4", stats.TotalMalformed())
	}
	if stats.Emitted != 2 {
		t.Errorf("Emitted = %d, want 2", stats.Emitted)
	}
}

func TestWindowAndWarmup(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2025, time.August, 30, 12, 0, 0, 0, time.UTC)
	rows := ""
	for i := 0; i < 6; i++ {
		ts := base.Add(time.Duration(i) * 10 * time.Minute)
		rows += ts.Format(time.RFC3339) + ",HIGHNY-25AUG31-T52,40,55,60,45\n"
	}
	path := writeLog(t, dir, "highny.csv", rows)

	start := base.Add(30 * time.Minute) // row 3 onward is live
	end := base.Add(40 * time.Minute)   // row 5 is past the end
	s, err := Open([]string{path}, Options{
		Start:  start,
		End:    end,
		Warmup: 15 * time.Minute, // rows 2 fall in the warm-up window
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	ticks := drain(t, s)
	if len(ticks) != 3 {
		t.Fatalf("got %d ticks, want 3 (1 warmup + 2 live)", len(ticks))
	}
	if !ticks[0].Warmup {
		t.Error("first tick should be warmup")
	}
	if ticks[1].Warmup || ticks[2].Warmup {
		t.Error("live ticks wrongly flagged warmup")
	}
	if !ticks[2].Time.Equal(end) {
		t.Errorf("last tick at %v, want end bound %v", ticks[2].Time, end)
	}
}

func TestMissingFileIsFatal(t *testing.T) {
	_, err := Open([]string{filepath.Join(t.TempDir(), "absent.csv")}, Options{})
	if err == nil {
		t.Fatal("Open: want error for missing input, got nil")
	}
}

func TestDeterministicAcrossPasses(t *testing.T) {
	dir := t.TempDir()
	a := writeLog(t, dir, "a.csv", ""+
		"1756562400000000,A-25AUG31-T52,40,55,60,45\n"+
		"1756562400000000,A-25AUG31-T52,41,55,59,45\n")
	b := writeLog(t, dir, "b.csv",
		"1756562400000000,B-25AUG31-T60,30,65,70,35\n")

	pass := func() []model.Tick {
		s, err := Open([]string{a, b}, Options{})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer s.Close()
		return drain(t, s)
	}

	first, second := pass(), pass()
	if len(first) != len(second) {
		t.Fatalf("pass lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("tick %d differs between passes: %+v vs %+v", i, first[i], second[i])
		}
	}
}
