package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/media"
	"github.com/tstromberg/fotovy/pkg/timeline"
)

func TestPlan(t *testing.T) {
	day := func(m time.Month, d int) time.Time { return time.Date(2023, m, d, 12, 0, 0, 0, time.UTC) }
	snap := &library.Snapshot{
		Albums: []*library.Album{
			{ID: "Bob_s Party", InPath: "Bob_s Party"},
			{ID: "trips/Rome", InPath: "trips/Rome"},
			{ID: "2023/02/Done", InPath: "2023/02/Done"},
		},
		Rows: []timeline.Row{
			{Album: media.Album{ID: "trips/Rome"}, Date: day(3, 9)},
			{Album: media.Album{ID: "Bob_s Party"}, Date: day(3, 1)},
			{Album: media.Album{ID: "trips/Rome"}, Date: day(1, 2)},
			{Album: media.Album{ID: "2023/02/Done"}, Date: day(2, 1)},
		},
	}

	got := plan("/p", snap)
	want := []move{
		{from: "/p/trips/Rome", to: "/p/trips/2023/03/Rome"},
		{from: "/p/Bob_s Party", to: "/p/2023/03/Bob's Party"},
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(move{})); diff != "" {
		t.Errorf("unexpected plan (-want +got):\n%s", diff)
	}
}

func TestApply(t *testing.T) {
	for _, copyOnly := range []bool{false, true} {
		root := t.TempDir()
		from := filepath.Join(root, "album")
		if err := os.MkdirAll(from, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(from, "a.jpg"), []byte("x"), 0o600); err != nil {
			t.Fatal(err)
		}

		to := filepath.Join(root, "2023", "03", "album")
		if err := apply(move{from: from, to: to}, copyOnly); err != nil {
			t.Fatalf("apply(copy=%v): %v", copyOnly, err)
		}
		if _, err := os.Stat(filepath.Join(to, "a.jpg")); err != nil {
			t.Errorf("copy=%v: destination missing: %v", copyOnly, err)
		}
		_, err := os.Stat(from)
		if copyOnly && err != nil {
			t.Errorf("copy should keep the source: %v", err)
		}
		if !copyOnly && !os.IsNotExist(err) {
			t.Errorf("move should remove the source, stat err=%v", err)
		}
	}
}
