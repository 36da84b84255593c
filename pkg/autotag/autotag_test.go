package autotag

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tstromberg/fotovy/pkg/library"
	"github.com/tstromberg/fotovy/pkg/media"
)

func TestParseTags(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{in: "beach, Sunrise,bird", want: []string{"beach", "sunrise", "bird"}},
		{in: "a,b,c,d,e,f,g", want: []string{"a", "b", "c", "d", "e"}},
		{in: "sea,,sea , two words", want: []string{"sea"}},
		{in: "", want: []string{}},
	}
	for _, tc := range tests {
		if diff := cmp.Diff(tc.want, ParseTags(tc.in)); diff != "" {
			t.Errorf("ParseTags(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}

type fakeLibrary struct {
	snap *library.Snapshot
	set  map[string][]string
}

func (f *fakeLibrary) Snapshot() *library.Snapshot { return f.snap }

func (f *fakeLibrary) SetKeywords(id string, kws []string) (media.Item, error) {
	f.set[id] = kws
	return media.Item{ID: id}, nil
}

type fakeThumbs struct{ keys []string }

func (f *fakeThumbs) Fetch(_ context.Context, key string) ([]byte, error) {
	f.keys = append(f.keys, key)
	if key == "Album/broken.jpg" {
		return nil, errors.New("corrupt")
	}
	return []byte(key), nil
}

type fakeTagger struct{}

func (fakeTagger) Tags(_ context.Context, jpeg []byte) ([]string, error) {
	return []string{"tag:" + string(jpeg)}, nil
}

func testLibrary() *fakeLibrary {
	return &fakeLibrary{
		set: map[string][]string{},
		snap: &library.Snapshot{Images: []*library.Image{
			{RelPath: "new.jpg"},
			{RelPath: "tagged.jpg", Keywords: []string{"old"}},
			{RelPath: "clip.mp4", Video: true},
			{RelPath: "broken.jpg"},
		}},
	}
}

func TestRun(t *testing.T) {
	lib := testLibrary()
	thumbs := &fakeThumbs{}

	n, err := Run(context.Background(), lib, thumbs, fakeTagger{}, Options{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 tagged image, got %d", n)
	}
	want := map[string][]string{"new.jpg": {"tag:Album/new.jpg"}}
	if diff := cmp.Diff(want, lib.set); diff != "" {
		t.Errorf("unexpected keywords (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Album/new.jpg", "Album/broken.jpg"}, thumbs.keys); diff != "" {
		t.Errorf("unexpected thumbnail keys (-want +got):\n%s", diff)
	}
}

func TestRunOverwriteAndDryRun(t *testing.T) {
	lib := testLibrary()
	n, err := Run(context.Background(), lib, &fakeThumbs{}, fakeTagger{}, Options{Overwrite: true, DryRun: true, Size: library.ThumbTiny})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 tagged images, got %d", n)
	}
	if len(lib.set) != 0 {
		t.Errorf("dry run should not write, got %v", lib.set)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Run(ctx, testLibrary(), &fakeThumbs{}, fakeTagger{}, Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
