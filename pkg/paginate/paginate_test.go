package paginate

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func loaded(vs ...string) List[string] {
	return FromSlice(vs)
}

func TestMergeIdempotent(t *testing.T) {
	page := []string{"a", "b", "c"}
	once, err := Merge(nil, page, Page(0, 3), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	twice, err := Merge(once, page, Page(0, 3), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("re-fetch changed the list (-once +twice):\n%s", diff)
	}
}

func TestMergeAppendsAtOffset(t *testing.T) {
	got, err := Merge(loaded("item1", "item2"), []string{"item3", "item4"}, Page(2, 2), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff([]string{"item1", "item2", "item3", "item4"}, got.Items()); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestMergeOutOfOrder(t *testing.T) {
	late, err := Merge(nil, []string{"item3", "item4"}, Page(2, 2), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff([]int{0, 1}, late.Holes()); diff != "" {
		t.Errorf("expected holes before the first page arrives (-want +got):\n%s", diff)
	}
	if _, ok := late.At(0); ok {
		t.Errorf("position 0 should not be loaded yet")
	}
	if got := late.Prefix(); len(got) != 0 {
		t.Errorf("prefix should be empty while offset 0 is missing, got %v", got)
	}

	both, err := Merge(late, []string{"item1", "item2"}, Page(0, 2), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	inOrder, err := Merge(loaded("item1", "item2"), []string{"item3", "item4"}, Page(2, 2), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff(inOrder, both); diff != "" {
		t.Errorf("arrival order changed the result (-in order +reversed):\n%s", diff)
	}
	if len(both.Holes()) != 0 {
		t.Errorf("expected no holes, got %v", both.Holes())
	}
}

func TestMergeMissingPaginate(t *testing.T) {
	_, err := Merge(loaded("a"), []string{"b"}, Args{}, "testField")
	if err == nil {
		t.Fatalf("expected an error for missing paginate argument")
	}
	if !strings.Contains(err.Error(), "testField") {
		t.Errorf("error should name the field, got %q", err)
	}
	if !errors.Is(err, ErrMissingPaginate) {
		t.Errorf("expected ErrMissingPaginate, got %v", err)
	}
	var ce *ConfigError
	if !errors.As(err, &ce) || ce.Field != "testField" {
		t.Errorf("expected *ConfigError for testField, got %#v", err)
	}
}

func TestMergeDefaultsOffsetToZero(t *testing.T) {
	limit := 2
	got, err := Merge(loaded("old1", "old2", "old3"), []string{"new1", "new2"}, Args{Paginate: &Paginate{Limit: &limit}}, "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if diff := cmp.Diff([]string{"new1", "new2", "old3"}, got.Items()); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}
}

func TestMergeDoesNotModifyExisting(t *testing.T) {
	existing := loaded("a", "b")
	if _, err := Merge(existing, []string{"x"}, Page(0, 1), "testField"); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if existing[0].Value != "a" {
		t.Errorf("existing list was modified: %v", existing.Items())
	}
}

func TestMergeZeroValueIsNotAHole(t *testing.T) {
	got, err := Merge[*string](nil, []*string{nil}, Page(1, 1), "testField")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, ok := got.At(0); ok {
		t.Errorf("offset 0 was never fetched and should be a hole")
	}
	if v, ok := got.At(1); !ok || v != nil {
		t.Errorf("offset 1 should hold a loaded nil, got %v (loaded=%v)", v, ok)
	}
}

func TestMergeNegativeOffset(t *testing.T) {
	if _, err := Merge(nil, []string{"a"}, Page(-1, 1), "testField"); err == nil {
		t.Errorf("expected an error for a negative offset")
	}
}

func TestCacheConcurrentPages(t *testing.T) {
	c := NewCache[int]()
	var wg sync.WaitGroup
	for p := 4; p >= 0; p-- {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			page := []int{p * 10, p*10 + 1}
			if _, err := c.Merge("media", "all", page, Page(p*2, 2)); err != nil {
				t.Errorf("merge page %d: %v", p, err)
			}
		}(p)
	}
	wg.Wait()

	l, ok := c.Read("media", "all")
	if !ok {
		t.Fatalf("expected a stored list")
	}
	want := []int{0, 1, 10, 11, 20, 21, 30, 31, 40, 41}
	if diff := cmp.Diff(want, l.Items()); diff != "" {
		t.Errorf("unexpected items (-want +got):\n%s", diff)
	}

	c.Evict("media", "all")
	if _, ok := c.Read("media", "all"); ok {
		t.Errorf("list should be gone after Evict")
	}
}

func TestCacheKeysAreIndependent(t *testing.T) {
	c := NewCache[string]()
	if _, err := c.Merge("media", "favorites", []string{"fav"}, Page(0, 1)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	if _, err := c.Merge("media", "all", []string{"a", "b"}, Page(0, 2)); err != nil {
		t.Fatalf("merge: %v", err)
	}
	favs, _ := c.Read("media", "favorites")
	if diff := cmp.Diff([]string{"fav"}, favs.Items()); diff != "" {
		t.Errorf("unexpected favorites (-want +got):\n%s", diff)
	}
	if _, err := c.Merge("media", "all", []string{"x"}, Args{}); err == nil {
		t.Errorf("expected missing paginate error from cache")
	}
}
