package pathtrie

import (
	"reflect"
	"testing"
)

func TestInsertSingleAbsolutePath(t *testing.T) {
	var tr Trie
	tr.Insert("/1/2/3")

	got := tr.AllUniquePaths()
	want := []string{"/", "/1", "/1/2", "/1/2/3"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v", got, want)
	}
}

func TestInsertOverlappingPaths(t *testing.T) {
	var tr Trie
	for _, p := range []string{"/1", "/1/2/3", "/2/3", "/2/3/4", "/2/5"} {
		tr.Insert(p)
	}

	got := tr.AllUniquePaths()
	want := []string{"/", "/1", "/1/2", "/1/2/3", "/2", "/2/3", "/2/3/4", "/2/5"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v", got, want)
	}
}

func TestInsertDeduplicates(t *testing.T) {
	var tr Trie
	tr.Insert("/1/2")
	tr.Insert("/1/2")
	tr.Insert("/1")

	got := tr.AllUniquePaths()
	want := []string{"/", "/1", "/1/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v", got, want)
	}
}

func TestInsertEmptyInsertsNothing(t *testing.T) {
	var tr Trie
	tr.Insert("")
	if got := tr.AllUniquePaths(); got != nil {
		t.Errorf("AllUniquePaths() = %v, want nil", got)
	}
}

func TestInsertNormalizesDotDot(t *testing.T) {
	var tr Trie
	tr.Insert("/a/b/../c")

	got := tr.AllUniquePaths()
	want := []string{"/", "/a", "/a/c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v", got, want)
	}
}

func TestInsertPreservesSiblingOrder(t *testing.T) {
	var tr Trie
	tr.Insert("/z")
	tr.Insert("/a")
	tr.Insert("/m")

	got := tr.AllUniquePaths()
	want := []string{"/", "/z", "/a", "/m"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v (siblings must stay in insertion order)", got, want)
	}
}

func TestInsertRelativePath(t *testing.T) {
	var tr Trie
	tr.Insert("a/b")

	got := tr.AllUniquePaths()
	want := []string{"a", "a/b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AllUniquePaths() = %v, want %v", got, want)
	}
}

func TestClear(t *testing.T) {
	var tr Trie
	tr.Insert("/1/2")
	tr.Clear()
	if got := tr.AllUniquePaths(); got != nil {
		t.Errorf("AllUniquePaths() after Clear = %v, want nil", got)
	}
}
