package frontend

import (
	"reflect"
	"testing"
	"time"
)

func TestRefIndexComplete(t *testing.T) {
	r := NewRefIndex(time.Minute)
	defer r.Close()
	r.Replace([]string{"docs", "work", "my docs", "dotfiles"})

	tests := []struct {
		word     string
		expected []string
	}{
		{"", []string{"docs", "work", `"my docs"`, "dotfiles"}},
		{"do", []string{"docs", "dotfiles", `"my docs"`}},
		{"wk", []string{"work"}},
		{"zzz", nil},
	}
	for _, tt := range tests {
		if got := r.Complete(tt.word); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Complete(%q) = %q, expected %q", tt.word, got, tt.expected)
		}
	}
}

func TestRefIndexReplaceDropsResolutions(t *testing.T) {
	r := NewRefIndex(time.Minute)
	defer r.Close()

	r.Store("docs", "/srv/docs")
	if got, ok := r.Lookup("docs"); !ok || got != "/srv/docs" {
		t.Fatalf("expected cached resolution, got %q, %v", got, ok)
	}

	r.Replace([]string{"docs"})
	if _, ok := r.Lookup("docs"); ok {
		t.Error("replace must drop cached resolutions")
	}
}

func TestRefIndexResolutionsExpire(t *testing.T) {
	r := NewRefIndex(20 * time.Millisecond)
	defer r.Close()

	r.Store("docs", "/srv/docs")
	time.Sleep(50 * time.Millisecond)
	if _, ok := r.Lookup("docs"); ok {
		t.Error("expected the resolution to expire")
	}
}

func TestRefIndexAliasesIsACopy(t *testing.T) {
	r := NewRefIndex(time.Minute)
	defer r.Close()

	src := []string{"a", "b"}
	r.Replace(src)
	src[0] = "changed"
	got := r.Aliases()
	got[1] = "changed"
	if !reflect.DeepEqual(r.Aliases(), []string{"a", "b"}) {
		t.Errorf("index aliases were mutated: %q", r.Aliases())
	}
}
