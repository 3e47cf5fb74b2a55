package repository

import (
	"errors"
	"testing"
)

func TestInChunks(t *testing.T) {
	keys := []int{1, 2, 3, 4, 5, 6, 7}
	var sizes []int
	err := InChunks(keys, 3, func(chunk []int) error {
		sizes = append(sizes, len(chunk))
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Errorf("chunk sizes = %v, want [3 3 1]", sizes)
	}
}

func TestInChunksEmptyAndError(t *testing.T) {
	calls := 0
	if err := InChunks([]int{}, 3, func([]int) error { calls++; return nil }); err != nil || calls != 0 {
		t.Fatalf("empty input: err=%v calls=%d", err, calls)
	}

	boom := errors.New("boom")
	calls = 0
	err := InChunks([]int{1, 2, 3, 4}, 1, func([]int) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) || calls != 2 {
		t.Errorf("err=%v calls=%d, want boom after 2 calls", err, calls)
	}
}

func TestUnique(t *testing.T) {
	got := Unique([]uint{3, 1, 3, 2, 1})
	want := []uint{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}

func TestWithPragmas(t *testing.T) {
	cases := map[string]string{
		"a.db":                  "a.db?_foreign_keys=on&_busy_timeout=5000",
		"a.db?cache=shared":     "a.db?cache=shared&_foreign_keys=on&_busy_timeout=5000",
		"a.db?_busy_timeout=10": "a.db?_busy_timeout=10&_foreign_keys=on",
	}
	for in, want := range cases {
		if got := withPragmas(in); got != want {
			t.Errorf("withPragmas(%q) = %q, want %q", in, got, want)
		}
	}
}
