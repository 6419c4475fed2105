package store

import "testing"

func TestRing_FillsThenEvictsOldest(t *testing.T) {
	r := NewRing[int](3)
	for i := 1; i <= 3; i++ {
		if r.Push(i) {
			t.Fatalf("Push(%d) evicted before the ring was full", i)
		}
	}
	if !r.Push(4) {
		t.Error("Push on full ring: expected eviction")
	}

	got := r.Slice()
	want := []int{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Slice: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Slice: got %v, want %v", got, want)
			break
		}
	}
	if r.Len() != 3 || r.Cap() != 3 {
		t.Errorf("Len/Cap = %d/%d, want 3/3", r.Len(), r.Cap())
	}
}

func TestRing_LengthNeverExceedsCapacity(t *testing.T) {
	r := NewRing[int](5)
	for i := 0; i < 1000; i++ {
		r.Push(i)
		if r.Len() > r.Cap() {
			t.Fatalf("after %d pushes Len = %d > Cap = %d", i+1, r.Len(), r.Cap())
		}
	}
	got := r.Slice()
	for i := 1; i < len(got); i++ {
		if got[i] != got[i-1]+1 {
			t.Fatalf("Slice not in insertion order: %v", got)
		}
	}
	if got[len(got)-1] != 999 {
		t.Errorf("newest = %d, want 999", got[len(got)-1])
	}
}

func TestRing_Update(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	found := r.Update(func(v *int) bool {
		if *v == 3 {
			*v = 30
			return true
		}
		return false
	})
	if !found {
		t.Fatal("Update: expected to find 3")
	}
	if got := r.Slice(); got[0] != 2 || got[1] != 30 {
		t.Errorf("Slice after Update: got %v, want [2 30]", got)
	}
	if r.Update(func(v *int) bool { return *v == 1 }) {
		t.Error("Update found an evicted element")
	}
}

func TestRing_SliceIsCopy(t *testing.T) {
	r := NewRing[int](2)
	r.Push(1)
	s := r.Slice()
	s[0] = 100
	if r.Slice()[0] != 1 {
		t.Error("mutating Slice result changed the ring")
	}
}

func TestNewRing_PanicsOnZeroCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewRing(0): expected panic")
		}
	}()
	NewRing[int](0)
}
