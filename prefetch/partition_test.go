package prefetch

import (
	"testing"
)

func TestPartitionEven_Counts(t *testing.T) {
	tests := []struct {
		name  string
		size  int
		n     int
		sizes []int
	}{
		{"even split", 8, 4, []int{2, 2, 2, 2}},
		{"uneven split", 10, 3, []int{4, 3, 3}},
		{"single partition", 5, 1, []int{5}},
		{"more workers than items", 2, 4, []int{1, 1, 0, 0}},
		{"empty input", 0, 3, []int{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.size)
			for i := range items {
				items[i] = i
			}
			parts := PartitionEven(items, tt.n)
			if len(parts) != tt.n {
				t.Fatalf("got %d partitions, want %d", len(parts), tt.n)
			}
			for i, p := range parts {
				if p.Index != i {
					t.Errorf("partition %d has index %d", i, p.Index)
				}
				if len(p.Items) != tt.sizes[i] {
					t.Errorf("partition %d has %d items, want %d", i, len(p.Items), tt.sizes[i])
				}
			}
			assertComplete(t, parts, tt.size)
		})
	}
}

func TestPartitionStride_Counts(t *testing.T) {
	tests := []struct {
		name string
		size int
		n    int
	}{
		{"divisible", 8, 4},
		{"not divisible", 10, 3},
		{"more workers than items", 2, 5},
		{"empty input", 0, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.size)
			for i := range items {
				items[i] = i
			}
			parts := PartitionStride(items, tt.n)
			if len(parts) != tt.n {
				t.Fatalf("got %d partitions, want %d", len(parts), tt.n)
			}
			assertComplete(t, parts, tt.size)
		})
	}
}

// assertComplete verifies the union of partitions covers every input index
// exactly once, in order.
func assertComplete(t *testing.T, parts []Partition[int], size int) {
	t.Helper()
	next := 0
	for _, p := range parts {
		for _, item := range p.Items {
			if item != next {
				t.Fatalf("element %d out of place (want %d)", item, next)
			}
			next++
		}
	}
	if next != size {
		t.Fatalf("partitions cover %d elements, want %d", next, size)
	}
}
