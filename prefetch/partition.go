package prefetch

// Partition is a contiguous slice of the input tagged with its position in
// the original ordering. Partitions are never mutated after creation and
// each one is consumed by exactly one worker.
type Partition[T any] struct {
	Index int
	Items []T
}

// PartitionEven splits items into exactly n near-equal contiguous
// partitions. When len(items) is not divisible by n, the first
// len(items)%n partitions receive one extra element. Partitions may be
// empty when n exceeds len(items).
func PartitionEven[T any](items []T, n int) []Partition[T] {
	if n < 1 {
		n = 1
	}
	parts := make([]Partition[T], n)
	base := len(items) / n
	extra := len(items) % n

	offset := 0
	for i := range n {
		size := base
		if i < extra {
			size++
		}
		parts[i] = Partition[T]{Index: i, Items: items[offset : offset+size]}
		offset += size
	}
	return parts
}

// PartitionStride splits items into partitions of a fixed stride
// ceil(len(items)/n). Stride slicing can produce fewer than n non-empty
// chunks; the tail is padded with empty partitions so callers always get
// exactly n.
func PartitionStride[T any](items []T, n int) []Partition[T] {
	if n < 1 {
		n = 1
	}
	step := len(items) / n
	if len(items)%n != 0 {
		step = len(items)/n + 1
	}

	parts := make([]Partition[T], n)
	for i := range n {
		lo := i * step
		hi := lo + step
		if lo > len(items) {
			lo = len(items)
		}
		if hi > len(items) {
			hi = len(items)
		}
		parts[i] = Partition[T]{Index: i, Items: items[lo:hi]}
	}
	return parts
}

func split[T any](items []T, n int, kind SplitKind) []Partition[T] {
	if kind == SplitStride {
		return PartitionStride(items, n)
	}
	return PartitionEven(items, n)
}
