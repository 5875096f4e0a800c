package sweep

import "fmt"

// Generator produces the lazy Cartesian product of a set of ParamLists
// without ever materializing it: each index into [0, TotalCount) decodes
// directly to a ParamSet via mixed-radix arithmetic.
type Generator struct {
	lists        []ParamList
	total        int
	currentIndex int
}

// NewGenerator builds a Generator over lists. Any empty list makes the
// product empty (TotalCount() == 0).
func NewGenerator(lists ...ParamList) *Generator {
	total := 1
	for _, l := range lists {
		total *= len(l.Values)
	}
	if len(lists) == 0 {
		total = 0
	}
	cp := make([]ParamList, len(lists))
	copy(cp, lists)
	return &Generator{lists: cp, total: total}
}

// TotalCount is the product of every list's length.
func (g *Generator) TotalCount() int { return g.total }

// SetCurrentIndex repositions the generator for resumption.
func (g *Generator) SetCurrentIndex(i int) { g.currentIndex = i }

// Progress returns (current_index, total_count).
func (g *Generator) Progress() (int, int) { return g.currentIndex, g.total }

// GetNextBatch returns up to batchSize ParamSets in lexicographic order
// starting from currentIndex, advancing currentIndex by the number
// returned. An empty slice means the product is exhausted.
func (g *Generator) GetNextBatch(batchSize int) []ParamSet {
	if g.currentIndex >= g.total || batchSize <= 0 {
		return nil
	}
	end := g.currentIndex + batchSize
	if end > g.total {
		end = g.total
	}
	batch := make([]ParamSet, 0, end-g.currentIndex)
	for i := g.currentIndex; i < end; i++ {
		batch = append(batch, g.decode(i))
	}
	g.currentIndex = end
	return batch
}

// decode converts a flat lexicographic index into one ParamSet by treating
// the list lengths as mixed-radix digit bases, most significant digit
// first (the first ParamList varies slowest).
func (g *Generator) decode(index int) ParamSet {
	set := make(ParamSet, len(g.lists))
	// Compute each list's stride (product of the lengths of all lists
	// after it) so the first list is the slowest-varying digit.
	strides := make([]int, len(g.lists))
	stride := 1
	for i := len(g.lists) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= len(g.lists[i].Values)
	}
	for i, l := range g.lists {
		if len(l.Values) == 0 {
			continue
		}
		digit := (index / strides[i]) % len(l.Values)
		set[l.Name] = l.Values[digit]
	}
	return set
}

func (g *Generator) String() string {
	return fmt.Sprintf("sweep.Generator{lists=%d, total=%d, currentIndex=%d}", len(g.lists), g.total, g.currentIndex)
}
