package rbf

import "gonum.org/v1/gonum/spatial/kdtree"

// center is a kernel centre. index refers to the original point order, which
// the tree construction does not preserve.
type center struct {
	p     [3]float64
	index int
}

// Compare implements kdtree.Comparable.
func (c center) Compare(o kdtree.Comparable, d kdtree.Dim) float64 {
	return c.p[d] - o.(center).p[d]
}

// Dims implements kdtree.Comparable.
func (c center) Dims() int { return 3 }

// Distance returns the squared Euclidean distance.
func (c center) Distance(o kdtree.Comparable) float64 {
	q := o.(center)
	dx := c.p[0] - q.p[0]
	dy := c.p[1] - q.p[1]
	dz := c.p[2] - q.p[2]
	return dx*dx + dy*dy + dz*dz
}

type centers []center

func (c centers) Index(i int) kdtree.Comparable         { return c[i] }
func (c centers) Len() int                              { return len(c) }
func (c centers) Slice(start, end int) kdtree.Interface { return c[start:end] }

// Pivot uses the deterministic median of medians so that the tree, and with
// it the summation order of kernel sums, does not change between runs.
func (c centers) Pivot(d kdtree.Dim) int {
	p := plane{centers: c, Dim: d}
	return kdtree.Partition(p, kdtree.MedianOfMedians(p))
}

// plane sorts centres along one dimension.
type plane struct {
	centers
	kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return p.centers[i].p[p.Dim] < p.centers[j].p[p.Dim]
}

func (p plane) Swap(i, j int) {
	p.centers[i], p.centers[j] = p.centers[j], p.centers[i]
}

func (p plane) Slice(start, end int) kdtree.SortSlicer {
	return plane{centers: p.centers[start:end], Dim: p.Dim}
}

func newTree(xs [][3]float64) *kdtree.Tree {
	cs := make(centers, len(xs))
	for i, x := range xs {
		cs[i] = center{p: x, index: i}
	}
	return kdtree.New(cs, false)
}

// within calls fn with the index and squared distance of every centre no
// further than sqrt(d2) from q.
func within(t *kdtree.Tree, q [3]float64, d2 float64, fn func(index int, dist2 float64)) {
	keep := kdtree.NewDistKeeper(d2)
	t.NearestSet(keep, center{p: q, index: -1})
	for _, cd := range keep.Heap {
		if cd.Comparable == nil {
			continue
		}
		fn(cd.Comparable.(center).index, cd.Dist)
	}
}
