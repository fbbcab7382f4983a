package bvh

// TreeStats summarizes the shape of a tree
type TreeStats struct {
	InnerNodes    int     `json:"innerNodes"`
	Leaves        int     `json:"leaves"`
	EmptySlots    int     `json:"emptySlots"`
	Blocks        int     `json:"blocks"`
	Triangles     int     `json:"triangles"`
	MaxLeafDepth  int     `json:"maxLeafDepth"`
	AvgLeafDepth  float64 `json:"avgLeafDepth"`
	NodeFill      float64 `json:"nodeFill"`  // Used child slots over N per inner node
	BlockFill     float64 `json:"blockFill"` // Triangles over lane capacity of all blocks
	Motion        bool    `json:"motion"`
	SceneSurfArea float32 `json:"sceneSurfArea"`
}

// Stats walks the tree and collects TreeStats
func Stats(t *Tree) TreeStats {
	s := TreeStats{Motion: t.Motion(), SceneSurfArea: t.Bounds.SurfaceArea()}
	if t.Empty() {
		return s
	}

	depthSum := 0
	var walk func(ref NodeRef, depth int)
	walk = func(ref NodeRef, depth int) {
		if ref.IsLeaf() {
			first, count := ref.Leaf()
			s.Leaves++
			s.Blocks += count
			for i := first; i < first+count; i++ {
				s.Triangles += t.blockSize(i)
			}
			depthSum += depth
			s.MaxLeafDepth = max(s.MaxLeafDepth, depth)
			return
		}

		s.InnerNodes++
		children := t.children(ref)
		for _, child := range children {
			if child.IsEmpty() {
				s.EmptySlots++
				continue
			}
			walk(child, depth+1)
		}
	}
	walk(t.Root, 0)

	if s.Leaves > 0 {
		s.AvgLeafDepth = float64(depthSum) / float64(s.Leaves)
	}
	if s.InnerNodes > 0 {
		s.NodeFill = float64(s.InnerNodes*N-s.EmptySlots) / float64(s.InnerNodes*N)
	}
	if s.Blocks > 0 {
		s.BlockFill = float64(s.Triangles) / float64(s.Blocks*N)
	}
	return s
}

func (t *Tree) children(ref NodeRef) [N]NodeRef {
	if t.Motion() {
		return t.MBNodes[ref.Index()].Children
	}
	return t.Nodes[ref.Index()].Children
}

func (t *Tree) blockSize(i int) int {
	if t.Motion() {
		return t.MBPrims[i].Size()
	}
	return t.Prims[i].Size()
}
