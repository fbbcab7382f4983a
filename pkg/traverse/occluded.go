package traverse

import (
	"github.com/df07/go-raycore/pkg/bvh"
	"github.com/df07/go-raycore/pkg/core"
)

// Occluded reports whether any primitive hits ray within [TNear, TFar]. The
// ray is never modified.
func (it *Intersector) Occluded(tree *bvh.Tree, ray *core.Ray) bool {
	if tree == nil || tree.Empty() || !ray.Active() {
		return false
	}

	ctx := bvh.NewRayContext(ray, it.Robust)
	motion := tree.Motion()

	var st stack
	st.push(tree.Root, ray.TNear)

pop:
	for !st.empty() {
		ref := st.pop().ref
		for !ref.IsLeaf() {
			mask, dist, children := boxTest(tree, &ctx, ref, ray.TFar)
			if it.Observer != nil {
				it.Observer.VisitNode(ref, mask, dist)
			}
			if mask.None() {
				continue pop
			}

			// descend into the first hit child, the order does not matter
			next := mask.First()
			for m := mask.Clear(next); m.Any(); {
				i := m.First()
				m = m.Clear(i)
				st.push(children[i], 0)
			}
			ref = children[next]
		}

		if ref.IsEmpty() {
			continue
		}
		if it.Observer != nil {
			it.Observer.VisitLeaf(ref, ray.TFar)
		}

		first, count := ref.Leaf()
		for i := first; i < first+count; i++ {
			if motion {
				block := tree.MBPrims[i].At(ray.Time)
				if it.Pluecker.Occluded1(ray, &block) {
					return true
				}
				continue
			}
			if it.Pluecker.Occluded1(ray, &tree.Prims[i]) {
				return true
			}
		}
	}
	return false
}
