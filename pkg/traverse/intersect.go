package traverse

import (
	"github.com/df07/go-raycore/pkg/bvh"
	"github.com/df07/go-raycore/pkg/core"
)

// Intersect finds the nearest hit of ray within [TNear, TFar]. On success
// the ray's hit record is overwritten and TFar is set to the hit distance;
// otherwise the ray is left unchanged. It reports whether a hit was found.
func (it *Intersector) Intersect(tree *bvh.Tree, ray *core.Ray) bool {
	if tree == nil || tree.Empty() || !ray.Active() {
		return false
	}

	ctx := bvh.NewRayContext(ray, it.Robust)
	motion := tree.Motion()
	hit := false

	var st stack
	st.push(tree.Root, ray.TNear)

pop:
	for !st.empty() {
		item := st.pop()
		// a closer hit was found after this subtree was pushed
		if item.dist > ray.TFar {
			continue
		}

		ref := item.ref
		for !ref.IsLeaf() {
			mask, dist, children := boxTest(tree, &ctx, ref, ray.TFar)
			if it.Observer != nil {
				it.Observer.VisitNode(ref, mask, dist)
			}

			switch mask.Count() {
			case 0:
				continue pop

			case 1:
				ref = children[mask.First()]

			case 2:
				a := mask.First()
				b := mask.Clear(a).First()
				if dist[b] < dist[a] {
					a, b = b, a
				}
				st.push(children[b], dist[b])
				ref = children[a]

			default:
				for m := mask; m.Any(); {
					i := m.First()
					m = m.Clear(i)
					st.push(children[i], dist[i])
				}
				st.sortTop(mask.Count())
				ref = st.pop().ref
			}
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
				if it.Pluecker.Intersect1(ray, &block) {
					hit = true
				}
				continue
			}
			if it.Pluecker.Intersect1(ray, &tree.Prims[i]) {
				hit = true
			}
		}
	}
	return hit
}
