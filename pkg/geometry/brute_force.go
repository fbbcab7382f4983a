package geometry

import "github.com/df07/go-raycore/pkg/core"

// BruteForce intersects ray with every triangle of every source, evaluated
// at ray.Time, and commits the nearest hit. A nil predicate uses the zero
// Pluecker. It reports whether the ray was updated.
func BruteForce(ray *core.Ray, sources []Source, p *Pluecker) bool {
	if p == nil {
		p = &Pluecker{}
	}
	hit := false
	forEachBlock(sources, ray.Time, func(block *Triangle4) bool {
		if p.Intersect1(ray, block) {
			hit = true
		}
		return true
	})
	return hit
}

// BruteForceOccluded reports whether any triangle blocks ray
func BruteForceOccluded(ray *core.Ray, sources []Source, p *Pluecker) bool {
	if p == nil {
		p = &Pluecker{}
	}
	occluded := false
	forEachBlock(sources, ray.Time, func(block *Triangle4) bool {
		occluded = p.Occluded1(ray, block)
		return !occluded
	})
	return occluded
}

// forEachBlock packs triangles one per block and stops when fn returns false
func forEachBlock(sources []Source, time float32, fn func(*Triangle4) bool) {
	var tris [1]Triangle
	for _, src := range sources {
		for i := 0; i < src.NumTriangles(); i++ {
			tris[0] = src.Triangle(i, time)
			block := NewTriangle4(tris[:])
			if !fn(&block) {
				return
			}
		}
	}
}
