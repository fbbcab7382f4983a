package cmd

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"strconv"

	"github.com/df07/go-raycore/pkg/core"
	"github.com/df07/go-raycore/pkg/geometry"
	"github.com/df07/go-raycore/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// VerifyFlags are the options of the verify command
var VerifyFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "rays, n",
		Value: 10000,
		Usage: "number of random rays",
	},
	cli.Int64Flag{
		Name:  "seed",
		Value: 1,
		Usage: "random seed",
	},
}

// ErrMismatch is returned when the tree and the brute force reference disagree
var ErrMismatch = errors.New("tree and brute force disagree")

// VerifyReport counts agreement between the tree and the brute force reference
type VerifyReport struct {
	Rays                int
	IntersectHits       int
	IntersectMismatches int
	OccludedHits        int
	OccludedMismatches  int
	MaxTError           float64 // Largest relative difference of nearest t
}

// Mismatches returns the total number of disagreeing rays
func (r VerifyReport) Mismatches() int {
	return r.IntersectMismatches + r.OccludedMismatches
}

// Verify traces seeded random rays through the tree and brute force.
func Verify(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	sc, err := cfg.LoadScene()
	if err != nil {
		logger.Error(err)
		return err
	}

	report, err := VerifyScene(sc, ctx.Int("rays"), ctx.Int64("seed"))
	if err != nil {
		logger.Error(err)
		return err
	}
	writeVerifyTable(ctx.App.Writer, report)

	if n := report.Mismatches(); n > 0 {
		err := fmt.Errorf("%w on %d of %d rays", ErrMismatch, n, 2*report.Rays)
		logger.Error(err)
		return err
	}
	logger.Noticef("%s: %d rays agree", sc.Name, report.Rays)
	return nil
}

// VerifyScene compares nearest hit and occlusion answers of the committed
// scene with the brute force reference over n rays. Even rays aim at a
// random triangle centroid so that hits are well represented.
func VerifyScene(s *scene.Scene, n int, seed int64) (VerifyReport, error) {
	report := VerifyReport{Rays: n}
	tree, err := s.Tree()
	if err != nil {
		return report, err
	}
	if tree.Empty() {
		return report, errors.New("scene has no triangles")
	}

	sources := s.Sources()
	pluecker := s.Pluecker()
	random := rand.New(rand.NewSource(seed))

	bounds := s.Bounds()
	extent := bounds.Max.Sub(bounds.Min)
	center := bounds.Min.Add(extent.Mul(0.5))
	radius := max(extent.Len(), 1)

	for i := 0; i < n; i++ {
		var time float32
		if tree.Motion() {
			time = random.Float32()
		}
		org := center.Add(core.SamplePointInUnitSphere(random.Float32(), random.Float32(), random.Float32()).Mul(1.5 * radius))

		dir := core.SampleOnUnitSphere(random.Float32(), random.Float32())
		if i%2 == 0 {
			src := sources[random.Intn(len(sources))]
			if count := src.NumTriangles(); count > 0 {
				tri := src.Triangle(random.Intn(count), time)
				centroid := tri.Centroid()
				if d := centroid.Sub(org); d.Len() > 0 {
					dir = d
				}
			}
		}
		ray := core.NewRaySegment(org, dir, 0, core.Inf, time)

		nearest, reference := ray, ray
		hit := s.Intersect(&nearest)
		refHit := geometry.BruteForce(&reference, sources, pluecker)
		if hit {
			report.IntersectHits++
		}
		if hit != refHit {
			report.IntersectMismatches++
		} else if hit {
			tErr := math.Abs(float64(nearest.Hit.T-reference.Hit.T)) / math.Max(1, math.Abs(float64(reference.Hit.T)))
			report.MaxTError = math.Max(report.MaxTError, tErr)
			if tErr > 1e-5 {
				report.IntersectMismatches++
			}
		}

		shadow, refShadow := ray, ray
		occluded := s.Occluded(&shadow)
		if occluded {
			report.OccludedHits++
		}
		if occluded != geometry.BruteForceOccluded(&refShadow, sources, pluecker) {
			report.OccludedMismatches++
		}
	}
	return report, nil
}

func writeVerifyTable(w io.Writer, report VerifyReport) {
	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Query", "Rays", "Hits", "Mismatches"})
	table.Append([]string{"intersect", strconv.Itoa(report.Rays), strconv.Itoa(report.IntersectHits), strconv.Itoa(report.IntersectMismatches)})
	table.Append([]string{"occluded", strconv.Itoa(report.Rays), strconv.Itoa(report.OccludedHits), strconv.Itoa(report.OccludedMismatches)})
	table.SetFooter([]string{"max t error", "", "", fmt.Sprintf("%.2e", report.MaxTError)})
	table.Render()
}
