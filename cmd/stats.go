package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/df07/go-raycore/pkg/scene"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Stats builds a scene and prints its tree statistics.
func Stats(ctx *cli.Context) error {
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

	stats, err := sc.Stats()
	if err != nil {
		logger.Error(err)
		return err
	}
	writeStatsTable(ctx.App.Writer, stats)
	return nil
}

func writeStatsTable(w io.Writer, stats scene.Stats) {
	tree := stats.Tree

	table := tablewriter.NewWriter(w)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Scene", "Stat", "Value"})
	table.Append([]string{stats.Name, "Geometries", strconv.Itoa(stats.Geometries)})
	table.Append([]string{"", "Triangles", strconv.Itoa(stats.Triangles)})
	table.Append([]string{"", "Motion", strconv.FormatBool(tree.Motion)})
	table.Append([]string{"", "Build time", stats.BuildTime.String()})
	table.Append([]string{" ", " ", " "})
	table.Append([]string{"Tree", "Inner nodes", strconv.Itoa(tree.InnerNodes)})
	table.Append([]string{"", "Leaves", strconv.Itoa(tree.Leaves)})
	table.Append([]string{"", "Empty slots", strconv.Itoa(tree.EmptySlots)})
	table.Append([]string{"", "Blocks", strconv.Itoa(tree.Blocks)})
	table.Append([]string{"", "Max leaf depth", strconv.Itoa(tree.MaxLeafDepth)})
	table.Append([]string{"", "Avg leaf depth", fmt.Sprintf("%.2f", tree.AvgLeafDepth)})
	table.Append([]string{"", "Node fill", fmt.Sprintf("%.1f%%", 100*tree.NodeFill)})
	table.Append([]string{"", "Block fill", fmt.Sprintf("%.1f%%", 100*tree.BlockFill)})
	table.Append([]string{"", "Scene surface area", fmt.Sprintf("%.3f", tree.SceneSurfArea)})
	table.Render()
}
