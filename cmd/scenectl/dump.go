package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/aframevr/aframe-sub002/internal/config"
	"github.com/aframevr/aframe-sub002/internal/core/scene"
)

const maxValueWidth = 60

func dumpCommand(args []string, stdout, stderr io.Writer) error {
	var common commonFlags
	fs := newFlagSet("dump", stderr, &common)
	frames := fs.Int("frames", 0, "frames to step before dumping")
	asYAML := fs.Bool("yaml", false, "print the scene snapshot as YAML instead of a table")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: dump takes exactly one scene file", errUsage)
	}

	cfg, err := config.Load(common.config)
	if err != nil {
		return err
	}
	// Keep stdout clean for the table.
	cfg.LogLevel = "silent"
	rt, cleanup, err := loadRuntime(cfg, fs.Arg(0))
	if err != nil {
		return err
	}
	defer cleanup()

	if *frames > 0 {
		rt.Runner.Step(*frames)
	}
	if *asYAML {
		out, err := scene.Snapshot(rt.Scene).YAML()
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err
	}
	return writeTable(stdout, componentRows(rt.Scene))
}

// componentRows lists every instance of every non-root entity; nested
// entities are indented under their parent.
func componentRows(s *scene.Scene) [][]string {
	var rows [][]string
	var walk func(e *scene.Entity, depth int)
	walk = func(e *scene.Entity, depth int) {
		label := strings.Repeat("  ", depth) + e.ID()
		comps := e.Components()
		if len(comps) == 0 {
			rows = append(rows, []string{label, "", ""})
		}
		for i, c := range comps {
			name := label
			if i > 0 {
				name = ""
			}
			rows = append(rows, []string{name, c.Attr(), c.Stringify()})
		}
		for _, child := range e.Children() {
			walk(child, depth+1)
		}
	}
	for _, e := range s.Root().Children() {
		walk(e, 0)
	}
	return rows
}

// writeTable prints rows under an ENTITY/COMPONENT/VALUE header with columns
// aligned by display width, so wide runes in ids or values keep the grid.
func writeTable(w io.Writer, rows [][]string) error {
	header := []string{"ENTITY", "COMPONENT", "VALUE"}
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		row[2] = runewidth.Truncate(row[2], maxValueWidth, "…")
		for i, cell := range row {
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	var b strings.Builder
	line := func(cells []string) {
		for i, cell := range cells {
			if i == len(cells)-1 {
				b.WriteString(cell)
				break
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
			b.WriteString("  ")
		}
		b.WriteString("\n")
	}
	line(header)
	for _, row := range rows {
		line(row)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
