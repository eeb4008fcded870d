// Command arkctl is the offline toolbox for Ark Shepherds levels. It
// validates and analyzes level files, renders boards, plays a level with
// given paths, and records or replays compressed traces of those runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/mcp-training/arkshepherds/game/config"
	"github.com/wricardo/mcp-training/arkshepherds/game/engine"
	"github.com/wricardo/mcp-training/arkshepherds/game/trace"
)

var errLevelLost = errors.New("level lost")

var (
	blockStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("180"))
	drawnStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	entranceStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("34"))
	closedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("160"))
	shepherdStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("62"))
	animalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	barrelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("136"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "arkctl: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	pathFlag := &cli.StringSliceFlag{
		Name:    "path",
		Aliases: []string{"p"},
		Usage:   "shepherd path as `AGENT=x,y;x,y;...` (AGENT is an id or a name), repeatable",
	}

	return &cli.Command{
		Name:                      "arkctl",
		Usage:                     "validate, render, simulate and replay Ark Shepherds levels",
		DisableSliceFlagSeparator: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "levels-dir",
				Value:   "levels",
				Usage:   "directory holding level files",
				Sources: cli.EnvVars("LEVELS_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "log engine activity to stderr",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			} else {
				log.SetLevel(log.WarnLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "check every level file in a directory",
				ArgsUsage: "[dir]",
				Action:    validateAction,
			},
			{
				Name:      "analyze",
				Usage:     "print counts and obvious blockers for every level",
				ArgsUsage: "[dir]",
				Action:    analyzeAction,
			},
			{
				Name:      "render",
				Usage:     "draw a level board, optionally with paths",
				ArgsUsage: "<level>",
				Flags: []cli.Flag{
					pathFlag,
					&cli.BoolFlag{Name: "plain", Usage: "disable colors"},
				},
				Action: renderAction,

				// path cells are comma separated, so --path values are never split
				DisableSliceFlagSeparator: true,
			},
			{
				Name:      "simulate",
				Usage:     "draw paths, play the level to the end and report the outcome",
				ArgsUsage: "<level>",
				Flags: []cli.Flag{
					pathFlag,
					&cli.StringFlag{Name: "trace", Aliases: []string{"o"}, Usage: "write a zstd JSONL trace to `FILE`"},
					&cli.BoolFlag{Name: "board", Usage: "print the final board"},
				},
				Action: simulateAction,

				DisableSliceFlagSeparator: true,
			},
			{
				Name:      "replay",
				Usage:     "re-run a recorded trace and check it still matches",
				ArgsUsage: "<trace>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "turns", Usage: "print every recorded turn"},
				},
				Action: replayAction,
			},
		},
	}
}

func output(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func logger() *log.Entry {
	return log.WithField("component", "arkctl")
}

// dirArg returns the first argument or the --levels-dir value
func dirArg(cmd *cli.Command) string {
	if dir := cmd.Args().First(); dir != "" {
		return dir
	}
	return cmd.String("levels-dir")
}

func validateAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	files, err := config.LevelFiles(dirArg(cmd))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no level files in %s", dirArg(cmd))
	}

	invalid := 0
	for _, file := range files {
		fmt.Fprintf(out, "\n%s %s\n", strings.Repeat("=", 20), filepath.Base(file))

		problems := validateFile(file)
		if len(problems) == 0 {
			fmt.Fprintln(out, "✅ VALID")
			continue
		}
		invalid++
		fmt.Fprintln(out, "❌ INVALID")
		for _, p := range problems {
			fmt.Fprintln(out, "  ❌ "+p)
		}
	}

	fmt.Fprintf(out, "\n%s\n", strings.Repeat("=", 40))
	if invalid > 0 {
		fmt.Fprintln(out, "❌ Some levels have errors")
		return fmt.Errorf("%d of %d levels invalid", invalid, len(files))
	}
	fmt.Fprintln(out, "✅ All levels are valid!")
	return nil
}

// validateFile returns every problem found in a level file: schema or
// structural errors first, then the analyzer's blockers
func validateFile(path string) []string {
	cfg, err := config.LoadFile(path)
	if err != nil {
		return []string{err.Error()}
	}
	level, err := engine.BuildLevel(cfg)
	if err != nil {
		return []string{err.Error()}
	}
	return engine.AnalyzeLevel(level).Issues
}

func analyzeAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	files, err := config.LevelFiles(dirArg(cmd))
	if err != nil {
		return err
	}

	for _, file := range files {
		fmt.Fprintf(out, "\n=== Analyzing %s ===\n", filepath.Base(file))
		cfg, err := config.LoadFile(file)
		if err != nil {
			fmt.Fprintf(out, "Error loading level: %v\n", err)
			continue
		}
		level, err := engine.BuildLevel(cfg)
		if err != nil {
			fmt.Fprintf(out, "Error building level: %v\n", err)
			continue
		}
		printAnalysis(out, engine.AnalyzeLevel(level))
	}
	return nil
}

func printAnalysis(out io.Writer, a engine.LevelAnalysis) {
	fmt.Fprintf(out, "Name: %s\n", a.Name)
	fmt.Fprintf(out, "Grid: %d x %d, %d path cells\n", a.Width, a.Height, a.PathCells)
	fmt.Fprintf(out, "Shepherds: %d\n", a.Agents)
	fmt.Fprintf(out, "Entrances: %d (%d open)\n", a.Entrances, a.OpenEntrances)
	fmt.Fprintf(out, "Barrels: %d\n", a.Barrels)

	kinds := make([]string, 0, len(a.Animals))
	for k := range a.Animals {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s x%d", k, a.Animals[k]))
	}
	fmt.Fprintf(out, "Animals: %s (%d pairs)\n", strings.Join(parts, ", "), a.Pairs)

	if len(a.Issues) == 0 {
		fmt.Fprintln(out, "✅ No obvious blockers")
		return
	}
	for _, issue := range a.Issues {
		fmt.Fprintf(out, "⚠️  %s\n", issue)
	}
}

// loadLevel resolves a level argument. An existing file path is loaded
// directly, anything else is looked up by ID in the levels directory.
func loadLevel(cmd *cli.Command) (string, *engine.LevelConfig, error) {
	arg := cmd.Args().First()
	if arg == "" {
		return "", nil, fmt.Errorf("a level is required")
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		cfg, err := config.LoadFile(arg)
		if err != nil {
			return "", nil, err
		}
		base := filepath.Base(arg)
		return strings.TrimSuffix(base, filepath.Ext(base)), cfg, nil
	}

	manager, err := config.NewManager(cmd.String("levels-dir"))
	if err != nil {
		return "", nil, err
	}
	cfg, err := manager.LoadConfig(arg)
	if err != nil {
		return "", nil, err
	}
	return arg, cfg, nil
}

// parsePaths turns --path values into a path per shepherd
func parsePaths(level *engine.Level, values []string) (map[engine.AgentID][]engine.Position, error) {
	paths := make(map[engine.AgentID][]engine.Position)
	for _, value := range values {
		agentPart, cellsPart, ok := strings.Cut(value, "=")
		if !ok {
			return nil, fmt.Errorf("path %q: expected AGENT=x,y;x,y", value)
		}

		agentPart = strings.TrimSpace(agentPart)
		var id engine.AgentID
		if n, err := strconv.Atoi(agentPart); err == nil {
			if level.Agent(engine.AgentID(n)) == nil {
				return nil, fmt.Errorf("path %q: no shepherd %d", value, n)
			}
			id = engine.AgentID(n)
		} else {
			a := level.AgentByName(agentPart)
			if a == nil {
				return nil, fmt.Errorf("path %q: no shepherd named %q", value, agentPart)
			}
			id = a.ID
		}

		cells, err := parseCells(cellsPart)
		if err != nil {
			return nil, fmt.Errorf("path %q: %w", value, err)
		}
		paths[id] = append(paths[id], cells...)
	}
	return paths, nil
}

func parseCells(s string) ([]engine.Position, error) {
	var cells []engine.Position
	for _, field := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ' ' }) {
		xs, ys, ok := strings.Cut(field, ",")
		if !ok {
			return nil, fmt.Errorf("cell %q is not x,y", field)
		}
		x, err := strconv.Atoi(strings.TrimSpace(xs))
		if err != nil {
			return nil, fmt.Errorf("cell %q: %w", field, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(ys))
		if err != nil {
			return nil, fmt.Errorf("cell %q: %w", field, err)
		}
		cells = append(cells, engine.Position{X: x, Y: y})
	}
	if len(cells) == 0 {
		return nil, fmt.Errorf("no cells")
	}
	return cells, nil
}

// engineWithPaths builds an engine and draws paths on it
func engineWithPaths(cfg *engine.LevelConfig, values []string) (*engine.GameEngine, map[engine.AgentID][]engine.Position, error) {
	e, err := engine.NewEngine(cfg, engine.Services{Logger: logger()})
	if err != nil {
		return nil, nil, err
	}
	paths, err := parsePaths(e.GetLevel(), values)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]engine.AgentID, 0, len(paths))
	for id := range paths {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		cells := paths[id]
		placed, ok := e.ApplyPath(id, cells)
		if !ok {
			return nil, nil, fmt.Errorf("shepherd %d cannot be edited", id)
		}
		if placed < len(cells) {
			c := cells[placed]
			return nil, nil, fmt.Errorf("shepherd %d: cell %d (%d,%d) rejected", id, placed, c.X, c.Y)
		}
	}
	return e, paths, nil
}

func renderAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	_, cfg, err := loadLevel(cmd)
	if err != nil {
		return err
	}
	e, _, err := engineWithPaths(cfg, cmd.StringSlice("path"))
	if err != nil {
		return err
	}

	state := e.GetState()
	fmt.Fprintln(out, styled(headerStyle, cfg.Name, cmd.Bool("plain")))
	if cfg.Description != "" {
		fmt.Fprintln(out, styled(mutedStyle, cfg.Description, cmd.Bool("plain")))
	}
	fmt.Fprintln(out)
	for _, row := range engine.RenderBoard(state) {
		fmt.Fprintln(out, styleRow(row, cmd.Bool("plain")))
	}
	fmt.Fprintln(out)
	for _, a := range state.Agents {
		fmt.Fprintf(out, "#%d %s (priority %d) home (%d,%d), %d path cells\n",
			a.ID, a.Name, a.Priority, a.Home.X, a.Home.Y, len(a.Path))
	}
	return nil
}

func styled(style lipgloss.Style, s string, plain bool) string {
	if plain {
		return s
	}
	return style.Render(s)
}

// styleRow colors a rendered board row glyph by glyph
func styleRow(row string, plain bool) string {
	if plain {
		return row
	}
	var b strings.Builder
	for _, r := range row {
		g := string(r)
		switch {
		case r == '#':
			b.WriteString(blockStyle.Render(g))
		case r == '.':
			b.WriteString(pathStyle.Render(g))
		case r == 'E':
			b.WriteString(entranceStyle.Render(g))
		case r == 'X':
			b.WriteString(closedStyle.Render(g))
		case r == 'B' || r == 'b':
			b.WriteString(barrelStyle.Render(g))
		case r == '@' || (r >= '0' && r <= '9') || r == 'S':
			b.WriteString(shepherdStyle.Render(g))
		case r >= 'a' && r <= 'z' || r == '_':
			b.WriteString(animalStyle.Render(g))
		default:
			b.WriteString(drawnStyle.Render(g))
		}
	}
	return b.String()
}

func simulateAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	levelID, cfg, err := loadLevel(cmd)
	if err != nil {
		return err
	}
	// draw once up front so bad paths fail before a trace file is created
	_, paths, err := engineWithPaths(cfg, cmd.StringSlice("path"))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("at least one --path is required")
	}

	h := trace.NewHeader(levelID, cfg, paths)

	var result *trace.Result
	var final *engine.GameEngine
	if file := cmd.String("trace"); file != "" {
		w, err := trace.Create(file)
		if err != nil {
			return err
		}
		result, err = trace.Record(w, h, logger())
		closeErr := w.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
		fmt.Fprintf(out, "Trace %s written to %s\n", h.RunID, file)
	}

	// Record does not hand back the engine, so the board needs its own run
	if result == nil || cmd.Bool("board") {
		e, events, err := trace.Run(h, logger())
		if err != nil {
			return err
		}
		final = e
		if result == nil {
			state := e.GetState()
			result = &trace.Result{Outcome: e.Outcome(), Turns: state.Turn, Ticks: state.Tick, Events: events.Len()}
		}
	}

	fmt.Fprintf(out, "Level %s: %s after %d turns (%d ticks, %d events)\n",
		levelID, result.Outcome, result.Turns, result.Ticks, result.Events)

	if final != nil && cmd.Bool("board") {
		for _, row := range engine.RenderBoard(final.GetState()) {
			fmt.Fprintln(out, row)
		}
	}

	if result.Outcome != engine.OutcomeWon {
		return errLevelLost
	}
	return nil
}

func replayAction(ctx context.Context, cmd *cli.Command) error {
	out := output(cmd)
	file := cmd.Args().First()
	if file == "" {
		return fmt.Errorf("a trace file is required")
	}
	t, err := trace.Open(file)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run %s of %s, recorded %s\n", t.Header.RunID, t.Header.LevelID, t.Header.CreatedAt.Format("2006-01-02 15:04:05"))
	if t.Result != nil {
		fmt.Fprintf(out, "Recorded: %s after %d turns (%d ticks)\n", t.Result.Outcome, t.Result.Turns, t.Result.Ticks)
	}

	if cmd.Bool("turns") {
		for _, turn := range t.Turns {
			var agents []string
			for _, a := range turn.Agents {
				agents = append(agents, fmt.Sprintf("#%d@(%d,%d) carrying %d", a.Agent, a.Cell.X, a.Cell.Y, len(a.Carried)))
			}
			fmt.Fprintf(out, "  Turn %d (tick %d): %s\n", turn.Turn, turn.Tick, strings.Join(agents, ", "))
		}
	}

	if err := trace.Verify(t, logger()); err != nil {
		fmt.Fprintf(out, "❌ %v\n", err)
		return err
	}
	fmt.Fprintf(out, "✅ Replay matches %d recorded turns\n", len(t.Turns))
	return nil
}
