package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/graph"
	"github.com/matzehuels/provgraph/pkg/lod"
	"github.com/matzehuels/provgraph/pkg/pipeline"
	"github.com/matzehuels/provgraph/pkg/scene"
	"github.com/matzehuels/provgraph/pkg/selection"
)

const (
	frameInterval = time.Second / 30
	zoomStep      = 1.25
	panFraction   = 0.1
	// chromeRows are the header and footer lines around the canvas.
	chromeRows = 3
)

// inspectCommand creates the interactive inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var noCache bool
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "inspect [manifest|layout.json]",
		Short: "Explore a bundle interactively in the terminal",
		Long: `Explore a bundle interactively in the terminal.

Keys:
  ←↑↓→      move the selection to the nearest node
  + / -     zoom (switches between session, overview and detail)
  h j k l   pan
  enter     expand the selected node, or open the workflow in view
  esc       collapse the expansion or clear the selection
  e         toggle all edges
  f         fit everything
  q         quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]
			return c.runInspect(cmd.Context(), opts, noCache)
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "ignore cached manifests and layouts")

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, opts pipeline.Options, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts.Config = cfg
	opts.Logger = c.Logger

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinner(ctx, "Loading, laying out and composing...")
	spinner.Start()
	var res *pipeline.Result
	if isLayoutFile(opts.Source) {
		res, err = c.composeLayoutFile(ctx, runner, opts)
	} else {
		res, err = runner.Prepare(ctx, opts)
	}
	if err != nil {
		spinner.StopWithError("Inspect failed")
		return err
	}
	spinner.Stop()

	var prog *tea.Program
	sc, err := scene.New(res.Composition, scene.Options{
		Config:   cfg,
		Logger:   log.New(io.Discard),
		Builder:  res.Builder,
		Width:    defaultFrameWidth,
		Height:   defaultFrameHeight,
		Dispatch: func(f func()) { prog.Send(dispatchMsg(f)) },
	})
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal until the program exits.
	c.SetLogLevel(log.WarnLevel)
	prog = tea.NewProgram(newInspectModel(sc, layoutTitle(res.Layout, opts.Source)), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !(errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil) {
		return err
	}
	return nil
}

func layoutTitle(l *graph.Layout, fallback string) string {
	for _, w := range l.Workflows {
		if w.Graph != nil && w.Graph.Title != "" {
			return w.Graph.Title
		}
	}
	return fallback
}

type (
	tickMsg     time.Time
	dispatchMsg func()
)

// inspectModel is the bubbletea model driving a scene.
type inspectModel struct {
	scene   *scene.Scene
	title   string
	cols    int
	rows    int
	sized   bool
	ticking bool
	last    time.Time
	status  string
}

func newInspectModel(sc *scene.Scene, title string) *inspectModel {
	return &inspectModel{scene: sc, title: title, cols: 80, rows: 24}
}

func (m *inspectModel) Init() tea.Cmd { return nil }

// screen returns the scene's screen size in pixels.
func (m *inspectModel) screen() (w, h float64) {
	return float64(m.cols * cellWidth), float64(max(m.rows-chromeRows, 1) * cellHeight)
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		m.scene.Resize(m.screen())
		return m, nil

	case dispatchMsg:
		msg()
		if !m.sized {
			m.sized = true
			if err := m.scene.Fit(); err != nil {
				m.sized = false
			}
		}
		return m, m.animate()

	case tickMsg:
		now := time.Time(msg)
		m.scene.Tick(now.Sub(m.last))
		m.last = now
		if m.scene.Animating() {
			return m, tick()
		}
		m.ticking = false
		return m, nil

	case tea.KeyMsg:
		if quit := m.handleKey(msg.String()); quit {
			return m, tea.Quit
		}
		return m, m.animate()
	}
	return m, nil
}

// handleKey applies one key press and reports whether to quit.
func (m *inspectModel) handleKey(key string) bool {
	m.status = ""
	w, h := m.screen()

	switch key {
	case "q", "ctrl+c":
		return true
	case "up":
		m.navigate(selection.Up)
	case "down":
		m.navigate(selection.Down)
	case "left":
		m.navigate(selection.Left)
	case "right":
		m.navigate(selection.Right)
	case "+", "=":
		m.scene.ZoomAt(zoomStep, w/2, h/2)
	case "-", "_":
		m.scene.ZoomAt(1/zoomStep, w/2, h/2)
	case "h":
		m.scene.Pan(w*panFraction, 0)
	case "l":
		m.scene.Pan(-w*panFraction, 0)
	case "k":
		m.scene.Pan(0, h*panFraction)
	case "j":
		m.scene.Pan(0, -h*panFraction)
	case "e":
		m.scene.SetShowAllEdges(!m.scene.ShowAllEdges())
	case "f":
		if err := m.scene.Fit(); err != nil {
			m.status = "busy: " + err.Error()
		}
	case "enter":
		m.enter()
	case "esc":
		if m.scene.Collapse() == selection.NothingToCollapse {
			m.status = "nothing selected"
		}
	}
	return false
}

func (m *inspectModel) navigate(d selection.Direction) {
	if m.scene.Level() != lod.WorkflowDetail {
		m.status = "zoom in to navigate nodes"
		return
	}
	if _, ok := m.scene.Navigate(d); !ok {
		m.status = "no node in that direction"
	}
}

// enter expands the selected node at detail level, and otherwise opens the
// workflow nearest the middle of the screen.
func (m *inspectModel) enter() {
	if m.scene.Level() == lod.WorkflowDetail {
		id := m.scene.Selection().Key
		if id == "" {
			m.status = "select a node first"
			return
		}
		m.scene.Expand(id)
		return
	}
	wf := m.workflowInView()
	if wf == "" {
		m.status = "no workflow in view"
		return
	}
	if err := m.scene.OpenWorkflow(wf); err != nil {
		m.status = err.Error()
	}
}

func (m *inspectModel) workflowInView() string {
	w, h := m.screen()
	mid := geom.Point{X: w / 2, Y: h / 2}
	best, bestDist := "", math.Inf(1)
	consider := func(wf string, r geom.Rect) {
		if d := math.Hypot(r.CenterX()-mid.X, r.CenterY()-mid.Y); d < bestDist {
			best, bestDist = wf, d
		}
	}
	f := m.scene.Frame()
	for _, c := range f.Cards {
		consider(c.Workflow, c.Screen)
	}
	for _, s := range f.Steps {
		consider(s.Workflow, s.Screen)
	}
	return best
}

// animate starts the frame ticker when an animation is running and the
// ticker is not.
func (m *inspectModel) animate() tea.Cmd {
	if m.ticking || !m.scene.Animating() {
		return nil
	}
	m.ticking = true
	m.last = time.Now()
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *inspectModel) View() string {
	f := m.scene.Frame()
	cv := newCanvas(m.cols, m.rows-chromeRows)
	drawFrame(cv, f)

	var b strings.Builder
	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %s  %.0f%%", f.LOD.Level, f.Viewport.Scale*100)))
	if f.LOD.TextMode {
		b.WriteString(StyleDim.Render("  text"))
	}
	if m.scene.ShowAllEdges() {
		b.WriteString(StyleDim.Render("  all edges"))
	}
	b.WriteString("\n")
	b.WriteString(cv.String())
	b.WriteString("\n")
	b.WriteString(selectionLine(f.Selection))
	if m.status != "" {
		b.WriteString("  " + StyleWarning.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("←↑↓→ select  +/- zoom  hjkl pan  ⏎ expand/open  esc collapse  e edges  f fit  q quit"))
	return b.String()
}

func selectionLine(r selection.Record) string {
	switch r.Mode {
	case selection.NodeSelected, selection.NodeExpanded:
		return StyleHighlight.Render(r.Node) + StyleDim.Render(fmt.Sprintf("  %s/%s  %s", r.Workflow, r.Step, r.Mode))
	case selection.StepSelected:
		return StyleHighlight.Render(r.Workflow + "/" + r.Step)
	}
	return StyleDim.Render("no selection")
}

// drawFrame plots the active level of f: connectors and edges first, then
// cards, step summaries or nodes on top.
func drawFrame(cv *canvas, f scene.Frame) {
	for _, c := range f.Connectors {
		cv.line(c.Points, inkAccent)
	}
	for _, e := range f.Edges {
		k := inkDim
		if e.Dashed {
			k = inkWarning
		}
		cv.line(e.Points, k)
	}
	for _, c := range f.Cards {
		label := c.Title
		if label == "" {
			label = c.Workflow
		}
		cv.box(c.Screen, fmt.Sprintf("%s (%s)", label, plural(c.Nodes, "node")), inkNormal)
	}
	for _, s := range f.Steps {
		cv.box(s.Screen, s.Label, inkNormal)
	}
	for _, n := range f.Nodes {
		col, row := cell(n.Screen.Center())
		k := inkNormal
		switch {
		case n.Flags.Selected:
			k = inkSelected
		case n.Flags.Highlighted, n.Hovered:
			k = inkAccent
		case n.Flags.Faded, n.Flags.Blurred:
			k = inkDim
		}
		cv.set(col, row, kindGlyph(n.Kind), k)
		if len(n.Text) > 0 {
			limit := int(n.Screen.Width()/cellWidth) - 2
			cv.text(col+2, row, n.Text[0], max(limit, 4), k)
		}
	}
}

func kindGlyph(k graph.Kind) rune {
	switch k {
	case graph.KindAction:
		return '◆'
	case graph.KindAttestation:
		return '✔'
	}
	return '■'
}
