package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/matzehuels/provgraph/pkg/geom"
	"github.com/matzehuels/provgraph/pkg/pipeline"
	"github.com/matzehuels/provgraph/pkg/scene"
)

// Default frame size when a request omits w or h.
const (
	defaultFrameWidth  = 1280
	defaultFrameHeight = 800
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr     string
		allowAll bool
		noCache  bool
	)
	opts := pipeline.Options{}

	cmd := &cobra.Command{
		Use:   "serve [manifest|layout.json]",
		Short: "Serve the composed layout, culled frames and SVG over HTTP",
		Long: `Serve the composed layout, culled frames and SVG over HTTP.

Endpoints:
  GET /api/layout                          composed layout (layout.json)
  GET /api/frame?x=&y=&scale=&w=&h=        visible items for a view centered
                                           on world point (x, y)
  GET /graph.svg                           static SVG of every workflow`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = args[0]
			return c.runServe(cmd.Context(), opts, addr, allowAll, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().BoolVar(&allowAll, "cors-any", false, "allow requests from any origin")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.ShowAllEdges, "edges", false, "show all edges in frames and SVG")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, opts pipeline.Options, addr string, allowAll, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	opts.Config = cfg
	opts.Logger = c.Logger
	opts.Formats = []string{pipeline.FormatSVG, pipeline.FormatJSON}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var res *pipeline.Result
	if isLayoutFile(opts.Source) {
		res, err = c.composeLayoutFile(ctx, runner, opts)
	} else {
		res, err = runner.Prepare(ctx, opts)
	}
	if err != nil {
		return err
	}
	artifacts, err := runner.Render(ctx, res.Composition, opts)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	sc, err := scene.New(res.Composition, scene.Options{
		Config:  cfg,
		Logger:  c.Logger,
		Builder: res.Builder,
		Width:   defaultFrameWidth,
		Height:  defaultFrameHeight,
	})
	if err != nil {
		return err
	}
	sc.SetShowAllEdges(opts.ShowAllEdges)

	srv := &http.Server{
		Addr:              addr,
		Handler:           newServeRouter(sc, artifacts, allowAll, c.Logger),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	printSuccess("Serving %s on %s", opts.Source, addr)
	printStats(len(res.Layout.Workflows), res.Layout.NodeCount(), res.CacheInfo.LayoutHit)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		printInfo("Shutting down")
		return srv.Shutdown(shutdown)
	}
}

// frameServer answers frame requests against one scene. Scenes are single
// threaded, so requests are serialized.
type frameServer struct {
	mu     sync.Mutex
	scene  *scene.Scene
	layout []byte
	svg    []byte
	logger *log.Logger
}

func newServeRouter(sc *scene.Scene, artifacts map[string][]byte, allowAll bool, logger *log.Logger) chi.Router {
	s := &frameServer{
		scene:  sc,
		layout: artifacts[pipeline.FormatJSON],
		svg:    artifacts[pipeline.FormatSVG],
		logger: logger.WithPrefix("serve"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	corsOpts := cors.Options{
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}
	if allowAll {
		corsOpts.AllowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(corsOpts))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/layout", s.handleLayout)
		r.Get("/frame", s.handleFrame)
	})
	r.Get("/graph.svg", s.handleSVG)

	return r
}

func (s *frameServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "bytes", ww.BytesWritten(), "duration", time.Since(start))
	})
}

func (s *frameServer) handleLayout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(s.layout)
}

func (s *frameServer) handleSVG(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/svg+xml")
	_, _ = w.Write(s.svg)
}

func (s *frameServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := parseFrameQuery(r, s.scene)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.scene.LookAt(q.center, q.scale, q.width, q.height)
	writeJSON(w, http.StatusOK, s.scene.Frame())
}

type frameQuery struct {
	center        geom.Point
	scale         float64
	width, height float64
}

// parseFrameQuery reads x, y, scale, w and h. Missing values default to the
// composition center, the current scale and the default frame size.
func parseFrameQuery(r *http.Request, sc *scene.Scene) (frameQuery, error) {
	q := frameQuery{
		scale:  sc.Viewport().Scale,
		width:  defaultFrameWidth,
		height: defaultFrameHeight,
	}
	if b, ok := sc.Composition().Bounds(); ok {
		q.center = b.Center()
	}

	params := []struct {
		name     string
		dst      *float64
		positive bool
	}{
		{"x", &q.center.X, false},
		{"y", &q.center.Y, false},
		{"scale", &q.scale, true},
		{"w", &q.width, true},
		{"h", &q.height, true},
	}
	values := r.URL.Query()
	for _, p := range params {
		v := values.Get(p.name)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return q, fmt.Errorf("invalid %s: %q", p.name, v)
		}
		if p.positive && f <= 0 {
			return q, fmt.Errorf("%s must be positive", p.name)
		}
		*p.dst = f
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
