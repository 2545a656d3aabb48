package main

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/spf13/cobra"

	"papertree/application/assist"
	"papertree/application/ports"
	canvassync "papertree/application/sync"
	"papertree/domain/core/entities"
	"papertree/infrastructure/api"
	"papertree/infrastructure/api/apitest"
	"papertree/infrastructure/config"
)

// newDemoCommand runs the whole stack against an in-process backend:
// populate, explore a highlight, branch a question, attach a note, let
// the autosave fire, then lay the tree out and print it.
func newDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run an end-to-end session against an in-memory backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDemo(cmd.Context())
		},
	}
}

func runDemo(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	backend := apitest.New()
	backend.SeedDocument("demo-doc", "Attention Is All You Need",
		apitest.PageSummary{Page: 0, Title: "Introduction", Summary: "Sequence transduction without recurrence."},
		apitest.PageSummary{Page: 1, Title: "Model Architecture", Summary: "Encoder-decoder built from attention blocks."},
	)
	backend.SeedHighlight("demo-doc", apitest.Highlight{
		ID:   "hl-1",
		Page: 1,
		Text: "Scaled dot-product attention divides by the square root of the key dimension.",
	})

	server := httptest.NewServer(backend.Handler())
	defer server.Close()

	client := api.NewClient(server.URL, 10*time.Second, logger)
	st := canvassync.Load(ctx, client, "demo-doc", "Attention Is All You Need", logger)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	engine := canvassync.NewEngine(st, client, logger,
		canvassync.WithDebounce(300*time.Millisecond))
	engineDone := make(chan struct{})
	go func() {
		engine.Run(runCtx)
		close(engineDone)
	}()

	asker := assist.New(st, client, logger, assist.WithLimiter(cfg.AskLimiter()))

	populated, err := engine.Populate(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("populate: %d pages, %d explorations\n",
		populated.PagesCreated, populated.ExplorationsCreated)

	explored, err := asker.Explore(ctx, ports.ExploreRequest{
		HighlightID: "hl-1",
		Question:    "Why divide by the square root of the key dimension?",
		Mode:        entities.AskExplainMath,
		Page:        1,
	})
	if err != nil {
		return err
	}

	if _, err := asker.Ask(ctx, explored.AnswerNode.ID(),
		"What happens without the scaling term?", entities.AskIntuition); err != nil {
		return err
	}

	if _, err := asker.AddNote(ctx, ports.NoteRequest{
		Content:      "Compare with additive attention benchmarks.",
		ParentNodeID: explored.ExplorationNode.ID(),
	}); err != nil {
		return err
	}

	// A local-only mutation, persisted by the debounced autosave.
	st.ToggleCollapse(explored.ExplorationNode.ID())
	deadline := time.Now().Add(3 * time.Second)
	for backend.SaveCount("demo-doc") == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	fmt.Printf("autosaves so far: %d\n", backend.SaveCount("demo-doc"))

	if err := engine.Layout(ctx, ports.LayoutTree); err != nil {
		return err
	}

	stop()
	<-engineDone

	return printCanvas(&session{
		cfg:    cfg,
		logger: logger,
		client: client,
		store:  st,
		asker:  asker,
	})
}
