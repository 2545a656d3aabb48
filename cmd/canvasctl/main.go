// canvasctl is a command-line client for the canvas backend: inspect a
// document's exploration canvas, branch assistant questions, attach
// notes, and trigger server-side layout, templating, and population.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"papertree/application/assist"
	"papertree/application/store"
	canvassync "papertree/application/sync"
	"papertree/infrastructure/api"
	"papertree/infrastructure/config"
)

var (
	flagDocument string
	flagTitle    string
	flagJSON     bool
)

func main() {
	root := &cobra.Command{
		Use:           "canvasctl",
		Short:         "Work with a document's exploration canvas",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&flagDocument, "document", "d", "", "document ID")
	root.PersistentFlags().StringVar(&flagTitle, "title", "Document", "document title, used when the canvas does not exist yet")
	root.PersistentFlags().BoolVar(&flagJSON, "json", false, "emit JSON instead of text")

	root.AddCommand(
		newShowCommand(),
		newAskCommand(),
		newNoteCommand(),
		newLayoutCommand(),
		newTemplateCommand(),
		newPopulateCommand(),
		newDeleteCommand(),
		newDemoCommand(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session bundles everything a one-shot command needs.
type session struct {
	cfg    *config.Config
	logger *zap.Logger
	client *api.Client
	store  *store.Store
	asker  *assist.Asker
}

// newSession loads config, builds the client, and loads the canvas.
func newSession(cmd *cobra.Command) (*session, error) {
	if flagDocument == "" {
		return nil, fmt.Errorf("--document is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return nil, err
	}

	opts := []api.Option{}
	if cfg.CanvasAPIToken != "" {
		opts = append(opts, api.WithToken(cfg.CanvasAPIToken))
	}
	client := api.NewClient(cfg.CanvasAPIURL, cfg.RequestTimeout, logger, opts...)

	st := canvassync.Load(cmd.Context(), client, flagDocument, flagTitle, logger)
	return &session{
		cfg:    cfg,
		logger: logger,
		client: client,
		store:  st,
		asker:  assist.New(st, client, logger, assist.WithLimiter(cfg.AskLimiter())),
	}, nil
}

func (s *session) close() {
	_ = s.logger.Sync()
}

// flush pushes local-only mutations to the backend immediately. The
// one-shot commands have no long-lived engine, so they save inline.
func (s *session) flush(cmd *cobra.Command) error {
	if !s.store.Dirty() {
		return nil
	}
	snap := s.store.Snapshot()
	if err := s.client.SaveCanvas(cmd.Context(), s.store.DocumentID(), snap.Nodes, snap.Edges); err != nil {
		return err
	}
	s.store.MarkSaved(snap.Revision)
	return nil
}
