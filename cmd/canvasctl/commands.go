package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"papertree/application/ports"
	"papertree/domain/core/aggregates"
	"papertree/domain/core/entities"
	"papertree/domain/core/valueobjects"
)

func newShowCommand() *cobra.Command {
	var thread string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the document's canvas as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if thread != "" {
				id, err := valueobjects.NewNodeIDFromString(thread)
				if err != nil {
					return err
				}
				return printThread(s, id)
			}
			return printCanvas(s)
		},
	}
	cmd.Flags().StringVar(&thread, "thread", "", "print the question/answer chain leading to a node")
	return cmd
}

func newAskCommand() *cobra.Command {
	var parent, mode string
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Branch an assistant question from a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			parentID, err := resolveParent(s, parent)
			if err != nil {
				return err
			}
			result, err := s.asker.Ask(cmd.Context(), parentID, args[0], entities.AskMode(mode))
			if err != nil {
				return err
			}
			for _, n := range result.Nodes {
				printNodeLine(n, 0)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent node ID (default: document root)")
	cmd.Flags().StringVarP(&mode, "mode", "m", string(entities.AskCustom), "ask mode")
	return cmd
}

func newNoteCommand() *cobra.Command {
	var parent string
	cmd := &cobra.Command{
		Use:   "note <content>",
		Short: "Attach a note, free-floating or under a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			req := ports.NoteRequest{Content: args[0]}
			if parent != "" {
				id, err := valueobjects.NewNodeIDFromString(parent)
				if err != nil {
					return err
				}
				req.ParentNodeID = id
			}
			result, err := s.asker.AddNote(cmd.Context(), req)
			if err != nil {
				return err
			}
			printNodeLine(result.Node, 0)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent node ID")
	return cmd
}

func newLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:       "layout [tree|grid]",
		Short:     "Reposition every node server side",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{ports.LayoutTree, ports.LayoutGrid},
		RunE: func(cmd *cobra.Command, args []string) error {
			algorithm := ports.LayoutTree
			if len(args) == 1 {
				algorithm = args[0]
			}
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.flush(cmd); err != nil {
				return err
			}
			if err := s.client.AutoLayout(cmd.Context(), s.store.DocumentID(), algorithm); err != nil {
				return err
			}
			if err := refetch(s, cmd); err != nil {
				return err
			}
			return printCanvas(s)
		},
	}
}

func newTemplateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "template <name>",
		Short: "Replace the canvas with a named skeleton",
		Args:  cobra.ExactArgs(1),
		ValidArgs: []string{
			ports.TemplateSummaryTree,
			ports.TemplateQuestionBranch,
			ports.TemplateCritiqueMap,
			ports.TemplateConceptMap,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.client.GenerateTemplate(cmd.Context(), s.store.DocumentID(), args[0]); err != nil {
				return err
			}
			if err := refetch(s, cmd); err != nil {
				return err
			}
			return printCanvas(s)
		},
	}
}

func newPopulateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "populate",
		Short: "Create page and exploration nodes from document structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			result, err := s.client.AutoPopulate(cmd.Context(), s.store.DocumentID())
			if err != nil {
				return err
			}
			fmt.Printf("created %d pages, %d explorations\n",
				result.PagesCreated, result.ExplorationsCreated)
			if !result.Created() {
				return nil
			}
			if err := refetch(s, cmd); err != nil {
				return err
			}
			return printCanvas(s)
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <node-id>",
		Short: "Remove a node and its descendants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()

			id, err := valueobjects.NewNodeIDFromString(args[0])
			if err != nil {
				return err
			}
			removed, err := s.asker.DeleteNode(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d nodes\n", len(removed))
			return nil
		},
	}
}

// resolveParent maps an optional flag value to a node ID, defaulting
// to the document root.
func resolveParent(s *session, raw string) (valueobjects.NodeID, error) {
	if raw == "" {
		return valueobjects.DocumentRootID(s.store.DocumentID()), nil
	}
	return valueobjects.NewNodeIDFromString(raw)
}

func refetch(s *session, cmd *cobra.Command) error {
	snap, err := s.client.GetCanvas(cmd.Context(), s.store.DocumentID())
	if err != nil {
		return err
	}
	rev := s.store.Replace(snap.Nodes, snap.Edges, snap.UpdatedAt)
	s.store.MarkSaved(rev)
	return nil
}

// printCanvas renders the canvas, either as an indented tree or JSON.
func printCanvas(s *session) error {
	if flagJSON {
		return printCanvasJSON(s)
	}
	s.store.View(func(c *aggregates.Canvas) {
		fmt.Printf("document %s  (%d nodes, %d edges, updated %s)\n",
			c.DocumentID(), c.NodeCount(), c.EdgeCount(),
			c.UpdatedAt().Format("2006-01-02 15:04:05"))
		roots := c.Roots()
		sortNodes(roots)
		for _, root := range roots {
			printSubtree(c, root, 0)
		}
	})
	return nil
}

// printThread renders the conversation leading to a node, root first.
func printThread(s *session, id valueobjects.NodeID) error {
	var chain []*entities.Node
	s.store.View(func(c *aggregates.Canvas) {
		chain = c.AncestorChain(id)
	})
	if len(chain) == 0 {
		return fmt.Errorf("node %s not found", id)
	}
	for _, node := range chain {
		if q := node.Question(); q != "" {
			fmt.Printf("Q: %s\n", q)
		}
		body := node.Content().Body()
		if body == "" {
			body = node.Label()
		}
		fmt.Printf("%-20s %s\n\n", node.Variant(), body)
	}
	return nil
}

func printSubtree(c *aggregates.Canvas, node *entities.Node, depth int) {
	printNodeLine(node, depth)
	children := c.ChildrenOf(node.ID())
	sortNodes(children)
	for _, child := range children {
		printSubtree(c, child, depth+1)
	}
}

func printNodeLine(node *entities.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	label := node.Label()
	if label == "" {
		label = node.Content().Summary(60)
	}
	suffix := ""
	if node.Status() != entities.StatusComplete && node.Status() != entities.StatusIdle {
		suffix = "  [" + string(node.Status()) + "]"
	}
	fmt.Printf("%s%-20s %s  (%s)%s\n", indent, node.Variant(), label, node.ID(), suffix)
}

func sortNodes(nodes []*entities.Node) {
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt().Equal(nodes[j].CreatedAt()) {
			return nodes[i].CreatedAt().Before(nodes[j].CreatedAt())
		}
		return nodes[i].ID().String() < nodes[j].ID().String()
	})
}

type nodeJSON struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Label     string  `json:"label"`
	Content   string  `json:"content,omitempty"`
	ParentID  string  `json:"parent_id,omitempty"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Status    string  `json:"status"`
	Collapsed bool    `json:"collapsed"`
}

type edgeJSON struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
	Label  string `json:"label,omitempty"`
}

func printCanvasJSON(s *session) error {
	var out struct {
		DocumentID string     `json:"document_id"`
		Nodes      []nodeJSON `json:"nodes"`
		Edges      []edgeJSON `json:"edges"`
	}
	s.store.View(func(c *aggregates.Canvas) {
		out.DocumentID = c.DocumentID()
		for _, n := range c.Nodes() {
			out.Nodes = append(out.Nodes, nodeJSON{
				ID:        n.ID().String(),
				Type:      string(n.Variant()),
				Label:     n.Label(),
				Content:   n.Content().Body(),
				ParentID:  n.ParentID().String(),
				X:         n.Position().X(),
				Y:         n.Position().Y(),
				Status:    string(n.Status()),
				Collapsed: n.Collapsed(),
			})
		}
		for _, e := range c.Edges() {
			out.Edges = append(out.Edges, edgeJSON{
				ID:     e.ID().String(),
				Source: e.Source().String(),
				Target: e.Target().String(),
				Type:   string(e.Variant()),
				Label:  e.Label(),
			})
		}
	})
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
