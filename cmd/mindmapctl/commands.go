package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Steiynbrodt/Osint-Mindmap/application/ports"
	"github.com/Steiynbrodt/Osint-Mindmap/application/queries"
	"github.com/Steiynbrodt/Osint-Mindmap/domain/core/valueobjects"
	pkgerrors "github.com/Steiynbrodt/Osint-Mindmap/pkg/errors"
)

func readInput(cmd *cobra.Command, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(name)
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file|->",
		Short: "Check that a document would import cleanly",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			graph, svc := newWorkspace(nil, opts.logger())
			if err := svc.ImportJSON(cmd.Context(), data); err != nil {
				return fmt.Errorf("%s is invalid: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d nodes, %d edges)\n", args[0], graph.NodeCount(), graph.EdgeCount())
			return nil
		},
	}
}

func newExportCmd(opts *options) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the saved graph as a JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger()
			slot, closeSlot, err := opts.openSlot(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeSlot()

			data, err := slot.Load(cmd.Context(), ports.SlotKeyGraph)
			if err != nil {
				if pkgerrors.IsNotFound(err) {
					return fmt.Errorf("no graph saved in the %s backend", cfg.Snapshot.Backend)
				}
				return err
			}

			// round-trip through the importer so only valid documents leave
			_, svc := newWorkspace(nil, logger)
			if err := svc.ImportJSON(cmd.Context(), data); err != nil {
				return fmt.Errorf("saved graph is invalid: %w", err)
			}
			doc, err := svc.ExportJSON(cmd.Context())
			if err != nil {
				return err
			}
			doc = append(doc, '\n')

			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(doc)
				return err
			}
			return os.WriteFile(out, doc, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "file to write, stdout when empty")
	return cmd
}

func newImportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Validate a document and store it as the saved graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger()
			slot, closeSlot, err := opts.openSlot(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeSlot()

			graph, svc := newWorkspace(slot, logger)
			if err := svc.ImportJSON(cmd.Context(), data); err != nil {
				return fmt.Errorf("%s is invalid, saved graph left unchanged: %w", args[0], err)
			}
			if err := svc.Save(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d nodes, %d edges into the %s backend\n",
				graph.NodeCount(), graph.EdgeCount(), cfg.Snapshot.Backend)
			return nil
		},
	}
}

func newSearchCmd(opts *options) *cobra.Command {
	var (
		types []string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "List saved nodes matching text",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger := opts.logger()
			slot, closeSlot, err := opts.openSlot(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer closeSlot()

			graph, svc := newWorkspace(slot, logger)
			if err := svc.LoadInitial(cmd.Context()); err != nil {
				return err
			}

			q := queries.SearchNodesQuery{Limit: limit}
			if len(args) == 1 {
				q.Text = args[0]
			}
			for _, t := range types {
				q.Types = append(q.Types, valueobjects.NodeType(strings.ToLower(t)))
			}
			result, err := queries.NewSearchHandler(graph).Handle(q)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, n := range result.Nodes {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", n.ID, n.Type, n.Label, n.Status, n.Confidence)
			}
			fmt.Fprintf(w, "%d of %d nodes match", result.MatchCount, result.TotalCount)
			if len(result.Nodes) < result.MatchCount {
				fmt.Fprintf(w, " (showing %d)", len(result.Nodes))
			}
			fmt.Fprintln(w)
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "only these node types")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "print at most n nodes")
	return cmd
}

func newConfigCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Snapshot.Redis.Password != "" {
				redacted.Snapshot.Redis.Password = "********"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "# layers: %s\n", strings.Join(cfg.LoadedFrom, ", "))
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(&redacted); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
