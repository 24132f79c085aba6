package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tatenda/fullstori/pkg/sdk/graph"
)

func newGraphsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "graphs",
		Aliases: []string{"graph"},
		Short:   "Inspect and transfer investigation graphs",
	}
	cmd.AddCommand(
		newGraphsListCommand(a),
		newGraphsExportCommand(a),
		newGraphsImportCommand(a),
		newGraphsWatchCommand(a),
	)
	return cmd
}

func newGraphsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List graphs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			graphs, err := c.Graphs.List(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(a.out, graphs)
			}
			rows := make([][]string, 0, len(graphs))
			for _, g := range graphs {
				rows = append(rows, []string{g.ID, g.Name, g.UpdatedAt.Format(time.RFC3339)})
			}
			return renderTable(a.out, []string{"ID", "Name", "Updated"}, rows)
		},
	}
}

func newGraphsExportCommand(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "export <graph-id>",
		Short: "Write a graph's nodes and edges as a save snapshot",
		Long:  "Write a graph as the JSON body accepted by the save endpoint, so it can be imported elsewhere.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			state, err := c.Graphs.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			snapshot := graph.SnapshotOf(state)
			if file == "" {
				return writeJSON(a.out, snapshot)
			}
			f, err := os.Create(file)
			if err != nil {
				return err
			}
			if err := writeJSON(f, snapshot); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported %d nodes and %d edges to %s\n", len(snapshot.Nodes), len(snapshot.Edges), file)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "write to file instead of stdout")
	return cmd
}

func newGraphsImportCommand(a *app) *cobra.Command {
	var attempts int
	cmd := &cobra.Command{
		Use:   "import <graph-id> <file>",
		Short: "Save a snapshot file into a graph",
		Long: `Save a snapshot file into a graph, replacing its nodes and edges.

Saves interrupted by a concurrent writer are retried.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			var snapshot graph.SaveGraphRequest
			if err := json.Unmarshal(data, &snapshot); err != nil {
				return fmt.Errorf("decode %s: %w", args[1], err)
			}

			c, err := a.client()
			if err != nil {
				return err
			}
			saver := c.AutoSave(cmd.Context(), args[0], graph.AutoSaveOptions{
				Debounce:    -1,
				MaxAttempts: attempts,
			})
			if err := saver.SaveNow(&snapshot); err != nil {
				return err
			}
			if err := saver.Close(cmd.Context()); err != nil {
				return err
			}

			res := saver.LastResult()
			if a.jsonOutput() {
				return writeJSON(a.out, res)
			}
			fmt.Fprintf(a.out, "saved graph %s: %d nodes, %d edges (%d nodes and %d edges removed)\n",
				res.GraphID, res.Nodes, res.Edges, res.DeletedNodes, res.DeletedEdges)
			if res.DeletedEvents > 0 {
				fmt.Fprintf(a.out, "%d events lost every node and were deleted\n", res.DeletedEvents)
			}
			if res.RootSynthesized {
				fmt.Fprintf(a.out, "root node %s was created\n", res.RootNodeID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&attempts, "attempts", 3, "maximum save attempts")
	return cmd
}

func newGraphsWatchCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <graph-id>",
		Short: "Print changes to a graph as they happen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			err = c.Graphs.Watch(ctx, args[0], func(ev graph.ChangeEvent) {
				if a.jsonOutput() {
					_ = json.NewEncoder(a.out).Encode(ev)
					return
				}
				ids := ev.IDs
				if ev.ID != nil {
					ids = append([]string{*ev.ID}, ids...)
				}
				fmt.Fprintf(a.out, "%s\t%s\t%s\n", ev.Timestamp, ev.Type, strings.Join(ids, ","))
			})
			if ctx.Err() != nil {
				return nil
			}
			return err
		},
	}
}

func itoa(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
