package cli

import (
	"strconv"

	"github.com/spf13/cobra"
)

func newEventsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"timeline"},
		Short:   "Inspect a graph's timeline",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list <graph-id>",
		Short: "List timeline events in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			events, err := c.Events.List(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.jsonOutput() {
				return writeJSON(a.out, events)
			}
			rows := make([][]string, 0, len(events))
			for _, ev := range events {
				typ := ev.EventTypeID
				if ev.EventType != nil {
					typ = ev.EventType.Name
				}
				rows = append(rows, []string{
					strconv.Itoa(ev.SortOrder),
					ev.ID,
					ev.Title,
					typ,
					deref(ev.Date),
					itoa(ev.SeriesDay),
				})
			}
			return renderTable(a.out, []string{"#", "ID", "Title", "Type", "Date", "Day"}, rows)
		},
	})
	return cmd
}
