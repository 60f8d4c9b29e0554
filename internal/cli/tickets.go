package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/service-desk/internal/domain"
	"github.com/spec-kit/service-desk/internal/printing"
	"github.com/spec-kit/service-desk/internal/service"
)

func listCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets, most recently updated first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("query")
			status, _ := cmd.Flags().GetString("status")

			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			tickets, err := deps.Tickets.ListTickets(cmd.Context(), service.TicketListFilter{Query: query, Status: status})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tickets) == 0 {
				fmt.Fprintln(out, "No tickets found")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUPDATED\tCUSTOMER\tPRODUCT\tSERIAL\tSTATUS")
			fmt.Fprintln(w, "--\t-------\t--------\t-------\t------\t------")
			for _, t := range tickets {
				fmt.Fprintf(w, "#%s\t%s\t%s\t%s %s\t%s\t%s\n",
					t.ShortID(),
					t.UpdatedAt.Local().Format(printing.DateTimeLayout),
					t.CustomerName,
					t.ProductCategory, t.ProductModel,
					t.SerialNumber,
					coloredStatus(t.Status))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringP("query", "q", "", "match customer name, model, serial number or ticket id")
	cmd.Flags().StringP("status", "s", "all", "status filter: all, open, in-progress, closed")
	return cmd
}

func statsCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count tickets per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := deps.Tickets.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total:        %d\n", counts.Total)
			fmt.Fprintf(out, "%s         %d\n", statusColor(domain.TicketStatusOpen).Sprint("Open:"), counts.Open)
			fmt.Fprintf(out, "%s  %d\n", statusColor(domain.TicketStatusInProgress).Sprint("In Progress:"), counts.InProgress)
			fmt.Fprintf(out, "%s       %d\n", statusColor(domain.TicketStatusClosed).Sprint("Closed:"), counts.Closed)
			return nil
		},
	}
}

func showCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a ticket and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), deps.Tickets, args[0])
			if err != nil {
				return err
			}
			ticket, err := deps.Tickets.GetTicket(cmd.Context(), id)
			if err != nil {
				return err
			}
			writeTicket(cmd.OutOrStdout(), ticket)
			return nil
		},
	}
}

func createCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a new service ticket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var data domain.CreateTicketData
			data.CustomerName, _ = flags.GetString("customer")
			data.ContactNumber, _ = flags.GetString("contact")
			data.ProductCategory, _ = flags.GetString("category")
			data.ProductModel, _ = flags.GetString("model")
			data.SerialNumber, _ = flags.GetString("serial")
			data.Problem, _ = flags.GetString("problem")

			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			ticket, err := deps.Tickets.CreateTicket(cmd.Context(), rt.actor(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Created ticket #%s\n", ticket.ShortID())
			fmt.Fprintf(cmd.OutOrStdout(), "  ID: %s\n", ticket.ID)
			return nil
		},
	}
	cmd.Flags().String("customer", "", "customer name")
	cmd.Flags().String("contact", "", "contact number")
	cmd.Flags().String("category", "", "product category (Computer, Laptop, Printer, UPS, Other or any other value)")
	cmd.Flags().String("model", "", "product model")
	cmd.Flags().String("serial", "", "serial number")
	cmd.Flags().String("problem", "", "problem description")
	return cmd
}

func updateCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change a ticket's status, add a note, or both",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, _ := cmd.Flags().GetString("status")
			note, _ := cmd.Flags().GetString("note")

			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), deps.Tickets, args[0])
			if err != nil {
				return err
			}
			ticket, err := deps.Tickets.UpdateTicket(cmd.Context(), rt.actor(), id, service.TicketUpdateInput{Status: status, Note: note})
			if err != nil {
				return err
			}
			entry, _ := ticket.LatestEntry()
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated ticket #%s: %s\n", ticket.ShortID(), entry.Action)
			fmt.Fprintf(cmd.OutOrStdout(), "  Status: %s\n", coloredStatus(ticket.Status))
			return nil
		},
	}
	cmd.Flags().StringP("status", "s", "", "new status: open, in-progress, closed")
	cmd.Flags().StringP("note", "n", "", "note to add to the history")
	return cmd
}

func deleteCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a ticket and its history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			id, err := resolveID(cmd.Context(), deps.Tickets, args[0])
			if err != nil {
				return err
			}
			if err := deps.Tickets.DeleteTicket(cmd.Context(), rt.actor(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted ticket #%s\n", domain.ShortID(id))
			return nil
		},
	}
}

func writeTicket(out io.Writer, t *domain.Ticket) {
	fmt.Fprintf(out, "Ticket #%s  %s\n", t.ShortID(), coloredStatus(t.Status))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  ID:\t%s\n", t.ID)
	fmt.Fprintf(w, "  Customer:\t%s\n", t.CustomerName)
	fmt.Fprintf(w, "  Contact:\t%s\n", t.ContactNumber)
	fmt.Fprintf(w, "  Product:\t%s / %s\n", t.ProductCategory, t.ProductModel)
	fmt.Fprintf(w, "  Serial:\t%s\n", t.SerialNumber)
	fmt.Fprintf(w, "  Problem:\t%s\n", t.Problem)
	fmt.Fprintf(w, "  Created:\t%s\n", t.CreatedAt.Local().Format(printing.DateTimeLayout))
	fmt.Fprintf(w, "  Updated:\t%s\n", t.UpdatedAt.Local().Format(printing.DateTimeLayout))
	_ = w.Flush()

	fmt.Fprintln(out, "\nHistory:")
	for _, entry := range t.History {
		fmt.Fprintf(out, "  %s  %s\n", entry.Timestamp.Local().Format(printing.DateTimeLayout), entry.Action)
		fmt.Fprintf(out, "      %s\n", entry.Description)
	}
}
