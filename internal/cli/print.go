package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/spec-kit/service-desk/internal/printing"
)

func printCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print ID",
		Short: "Print a service ticket or device label",
		Long: `Renders the ticket as an A6 service ticket (or a 100mm x 50mm label with --label).
Without --out the document opens in the default browser and prints itself.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			label, _ := cmd.Flags().GetBool("label")
			out, _ := cmd.Flags().GetString("out")

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

			kind := printing.KindTicket
			if label {
				kind = printing.KindLabel
			}
			var surface printing.Surface = printing.FileSurface{Path: out}
			opts := printing.Options{}
			if out == "" {
				surface = rt.opts.Surface
				if surface == nil {
					surface = printing.NewBrowserSurface("")
				}
				opts.AutoPrint = true
			}

			location, err := printing.NewPrinter(surface, deps.Logger, opts).Print(cmd.Context(), kind, ticket)
			if errors.Is(err, printing.ErrSurfaceUnavailable) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Unable to open a print window. Use --out FILE to save the document instead.")
				return err
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Sent %s for #%s to %s\n", kind, ticket.ShortID(), location)
			return nil
		},
	}
	cmd.Flags().Bool("label", false, "print the device label instead of the full ticket")
	cmd.Flags().StringP("out", "o", "", "write the HTML document to FILE instead of opening it")
	return cmd
}
