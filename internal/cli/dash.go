package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/spec-kit/service-desk/internal/tui"
)

func dashCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "dash",
		Short: "Open the interactive ticket dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			deps, err := rt.desk(cmd.Context())
			if err != nil {
				return err
			}
			model := tui.NewModel(cmd.Context(), deps.Tickets, tui.Options{
				Debounce: deps.Config.Search.Debounce(),
				Actor:    rt.actor(),
			})
			programOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(cmd.Context())}
			if rt.opts.In != nil {
				programOpts = append(programOpts, tea.WithInput(rt.opts.In))
			}
			if rt.opts.Out != nil {
				programOpts = append(programOpts, tea.WithOutput(rt.opts.Out))
			}
			_, err = tea.NewProgram(model, programOpts...).Run()
			return err
		},
	}
}
