package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/domain"
)

var observationsCmd = &cobra.Command{
	Use:     "observations",
	Aliases: []string{"observaciones"},
	Short:   "Council observations on projects",
}

var observationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the observations of a project",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  protected(runObservationsList),
}

var observationsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Raise an observation on a project (COUNCIL)",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  protected(runObservationsCreate),
}

var observationsResolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Answer an observation on your project (MEMBER)",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  protected(runObservationsResolve),
}

func init() {
	rootCmd.AddCommand(observationsCmd)
	observationsCmd.AddCommand(observationsListCmd, observationsCreateCmd, observationsResolveCmd)

	observationsListCmd.Flags().String("project", "", "project id")
	observationsListCmd.Flags().Bool("json", false, "output as JSON")
	observationsCreateCmd.Flags().String("project", "", "project id")
	observationsCreateCmd.Flags().String("descripcion", "", "observation text")
	observationsResolveCmd.Flags().String("respuesta", "", "answer text")
}

func runObservationsList(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		return usageError(fmt.Errorf("--project is required"))
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	obs, err := a.resources.ListObservaciones(cmd.Context(), project)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, obs)
	}

	if len(obs) == 0 {
		a.printer.Info("No observations on project %s", project)
		return nil
	}
	now := time.Now()
	table := newTable(a, []string{"ID", "ESTADO", "LIMITE", "RESTANTE", "DESCRIPCION"})
	for _, o := range obs {
		remaining := "-"
		if o.Estado == domain.ObservationOpen {
			remaining = formatRemaining(o.Remaining(now))
		}
		estado := o.Estado
		if o.Overdue(now) {
			estado = domain.ObservationLapsed
		}
		table.AddRow([]string{
			o.ID, a.printer.StatusBadge(estado), formatDate(o.FechaLimite), remaining,
			truncate(a.sanitize.Text(o.Descripcion), 60),
		})
	}
	return table.Render()
}

func runObservationsCreate(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	project, _ := cmd.Flags().GetString("project")
	if project == "" {
		return usageError(fmt.Errorf("--project is required"))
	}
	descripcion, _ := cmd.Flags().GetString("descripcion")

	in := domain.NewObservacion{Descripcion: descripcion}
	if err := a.validate.Validate(in); err != nil {
		return err
	}

	o, err := a.resources.CreateObservacion(cmd.Context(), project, in)
	if err != nil {
		return err
	}
	a.printer.Success("Observation %s raised, due %s", o.ID, formatDate(o.FechaLimite))
	a.printer.PrintHints("observations create")
	return nil
}

func runObservationsResolve(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	respuesta, _ := cmd.Flags().GetString("respuesta")

	in := domain.ResolveObservacion{Respuesta: respuesta}
	if err := a.validate.Validate(in); err != nil {
		return err
	}

	o, err := a.resources.ResolveObservacion(cmd.Context(), args[0], in)
	if err != nil {
		return err
	}
	a.printer.Success("Observation %s %s", o.ID, a.printer.StatusBadge(o.Estado))
	a.printer.PrintHints("observations resolve")
	return nil
}
