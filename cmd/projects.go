package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/adapter/gateway"
	"github.com/ong-collab/collabctl/internal/domain"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"proyectos"},
	Short:   "Browse and publish projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Long: `List projects visible to you.

Examples:
  collabctl projects list                    # All projects
  collabctl projects list --mine             # Projects of your NGO
  collabctl projects list --estado EJECUCION # Projects in execution`,
	Args: usageArgs(cobra.NoArgs),
	RunE: protected(runProjectsList),
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a project with its stages and requests",
	Args:  usageArgs(cobra.ExactArgs(1)),
	RunE:  protected(runProjectsShow),
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Publish a project (MEMBER)",
	Long: `Publish a project described by a JSON file with nombre, descripcion,
pais and etapas (each with nombre, fecha_inicio, fecha_fin and pedidos).

Examples:
  collabctl projects create --file proyecto.json
  cat proyecto.json | collabctl projects create --file -`,
	Args: usageArgs(cobra.NoArgs),
	RunE: protected(runProjectsCreate),
}

func init() {
	rootCmd.AddCommand(projectsCmd)
	projectsCmd.AddCommand(projectsListCmd, projectsShowCmd, projectsCreateCmd)

	projectsListCmd.Flags().Bool("mine", false, "only projects of your NGO")
	projectsListCmd.Flags().String("estado", "", "filter by state (PLANIFICACION, EJECUCION, FINALIZADO)")
	projectsListCmd.Flags().Bool("json", false, "output as JSON")
	projectsShowCmd.Flags().Bool("json", false, "output as JSON")
	projectsCreateCmd.Flags().StringP("file", "f", "", "project JSON file, - for stdin")
}

func runProjectsList(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	mine, _ := cmd.Flags().GetBool("mine")
	estado, _ := cmd.Flags().GetString("estado")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if estado != "" {
		if err := a.validate.ValidateVar(estado, "oneof=PLANIFICACION EJECUCION FINALIZADO"); err != nil {
			return usageError(fmt.Errorf("invalid --estado %q", estado))
		}
	}

	projects, err := a.resources.ListProjects(cmd.Context(), gateway.ProjectFilter{Estado: estado, Mine: mine})
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, projects)
	}

	if len(projects) == 0 {
		a.printer.Info("No projects found")
		return nil
	}
	table := newTable(a, []string{"ID", "NOMBRE", "ONG", "ESTADO", "ETAPAS"})
	for _, p := range projects {
		table.AddRow([]string{p.ID, truncate(p.Nombre, 40), p.Ong, a.printer.StatusBadge(p.Estado), fmt.Sprint(len(p.Etapas))})
	}
	if err := table.Render(); err != nil {
		return err
	}
	a.printer.PrintHints("projects list")
	return nil
}

func runProjectsShow(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	p, err := a.resources.GetProject(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("project %s: %w", args[0], domain.ErrNotFound)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(cmd, p)
	}

	a.printer.Header(p.Nombre)
	a.printer.Field("id", p.ID)
	a.printer.Field("ong", p.Ong)
	a.printer.Field("estado", a.printer.StatusBadge(p.Estado))
	if p.Pais != "" {
		a.printer.Field("pais", p.Pais)
	}
	if d := a.sanitize.Text(p.Descripcion); d != "" {
		a.printer.Print("\n  %s", d)
	}

	for _, e := range p.Etapas {
		a.printer.Header(fmt.Sprintf("Etapa: %s", e.Nombre))
		a.printer.Field("estado", a.printer.StatusBadge(e.Estado))
		a.printer.Field("fechas", formatDate(e.FechaInicio)+" → "+formatDate(e.FechaFin))
		if len(e.Pedidos) == 0 {
			continue
		}
		table := newTable(a, []string{"PEDIDO", "TIPO", "CANTIDAD", "ESTADO", "DESCRIPCION"})
		for _, pd := range e.Pedidos {
			qty := formatAmount(pd.Cantidad)
			if pd.Unidad != "" && qty != "-" {
				qty += " " + pd.Unidad
			}
			table.AddRow([]string{pd.ID, pd.Tipo, qty, a.printer.StatusBadge(pd.Estado), truncate(a.sanitize.Text(pd.Descripcion), 50)})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}
	a.printer.PrintHints("projects show")
	return nil
}

func runProjectsCreate(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	file, _ := cmd.Flags().GetString("file")
	if file == "" {
		return usageError(fmt.Errorf("--file is required"))
	}

	var in domain.NewProject
	if err := readJSONFile(cmd, file, &in); err != nil {
		return err
	}
	if err := a.validate.Validate(in); err != nil {
		return err
	}

	p, err := a.resources.CreateProject(cmd.Context(), in)
	if err != nil {
		return err
	}
	a.printer.Success("Project %s published (%s)", p.Nombre, p.ID)
	a.printer.PrintHints("projects create")
	return nil
}
