package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/domain"
)

var metricsCmd = &cobra.Command{
	Use:     "metrics",
	Aliases: []string{"metricas"},
	Short:   "Show the platform dashboard metrics (COUNCIL)",
	Args:    usageArgs(cobra.NoArgs),
	RunE:    protected(runMetrics),
}

func init() {
	rootCmd.AddCommand(metricsCmd)

	metricsCmd.Flags().Bool("json", false, "output as JSON")
}

func runMetrics(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	m, err := a.resources.DashboardMetrics(cmd.Context())
	if err != nil {
		return err
	}
	if m == nil {
		m = &domain.DashboardMetrics{}
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		return printJSON(cmd, m)
	}

	a.printer.Header("Proyectos")
	a.printer.Field("total", fmt.Sprint(m.ProyectosTotales))
	estados := make([]string, 0, len(m.ProyectosPorEstado))
	for estado := range m.ProyectosPorEstado {
		estados = append(estados, estado)
	}
	sort.Strings(estados)
	for _, estado := range estados {
		a.printer.Field(estado, fmt.Sprint(m.ProyectosPorEstado[estado]))
	}

	a.printer.Header("Pedidos y ofertas")
	a.printer.Field("pedidos", fmt.Sprint(m.PedidosTotales))
	a.printer.Field("cubiertos", fmt.Sprintf("%d (%.0f%%)", m.PedidosCubiertos, m.CoverageRatio()*100))
	a.printer.Field("ofertas", fmt.Sprint(m.OfertasTotales))
	a.printer.Field("aceptadas", fmt.Sprint(m.OfertasAceptadas))

	a.printer.Header("Observaciones")
	a.printer.Field("abiertas", fmt.Sprint(m.ObservacionesAbiertas))
	a.printer.Field("vencidas", fmt.Sprint(m.ObservacionesVencidas))

	a.printer.PrintHints("metrics")
	return nil
}
