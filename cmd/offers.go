package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/domain"
)

var offersCmd = &cobra.Command{
	Use:     "offers",
	Aliases: []string{"ofertas"},
	Short:   "List and submit offers on requests",
}

var offersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List offers of a request, or your own offers",
	Long: `Examples:
  collabctl offers list --pedido 42    # Offers submitted for request 42
  collabctl offers list --mine         # Offers submitted by you`,
	Args: usageArgs(cobra.NoArgs),
	RunE: protected(runOffersList),
}

var offersCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit an offer on a request (MEMBER)",
	Long: `Examples:
  collabctl offers create --pedido 42 --descripcion "Donamos 50 bolsas" --cantidad 50`,
	Args: usageArgs(cobra.NoArgs),
	RunE: protected(runOffersCreate),
}

func init() {
	rootCmd.AddCommand(offersCmd)
	offersCmd.AddCommand(offersListCmd, offersCreateCmd)

	offersListCmd.Flags().String("pedido", "", "request id")
	offersListCmd.Flags().Bool("mine", false, "offers submitted by you")
	offersListCmd.Flags().Bool("json", false, "output as JSON")
	offersListCmd.MarkFlagsMutuallyExclusive("pedido", "mine")

	offersCreateCmd.Flags().String("pedido", "", "request id")
	offersCreateCmd.Flags().String("descripcion", "", "what you offer")
	offersCreateCmd.Flags().Float64("monto", 0, "amount of money offered")
	offersCreateCmd.Flags().Float64("cantidad", 0, "quantity offered")
}

func runOffersList(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	pedido, _ := cmd.Flags().GetString("pedido")
	mine, _ := cmd.Flags().GetBool("mine")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	var (
		ofertas []domain.Oferta
		err     error
	)
	switch {
	case mine:
		ofertas, err = a.resources.ListMyOfertas(cmd.Context())
	case pedido != "":
		ofertas, err = a.resources.ListOfertas(cmd.Context(), pedido)
	default:
		return usageError(fmt.Errorf("one of --pedido or --mine is required"))
	}
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(cmd, ofertas)
	}

	if len(ofertas) == 0 {
		a.printer.Info("No offers found")
		return nil
	}
	table := newTable(a, []string{"ID", "PEDIDO", "ONG", "MONTO", "CANTIDAD", "ESTADO", "DESCRIPCION"})
	for _, o := range ofertas {
		table.AddRow([]string{
			o.ID, o.PedidoID, o.Ong,
			formatAmount(o.MontoOfrecido), formatAmount(o.CantidadOfrecida),
			a.printer.StatusBadge(o.Estado),
			truncate(a.sanitize.Text(o.Descripcion), 50),
		})
	}
	return table.Render()
}

func runOffersCreate(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	pedido, _ := cmd.Flags().GetString("pedido")
	if pedido == "" {
		return usageError(fmt.Errorf("--pedido is required"))
	}
	descripcion, _ := cmd.Flags().GetString("descripcion")
	monto, _ := cmd.Flags().GetFloat64("monto")
	cantidad, _ := cmd.Flags().GetFloat64("cantidad")

	in := domain.NewOferta{Descripcion: descripcion, MontoOfrecido: monto, CantidadOfrecida: cantidad}
	if err := a.validate.Validate(in); err != nil {
		return err
	}

	o, err := a.resources.CreateOferta(cmd.Context(), pedido, in)
	if err != nil {
		return err
	}
	a.printer.Success("Offer %s submitted on request %s %s", o.ID, pedido, a.printer.StatusBadge(o.Estado))
	a.printer.PrintHints("offers create")
	return nil
}
