package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ong-collab/collabctl/internal/domain"
	"github.com/ong-collab/collabctl/internal/navigation"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Start a session",
	Long: `Log in with email and password. The access and refresh tokens are kept
in the configured session store until you log out or the refresh fails.

Examples:
  collabctl login --email ana@techo.org              # Prompt for the password
  echo "$PASS" | collabctl login --email ana@techo.org --password-stdin`,
	Args: usageArgs(cobra.NoArgs),
	RunE: withApp(runLogin),
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a MEMBER account",
	Long: `Register a new NGO member. Accounts created here always get the MEMBER
role; COUNCIL accounts are provisioned by the platform.

Examples:
  collabctl register --email ana@techo.org --nombre Ana --apellido Paz --ong Techo`,
	Args: usageArgs(cobra.NoArgs),
	RunE: withApp(runRegister),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session",
	Long:  `Remove the stored tokens and profile. No call is made to the backend.`,
	Args:  usageArgs(cobra.NoArgs),
	RunE:  withApp(runLogout),
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current identity",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  protected(runWhoami),
}

var navCmd = &cobra.Command{
	Use:   "nav",
	Short: "Show what your role can do",
	Args:  usageArgs(cobra.NoArgs),
	RunE:  protected(runNav),
}

func init() {
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd, whoamiCmd, navCmd)

	for _, c := range []*cobra.Command{loginCmd, registerCmd} {
		c.Flags().String("email", "", "account email")
		c.Flags().String("password", "", "account password (prefer --password-stdin)")
		c.Flags().Bool("password-stdin", false, "read the password from stdin")
	}

	registerCmd.Flags().String("nombre", "", "first name")
	registerCmd.Flags().String("apellido", "", "last name")
	registerCmd.Flags().String("ong", "", "organisation name")

	whoamiCmd.Flags().Bool("json", false, "output as JSON")
}

func runLogin(cmd *cobra.Command, args []string, a *app) error {
	if a.rejectSession() {
		return nil
	}

	email, _ := cmd.Flags().GetString("email")
	password, err := readPassword(cmd)
	if err != nil {
		return err
	}

	id, err := a.session.Login(cmd.Context(), domain.Credentials{Email: email, Password: password})
	if err != nil {
		return err
	}

	a.printer.Success("Logged in as %s (%s)", id.DisplayName(), id.Role)
	a.printer.PrintHints("login")
	return nil
}

func runRegister(cmd *cobra.Command, args []string, a *app) error {
	if a.rejectSession() {
		return nil
	}

	password, err := readPassword(cmd)
	if err != nil {
		return err
	}
	email, _ := cmd.Flags().GetString("email")
	nombre, _ := cmd.Flags().GetString("nombre")
	apellido, _ := cmd.Flags().GetString("apellido")
	ong, _ := cmd.Flags().GetString("ong")

	profile, err := a.session.Register(cmd.Context(), domain.RegisterInput{
		Email:    email,
		Password: password,
		Nombre:   nombre,
		Apellido: apellido,
		Ong:      ong,
	})
	if err != nil {
		return err
	}

	shown := email
	if profile != nil && profile.Email != "" {
		shown = profile.Email
	}
	a.printer.Success("Registered %s as %s", shown, domain.RoleMember)
	a.printer.PrintHints("register")
	return nil
}

func runLogout(cmd *cobra.Command, args []string, a *app) error {
	wasLoggedIn := a.session.Snapshot().Authenticated()
	if err := a.session.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}
	if wasLoggedIn {
		a.printer.Success("Logged out")
	} else {
		a.printer.Info("No active session")
	}
	return nil
}

func runWhoami(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(id)
	}

	snap := a.session.Snapshot()
	a.printer.Header(id.DisplayName())
	a.printer.Field("id", id.ID)
	a.printer.Field("email", id.Email)
	a.printer.Field("role", string(id.Role))
	if id.Ong != "" {
		a.printer.Field("ong", id.Ong)
	}
	a.printer.Field("expires", snap.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	a.printer.PrintHints("whoami")
	return nil
}

func runNav(cmd *cobra.Command, args []string, a *app, id domain.Identity) error {
	table := newTable(a, []string{"SECTION", "ROUTE", "COMMAND"})
	for _, it := range navigation.For(id.Role) {
		table.AddRow([]string{it.Label, it.Route, it.Command})
	}
	return table.Render()
}

// readPassword takes --password, or one line of stdin with --password-stdin
// or when no password flag was given.
func readPassword(cmd *cobra.Command) (string, error) {
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	if password != "" && !fromStdin {
		return password, nil
	}

	if !fromStdin {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
