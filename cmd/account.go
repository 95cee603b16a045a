package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/s0up4200/plexshelf/plex"
	"github.com/s0up4200/plexshelf/session"
)

var (
	loginEmail    string
	loginPassword string
	refreshServer bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to plex.tv and discover your media server",
	Long: `Sign in to plex.tv with your email or username. The token, your profile
and the discovered media server are stored in the session file.

The password is prompted for when --password is not given.`,
	Args: cobra.NoArgs,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored token, profile and server",
	Args:  cobra.NoArgs,
	RunE:  runLogout,
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Show the media server in use",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in plex.tv account",
	Args:  cobra.NoArgs,
	RunE:  runWhoami,
}

func init() {
	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "plex.tv email or username")
	loginCmd.Flags().StringVarP(&loginPassword, "password", "p", "", "plex.tv password (prompted when omitted)")
	serverCmd.Flags().BoolVar(&refreshServer, "refresh", false, "rediscover the media server")

	rootCmd.AddCommand(loginCmd, logoutCmd, serverCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	email := loginEmail
	if email == "" {
		fmt.Fprint(out, "Email or username: ")
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("an email or username is required")
	}

	password := loginPassword
	if password == "" {
		var err error
		if password, err = promptPassword(out, reader); err != nil {
			return err
		}
	}

	var account *plex.SignIn
	err := store.Track(func() error {
		var err error
		account, err = client.Login(commandContext(cmd), email, password)
		return err
	})
	if err != nil {
		if errors.Is(err, plex.ErrServerNotFound) {
			return fmt.Errorf("signed in, but no Plex Media Server is linked to this account: %w", err)
		}
		return err
	}
	store.User.Set(account)
	store.Token.Set(account.AuthToken)

	host, _ := sess.Get(session.ParamHostURL)
	fmt.Fprintf(out, "✓ Signed in as %s\n", account.GetDisplayName())
	fmt.Fprintf(out, "✓ Using server %s\n", host)
	return nil
}

// promptPassword reads a password without echo when stdin is a terminal
func promptPassword(out io.Writer, reader *bufio.Reader) (string, error) {
	fmt.Fprint(out, "Password: ")

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}

	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	if err := client.Logout(commandContext(cmd)); err != nil {
		return err
	}
	store.User.Set(nil)
	store.Token.Set("")

	fmt.Fprintln(cmd.OutOrStdout(), "✓ Signed out")
	return nil
}

func runServer(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if refreshServer {
		device, err := client.DiscoverServer(commandContext(cmd))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Found %s (%s %s)\n", device.Name, device.Product, device.ProductVersion)
	}

	snap := sess.Snapshot()
	if snap.HostURL == "" {
		return plex.ErrNoServer
	}

	fmt.Fprintf(out, "Server:     %s\n", snap.HostURL)
	fmt.Fprintf(out, "Machine ID: %s\n", snap.MachineID)
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if !sess.Snapshot().HasToken() {
		fmt.Fprintln(out, "Not signed in")
		return nil
	}

	var user *plex.SignIn
	err := store.Track(func() error {
		var err error
		user, err = client.CurrentUser(commandContext(cmd))
		return err
	})
	if err != nil {
		return err
	}
	store.User.Set(user)

	fmt.Fprintf(out, "User:  %s\n", user.GetDisplayName())
	if user.Email != "" {
		fmt.Fprintf(out, "Email: %s\n", user.Email)
	}
	if host, ok := sess.Get(session.ParamHostURL); ok {
		fmt.Fprintf(out, "Server: %s\n", host)
	}
	return nil
}
