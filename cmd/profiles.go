package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/gwsa/internal/cache"
	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/logging"
)

func newProfilesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "profiles",
		Aliases: []string{"profile"},
		Short:   "Manage credential profiles for multiple Google identities",
	}
	cmd.AddCommand(newProfilesListCmd(g))
	cmd.AddCommand(newProfilesCurrentCmd(g))
	cmd.AddCommand(newProfilesSwitchCmd(g))
	cmd.AddCommand(newProfilesAddCmd(g))
	cmd.AddCommand(newProfilesDeleteCmd(g))
	return cmd
}

func newProfilesListCmd(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			profiles, err := a.profiles.List()
			if err != nil {
				return err
			}
			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), profiles)
			}

			w := cmd.OutOrStdout()
			renderProfiles(w, profiles)
			if !hasActive(profiles) {
				fmt.Fprintln(w, "\nNo active profile. Run 'gwsa profiles switch NAME' or 'gwsa profiles add NAME'.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text or json")
	return cmd
}

func hasActive(profiles []google.Profile) bool {
	for _, p := range profiles {
		if p.Active {
			return true
		}
	}
	return false
}

func newProfilesCurrentCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Show the active profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			name, err := a.profiles.Active()
			if errors.Is(err, google.ErrNoActiveProfile) {
				fmt.Fprintln(cmd.OutOrStdout(), "No active profile. Run 'gwsa profiles switch NAME' or 'gwsa profiles add NAME'.")
				return nil
			}
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Active profile: %s\n", name)
			if name == google.ADCProfile {
				fmt.Fprintln(w, "  Type: Application Default Credentials")
				return nil
			}
			meta, err := a.profiles.Metadata(name)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "  Type: OAuth token")
			if meta.Email != "" {
				fmt.Fprintf(w, "  Email: %s\n", meta.Email)
			}
			fmt.Fprintf(w, "  Scopes: %d\n", len(meta.Scopes))
			if meta.LastValidated != nil {
				fmt.Fprintf(w, "  Validated: %s\n", ago(*meta.LastValidated))
			} else {
				fmt.Fprintln(w, "  Validated: never")
			}
			return nil
		},
	}
}

func newProfilesSwitchCmd(g *globalOptions) *cobra.Command {
	var noRecheck bool
	cmd := &cobra.Command{
		Use:     "switch NAME",
		Aliases: []string{"use"},
		Short:   "Make a profile the active one",
		Long: `Make a profile the active one. Use 'adc' for Application Default Credentials.

The credentials are checked with a People API call first, unless --no-recheck
is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			if err := google.ValidateProfileName(name); err != nil {
				return err
			}
			if !a.profiles.Exists(name) {
				return fmt.Errorf("%w: %s (see 'gwsa profiles list')", google.ErrProfileNotFound, name)
			}

			email := ""
			if !noRecheck {
				sc := a.serverContext(cmd.Context(), nil)
				defer func() { _ = sc.Shutdown() }()
				email, err = sc.ValidateProfile(cmd.Context(), name)
				if err != nil {
					return err
				}
			}

			if err := a.profiles.SetActive(name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile: %s\n", name)
			if email != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  Email: %s\n", email)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&noRecheck, "no-recheck", false, "Switch without verifying the credentials")
	return cmd
}

func newProfilesAddCmd(g *globalOptions) *cobra.Command {
	var (
		code     string
		activate bool
	)
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a profile by authorizing a Google account",
		Long: `Create a profile by authorizing a Google account.

The command prints a consent URL. Open it, sign in and paste the authorization
code when asked (or pass it with --code).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if name == google.ADCProfile {
				return fmt.Errorf("%w: %s is built in; run 'gcloud auth application-default login' instead", google.ErrReservedProfile, name)
			}
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			if a.profiles.Exists(name) {
				return fmt.Errorf("profile %s already exists; delete it first or use 'gwsa auth url --profile %s' to re-authorize", name, name)
			}

			sc := a.serverContext(cmd.Context(), nil)
			defer func() { _ = sc.Shutdown() }()

			if code == "" {
				authURL, err := sc.AuthURL(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser and sign in:\n\n  %s\n\n", authURL)
				code, err = promptCode(cmd.InOrStdin(), cmd.OutOrStdout())
				if err != nil {
					return err
				}
			}

			email, err := sc.SaveAuthCode(cmd.Context(), name, code)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created profile %s (%s)\n", name, email)

			if activate {
				if err := a.profiles.SetActive(name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Switched to profile: %s\n", name)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&code, "code", "", "Authorization code (skips the interactive prompt)")
	cmd.Flags().BoolVar(&activate, "activate", true, "Make the new profile the active one")
	return cmd
}

func promptCode(in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, "Authorization code: ")
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := strings.TrimSpace(line)
	if code == "" {
		return "", errors.New("no authorization code given")
	}
	return code, nil
}

func newProfilesDeleteCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete NAME",
		Aliases: []string{"rm"},
		Short:   "Delete a profile, its token and its cache",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			if err := a.profiles.Delete(name); err != nil {
				return err
			}
			if dir, err := cache.DefaultDir(name); err == nil {
				if err := os.RemoveAll(dir); err != nil {
					a.logger.Warn("failed to remove profile cache",
						logging.Profile(name),
						logging.Err(err))
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted profile %s\n", name)
			return nil
		},
	}
}
