package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/teemow/gwsa/internal/google"
	"github.com/teemow/gwsa/internal/server"
)

func newAuthCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize a profile in two steps (for scripts and remote shells)",
		Long: `Authorize a profile in two steps:

  gwsa auth url --profile work        # open the printed URL and sign in
  gwsa auth save --profile work CODE  # store the token and validate it

Use 'gwsa profiles add NAME' for the interactive variant.`,
	}
	cmd.AddCommand(newAuthURLCmd(g))
	cmd.AddCommand(newAuthSaveCmd(g))
	return cmd
}

// authProfile resolves the profile an auth command acts on. The adc
// profile cannot be authorized with an OAuth code.
func authProfile(sc *server.ServerContext, g *globalOptions) (string, error) {
	profile, err := resolveProfile(sc, g.profile)
	if err != nil {
		return "", err
	}
	if profile == google.ADCProfile {
		return "", fmt.Errorf("%w: %s uses application default credentials; run 'gcloud auth application-default login'", google.ErrReservedProfile, profile)
	}
	return profile, nil
}

func newAuthURLCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "url",
		Short: "Print the OAuth consent URL for a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			sc := a.serverContext(cmd.Context(), nil)
			defer func() { _ = sc.Shutdown() }()

			profile, err := authProfile(sc, g)
			if err != nil {
				return err
			}
			authURL, err := sc.AuthURL(profile)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), authURL)
			return nil
		},
	}
}

func newAuthSaveCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "save CODE",
		Short: "Exchange an authorization code and store the token in a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(g)
			if err != nil {
				return err
			}
			sc := a.serverContext(cmd.Context(), nil)
			defer func() { _ = sc.Shutdown() }()

			profile, err := authProfile(sc, g)
			if err != nil {
				return err
			}
			email, err := sc.SaveAuthCode(cmd.Context(), profile, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authorization successful for profile %s (%s)\n", profile, email)
			return nil
		},
	}
}
