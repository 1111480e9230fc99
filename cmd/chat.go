package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/gwsa/internal/chat"
	"github.com/teemow/gwsa/internal/logging"
	"github.com/teemow/gwsa/internal/triage"
)

func newChatCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Read Google Chat spaces and find messages that need your attention",
	}
	cmd.AddCommand(newMentionsCmd(g))
	cmd.AddCommand(newSpacesCmd(g))
	cmd.AddCommand(newMessagesCmd(g))
	return cmd
}

type mentionsOptions struct {
	limit          int
	threshold      int
	tiers          []string
	discoveryLimit int
	messageLimit   int
	all            bool
	format         string
	timeout        time.Duration
}

func newMentionsCmd(g *globalOptions) *cobra.Command {
	o := &mentionsOptions{}

	cmd := &cobra.Command{
		Use:   "mentions",
		Short: "List Chat messages that still need your reply",
		Long: `Scan recently active Chat spaces, smallest conversations first, and list
the messages that still need your attention.

In spaces with at most --threshold members the latest message counts when it
is not yours. In larger spaces only messages that @-mention you count.
Messages you reacted to or answered are dropped unless --all is given.

Lookback tiers decide how far back each space is searched, by member count:

  --tier 2:14 --tier 10:5 --tier 50:2 --tier :1

means 14 days for spaces with up to 2 members, 5 days up to 10 members,
2 days up to 50 members and 1 day for anything larger.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMentions(cmd, g, o)
		},
	}

	defaults := triage.DefaultOptions()
	cmd.Flags().IntVar(&o.limit, "limit", defaults.SpaceLimit, "Maximum number of spaces to examine")
	cmd.Flags().IntVar(&o.threshold, "threshold", defaults.ImplicitMentionThreshold, "Spaces with at most this many members treat any unreplied message as a mention")
	cmd.Flags().StringArrayVar(&o.tiers, "tier", nil, "Lookback tier MAX_MEMBERS:DAYS (repeatable; empty MAX_MEMBERS matches any size)")
	cmd.Flags().IntVar(&o.discoveryLimit, "discovery-limit", defaults.DiscoveryLimit, "Maximum number of spaces to discover")
	cmd.Flags().IntVar(&o.messageLimit, "message-limit", defaults.MessageScanLimit, "Maximum number of messages to fetch across all spaces")
	cmd.Flags().BoolVar(&o.all, "all", false, "Also report mentions you already answered or reacted to")
	cmd.Flags().StringVarP(&o.format, "format", "o", formatText, "Output format: text or json")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Minute, "Stop scanning after this long (0 disables)")

	return cmd
}

// scanOptions starts from the configured defaults and applies only the
// flags the user set.
func (o *mentionsOptions) scanOptions(cmd *cobra.Command, defaults triage.Options) (triage.Options, error) {
	opts := defaults
	flags := cmd.Flags()
	if flags.Changed("limit") {
		opts.SpaceLimit = o.limit
	}
	if flags.Changed("threshold") {
		opts.ImplicitMentionThreshold = o.threshold
	}
	if flags.Changed("discovery-limit") {
		opts.DiscoveryLimit = o.discoveryLimit
	}
	if flags.Changed("message-limit") {
		opts.MessageScanLimit = o.messageLimit
	}
	if len(o.tiers) > 0 {
		tiers, err := triage.ParseTiers(o.tiers)
		if err != nil {
			return opts, err
		}
		opts.Tiers = tiers
	}
	if o.all {
		opts.UnansweredOnly = false
	}
	return opts, opts.Validate()
}

func runMentions(cmd *cobra.Command, g *globalOptions, o *mentionsOptions) error {
	if err := checkFormat(o.format); err != nil {
		return err
	}
	a, err := loadApp(g)
	if err != nil {
		return err
	}
	opts, err := o.scanOptions(cmd, a.triageOptions())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	sc := a.serverContext(ctx, nil)
	defer func() { _ = sc.Shutdown() }()

	profile, err := resolveProfile(sc, g.profile)
	if err != nil {
		return err
	}
	engine, err := sc.NewEngine(profile)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := engine.Scan(ctx, opts)
	if err != nil {
		return err
	}
	a.logger.Debug("mention scan finished",
		logging.Profile(profile),
		logging.Duration(time.Since(start)),
		"exit_reason", result.Source.ExitReason,
		"api_calls", result.APIStats)

	if o.format == formatJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	renderMentions(cmd.OutOrStdout(), result)
	return nil
}

func newSpacesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "Inspect Chat spaces",
	}

	var (
		limit     int
		spaceType string
		names     bool
		format    string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the Chat spaces you are a member of",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			filter := triage.SpaceType(spaceType)
			switch filter {
			case "", triage.SpaceTypeDirectMessage, triage.SpaceTypeGroupChat, triage.SpaceTypeSpace:
			default:
				return fmt.Errorf("unknown space type %q (supported: DIRECT_MESSAGE, GROUP_CHAT, SPACE)", spaceType)
			}

			a, err := loadApp(g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sc := a.serverContext(ctx, nil)
			defer func() { _ = sc.Shutdown() }()

			profile, err := resolveProfile(sc, g.profile)
			if err != nil {
				return err
			}
			clients, err := sc.ClientsForProfile(profile)
			if err != nil {
				return err
			}

			page, err := clients.Chat.ListSpaces(ctx, triage.ListSpacesRequest{
				Filter:   chat.SpaceTypeFilter(filter),
				PageSize: limit,
			})
			if err != nil {
				return fmt.Errorf("failed to list spaces: %w", err)
			}
			spaces := chat.SummarizeSpaces(ctx, clients.Chat, page.Spaces, names)

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), spaces)
			}
			renderSpaces(cmd.OutOrStdout(), spaces)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of spaces to list")
	listCmd.Flags().StringVar(&spaceType, "type", "", "Only list spaces of this type: DIRECT_MESSAGE, GROUP_CHAT or SPACE")
	listCmd.Flags().BoolVar(&names, "names", false, "Resolve participant names (one cached call per space)")
	listCmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text or json")

	cmd.AddCommand(listCmd)
	return cmd
}

func newMessagesCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "messages",
		Short: "Read Chat messages",
	}

	var (
		limit  int
		format string
	)
	listCmd := &cobra.Command{
		Use:   "list SPACE",
		Short: "List the latest messages of a space, newest first",
		Example: `  gwsa chat messages list spaces/AAAAxyz
  gwsa chat messages list AAAAxyz --limit 50`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			space := normalizeSpaceName(args[0])

			a, err := loadApp(g)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			sc := a.serverContext(ctx, nil)
			defer func() { _ = sc.Shutdown() }()

			profile, err := resolveProfile(sc, g.profile)
			if err != nil {
				return err
			}
			clients, err := sc.ClientsForProfile(profile)
			if err != nil {
				return err
			}

			page, err := clients.Chat.ListMessages(ctx, triage.ListMessagesRequest{
				Space:    space,
				PageSize: limit,
				OrderBy:  triage.OrderNewestFirst,
			})
			if err != nil {
				return fmt.Errorf("failed to list messages of %s: %w", space, err)
			}
			messages := chat.SummarizeMessages(ctx, clients.Names, page.Messages)

			if format == formatJSON {
				return writeJSON(cmd.OutOrStdout(), messages)
			}
			renderMessages(cmd.OutOrStdout(), messages)
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 25, "Maximum number of messages to list")
	listCmd.Flags().StringVarP(&format, "format", "o", formatText, "Output format: text or json")

	cmd.AddCommand(listCmd)
	return cmd
}

// normalizeSpaceName accepts both "spaces/ID" and the bare ID.
func normalizeSpaceName(s string) string {
	if strings.HasPrefix(s, "spaces/") {
		return s
	}
	return "spaces/" + s
}
