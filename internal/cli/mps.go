package cli

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"werss-client/internal/domain/entity"
	"werss-client/internal/infra/feed"
)

const defaultSubscriptionPageSize = 10

func (a *app) mpsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "mps",
		Aliases: []string{"subscriptions", "mp"},
		Short:   "Manage subscribed official accounts",
		GroupID: groupContent,
	}
	cmd.AddCommand(
		a.mpsListCommand("list", "List subscriptions", cobra.NoArgs),
		a.mpsListCommand("search <keyword>", "Search subscriptions by name", cobra.ExactArgs(1)),
		a.mpsGetCommand(),
		a.mpsAddCommand(),
		a.mpsAddByArticleCommand(),
		a.mpsFeaturedCommand(),
		a.mpsDeleteCommand(),
		a.mpsUpdateCommand(),
		a.mpsStatusCommand("enable", "Resume collection for a subscription", 1),
		a.mpsStatusCommand("disable", "Pause collection for a subscription", 0),
		a.mpsSyncCommand(),
		a.mpsBizSearchCommand(),
		a.mpsFeedCommand(),
	)
	return cmd
}

func (a *app) mpsListCommand(use, short string, args cobra.PositionalArgs) *cobra.Command {
	var page, limit int
	var kw string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				kw = args[0]
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.ListSubscriptions(cmd.Context(), page, limit, kw)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Items))
			for _, s := range res.Items {
				synced := "-"
				if s.SyncTime > 0 {
					synced = time.Unix(s.SyncTime, 0).Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{s.ID, truncate(s.DisplayName(), 24), strconv.Itoa(s.Status), synced})
			}
			if err := a.printer.table(res, []string{"ID", "NAME", "STATUS", "SYNCED"}, rows); err != nil {
				return err
			}
			if !a.printer.json {
				_, err = fmt.Fprintf(a.stdout, "%d of %d\n", len(res.Items), res.Total)
			}
			return err
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page")
	cmd.Flags().IntVar(&limit, "limit", defaultSubscriptionPageSize, "Page size")
	if use == "list" {
		cmd.Flags().StringVar(&kw, "kw", "", "Name filter")
	}
	return cmd
}

func (a *app) mpsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <mp-id>",
		Short: "Show one subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			s, err := client.GetSubscription(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.fields(s,
				"ID", s.ID,
				"Name", s.DisplayName(),
				"Intro", s.MpIntro,
				"Status", strconv.Itoa(s.Status),
				"Articles", strconv.Itoa(s.ArticleCount),
				"Feed", client.FeedURL(s.ID))
		},
	}
}

func (a *app) mpsAddCommand() *cobra.Command {
	var in entity.SubscriptionCreate
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Subscribe to an account by id and name",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			s, err := client.AddSubscription(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printer.message("subscribed to %s (%s)", s.DisplayName(), s.ID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.MpID, "id", "", "Account id (fakeid)")
	f.StringVar(&in.MpName, "name", "", "Account name")
	f.StringVar(&in.Avatar, "avatar", "", "Avatar URL")
	f.StringVar(&in.MpIntro, "intro", "", "Account introduction")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func (a *app) mpsAddByArticleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "add-by-article <article-url>",
		Short: "Subscribe to the account that published an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.AddSubscriptionByArticle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			kv := make([]string, 0, 2*len(res))
			for _, k := range slices.Sorted(maps.Keys(res)) {
				kv = append(kv, k, fmt.Sprint(res[k]))
			}
			return a.printer.fields(res, kv...)
		},
	}
}

func (a *app) mpsFeaturedCommand() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "featured <article-url>",
		Short: "Add a single article to the featured collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := entity.ValidateFeaturedArticleURL(args[0]); err != nil {
				return err
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			task, err := client.AddFeaturedArticle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if wait {
				if task, err = client.WaitFeaturedArticleTask(cmd.Context(), task.TaskID, interval); err != nil {
					return err
				}
			}
			return a.printer.fields(task,
				"Task", task.TaskID,
				"Status", string(task.Status),
				"Article", task.ID,
				"Title", task.Title,
				"Message", task.Message)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the task finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --wait")
	return cmd
}

func (a *app) mpsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <mp-id>",
		Short: "Unsubscribe from an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.DeleteSubscription(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("deleted subscription %s", args[0])
		},
	}
}

func (a *app) mpsUpdateCommand() *cobra.Command {
	var name, cover, intro string
	cmd := &cobra.Command{
		Use:   "update <mp-id>",
		Short: "Change a subscription's name, cover or intro",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var up entity.SubscriptionUpdate
			if cmd.Flags().Changed("name") {
				up.MpName = &name
			}
			if cmd.Flags().Changed("cover") {
				up.MpCover = &cover
			}
			if cmd.Flags().Changed("intro") {
				up.MpIntro = &intro
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.UpdateSubscription(cmd.Context(), args[0], up); err != nil {
				return err
			}
			return a.printer.message("updated subscription %s", args[0])
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&cover, "cover", "", "New cover URL")
	cmd.Flags().StringVar(&intro, "intro", "", "New introduction")
	cmd.MarkFlagsOneRequired("name", "cover", "intro")
	return cmd
}

func (a *app) mpsStatusCommand(use, short string, status int) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <mp-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.SetSubscriptionStatus(cmd.Context(), args[0], status); err != nil {
				return err
			}
			return a.printer.message("subscription %s status=%d", args[0], status)
		},
	}
}

func (a *app) mpsSyncCommand() *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "sync [mp-id]",
		Short: "Ask the backend to collect new articles",
		Long:  "Ask the backend to collect new articles for one subscription, or for all of them without an id.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mpID := ""
			if len(args) == 1 {
				mpID = args[0]
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.SyncSubscription(cmd.Context(), mpID, start, end)
			if err != nil {
				return err
			}
			return a.printer.fields(res,
				"Subscriptions", strconv.Itoa(res.Total),
				"Time span", strconv.Itoa(res.TimeSpan))
		},
	}
	cmd.Flags().IntVar(&start, "start-page", 0, "First page to collect")
	cmd.Flags().IntVar(&end, "end-page", 1, "Last page to collect")
	return cmd
}

func (a *app) mpsBizSearchCommand() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "biz-search <keyword>",
		Short: "Search WeChat for official accounts to subscribe to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.SearchBiz(cmd.Context(), args[0], page, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Items))
			for _, b := range res.Items {
				rows = append(rows, []string{b.FakeID, b.Nickname, truncate(b.Signature, 40)})
			}
			return a.printer.table(res, []string{"FAKEID", "NAME", "SIGNATURE"}, rows)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page")
	cmd.Flags().IntVar(&limit, "limit", 5, "Page size")
	return cmd
}

func (a *app) mpsFeedCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "feed <mp-id>",
		Short: "Read a subscription through its RSS feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			items, err := feed.NewRSSReader(nil).Fetch(cmd.Context(), client.FeedURL(args[0]))
			if err != nil {
				return err
			}
			if limit > 0 && len(items) > limit {
				items = items[:limit]
			}
			rows := make([][]string, 0, len(items))
			for _, it := range items {
				rows = append(rows, []string{it.PublishedAt.Format("2006-01-02 15:04"), truncate(it.Title, 48), it.URL})
			}
			return a.printer.table(items, []string{"PUBLISHED", "TITLE", "URL"}, rows)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum items shown")
	return cmd
}
