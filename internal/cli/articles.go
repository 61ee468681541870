package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"werss-client/internal/domain/entity"
	"werss-client/internal/infra/api"
	"werss-client/internal/infra/feed"
)

var errConfirmationRequired = errors.New("refusing to delete without --yes")

func (a *app) articlesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article", "a"},
		Short:   "List and manage collected articles",
		GroupID: groupContent,
	}
	cmd.AddCommand(
		a.articlesListCommand(),
		a.articlesGetCommand(),
		a.articlesDeleteCommand(),
		a.articlesRefreshCommand(),
		a.articlesCleanCommand("clean", "Delete every article", (*api.Client).ClearArticles),
		a.articlesCleanCommand("clean-duplicates", "Delete duplicate articles", (*api.Client).ClearDuplicateArticles),
		a.articlesFlagCommand("read", "unread", "Mark an article as read", (*api.Client).SetArticleRead),
		a.articlesFlagCommand("favorite", "remove", "Mark an article as favorite", (*api.Client).SetArticleFavorite),
		a.articlesTextCommand(),
	)
	return cmd
}

func (a *app) articlesListCommand() *cobra.Command {
	var (
		q      entity.ArticleQuery
		status int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("status") {
				q.Status = &status
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.ListArticles(cmd.Context(), q)
			if err != nil {
				return err
			}
			return a.printArticles(res)
		},
	}
	f := cmd.Flags()
	f.IntVar(&q.Page, "page", 0, "Zero-based page")
	f.IntVar(&q.PageSize, "limit", entity.DefaultArticlePageSize, "Page size")
	f.StringVarP(&q.Search, "search", "s", "", "Title search")
	f.IntVar(&status, "status", 0, "Filter by status")
	f.StringVar(&q.MpID, "mp", "", "Filter by subscription id")
	f.BoolVar(&q.OnlyFavorite, "favorites", false, "Only favorites")
	f.BoolVar(&q.WithContent, "with-content", false, "Include article bodies")
	return cmd
}

func (a *app) printArticles(res *entity.ListResult[entity.Article]) error {
	rows := make([][]string, 0, len(res.Items))
	for _, art := range res.Items {
		published := "-"
		if t := art.PublishedAt(); !t.IsZero() {
			published = t.Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{
			art.ID,
			published,
			truncate(art.MpName, 16),
			truncate(art.Title, 48),
			boolMark(art.Read()),
		})
	}
	if err := a.printer.table(res, []string{"ID", "PUBLISHED", "ACCOUNT", "TITLE", "READ"}, rows); err != nil {
		return err
	}
	if !a.printer.json {
		_, err := fmt.Fprintf(a.stdout, "%d of %d\n", len(res.Items), res.Total)
		return err
	}
	return nil
}

func (a *app) articlesGetCommand() *cobra.Command {
	var neighbors bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if !neighbors {
				art, err := client.GetArticle(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return a.printArticle(art, art, nil, nil)
			}
			res, err := client.GetArticleWithNeighbors(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printArticle(res, res.Article, res.Prev, res.Next)
		},
	}
	cmd.Flags().BoolVar(&neighbors, "neighbors", false, "Also show the previous and next article")
	return cmd
}

func (a *app) printArticle(v any, art, prev, next *entity.Article) error {
	ref := func(x *entity.Article) string {
		if x == nil {
			return "-"
		}
		return x.ID + "  " + truncate(x.Title, 40)
	}
	kv := []string{
		"ID", art.ID,
		"Title", art.Title,
		"Account", art.MpName,
		"URL", art.SourceURL(),
		"Published", art.PublishedAt().Format(time.RFC3339),
		"Read", boolMark(art.Read()),
		"Favorite", boolMark(art.Favorite()),
		"Summary", feed.Preview(art.Description, 120),
	}
	if prev != nil || next != nil {
		kv = append(kv, "Previous", ref(prev), "Next", ref(next))
	}
	return a.printer.fields(v, kv...)
}

func (a *app) articlesDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.DeleteArticle(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("deleted article %s", args[0])
		},
	}
}

func (a *app) articlesRefreshCommand() *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "refresh <id>",
		Short: "Re-fetch an article from WeChat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			task, err := client.RefreshArticle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if wait {
				if task, err = client.WaitRefreshTask(cmd.Context(), task.TaskID, interval); err != nil {
					return err
				}
			}
			return a.printer.fields(task,
				"Task", task.TaskID,
				"Article", task.ArticleID,
				"Status", string(task.Status),
				"Message", task.Message)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the task finishes")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Polling interval with --wait")
	return cmd
}

func (a *app) articlesCleanCommand(use, short string, run func(*api.Client, context.Context) (*api.CleanupResult, error)) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errConfirmationRequired
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := run(client, cmd.Context())
			if err != nil {
				return err
			}
			return a.printer.fields(res,
				"Deleted", strconv.Itoa(res.DeletedCount),
				"Message", res.Message)
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the deletion")
	return cmd
}

func (a *app) articlesFlagCommand(use, negate, short string, set func(*api.Client, context.Context, string, bool) error) *cobra.Command {
	var off bool
	cmd := &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := set(client, cmd.Context(), args[0], !off); err != nil {
				return err
			}
			return a.printer.message("article %s %s=%t", args[0], use, !off)
		},
	}
	cmd.Flags().BoolVar(&off, negate, false, "Clear the flag instead")
	return cmd
}

func (a *app) articlesTextCommand() *cobra.Command {
	var fetch bool
	cmd := &cobra.Command{
		Use:   "text <id>",
		Short: "Print an article as plain text",
		Long: `Print an article as plain text.

The stored body is used when the backend has one. Otherwise, or with
--fetch, the original page is downloaded and its readable text extracted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			art, err := client.GetArticle(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !fetch {
				if text := feed.PlainText(art.Content); text != "" {
					return a.printer.text("text", text)
				}
			}
			if art.SourceURL() == "" {
				return fmt.Errorf("article %s has no body and no source URL", art.ID)
			}
			cfg, warnings := feed.LoadConfigFromEnv()
			for _, w := range warnings {
				a.logger.Warn("Content fetch configuration fallback", slog.String("warning", w))
			}
			text, err := feed.NewContentFetcher(cfg).FetchContent(cmd.Context(), art.SourceURL())
			if err != nil {
				return fmt.Errorf("fetch article text: %w", err)
			}
			return a.printer.text("text", text)
		},
	}
	cmd.Flags().BoolVar(&fetch, "fetch", false, "Always extract the text from the original page")
	return cmd
}
