package cli

import (
	"strconv"

	"github.com/spf13/cobra"

	"werss-client/internal/domain/entity"
)

func (a *app) tagsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tags",
		Aliases: []string{"tag"},
		Short:   "Manage subscription tags",
		GroupID: groupContent,
	}

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.ListTags(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(res.Items))
			for _, t := range res.Items {
				rows = append(rows, []string{t.ID, t.Name, strconv.Itoa(t.Status), truncate(t.MpsID, 40)})
			}
			return a.printer.table(res, []string{"ID", "NAME", "STATUS", "SUBSCRIPTIONS"}, rows)
		},
	}
	list.Flags().IntVar(&page, "page", 0, "Zero-based page")
	list.Flags().IntVar(&limit, "limit", entity.DefaultTagPageSize, "Page size")

	get := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			t, err := client.GetTag(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.fields(t,
				"ID", t.ID,
				"Name", t.Name,
				"Intro", deref(t.Intro),
				"Status", strconv.Itoa(t.Status),
				"Subscriptions", t.MpsID)
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.DeleteTag(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("deleted tag %s", args[0])
		},
	}

	cmd.AddCommand(list, get, a.tagsWriteCommand("create"), a.tagsWriteCommand("update <id>"), del)
	return cmd
}

// tagsWriteCommand builds create and update, which share the TagCreate payload.
func (a *app) tagsWriteCommand(use string) *cobra.Command {
	var (
		in           entity.TagCreate
		cover, intro string
		status       int
	)
	update := use != "create"
	args := cobra.NoArgs
	short := "Create a tag"
	if update {
		args = cobra.ExactArgs(1)
		short = "Replace a tag"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("cover") {
				in.Cover = &cover
			}
			if f.Changed("intro") {
				in.Intro = &intro
			}
			if f.Changed("status") {
				in.Status = &status
			}
			if err := entity.ValidateStruct(&in); err != nil {
				return err
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			var t *entity.Tag
			if update {
				t, err = client.UpdateTag(cmd.Context(), args[0], in)
			} else {
				t, err = client.CreateTag(cmd.Context(), in)
			}
			if err != nil {
				return err
			}
			return a.printer.message("saved tag %s (%s)", t.Name, t.ID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Tag name")
	f.StringVar(&cover, "cover", "", "Cover image URL")
	f.StringVar(&intro, "intro", "", "Introduction")
	f.StringVar(&in.MpsID, "mps", "", "Subscription selection as JSON")
	f.IntVar(&status, "status", 1, "1 enabled, 0 disabled")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
