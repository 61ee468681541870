package cli

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"werss-client/internal/domain/entity"
)

func (a *app) tasksCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"task"},
		Short:   "Manage message tasks that push articles to webhooks",
		GroupID: groupContent,
	}
	cmd.AddCommand(
		a.tasksListCommand(),
		a.tasksGetCommand(),
		a.tasksRunCommand(),
		a.tasksTestCommand(),
		a.tasksCreateCommand(),
		a.tasksUpdateCommand(),
		a.tasksDeleteCommand(),
		a.tasksRefreshJobsCommand(),
	)
	return cmd
}

func (a *app) tasksListCommand() *cobra.Command {
	var page, limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List message tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			res, err := client.ListMessageTasks(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			loc := a.cfg.Worker.Location()
			now := time.Now()
			rows := make([][]string, 0, len(res.Items))
			for _, t := range res.Items {
				next := "-"
				if at, ok := t.NextRun(now, loc); ok {
					next = at.Format("2006-01-02 15:04")
				}
				rows = append(rows, []string{t.ID, truncate(t.Name, 24), t.CronExp, next, strconv.Itoa(t.Status)})
			}
			return a.printer.table(res, []string{"ID", "NAME", "CRON", "NEXT RUN", "STATUS"}, rows)
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page")
	cmd.Flags().IntVar(&limit, "limit", entity.DefaultMessageTaskPageSize, "Page size")
	return cmd
}

func (a *app) tasksGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one message task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			t, err := client.GetMessageTask(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.printer.fields(t,
				"ID", t.ID,
				"Name", t.Name,
				"Type", strconv.Itoa(t.MessageType),
				"Webhook", t.WebHookURL,
				"Cron", t.CronExp,
				"Status", strconv.Itoa(t.Status),
				"Subscriptions", fmt.Sprint(t.MpsID))
		},
	}
}

func (a *app) tasksRunCommand() *cobra.Command {
	var isTest bool
	cmd := &cobra.Command{
		Use:   "run <id>",
		Short: "Run a message task now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.RunMessageTask(cmd.Context(), args[0], isTest); err != nil {
				return err
			}
			return a.printer.message("started message task %s", args[0])
		},
	}
	cmd.Flags().BoolVar(&isTest, "test", false, "Run in test mode")
	return cmd
}

func (a *app) tasksTestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test <id>",
		Short: "Send a test message through a task's webhook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.TestMessageTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("sent test message for task %s", args[0])
		},
	}
}

// parseMpsID accepts a JSON value for --mps, or passes plain text through.
func parseMpsID(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v
	}
	return raw
}

func (a *app) tasksCreateCommand() *cobra.Command {
	var (
		in     entity.MessageTaskCreate
		mps    string
		status int
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a message task",
		Example: `  werss tasks create --name daily --webhook https://example.com/hook \
    --cron "0 9 * * *" --mps '[{"id":"MP_WXS_123"}]'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if mps != "" {
				in.MpsID = parseMpsID(mps)
			}
			if cmd.Flags().Changed("status") {
				in.Status = &status
			}
			if err := in.Validate(); err != nil {
				return err
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			t, err := client.CreateMessageTask(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.printer.message("created message task %s", t.ID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Task name")
	f.IntVar(&in.MessageType, "type", entity.MessageTypeMessage, "0 for a message, 1 for a webhook")
	f.StringVar(&in.MessageTemplate, "template", "", "Message template")
	f.StringVar(&in.WebHookURL, "webhook", "", "Webhook URL")
	f.StringVar(&in.Headers, "headers", "", "Extra request headers")
	f.StringVar(&in.Cookies, "cookies", "", "Cookies sent with the request")
	f.StringVar(&mps, "mps", "", "Subscription selection as JSON")
	f.IntVar(&status, "status", 1, "1 enabled, 0 disabled")
	f.StringVar(&in.CronExp, "cron", "", "Five-field cron expression")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("webhook")
	return cmd
}

func (a *app) tasksUpdateCommand() *cobra.Command {
	var (
		name, template, webhook, headers, cookies, mps, cron string
		msgType, status                                      int
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a message task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var up entity.MessageTaskUpdate
			setString := func(flag string, dst **string, v *string) {
				if f.Changed(flag) {
					*dst = v
				}
			}
			setString("name", &up.Name, &name)
			setString("template", &up.MessageTemplate, &template)
			setString("webhook", &up.WebHookURL, &webhook)
			setString("headers", &up.Headers, &headers)
			setString("cookies", &up.Cookies, &cookies)
			setString("cron", &up.CronExp, &cron)
			if f.Changed("type") {
				up.MessageType = &msgType
			}
			if f.Changed("status") {
				up.Status = &status
			}
			if f.Changed("mps") {
				up.MpsID = parseMpsID(mps)
			}
			if err := up.Validate(); err != nil {
				return err
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.UpdateMessageTask(cmd.Context(), args[0], up); err != nil {
				return err
			}
			return a.printer.message("updated message task %s", args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Task name")
	f.IntVar(&msgType, "type", 0, "0 for a message, 1 for a webhook")
	f.StringVar(&template, "template", "", "Message template")
	f.StringVar(&webhook, "webhook", "", "Webhook URL")
	f.StringVar(&headers, "headers", "", "Extra request headers")
	f.StringVar(&cookies, "cookies", "", "Cookies sent with the request")
	f.StringVar(&mps, "mps", "", "Subscription selection as JSON")
	f.IntVar(&status, "status", 1, "1 enabled, 0 disabled")
	f.StringVar(&cron, "cron", "", "Five-field cron expression")
	return cmd
}

func (a *app) tasksDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a message task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if err := client.DeleteMessageTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			return a.printer.message("deleted message task %s", args[0])
		},
	}
}

func (a *app) tasksRefreshJobsCommand() *cobra.Command {
	var (
		cron   string
		status int
	)
	cmd := &cobra.Command{
		Use:   "refresh-jobs [id]",
		Short: "Reload task schedules on the backend",
		Long: `Reload task schedules on the backend.

With an id, --cron and --status are applied to that task before its job
is rescheduled.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if len(args) == 0 && (f.Changed("cron") || f.Changed("status")) {
				return fmt.Errorf("--cron and --status need a task id")
			}
			client, err := a.apiClient()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				var up *entity.MessageTaskUpdate
				if f.Changed("cron") || f.Changed("status") {
					up = &entity.MessageTaskUpdate{}
					if f.Changed("cron") {
						up.CronExp = &cron
					}
					if f.Changed("status") {
						up.Status = &status
					}
				}
				if err := client.RefreshJob(cmd.Context(), args[0], up); err != nil {
					return err
				}
				return a.printer.message("reloaded schedule of task %s", args[0])
			}
			if err := client.RefreshJobs(cmd.Context()); err != nil {
				return err
			}
			return a.printer.message("reloaded all task schedules")
		},
	}
	cmd.Flags().StringVar(&cron, "cron", "", "New cron expression for the task")
	cmd.Flags().IntVar(&status, "status", 1, "New task status (1 enabled, 0 disabled)")
	return cmd
}
