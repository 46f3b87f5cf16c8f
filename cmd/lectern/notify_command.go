package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lectern/internal/notify"
)

func newNotifyCommand(ctx *commandContext) *cobra.Command {
	notifyCmd := &cobra.Command{
		Use:   "notify",
		Short: "Notification utilities",
	}

	notifyCmd.AddCommand(newNotifyTestCommand(ctx))
	return notifyCmd
}

func newNotifyTestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if cfg.Notifications.Endpoint == "" {
				fmt.Fprintln(out, "No notification endpoint configured; nothing to send")
				return nil
			}

			registry := notify.NewRegistry()
			template, err := registry.Lookup("test")
			if err != nil {
				return err
			}
			subject, body := template.Render(nil)
			notification := &notify.Notification{
				Recipient:   cfg.Notifications.Recipient,
				TemplateKey: template.Key,
				Subject:     subject,
				Body:        body,
				Priority:    template.Priority,
			}

			sender := notify.NewSender(cfg.Notifications)
			if err := sender.Send(cmd.Context(), notification); err != nil {
				return fmt.Errorf("send test notification: %w", err)
			}
			fmt.Fprintln(out, "Test notification sent")
			return nil
		},
	}
}
