package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/types"
	"github.com/valura/notification/pkg/api/v1/client"
)

// Notification flag names
const (
	flagNotificationID = "id"
	flagRecipient      = "recipient"
	flagChannel        = "channel"
	flagStatus         = "status"
	flagPage           = "page"
	flagTitle          = "title"
	flagBody           = "body"
)

// notificationOutput represents the filtered output for a notification
type notificationOutput struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient_id"`
	Channel   string `json:"channel_type"`
	Status    string `json:"status"`
	Attempts  int    `json:"delivery_attempts"`
	Message   string `json:"message,omitempty"`
	Created   string `json:"created_at"`
}

// notificationListOutput represents the filtered output for a list of notifications
type notificationListOutput struct {
	Notifications []notificationOutput `json:"notifications"`
}

func toNotificationOutput(n models.Notification) notificationOutput {
	return notificationOutput{
		ID:        n.ID,
		Recipient: n.RecipientID,
		Channel:   n.ChannelType.String(),
		Status:    n.Status.String(),
		Attempts:  n.DeliveryAttempts,
		Message:   n.Response.Message,
		Created:   n.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

func init() {
	notificationsCmd.AddCommand(listNotificationsCmd)
	notificationsCmd.AddCommand(getNotificationCmd)
	notificationsCmd.AddCommand(latestNotificationCmd)
	notificationsCmd.AddCommand(sendNotificationCmd)

	// Add flags for list
	listNotificationsCmd.Flags().StringP(flagRecipient, "r", "", "Only list notifications of this recipient")
	listNotificationsCmd.Flags().StringP(flagStatus, "t", "", "Filter by status (e.g., delivered, failed, blocked_daily_limit)")
	listNotificationsCmd.Flags().StringP(flagChannel, "c", "", "Filter by channel (email, sms, push)")
	listNotificationsCmd.Flags().IntP(flagPage, "g", 1, "Page number for pagination")

	// Add flags for get
	getNotificationCmd.Flags().StringP(flagNotificationID, "i", "", "Notification ID")
	_ = getNotificationCmd.MarkFlagRequired(flagNotificationID)

	// Add flags for latest
	latestNotificationCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	_ = latestNotificationCmd.MarkFlagRequired(flagRecipient)

	// Add flags for send
	sendNotificationCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	sendNotificationCmd.Flags().StringP(flagChannel, "c", models.ChannelEmail.String(), "Channel (email, sms, push)")
	sendNotificationCmd.Flags().String(flagTitle, "", "Notification title")
	sendNotificationCmd.Flags().StringP(flagBody, "b", "", "Notification body")
	_ = sendNotificationCmd.MarkFlagRequired(flagRecipient)
	_ = sendNotificationCmd.MarkFlagRequired(flagBody)

	// Add flags for stats
	statsCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	statsCmd.Flags().StringP(flagChannel, "c", "", "Only show this channel")
	_ = statsCmd.MarkFlagRequired(flagRecipient)
}

// GetNotificationsCmd returns the notifications command
func GetNotificationsCmd() *cobra.Command {
	return notificationsCmd
}

// GetStatsCmd returns the stats command
func GetStatsCmd() *cobra.Command {
	return statsCmd
}

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Queue and inspect notifications",
}

var listNotificationsCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)
		status, _ := cmd.Flags().GetString(flagStatus)
		channel, _ := cmd.Flags().GetString(flagChannel)
		page, _ := cmd.Flags().GetInt(flagPage)
		if page < 1 {
			return fmt.Errorf("page must be a positive number from 1")
		}

		params := client.ListParams{Page: page, Status: status, Channel: channel}

		var (
			rows []models.Notification
			err  error
		)
		if recipient != "" {
			rows, err = apiClient.ListRecipientNotifications(context.Background(), recipient, params)
		} else {
			rows, err = apiClient.ListNotifications(context.Background(), params)
		}
		if err != nil {
			return fmt.Errorf("error listing notifications: %w", err)
		}

		output := notificationListOutput{Notifications: make([]notificationOutput, 0, len(rows))}
		for _, n := range rows {
			output.Notifications = append(output.Notifications, toNotificationOutput(n))
		}
		return printJSON(cmd.OutOrStdout(), output)
	},
}

var getNotificationCmd = &cobra.Command{
	Use:   "get",
	Short: "Get a specific notification by its ID",
	RunE: func(cmd *cobra.Command, _ []string) error {
		id, _ := cmd.Flags().GetString(flagNotificationID)
		if id == "" {
			return fmt.Errorf("notification ID is required")
		}

		n, err := apiClient.GetNotification(context.Background(), id)
		if err != nil {
			return fmt.Errorf("error getting notification: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), toNotificationOutput(n))
	},
}

var latestNotificationCmd = &cobra.Command{
	Use:   "latest",
	Short: "Get the most recent notification of a recipient",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)

		n, err := apiClient.GetLatestNotification(context.Background(), recipient)
		if err != nil {
			return fmt.Errorf("error getting latest notification: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), toNotificationOutput(n))
	},
}

var sendNotificationCmd = &cobra.Command{
	Use:   "send",
	Short: "Queue a notification for a recipient with a stored preference",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)
		channel, _ := cmd.Flags().GetString(flagChannel)
		title, _ := cmd.Flags().GetString(flagTitle)
		body, _ := cmd.Flags().GetString(flagBody)

		if _, err := models.ParseChannel(channel); err != nil {
			return err
		}

		resp, err := apiClient.Enqueue(context.Background(), types.NotificationRequest{
			RecipientID: recipient,
			Channel:     channel,
			Title:       title,
			Body:        body,
		})
		if err != nil {
			return fmt.Errorf("error queueing notification: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), resp)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show today's send counters of a recipient",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)
		raw, _ := cmd.Flags().GetString(flagChannel)

		var channel models.Channel
		if raw != "" {
			ch, err := models.ParseChannel(raw)
			if err != nil {
				return err
			}
			channel = ch
		}

		stats, err := apiClient.GetStats(context.Background(), recipient, channel)
		if err != nil {
			return fmt.Errorf("error getting stats: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), stats)
	},
}
