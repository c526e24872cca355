package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valura/notification/internal/types"
)

// Preference flag names
const (
	flagEmail     = "email"
	flagPushToken = "push-token"
	flagPhone     = "phone"
)

func init() {
	preferencesCmd.AddCommand(initPreferenceCmd)
	preferencesCmd.AddCommand(getPreferenceCmd)
	preferencesCmd.AddCommand(deletePreferenceCmd)

	initPreferenceCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	initPreferenceCmd.Flags().StringP(flagEmail, "e", "", "Email address to enable the email channel")
	initPreferenceCmd.Flags().String(flagPushToken, "", "Device token to enable the push channel")
	initPreferenceCmd.Flags().String(flagPhone, "", "Phone number (E.164) to enable the sms channel")
	_ = initPreferenceCmd.MarkFlagRequired(flagRecipient)

	getPreferenceCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	_ = getPreferenceCmd.MarkFlagRequired(flagRecipient)

	deletePreferenceCmd.Flags().StringP(flagRecipient, "r", "", "Recipient ID")
	_ = deletePreferenceCmd.MarkFlagRequired(flagRecipient)
}

// GetPreferencesCmd returns the preferences command
func GetPreferencesCmd() *cobra.Command {
	return preferencesCmd
}

var preferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Manage recipient channel preferences",
}

var initPreferenceCmd = &cobra.Command{
	Use:   "init",
	Short: "Replace a preference with one enabled channel per supplied address",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)
		email, _ := cmd.Flags().GetString(flagEmail)
		pushToken, _ := cmd.Flags().GetString(flagPushToken)
		phone, _ := cmd.Flags().GetString(flagPhone)

		if email == "" && pushToken == "" && phone == "" {
			return fmt.Errorf("at least one of --%s, --%s or --%s is required", flagEmail, flagPushToken, flagPhone)
		}

		p, err := apiClient.InitPreference(context.Background(), types.InitPreferenceRequest{
			RecipientID: recipient,
			Email:       email,
			PushToken:   pushToken,
			Phone:       phone,
		})
		if err != nil {
			return fmt.Errorf("error initializing preference: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var getPreferenceCmd = &cobra.Command{
	Use:   "get",
	Short: "Get the preference of a recipient",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)

		p, err := apiClient.GetPreference(context.Background(), recipient)
		if err != nil {
			return fmt.Errorf("error getting preference: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), p)
	},
}

var deletePreferenceCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the preference of a recipient",
	RunE: func(cmd *cobra.Command, _ []string) error {
		recipient, _ := cmd.Flags().GetString(flagRecipient)

		deleted, err := apiClient.DeletePreference(context.Background(), recipient)
		if err != nil {
			return fmt.Errorf("error deleting preference: %w", err)
		}
		return printJSON(cmd.OutOrStdout(), types.DeleteResponse{Deleted: deleted})
	},
}
