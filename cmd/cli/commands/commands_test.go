package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valura/notification/internal/db/models"
	"github.com/valura/notification/internal/types"
	"github.com/valura/notification/pkg/api/v1/client"
)

// fakeClient answers the calls the commands make and records their arguments
type fakeClient struct {
	client.Client

	listParams   client.ListParams
	recipient    string
	enqueued     types.NotificationRequest
	initReq      types.InitPreferenceRequest
	statsChannel models.Channel
}

func (f *fakeClient) ListNotifications(_ context.Context, p client.ListParams) ([]models.Notification, error) {
	f.listParams = p
	return []models.Notification{{
		ID:          "n-1",
		RecipientID: "user-1",
		ChannelType: models.ChannelEmail,
		Status:      models.NotificationStatusDelivered,
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}}, nil
}

func (f *fakeClient) ListRecipientNotifications(_ context.Context, recipient string, p client.ListParams) ([]models.Notification, error) {
	f.recipient = recipient
	f.listParams = p
	return nil, nil
}

func (f *fakeClient) GetLatestNotification(_ context.Context, recipient string) (models.Notification, error) {
	f.recipient = recipient
	return models.Notification{ID: "n-2", RecipientID: recipient, Status: models.NotificationStatusBlocked}, nil
}

func (f *fakeClient) Enqueue(_ context.Context, req types.NotificationRequest) (types.EnqueueResponse, error) {
	f.enqueued = req
	return types.EnqueueResponse{MessageID: "msg-1", Channel: models.Channel(req.Channel), Status: types.EnqueueStatusQueued}, nil
}

func (f *fakeClient) GetStats(_ context.Context, recipient string, channel models.Channel) ([]types.StatsResponse, error) {
	f.recipient = recipient
	f.statsChannel = channel
	return []types.StatsResponse{{ChannelType: models.ChannelSMS, DailyCount: 2}}, nil
}

func (f *fakeClient) InitPreference(_ context.Context, req types.InitPreferenceRequest) (models.UserPreference, error) {
	f.initReq = req
	return models.UserPreference{RecipientID: req.RecipientID}, nil
}

func (f *fakeClient) DeletePreference(_ context.Context, recipient string) (bool, error) {
	f.recipient = recipient
	return true, nil
}

// run sets the flags on cmd and invokes it with a fake client
func run(t *testing.T, cmd *cobra.Command, flags map[string]string) (*fakeClient, string, error) {
	t.Helper()
	fake := &fakeClient{}
	apiClient = fake

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for name, value := range flags {
		require.NoError(t, cmd.Flags().Set(name, value), name)
	}

	var out bytes.Buffer
	cmd.SetOut(&out)
	err := cmd.RunE(cmd, nil)
	return fake, out.String(), err
}

func TestRootHasSubcommands(t *testing.T) {
	var names []string
	for _, c := range RootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "notifications")
	assert.Contains(t, names, "stats")
	assert.Contains(t, names, "preferences")

	var subNames []string
	for _, c := range notificationsCmd.Commands() {
		subNames = append(subNames, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "get", "latest", "send"}, subNames)
}

func TestListNotificationsCommand(t *testing.T) {
	fake, out, err := run(t, listNotificationsCmd, map[string]string{
		flagStatus: "delivered",
		flagPage:   "2",
	})
	require.NoError(t, err)
	assert.Equal(t, client.ListParams{Page: 2, Status: "delivered"}, fake.listParams)

	var got notificationListOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Notifications, 1)
	assert.Equal(t, "n-1", got.Notifications[0].ID)
	assert.Equal(t, "2025-06-01 12:00:00", got.Notifications[0].Created)

	fake, _, err = run(t, listNotificationsCmd, map[string]string{flagRecipient: "user-9"})
	require.NoError(t, err)
	assert.Equal(t, "user-9", fake.recipient)

	_, _, err = run(t, listNotificationsCmd, map[string]string{flagPage: "0"})
	require.Error(t, err)
}

func TestLatestNotificationCommand(t *testing.T) {
	fake, out, err := run(t, latestNotificationCmd, map[string]string{flagRecipient: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", fake.recipient)
	assert.Contains(t, out, `"status": "blocked"`)
}

func TestSendNotificationCommand(t *testing.T) {
	fake, out, err := run(t, sendNotificationCmd, map[string]string{
		flagRecipient: "user-1",
		flagChannel:   "sms",
		flagBody:      "code 1234",
	})
	require.NoError(t, err)
	assert.Equal(t, types.NotificationRequest{RecipientID: "user-1", Channel: "sms", Body: "code 1234"}, fake.enqueued)
	assert.Contains(t, out, "msg-1")

	_, _, err = run(t, sendNotificationCmd, map[string]string{
		flagRecipient: "user-1",
		flagChannel:   "fax",
		flagBody:      "x",
	})
	require.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	fake, out, err := run(t, statsCmd, map[string]string{flagRecipient: "user-1", flagChannel: "SMS"})
	require.NoError(t, err)
	assert.Equal(t, models.ChannelSMS, fake.statsChannel)
	assert.Contains(t, out, `"daily_count": 2`)
}

func TestPreferenceCommands(t *testing.T) {
	_, _, err := run(t, initPreferenceCmd, map[string]string{flagRecipient: "user-1"})
	require.Error(t, err)

	fake, _, err := run(t, initPreferenceCmd, map[string]string{
		flagRecipient: "user-1",
		flagEmail:     "u1@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, types.InitPreferenceRequest{RecipientID: "user-1", Email: "u1@example.com"}, fake.initReq)

	fake, out, err := run(t, deletePreferenceCmd, map[string]string{flagRecipient: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "user-1", fake.recipient)
	assert.Contains(t, out, `"deleted": true`)
}
