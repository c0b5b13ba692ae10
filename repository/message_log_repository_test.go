package repository

import (
	"context"
	"testing"
	"time"

	"github.com/farhadmsg/blastline/models"
	testingutil "github.com/farhadmsg/blastline/testing"
	"github.com/farhadmsg/blastline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewMessageLogRepository(testDB.DB)
		ctx := context.Background()

		t.Run("ListDueReturnsOldestFirst", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			now := utils.UTCNow()

			newer, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusPending)
			require.NoError(t, err)
			older, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusScheduled)
			require.NoError(t, err)
			future, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusScheduled)
			require.NoError(t, err)
			terminal, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusDelivered)
			require.NoError(t, err)

			require.NoError(t, testDB.DB.Model(newer).Update("initiated_time", now.Add(-time.Minute)).Error)
			require.NoError(t, testDB.DB.Model(older).Update("initiated_time", now.Add(-time.Hour)).Error)
			require.NoError(t, testDB.DB.Model(future).Update("initiated_time", now.Add(time.Hour)).Error)
			require.NoError(t, testDB.DB.Model(terminal).Update("initiated_time", now.Add(-time.Hour)).Error)

			due, err := repo.ListDue(ctx, now, 10)
			require.NoError(t, err)
			require.Len(t, due, 2)
			assert.Equal(t, older.ID, due[0].ID)
			assert.Equal(t, newer.ID, due[1].ID)
		})

		t.Run("ListDueHonorsLimit", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())
			now := utils.UTCNow()

			for i := 0; i < 5; i++ {
				row, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusPending)
				require.NoError(t, err)
				require.NoError(t, testDB.DB.Model(row).Update("initiated_time", now.Add(-time.Minute)).Error)
			}

			due, err := repo.ListDue(ctx, now, 3)
			require.NoError(t, err)
			assert.Len(t, due, 3)
		})

		t.Run("TransitionStatusIsGuarded", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			row, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusPending)
			require.NoError(t, err)

			won, err := repo.TransitionStatus(ctx, row.ID,
				[]models.MessageStatus{models.MessageStatusPending, models.MessageStatusScheduled},
				models.MessageStatusProcessing, nil)
			require.NoError(t, err)
			assert.True(t, won)

			// The row left the expected set, so a second claim loses.
			won, err = repo.TransitionStatus(ctx, row.ID,
				[]models.MessageStatus{models.MessageStatusPending, models.MessageStatusScheduled},
				models.MessageStatusProcessing, nil)
			require.NoError(t, err)
			assert.False(t, won)

			var reloaded models.MessageLog
			require.NoError(t, testDB.DB.First(&reloaded, row.ID).Error)
			assert.Equal(t, models.MessageStatusProcessing, reloaded.Status)
		})

		t.Run("TransitionStatusAppliesExtraUpdates", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			row, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusProcessing)
			require.NoError(t, err)

			now := utils.UTCNow()
			won, err := repo.TransitionStatus(ctx, row.ID,
				[]models.MessageStatus{models.MessageStatusProcessing},
				models.MessageStatusDelivered,
				map[string]any{
					"response_gateway": `{"status":"OK"}`,
					"delivered_at":     now,
				})
			require.NoError(t, err)
			assert.True(t, won)

			var reloaded models.MessageLog
			require.NoError(t, testDB.DB.First(&reloaded, row.ID).Error)
			assert.Equal(t, models.MessageStatusDelivered, reloaded.Status)
			require.NotNil(t, reloaded.ResponseGateway)
			assert.Equal(t, `{"status":"OK"}`, *reloaded.ResponseGateway)
			require.NotNil(t, reloaded.DeliveredAt)
			assert.WithinDuration(t, now, *reloaded.DeliveredAt, time.Second)
		})

		t.Run("ByFilterAndCount", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(0, 0)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMessageLog(&customer.ID, models.MessageChannelSMS, models.MessageStatusDelivered)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMessageLog(&customer.ID, models.MessageChannelWhatsApp, models.MessageStatusFailed)
			require.NoError(t, err)
			_, err = fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusDelivered)
			require.NoError(t, err)

			ch := models.MessageChannelSMS
			count, err := repo.Count(ctx, models.MessageLogFilter{Channel: &ch})
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			rows, err := repo.ByFilter(ctx, models.MessageLogFilter{CustomerID: &customer.ID}, 10, 0)
			require.NoError(t, err)
			assert.Len(t, rows, 2)

			count, err = repo.Count(ctx, models.MessageLogFilter{AdminOnly: true})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("DeleteRemovesRow", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			row, err := fixtures.CreateTestMessageLog(nil, models.MessageChannelSMS, models.MessageStatusPending)
			require.NoError(t, err)

			require.NoError(t, repo.Delete(ctx, row.ID))
			loaded, err := repo.ByID(ctx, row.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})

		return nil
	})
	require.NoError(t, err)
}
