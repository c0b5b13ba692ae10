package repository

import (
	"context"
	"testing"

	"github.com/farhadmsg/blastline/models"
	testingutil "github.com/farhadmsg/blastline/testing"
	"github.com/farhadmsg/blastline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		repo := NewCreditLogRepository(testDB.DB)
		ctx := context.Background()

		t.Run("DebitReducesBalanceAndSnapshotsIt", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)

			row, err := repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionDebit, 4, utils.GenerateTrxNumber(), "test debit", nil)
			require.NoError(t, err)
			assert.Equal(t, uint64(4), row.Amount)
			assert.Equal(t, uint64(6), row.PostBalance)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(6), reloaded.SMSCredit)
		})

		t.Run("DebitBeyondBalanceFails", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(3, 0)
			require.NoError(t, err)

			_, err = repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionDebit, 4, utils.GenerateTrxNumber(), "overdraw", nil)
			require.ErrorIs(t, err, ErrInsufficientCredit)

			// Balance untouched and no ledger row appended.
			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(3), reloaded.SMSCredit)
			var count int64
			require.NoError(t, testDB.DB.Model(&models.CreditLog{}).Count(&count).Error)
			assert.Zero(t, count)
		})

		t.Run("ChannelsHaveIndependentBalances", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(5, 2)
			require.NoError(t, err)

			_, err = repo.AdjustCredit(ctx, customer.ID, models.MessageChannelWhatsApp,
				models.CreditDirectionDebit, 2, utils.GenerateTrxNumber(), "whatsapp debit", nil)
			require.NoError(t, err)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(5), reloaded.SMSCredit)
			assert.Equal(t, uint64(0), reloaded.WhatsAppCredit)
		})

		t.Run("CreditRestoresBalance", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(0, 0)
			require.NoError(t, err)
			logRow, err := fixtures.CreateTestMessageLog(&customer.ID, models.MessageChannelSMS, models.MessageStatusFailed)
			require.NoError(t, err)

			row, err := repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionCredit, 2, utils.GenerateTrxNumber(), "refund", &logRow.ID)
			require.NoError(t, err)
			assert.Equal(t, uint64(2), row.PostBalance)

			byLog, err := repo.ByMessageLogID(ctx, logRow.ID)
			require.NoError(t, err)
			require.Len(t, byLog, 1)
			assert.Equal(t, models.CreditDirectionCredit, byLog[0].Direction)
		})

		t.Run("CreditForMissingCustomerFails", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			_, err := repo.AdjustCredit(ctx, 9999, models.MessageChannelSMS,
				models.CreditDirectionCredit, 1, utils.GenerateTrxNumber(), "orphan", nil)
			require.Error(t, err)
		})

		t.Run("ByTrxNumberFindsRow", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			trx := utils.GenerateTrxNumber()
			_, err = repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionDebit, 1, trx, "lookup", nil)
			require.NoError(t, err)

			row, err := repo.ByTrxNumber(ctx, trx)
			require.NoError(t, err)
			require.NotNil(t, row)
			assert.Equal(t, trx, row.TrxNumber)

			missing, err := repo.ByTrxNumber(ctx, "TRX-DOES-NOT-EXIST")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ListByCustomerNewestFirst", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			first, err := repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionDebit, 1, utils.GenerateTrxNumber(), "first", nil)
			require.NoError(t, err)
			second, err := repo.AdjustCredit(ctx, customer.ID, models.MessageChannelSMS,
				models.CreditDirectionDebit, 2, utils.GenerateTrxNumber(), "second", nil)
			require.NoError(t, err)

			rows, err := repo.ListByCustomer(ctx, customer.ID, 10, 0)
			require.NoError(t, err)
			require.Len(t, rows, 2)
			assert.Equal(t, second.ID, rows[0].ID)
			assert.Equal(t, first.ID, rows[1].ID)
		})

		return nil
	})
	require.NoError(t, err)
}
