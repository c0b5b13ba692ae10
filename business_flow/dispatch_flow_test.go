package businessflow

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/farhadmsg/blastline/app/dto"
	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/repository"
	testingutil "github.com/farhadmsg/blastline/testing"
	"github.com/farhadmsg/blastline/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDispatchFlowForTest(testDB *testingutil.TestDB) DispatchFlow {
	settingsRepo := repository.NewPlatformSettingsRepository(testDB.DB, nil)
	customerRepo := repository.NewCustomerRepository(testDB.DB)
	logRepo := repository.NewMessageLogRepository(testDB.DB)
	creditRepo := repository.NewCreditLogRepository(testDB.DB)
	contactRepo := repository.NewContactRepository(testDB.DB)
	gatewayRepo := repository.NewGatewayRepository(testDB.DB)
	simRepo := repository.NewDeviceSIMRepository(testDB.DB)
	waRepo := repository.NewWhatsAppGatewayRepository(testDB.DB)
	templateRepo := repository.NewWhatsAppTemplateRepository(testDB.DB)

	return NewDispatchFlow(
		testDB.DB,
		settingsRepo,
		customerRepo,
		logRepo,
		NewCreditLedger(testDB.DB, creditRepo),
		NewRecipientResolver(contactRepo, NewFileImporter()),
		NewContentRenderer(rand.New(rand.NewSource(42))),
		NewGatewaySelector(gatewayRepo, simRepo, waRepo, templateRepo),
	)
}

func TestDispatchFlow(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newDispatchFlowForTest(testDB)
		ctx := context.Background()
		metadata := NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("SMSViaAPIGatewayDebitsAndCreatesLogs", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			_, err = fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "sms",
				Message: "hello there",
				Numbers: "+989121234567, 989121234568",
			}, &customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Accepted)
			assert.Equal(t, uint64(2), resp.TotalUnits)
			assert.False(t, resp.Scheduled)
			assert.Len(t, resp.MessageLogIDs, 2)

			var logs []models.MessageLog
			require.NoError(t, testDB.DB.Order("id").Find(&logs).Error)
			require.Len(t, logs, 2)
			for _, row := range logs {
				assert.Equal(t, models.MessageStatusPending, row.Status)
				assert.Equal(t, models.MessageChannelSMS, row.Channel)
				assert.NotNil(t, row.APIGatewayID)
				require.NotNil(t, row.CustomerID)
				assert.Equal(t, customer.ID, *row.CustomerID)
			}
			assert.Equal(t, "989121234567", logs[0].To)
			assert.Equal(t, "989121234568", logs[1].To)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(8), reloaded.SMSCredit)

			var ledger []models.CreditLog
			require.NoError(t, testDB.DB.Find(&ledger).Error)
			require.Len(t, ledger, 1)
			assert.Equal(t, models.CreditDirectionDebit, ledger[0].Direction)
			assert.Equal(t, uint64(2), ledger[0].Amount)
			assert.Equal(t, uint64(8), ledger[0].PostBalance)
		})

		t.Run("InsufficientCreditLeavesNoLogs", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(1, 0)
			require.NoError(t, err)
			_, err = fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)

			_, err = flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "sms",
				Message: "hello",
				Numbers: "+989121234567;+989121234568",
			}, &customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsInsufficientCredit(err))

			var logCount int64
			require.NoError(t, testDB.DB.Model(&models.MessageLog{}).Count(&logCount).Error)
			assert.Zero(t, logCount)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(1), reloaded.SMSCredit)
		})

		t.Run("DeviceSIMRouteIsNotMetered", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(0, 0)
			require.NoError(t, err)
			sim, err := fixtures.CreateTestDeviceSIM(1)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "sms",
				Message: "device route",
				Numbers: "+989121234567",
				SIMID:   &sim.ID,
			}, &customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Accepted)

			var row models.MessageLog
			require.NoError(t, testDB.DB.First(&row).Error)
			require.NotNil(t, row.DeviceSIMID)
			assert.Equal(t, sim.ID, *row.DeviceSIMID)
			assert.False(t, row.Billed())

			var ledgerCount int64
			require.NoError(t, testDB.DB.Model(&models.CreditLog{}).Count(&ledgerCount).Error)
			assert.Zero(t, ledgerCount)
		})

		t.Run("SIMPoolRotatesAcrossRecipients", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			sim1, err := fixtures.CreateTestDeviceSIM(1)
			require.NoError(t, err)
			sim2, err := fixtures.CreateTestDeviceSIM(2)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel:    "sms",
				Message:    "pooled",
				Numbers:    "989111111111 989122222222 989133333333",
				UseSIMPool: true,
			}, nil, metadata)
			require.NoError(t, err)
			assert.Equal(t, 3, resp.Accepted)

			var logs []models.MessageLog
			require.NoError(t, testDB.DB.Order("id").Find(&logs).Error)
			require.Len(t, logs, 3)
			counts := map[uint]int{}
			for _, row := range logs {
				require.NotNil(t, row.DeviceSIMID)
				counts[*row.DeviceSIMID]++
			}
			assert.Equal(t, 2, counts[sim1.ID])
			assert.Equal(t, 1, counts[sim2.ID])
		})

		t.Run("ScheduleInPastRejected", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			_, err := fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)

			past := utils.UTCNow().Add(-2 * time.Hour)
			_, err = flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel:    "sms",
				Message:    "too late",
				Numbers:    "989121234567",
				ScheduleAt: &past,
			}, nil, metadata)
			require.Error(t, err)
			assert.True(t, IsScheduleTimeInPast(err))
		})

		t.Run("FutureScheduleCreatesScheduledLogs", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			_, err := fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)

			at := utils.UTCNow().Add(time.Hour)
			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel:    "sms",
				Message:    "see you later",
				Numbers:    "989121234567",
				ScheduleAt: &at,
			}, nil, metadata)
			require.NoError(t, err)
			assert.True(t, resp.Scheduled)

			var row models.MessageLog
			require.NoError(t, testDB.DB.First(&row).Error)
			assert.Equal(t, models.MessageStatusScheduled, row.Status)
			assert.Equal(t, models.ScheduleStatusScheduled, row.ScheduleStatus)
			assert.WithinDuration(t, at, row.InitiatedTime, time.Second)
		})

		t.Run("WhatsAppBridgeCarriesMediaAndDebitsWhatsAppCredit", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(0, 5)
			require.NoError(t, err)
			gw, err := fixtures.CreateTestWhatsAppGateway(models.WhatsAppModeBridge, nil)
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "whatsapp",
				Message: "look at this",
				Numbers: "989121234567",
				Media: &dto.MediaDTO{
					Type: "image",
					URL:  "https://cdn.example.com/pic.jpg",
					Name: "pic.jpg",
				},
			}, &customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Accepted)

			var row models.MessageLog
			require.NoError(t, testDB.DB.First(&row).Error)
			require.NotNil(t, row.WhatsAppGatewayID)
			assert.Equal(t, gw.ID, *row.WhatsAppGatewayID)
			media, err := row.Media()
			require.NoError(t, err)
			require.NotNil(t, media)
			assert.Equal(t, models.MediaTypeImage, media.Type)
			assert.Equal(t, "https://cdn.example.com/pic.jpg", media.URL)

			var reloaded models.Customer
			require.NoError(t, testDB.DB.First(&reloaded, customer.ID).Error)
			assert.Equal(t, uint64(4), reloaded.WhatsAppCredit)
		})

		t.Run("InactiveCustomerRejected", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			require.NoError(t, testDB.DB.Model(customer).Update("is_active", false).Error)

			_, err = flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "sms",
				Message: "hello",
				Numbers: "989121234567",
			}, &customer.ID, metadata)
			require.Error(t, err)
			assert.True(t, IsAccountInactive(err))
		})

		t.Run("GroupRecipientsRenderPerContact", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			_, err = fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)
			group, contacts, err := fixtures.CreateTestContactGroup(&customer.ID, []string{"989121110001", "989121110002"})
			require.NoError(t, err)

			resp, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel:  "sms",
				Message:  "hi {{name}}",
				GroupIDs: []uint{group.ID},
			}, &customer.ID, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Accepted)

			var logs []models.MessageLog
			require.NoError(t, testDB.DB.Order("id").Find(&logs).Error)
			require.Len(t, logs, 2)
			assert.Equal(t, "hi "+contacts[0].Name, logs[0].Message)
			assert.Equal(t, "hi "+contacts[1].Name, logs[1].Message)
			require.NotNil(t, logs[0].ContactID)
			assert.Equal(t, contacts[0].ID, *logs[0].ContactID)
		})

		t.Run("RawNumberRecipientsRenderTheirDestination", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			customer, err := fixtures.CreateTestCustomer(10, 0)
			require.NoError(t, err)
			_, err = fixtures.CreateTestGateway(nil, true)
			require.NoError(t, err)

			_, err = flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "sms",
				Message: "hi {{name}}",
				Numbers: "989121234567",
			}, &customer.ID, metadata)
			require.NoError(t, err)

			var logs []models.MessageLog
			require.NoError(t, testDB.DB.Find(&logs).Error)
			require.Len(t, logs, 1)
			assert.Equal(t, "hi 989121234567", logs[0].Message)
		})

		t.Run("InvalidChannelRejected", func(t *testing.T) {
			_, err := flow.Dispatch(ctx, &dto.DispatchRequest{
				Channel: "fax",
				Message: "hello",
				Numbers: "989121234567",
			}, nil, metadata)
			require.Error(t, err)
			assert.True(t, IsInvalidChannel(err))
		})

		return nil
	})
	require.NoError(t, err)
}
