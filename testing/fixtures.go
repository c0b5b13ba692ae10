// Package testing provides test utilities and database setup for testing the dispatch engine
package testing

import (
	"encoding/json"
	"fmt"
	"math/rand"

	"github.com/farhadmsg/blastline/models"
	"github.com/farhadmsg/blastline/utils"
	"github.com/google/uuid"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestCustomer creates an active customer with the given credit balances
func (tf *TestFixtures) CreateTestCustomer(smsCredit, whatsappCredit uint64) (*models.Customer, error) {
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	customer := &models.Customer{
		UUID:           uuid.New(),
		Name:           "Test Customer",
		Email:          fmt.Sprintf("customer.%s@example.com", randomDigits),
		Phone:          fmt.Sprintf("+989%s", randomDigits),
		SMSCredit:      smsCredit,
		WhatsAppCredit: whatsappCredit,
		IsActive:       true,
	}

	if err := tf.DB.DB.Create(customer).Error; err != nil {
		return nil, fmt.Errorf("failed to create test customer: %w", err)
	}
	return customer, nil
}

// CreateTestGateway creates an active SMS gateway. A nil customer ID makes it
// a shared default gateway.
func (tf *TestFixtures) CreateTestGateway(customerID *uint, isDefault bool) (*models.Gateway, error) {
	creds, err := json.Marshal(models.GatewayCredentials{
		BaseURL: "http://sms.test.local",
		APIKey:  "test-key",
		Sender:  "5000",
	})
	if err != nil {
		return nil, err
	}

	gateway := &models.Gateway{
		Name:        fmt.Sprintf("test-gateway-%d", rand.Intn(100000)),
		Credentials: creds,
		IsDefault:   isDefault,
		IsActive:    true,
		CustomerID:  customerID,
	}

	if err := tf.DB.DB.Create(gateway).Error; err != nil {
		return nil, fmt.Errorf("failed to create test gateway: %w", err)
	}
	return gateway, nil
}

// CreateTestDeviceSIM creates an active device SIM
func (tf *TestFixtures) CreateTestDeviceSIM(slot int) (*models.DeviceSIM, error) {
	sim := &models.DeviceSIM{
		DeviceName: "test-device",
		SlotNumber: slot,
		Number:     fmt.Sprintf("+9891%08d", rand.Intn(100000000)),
		Status:     models.DeviceSIMStatusActive,
	}

	if err := tf.DB.DB.Create(sim).Error; err != nil {
		return nil, fmt.Errorf("failed to create test device SIM: %w", err)
	}
	return sim, nil
}

// CreateTestWhatsAppGateway creates an active WhatsApp gateway in the given mode
func (tf *TestFixtures) CreateTestWhatsAppGateway(mode models.WhatsAppMode, customerID *uint) (*models.WhatsAppGateway, error) {
	gateway := &models.WhatsAppGateway{
		Name:     fmt.Sprintf("test-wa-%d", rand.Intn(100000)),
		Mode:     mode,
		IsActive: true,
	}
	switch mode {
	case models.WhatsAppModeBridge:
		gateway.SessionID = fmt.Sprintf("session-%d", rand.Intn(100000))
	case models.WhatsAppModeCloud:
		gateway.PhoneNumberID = fmt.Sprintf("%015d", rand.Intn(1000000000))
		gateway.AccessToken = "test-access-token"
	}
	gateway.CustomerID = customerID

	if err := tf.DB.DB.Create(gateway).Error; err != nil {
		return nil, fmt.Errorf("failed to create test WhatsApp gateway: %w", err)
	}
	return gateway, nil
}

// CreateTestTemplate creates a template bound to the given WhatsApp gateway
func (tf *TestFixtures) CreateTestTemplate(gatewayID uint, name string) (*models.WhatsAppTemplate, error) {
	template := &models.WhatsAppTemplate{
		Name:         name,
		LanguageCode: "en_US",
		GatewayID:    gatewayID,
	}

	if err := tf.DB.DB.Create(template).Error; err != nil {
		return nil, fmt.Errorf("failed to create test template: %w", err)
	}
	return template, nil
}

// CreateTestContactGroup creates a contact group with the given members.
// Each phone becomes one contact named after its index.
func (tf *TestFixtures) CreateTestContactGroup(customerID *uint, phones []string) (*models.ContactGroup, []*models.Contact, error) {
	group := &models.ContactGroup{
		Name:       fmt.Sprintf("test-group-%d", rand.Intn(100000)),
		CustomerID: customerID,
	}
	if err := tf.DB.DB.Create(group).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create test contact group: %w", err)
	}

	contacts := make([]*models.Contact, 0, len(phones))
	for i, phone := range phones {
		contact := &models.Contact{
			Name:       fmt.Sprintf("Contact %d", i+1),
			Phone:      phone,
			WhatsApp:   phone,
			GroupID:    group.ID,
			CustomerID: customerID,
		}
		if err := tf.DB.DB.Create(contact).Error; err != nil {
			return nil, nil, fmt.Errorf("failed to create test contact: %w", err)
		}
		contacts = append(contacts, contact)
	}

	return group, contacts, nil
}

// CreateTestMessageLog creates a message log in the given status
func (tf *TestFixtures) CreateTestMessageLog(customerID *uint, channel models.MessageChannel, status models.MessageStatus) (*models.MessageLog, error) {
	wordLength := utils.DefaultPlainWordLength

	row := &models.MessageLog{
		To:            fmt.Sprintf("+989%09d", rand.Intn(1000000000)),
		Message:       "test message body",
		Channel:       channel,
		Status:        status,
		Encoding:      models.MessageEncodingPlain,
		WordLength:    wordLength,
		InitiatedTime: utils.UTCNow(),
		CustomerID:    customerID,
	}

	if err := tf.DB.DB.Create(row).Error; err != nil {
		return nil, fmt.Errorf("failed to create test message log: %w", err)
	}
	return row, nil
}
