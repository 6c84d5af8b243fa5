package controller

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"freesend/models"
	"freesend/provider"
)

// newTestDB opens an in-memory database with the same schema and error
// translation the service runs with.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One shared connection keeps the in-memory database alive
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Domain{},
		&models.APIKey{},
		&models.EmailLog{},
		&models.WebhookEvent{},
	))
	return db
}

// fakeDelivery satisfies provider.DeliveryProvider for handler tests.
type fakeDelivery struct {
	status  string
	sendID  string
	sendErr error
}

func (f *fakeDelivery) VerifyDomain(_ context.Context, domain string) (string, error) {
	return "token-" + domain, nil
}

func (f *fakeDelivery) EnableDKIM(context.Context, string) ([]string, error) {
	return []string{"dkim1", "dkim2", "dkim3"}, nil
}

func (f *fakeDelivery) CreateConfigurationSet(context.Context, string) error { return nil }

func (f *fakeDelivery) VerificationStatus(context.Context, string) (string, error) {
	if f.status == "" {
		return models.DomainStatusPending, nil
	}
	return f.status, nil
}

func (f *fakeDelivery) DeleteDomain(context.Context, string, string) {}

func (f *fakeDelivery) Send(context.Context, *provider.OutboundEmail) (string, error) {
	if f.sendErr != nil {
		return "", f.sendErr
	}
	return f.sendID, nil
}
