package controller

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"freesend/models"
)

func TestConfigurationSetName(t *testing.T) {
	assert.Equal(t, "freesend-example-com", ConfigurationSetName("example.com"))
	assert.Equal(t, "freesend-mail-example-co-uk", ConfigurationSetName("mail.example.co.uk"))
}

func newDomainTestApp(t *testing.T, db *gorm.DB, user *models.User) *fiber.App {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	dc := NewDomainController(db, &fakeDelivery{}, nil, "us-east-1", logger)

	app := fiber.New()
	app.Post("/domains", func(c *fiber.Ctx) error {
		c.Locals("user", user)
		return dc.CreateDomain(c)
	})
	return app
}

func postDomain(t *testing.T, app *fiber.App, name string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/domains", strings.NewReader(`{"name":"`+name+`"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestCreateDomainPersistsPendingDomain(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	app := newDomainTestApp(t, db, &user)
	resp := postDomain(t, app, "Example.COM")
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var domain models.Domain
	require.NoError(t, db.Where("name = ?", "example.com").First(&domain).Error)
	assert.Equal(t, models.DomainStatusPending, domain.Status)
	assert.Equal(t, "token-example.com", domain.VerificationToken)
	assert.Equal(t, "freesend-example-com", domain.SESConfigurationSet)
	// verification TXT, MX, SPF, DMARC plus one CNAME per DKIM token
	assert.Len(t, domain.DNSRecords, 7)
}

func TestCreateDomainExistingNameReturnsConflict(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	app := newDomainTestApp(t, db, &user)
	require.Equal(t, fiber.StatusCreated, postDomain(t, app, "example.com").StatusCode)
	assert.Equal(t, fiber.StatusConflict, postDomain(t, app, "example.com").StatusCode)
}

func TestCreateDomainInsertConflictReturnsConflict(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	// A soft-deleted row still occupies the unique index but is invisible to
	// the pre-insert lookup, so the insert itself hits the constraint, the
	// same way the loser of two concurrent registrations does.
	ghost := models.Domain{UserID: user.ID, Name: "example.com", Status: models.DomainStatusPending}
	require.NoError(t, db.Create(&ghost).Error)
	require.NoError(t, db.Delete(&ghost).Error)

	app := newDomainTestApp(t, db, &user)
	assert.Equal(t, fiber.StatusConflict, postDomain(t, app, "example.com").StatusCode)
}

func TestDuplicateDomainInsertTranslatesToDuplicatedKey(t *testing.T) {
	db := newTestDB(t)
	user := models.User{Email: "owner@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)

	first := models.Domain{UserID: user.ID, Name: "example.com", Status: models.DomainStatusPending}
	require.NoError(t, db.Create(&first).Error)

	second := models.Domain{UserID: user.ID, Name: "example.com", Status: models.DomainStatusPending}
	err := db.Create(&second).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
