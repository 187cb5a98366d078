package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/outbox"
	"github.com/bazarmoz/bazar-backend/pkg/outbox/payloads"
	"github.com/bazarmoz/bazar-backend/pkg/security"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserStore struct {
	byEmail map[string]*models.User
	byCode  map[string]*models.User
	created *models.User
}

func newStubUserStore() *stubUserStore {
	return &stubUserStore{
		byEmail: map[string]*models.User{},
		byCode:  map[string]*models.User{},
	}
}

func (s *stubUserStore) add(user *models.User) {
	s.byEmail[user.Email] = user
	s.byCode[user.ReferralCode] = user
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New()
	s.add(user)
	s.created = user
	return user, nil
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) FindByReferralCode(ctx context.Context, code string) (*models.User, error) {
	if user, ok := s.byCode[code]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserStore) CreditReferral(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) (*models.User, error) {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.ReferralCount++
	user.AvailableDiscount = user.AvailableDiscount.Add(bonus)
	return user, nil
}

func (s *stubUserStore) UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.LocationLatitude = &lat
	user.LocationLongitude = &lng
	return nil
}

func (s *stubUserStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	user, err := s.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.LastLoginAt = &at
	return nil
}

type stubSessionManager struct {
	generated []string
	revoked   []string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) error {
	s.generated = append(s.generated, accessID)
	return nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubOrdersCounter struct {
	count int64
}

func (s stubOrdersCounter) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.count, nil
}

type usersTestSetup struct {
	service Service
	store   *stubUserStore
	session *stubSessionManager
	emitter *stubEmitter
}

func newUsersTestSetup(t *testing.T, orderCount int64) *usersTestSetup {
	t.Helper()
	store := newStubUserStore()
	sess := &stubSessionManager{}
	emitter := &stubEmitter{}
	svc, err := NewService(ServiceParams{
		TxRunner:    stubTxRunner{},
		Repo:        store,
		RepoFactory: func(tx *gorm.DB) UserStore { return store },
		Session:     sess,
		Outbox:      emitter,
		Orders:      stubOrdersCounter{count: orderCount},
		JWTConfig: config.JWTConfig{
			Secret:            "users-test-secret",
			Issuer:            "bazar-test",
			ExpirationMinutes: 15,
		},
		ReferralConfig: config.ReferralConfig{BonusAmount: "100", CodeLength: 8},
	})
	require.NoError(t, err)
	return &usersTestSetup{service: svc, store: store, session: sess, emitter: emitter}
}

func TestSignupCreatesAccountAndSession(t *testing.T) {
	setup := newUsersTestSetup(t, 0)

	resp, err := setup.service.Signup(context.Background(), SignupRequest{
		Name:     "Carlos Sitoe",
		Email:    "Carlos@Example.com",
		Password: "segredo123",
	})
	require.NoError(t, err)

	require.NotNil(t, setup.store.created)
	assert.Equal(t, "carlos@example.com", setup.store.created.Email)
	assert.Len(t, setup.store.created.ReferralCode, 8)
	assert.Nil(t, setup.store.created.ReferredBy)

	valid, err := security.VerifyPassword("segredo123", setup.store.created.PasswordHash)
	require.NoError(t, err)
	assert.True(t, valid)

	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, "carlos@example.com", resp.User.Email)
	assert.Len(t, setup.session.generated, 1)
	assert.Empty(t, setup.emitter.events)
}

func TestSignupCreditsReferrer(t *testing.T) {
	setup := newUsersTestSetup(t, 0)
	referrer := &models.User{
		ID:                uuid.New(),
		Name:              "Ana Macamo",
		Email:             "ana@example.com",
		ReferralCode:      "ANACODE1",
		AvailableDiscount: decimal.NewFromInt(50),
	}
	setup.store.add(referrer)

	_, err := setup.service.Signup(context.Background(), SignupRequest{
		Name:         "Carlos Sitoe",
		Email:        "carlos@example.com",
		Password:     "segredo123",
		ReferralCode: "ANACODE1",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, referrer.ReferralCount)
	assert.True(t, referrer.AvailableDiscount.Equal(decimal.NewFromInt(150)),
		"got %s", referrer.AvailableDiscount)
	require.NotNil(t, setup.store.created.ReferredBy)
	assert.Equal(t, referrer.ID, *setup.store.created.ReferredBy)

	require.Len(t, setup.emitter.events, 1)
	event := setup.emitter.events[0]
	payload, ok := event.Data.(payloads.ReferralCreditedEvent)
	require.True(t, ok)
	assert.Equal(t, referrer.ID, payload.ReferrerID)
	assert.Equal(t, setup.store.created.ID, payload.ReferredID)
	assert.Equal(t, "100.00", payload.BonusAmount)
	assert.Equal(t, 1, payload.ReferralCount)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	setup := newUsersTestSetup(t, 0)
	setup.store.add(&models.User{
		ID:           uuid.New(),
		Email:        "taken@example.com",
		ReferralCode: "TAKEN123",
	})

	_, err := setup.service.Signup(context.Background(), SignupRequest{
		Name:     "Carlos Sitoe",
		Email:    "taken@example.com",
		Password: "segredo123",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

// racingUserStore passes the pre-insert lookups but fails the insert itself,
// mimicking a concurrent signup landing first on the unique index.
type racingUserStore struct {
	*stubUserStore
	createErr error
}

func (s *racingUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	return nil, s.createErr
}

func TestSignupMapsUniqueViolationToConflict(t *testing.T) {
	setup := newUsersTestSetup(t, 0)
	racing := &racingUserStore{
		stubUserStore: setup.store,
		createErr:     errors.New(`ERROR: duplicate key value violates unique constraint "ux_users_email" (SQLSTATE 23505)`),
	}
	svc, err := NewService(ServiceParams{
		TxRunner:       stubTxRunner{},
		Repo:           racing,
		RepoFactory:    func(tx *gorm.DB) UserStore { return racing },
		Session:        setup.session,
		Outbox:         setup.emitter,
		Orders:         stubOrdersCounter{},
		JWTConfig:      config.JWTConfig{Secret: "users-test-secret", Issuer: "bazar-test", ExpirationMinutes: 15},
		ReferralConfig: config.ReferralConfig{BonusAmount: "100", CodeLength: 8},
	})
	require.NoError(t, err)

	_, err = svc.Signup(context.Background(), SignupRequest{
		Name:     "Carlos Sitoe",
		Email:    "carlos@example.com",
		Password: "segredo123",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())

	racing.createErr = errors.New(`ERROR: duplicate key value violates unique constraint "ux_users_referral_code" (SQLSTATE 23505)`)
	_, err = svc.Signup(context.Background(), SignupRequest{
		Name:     "Carlos Sitoe",
		Email:    "carlos2@example.com",
		Password: "segredo123",
	})
	require.Error(t, err)
	coded = pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
}

func TestSignupRejectsUnknownAndSelfReferral(t *testing.T) {
	setup := newUsersTestSetup(t, 0)

	_, err := setup.service.Signup(context.Background(), SignupRequest{
		Name:         "Carlos Sitoe",
		Email:        "carlos@example.com",
		Password:     "segredo123",
		ReferralCode: "NOPE0000",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())

	// Referrer stored with a differently cased email still counts as self.
	setup.store.add(&models.User{
		ID:           uuid.New(),
		Email:        "Carlos@Example.com",
		ReferralCode: "SELF0001",
	})
	_, err = setup.service.Signup(context.Background(), SignupRequest{
		Name:         "Carlos Sitoe",
		Email:        "carlos@example.com",
		Password:     "segredo123",
		ReferralCode: "SELF0001",
	})
	require.Error(t, err)
	coded = pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
}

func TestLoginVerifiesPassword(t *testing.T) {
	setup := newUsersTestSetup(t, 0)
	hash, err := security.HashPassword("segredo123", config.PasswordConfig{})
	require.NoError(t, err)
	user := &models.User{
		ID:           uuid.New(),
		Name:         "Ana Macamo",
		Email:        "ana@example.com",
		PasswordHash: hash,
		ReferralCode: "ANACODE1",
	}
	setup.store.add(user)

	resp, err := setup.service.Login(context.Background(), LoginRequest{
		Email:    "ANA@example.com",
		Password: "segredo123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotNil(t, user.LastLoginAt)
	assert.Len(t, setup.session.generated, 1)

	_, err = setup.service.Login(context.Background(), LoginRequest{
		Email:    "ana@example.com",
		Password: "errada",
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeUnauthorized, coded.Code())
}

func TestLogoutRevokesSession(t *testing.T) {
	setup := newUsersTestSetup(t, 0)

	require.NoError(t, setup.service.Logout(context.Background(), "access-123"))
	assert.Equal(t, []string{"access-123"}, setup.session.revoked)

	err := setup.service.Logout(context.Background(), "  ")
	require.Error(t, err)
}

func TestProfileIncludesOrderCount(t *testing.T) {
	setup := newUsersTestSetup(t, 4)
	user := &models.User{
		ID:            uuid.New(),
		Name:          "Ana Macamo",
		Email:         "ana@example.com",
		ReferralCode:  "ANACODE1",
		ReferralCount: 2,
	}
	setup.store.add(user)

	profile, err := setup.service.Profile(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), profile.OrderCount)
	assert.Equal(t, "ANACODE1", profile.User.ReferralCode)
	assert.Equal(t, 2, profile.User.ReferralCount)

	_, err = setup.service.Profile(context.Background(), uuid.New())
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeNotFound, coded.Code())
}

func TestUpdateLocationValidatesCoordinates(t *testing.T) {
	setup := newUsersTestSetup(t, 0)
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ana@example.com",
		ReferralCode: "ANACODE1",
	}
	setup.store.add(user)

	err := setup.service.UpdateLocation(context.Background(), user.ID, UpdateLocationRequest{
		Latitude:  -125.0,
		Longitude: 32.5,
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	require.NotNil(t, coded)
	assert.Equal(t, pkgerrors.CodeValidation, coded.Code())
	assert.Nil(t, user.LocationLatitude)

	require.NoError(t, setup.service.UpdateLocation(context.Background(), user.ID, UpdateLocationRequest{
		Latitude:  -25.9653,
		Longitude: 32.5892,
	}))
	require.NotNil(t, user.LocationLatitude)
	assert.InDelta(t, -25.9653, *user.LocationLatitude, 1e-9)
}
