package users

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgauth "github.com/bazarmoz/bazar-backend/pkg/auth"
	"github.com/bazarmoz/bazar-backend/pkg/auth/session"
	"github.com/bazarmoz/bazar-backend/pkg/config"
	"github.com/bazarmoz/bazar-backend/pkg/db"
	"github.com/bazarmoz/bazar-backend/pkg/db/models"
	"github.com/bazarmoz/bazar-backend/pkg/enums"
	pkgerrors "github.com/bazarmoz/bazar-backend/pkg/errors"
	"github.com/bazarmoz/bazar-backend/pkg/outbox"
	"github.com/bazarmoz/bazar-backend/pkg/outbox/payloads"
	"github.com/bazarmoz/bazar-backend/pkg/security"
)

const invalidCredentialsMessage = "invalid credentials"

const referralCodeAttempts = 5

// Service defines the behavior needed by the auth and profile controllers.
type Service interface {
	Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	Profile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error)
	UpdateLocation(ctx context.Context, userID uuid.UUID, req UpdateLocationRequest) error
}

// UserStore is the persistence surface the service depends on.
type UserStore interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByReferralCode(ctx context.Context, code string) (*models.User, error)
	CreditReferral(ctx context.Context, id uuid.UUID, bonus decimal.Decimal) (*models.User, error)
	UpdateLocation(ctx context.Context, id uuid.UUID, lat, lng float64) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string) error
	Revoke(ctx context.Context, accessID string) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ordersCounter interface {
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

// ServiceParams bundles the dependencies required to build a users service.
type ServiceParams struct {
	TxRunner       txRunner
	Repo           UserStore
	RepoFactory    func(tx *gorm.DB) UserStore
	Session        sessionManager
	Outbox         outboxEmitter
	Orders         ordersCounter
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ReferralConfig config.ReferralConfig
}

type service struct {
	tx          txRunner
	repo        UserStore
	repoFactory func(tx *gorm.DB) UserStore
	session     sessionManager
	outbox      outboxEmitter
	orders      ordersCounter
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	referralCfg config.ReferralConfig
	bonus       decimal.Decimal
}

// NewService constructs a users service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Session == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter is required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders counter is required")
	}
	factory := params.RepoFactory
	if factory == nil {
		factory = func(tx *gorm.DB) UserStore { return NewRepository(tx) }
	}
	if params.ReferralConfig.CodeLength <= 0 {
		params.ReferralConfig.CodeLength = 8
	}
	if params.ReferralConfig.BonusAmount == "" {
		params.ReferralConfig.BonusAmount = "100"
	}
	bonus, err := decimal.NewFromString(params.ReferralConfig.BonusAmount)
	if err != nil {
		return nil, fmt.Errorf("parse referral bonus %q: %w", params.ReferralConfig.BonusAmount, err)
	}
	if bonus.IsNegative() {
		return nil, fmt.Errorf("referral bonus must not be negative")
	}
	return &service{
		tx:          params.TxRunner,
		repo:        params.Repo,
		repoFactory: factory,
		session:     params.Session,
		outbox:      params.Outbox,
		orders:      params.Orders,
		jwtCfg:      params.JWTConfig,
		passwordCfg: params.PasswordConfig,
		referralCfg: params.ReferralConfig,
		bonus:       bonus,
	}, nil
}

func (s *service) Signup(ctx context.Context, req SignupRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if req.Password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password is required")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repoFactory(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		var referrer *models.User
		if code := strings.TrimSpace(req.ReferralCode); code != "" {
			referrer, err = repo.FindByReferralCode(ctx, code)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeValidation, "unknown referral code")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve referral code")
			}
			if strings.EqualFold(referrer.Email, email) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cannot use your own referral code")
			}
		}

		referralCode, err := s.freeReferralCode(ctx, repo)
		if err != nil {
			return err
		}

		user := &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			ReferralCode: referralCode,
		}
		if referrer != nil {
			id := referrer.ID
			user.ReferredBy = &id
		}
		created, err = repo.Create(ctx, user)
		if err != nil {
			// The pre-insert lookups race with concurrent signups; the unique
			// indexes are the source of truth.
			if db.IsUniqueViolation(err, "ux_users_email") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			if db.IsUniqueViolation(err, "ux_users_referral_code") {
				return pkgerrors.New(pkgerrors.CodeConflict, "referral code taken, retry signup")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		if referrer != nil {
			credited, err := repo.CreditReferral(ctx, referrer.ID, s.bonus)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "credit referrer")
			}
			event := outbox.DomainEvent{
				EventType:     enums.EventReferralCredited,
				AggregateType: enums.AggregateUser,
				AggregateID:   credited.ID,
				Actor:         &outbox.ActorRef{UserID: created.ID, Email: created.Email},
				Data: payloads.ReferralCreditedEvent{
					ReferrerID:    credited.ID,
					ReferredID:    created.ID,
					ReferralCode:  credited.ReferralCode,
					BonusAmount:   s.bonus.StringFixed(2),
					ReferralCount: credited.ReferralCount,
				},
				Version: 1,
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "emit referral event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.issueSession(ctx, created)
}

func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}

	valid, err := security.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !valid {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
	}

	now := time.Now()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record login")
	}
	user.LastLoginAt = &now

	return s.issueSession(ctx, user)
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "access id is required")
	}
	if err := s.session.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}

func (s *service) Profile(ctx context.Context, userID uuid.UUID) (*ProfileResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	count, err := s.orders.CountByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count orders")
	}
	return &ProfileResponse{User: FromModel(user), OrderCount: count}, nil
}

func (s *service) UpdateLocation(ctx context.Context, userID uuid.UUID, req UpdateLocationRequest) error {
	if !validCoordinate(req.Latitude, 90) || !validCoordinate(req.Longitude, 180) {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid coordinates")
	}
	if err := s.repo.UpdateLocation(ctx, userID, req.Latitude, req.Longitude); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save location")
	}
	return nil
}

func (s *service) issueSession(ctx context.Context, user *models.User) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	token, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	if err := s.session.Generate(ctx, accessID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store session")
	}
	return &AuthResponse{AccessToken: token, User: FromModel(user)}, nil
}

func (s *service) freeReferralCode(ctx context.Context, repo UserStore) (string, error) {
	for attempt := 0; attempt < referralCodeAttempts; attempt++ {
		code, err := security.GenerateReferralCode(s.referralCfg.CodeLength)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate referral code")
		}
		_, err = repo.FindByReferralCode(ctx, code)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return code, nil
		}
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check referral code")
		}
	}
	return "", pkgerrors.New(pkgerrors.CodeInternal, "could not allocate referral code")
}

func validCoordinate(v, bound float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= -bound && v <= bound
}
