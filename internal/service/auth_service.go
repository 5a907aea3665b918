package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"token-ledger/internal/core/domain"
	"token-ledger/internal/core/ports"
	"token-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const minPasswordLength = 8

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	runner   *storeRunner
	hashSvc  ports.HashService
	tokenSvc ports.TokenService
	log      zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	store ports.RecordStore,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	cfg EngineConfig,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		runner:   newStoreRunner(store, cfg.MaxRetries, cfg.StoreTimeout, log),
		hashSvc:  hashSvc,
		tokenSvc: tokenSvc,
		log:      log,
	}
}

// Register creates an account with zero balances. The email index record is
// created in the same commit, so two registrations of one email cannot both
// succeed.
func (s *AuthServiceImpl) Register(ctx context.Context, req ports.RegisterRequest) (*domain.Account, error) {
	acc, err := s.newAccount(req, false)
	if err != nil {
		return nil, err
	}

	err = s.runner.run(ctx, "register", func(ctx context.Context, uow *unitOfWork) error {
		if _, err := lookupEmail(ctx, uow, acc.Email); err == nil {
			return apperror.ErrEmailExists()
		} else if !errors.Is(err, ports.ErrRecordNotFound) {
			return err
		}
		return stageNewAccount(uow, acc)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", acc.ID.String()).Msg("account registered")
	return acc, nil
}

// Login checks credentials and issues a bearer token.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (string, time.Time, error) {
	var acc *domain.Account
	err := s.runner.run(ctx, "login", func(ctx context.Context, uow *unitOfWork) error {
		idx, err := lookupEmail(ctx, uow, domain.NormalizeEmail(email))
		if err != nil {
			if errors.Is(err, ports.ErrRecordNotFound) {
				return apperror.ErrInvalidCredentials()
			}
			return err
		}
		acc, err = uow.loadAccount(ctx, idx.AccountID)
		if apperror.HasCode(err, apperror.CodeNotFound) {
			return apperror.ErrInvalidCredentials()
		}
		return err
	})
	if err != nil {
		return "", time.Time{}, err
	}

	valid, err := s.hashSvc.Verify(password, acc.PasswordHash)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !valid {
		return "", time.Time{}, apperror.ErrInvalidCredentials()
	}

	token, expiry, err := s.tokenSvc.Generate(acc.ID)
	if err != nil {
		return "", time.Time{}, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}
	return token, expiry, nil
}

// EnsureAdmin makes sure an operator account exists for req.Email. An existing
// account gets the admin capability; its password is left untouched.
func (s *AuthServiceImpl) EnsureAdmin(ctx context.Context, req ports.RegisterRequest) (*domain.Account, error) {
	fresh, err := s.newAccount(req, true)
	if err != nil {
		return nil, err
	}

	var (
		acc     *domain.Account
		created bool
	)
	err = s.runner.run(ctx, "ensure_admin", func(ctx context.Context, uow *unitOfWork) error {
		idx, err := lookupEmail(ctx, uow, fresh.Email)
		if errors.Is(err, ports.ErrRecordNotFound) {
			acc, created = fresh, true
			return stageNewAccount(uow, fresh)
		}
		if err != nil {
			return err
		}

		created = false
		acc, err = uow.loadAccount(ctx, idx.AccountID)
		if err != nil {
			return err
		}
		if acc.IsAdmin {
			return nil
		}
		acc.IsAdmin = true
		return uow.saveAccount(acc, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", acc.ID.String()).Bool("created", created).Msg("operator account ready")
	return acc, nil
}

func (s *AuthServiceImpl) newAccount(req ports.RegisterRequest, admin bool) (*domain.Account, error) {
	email := domain.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperror.Validation("a valid email is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, apperror.Validation(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = email[:strings.Index(email, "@")]
	}

	hash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	return &domain.Account{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
		Credits:      decimal.Zero,
		Holdings:     map[string]int64{},
		IsAdmin:      admin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func lookupEmail(ctx context.Context, uow *unitOfWork, email string) (*domain.EmailIndex, error) {
	var idx domain.EmailIndex
	if err := uow.load(ctx, ports.KindEmailIndex, email, &idx); err != nil {
		return nil, err
	}
	return &idx, nil
}

func stageNewAccount(uow *unitOfWork, acc *domain.Account) error {
	if err := uow.create(ports.KindAccount, acc.ID.String(), acc); err != nil {
		return err
	}
	return uow.create(ports.KindEmailIndex, acc.Email, &domain.EmailIndex{Email: acc.Email, AccountID: acc.ID})
}
