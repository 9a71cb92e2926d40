// Package services contains server-side business logic. This file implements
// UserService, which handles accounts, login, issuing and rotating JWTs plus
// server-stored refresh tokens, and password changes.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/erpadmin/internal/common"
	"github.com/dmitrijs2005/erpadmin/internal/cryptox"
	"github.com/dmitrijs2005/erpadmin/internal/dbx"
	"github.com/dmitrijs2005/erpadmin/internal/server/auth"
	"github.com/dmitrijs2005/erpadmin/internal/server/config"
	"github.com/dmitrijs2005/erpadmin/internal/server/models"
	"github.com/dmitrijs2005/erpadmin/internal/server/repositories/repomanager"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Profile is the public view of a user.
type Profile struct {
	ID          string
	Username    string
	FullName    string
	Email       string
	Roles       []string
	Permissions []string
}

// UserService provides authentication-related operations:
// - Register / EnsureUser: create users
// - Login: verify credentials and mint tokens
// - RefreshToken: rotate refresh tokens and mint new access tokens
// - Logout: revoke a refresh token
// - Profile / ChangePassword: act on the authenticated user
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	now                          func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		now:                          time.Now,
	}
}

// Register creates a user with the given password.
func (s *UserService) Register(ctx context.Context, user *models.User, password []byte) (*models.User, error) {
	if user.UserName == "" {
		return nil, fmt.Errorf("%w: username must not be empty", common.ErrorValidation)
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("%w: password must not be empty", common.ErrorValidation)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	user.PasswordHash = hash

	u, err := s.repomanager.Users(s.db).Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}
	return u, nil
}

// EnsureUser registers user unless an account with that name exists. It
// reports whether a user was created.
func (s *UserService) EnsureUser(ctx context.Context, user *models.User, password []byte) (bool, error) {
	_, err := s.repomanager.Users(s.db).GetUserByLogin(ctx, user.UserName)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, fmt.Errorf("error looking up user: %w", err)
	}
	if _, err := s.Register(ctx, user, password); err != nil {
		return false, err
	}
	return true, nil
}

// Login verifies password against the stored hash and, on success, returns
// a new TokenPair.
func (s *UserService) Login(ctx context.Context, userName string, password []byte) (*TokenPair, error) {
	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByLogin(ctx, userName)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	return s.generateTokenPair(ctx, user, s.db)
}

// RefreshToken validates a refresh token, rotates it transactionally, and
// returns a fresh TokenPair. Unknown tokens yield ErrorUnauthorized, expired
// ones ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var (
		pair    *TokenPair
		expired bool
	)
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		token, err := repo.Find(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		// a concurrent rotation may have consumed the token since Find
		if err := repo.Delete(ctx, refreshToken); err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if token.ExpiredAt(s.now()) {
			// commit the purge
			expired = true
			return nil
		}

		user, err := s.repomanager.Users(tx).GetUserByID(ctx, token.UserID)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrorUnauthorized
			}
			return fmt.Errorf("error loading user: %w", err)
		}
		pair, err = s.generateTokenPair(ctx, user, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}
	return pair, nil
}

// Logout revokes refreshToken. Unknown tokens are not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Profile returns the user with permissions derived from their roles.
func (s *UserService) Profile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.repomanager.Users(s.db).GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	return &Profile{
		ID:          user.ID,
		Username:    user.UserName,
		FullName:    user.FullName,
		Email:       user.Email,
		Roles:       user.Roles,
		Permissions: PermissionsFor(user.Roles),
	}, nil
}

// ChangePassword replaces the password of userID after checking the current
// one. Input problems are reported as ErrorValidation.
func (s *UserService) ChangePassword(ctx context.Context, userID string, current, next, confirm []byte) error {
	if len(next) == 0 {
		return fmt.Errorf("%w: new password must not be empty", common.ErrorValidation)
	}
	if string(next) != string(confirm) {
		return fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}

	repo := s.repomanager.Users(s.db)
	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorUnauthorized
		}
		return common.ErrorInternal
	}

	ok, err := cryptox.VerifyPassword(current, user.PasswordHash)
	if err != nil {
		return common.ErrorInternal
	}
	if !ok {
		return fmt.Errorf("%w: current password is incorrect", common.ErrorValidation)
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return common.ErrorInternal
	}
	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// --- helpers below ---

func (s *UserService) generateAccessToken(user *models.User) (string, error) {
	sub := auth.Subject{UserID: user.ID, Username: user.UserName, Roles: user.Roles}
	return auth.GenerateToken(sub, s.jwtSecret, s.accessTokenValidityDuration, s.now())
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, user *models.User, tx dbx.DBTX) (*TokenPair, error) {
	access, err := s.generateAccessToken(user)
	if err != nil {
		return nil, common.ErrorInternal
	}
	refresh, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}
	refreshRepo := s.repomanager.RefreshTokens(tx)
	if err := refreshRepo.Create(ctx, user.ID, refresh, s.refreshTokenValidityDuration); err != nil {
		return nil, common.ErrorInternal
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.accessTokenValidityDuration}, nil
}
