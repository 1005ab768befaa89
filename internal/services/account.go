package services

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"net/mail"
	"strconv"
	"time"

	"github.com/murmurapp/murmur-backend/internal/apperr"
	"github.com/murmurapp/murmur-backend/internal/models"
	"github.com/murmurapp/murmur-backend/internal/store"
	"github.com/murmurapp/murmur-backend/pkg/utils"
)

// VerifyCodeTTL is how long a registration code stays valid.
const VerifyCodeTTL = 60 * time.Minute

// AccountService owns registration, email verification and sign-in checks.
type AccountService struct {
	store  store.UserStore
	mailer EmailSender
	now    func() time.Time
}

func NewAccountService(s store.UserStore, mailer EmailSender) *AccountService {
	return &AccountService{store: s, mailer: mailer, now: time.Now}
}

// generateVerifyCode returns a uniformly random 6-digit code in
// [100000, 999999]; the range excludes a leading zero by construction.
func generateVerifyCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// Register creates an account in the unverified state, issues a verification
// code valid for one hour, and emails it to the registrant.
//
// Uniqueness policy: a username or email held by a verified account blocks
// registration. An unverified holder does not: the stale registration is
// replaced in place with a fresh secret, code and expiry.
func (s *AccountService) Register(ctx context.Context, username, email, password string) error {
	if err := utils.ValidateUsername(username); err != nil {
		return apperr.E(apperr.InvalidInput, err.Error())
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return apperr.E(apperr.InvalidInput, "Invalid email")
	}
	// ParseAddress accepts display-name forms; only the bare address is
	// stored and probed for uniqueness.
	email = addr.Address
	if len(password) < utils.MinPasswordLength {
		return apperr.E(apperr.InvalidInput, "Password must be at least 6 characters")
	}

	existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to check existing users", err)
	}
	if existing != nil && existing.IsVerified {
		return apperr.E(apperr.AlreadyExists, "User already exists")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to hash password", err)
	}

	code, err := generateVerifyCode()
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to generate verification code", err)
	}

	now := s.now()
	user := &models.User{
		CreatedAt:            now,
		UpdatedAt:            now,
		Username:             username,
		Email:                email,
		Password:             hashed,
		VerifyCode:           code,
		VerifyCodeExpiration: now.Add(VerifyCodeTTL),
		IsVerified:           false,
		IsAcceptingMessages:  true,
		Messages:             []models.Message{},
	}

	if existing != nil {
		// Stale unverified registration: take the slot over.
		user.CreatedAt = existing.CreatedAt
		err = s.store.Replace(ctx, existing.ID, user)
	} else {
		err = s.store.Insert(ctx, user)
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to create user", err)
	}

	// The account record stays even if the email fails; re-registering the
	// same username re-issues the code.
	if err := s.mailer.SendVerificationCode(email, username, code); err != nil {
		return apperr.Wrap(apperr.DependencyFailure, "Failed to send verification email", err)
	}

	return nil
}

// VerifyCode validates a submitted code. The check order is fixed:
// existence, already-verified, code match, expiry. Expiry is evaluated at
// validation time and a submission at or after the deadline fails.
func (s *AccountService) VerifyCode(ctx context.Context, username, code string) error {
	user, err := s.store.FindByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.E(apperr.NotFound, "User not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to look up user", err)
	}

	if user.IsVerified {
		return apperr.E(apperr.AlreadyVerified, "User is already verified")
	}
	if user.VerifyCode != code {
		return apperr.E(apperr.CodeMismatch, "Codes do not match")
	}
	if !s.now().Before(user.VerifyCodeExpiration) {
		return apperr.E(apperr.CodeExpired, "Code has expired. Please sign up again.")
	}

	if err := s.store.MarkVerified(ctx, user.ID); err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to verify account", err)
	}
	return nil
}

// CheckUsername reports whether a username is free. Only verified accounts
// count as taken; an unverified squatter is replaced at registration.
func (s *AccountService) CheckUsername(ctx context.Context, username string) error {
	if err := utils.ValidateUsername(username); err != nil {
		return apperr.E(apperr.InvalidInput, err.Error())
	}

	_, err := s.store.FindVerifiedByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Wrap(apperr.PersistenceFailure, "Failed to check username", err)
	}
	return apperr.E(apperr.AlreadyExists, "Username already taken")
}

// Authenticate resolves an identifier (username or email) and password to an
// account. Unverified accounts cannot sign in.
func (s *AccountService) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	user, err := s.store.FindByIdentifier(ctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.E(apperr.Unauthenticated, "Invalid username/email or password")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.PersistenceFailure, "Failed to look up user", err)
	}

	if !user.IsVerified {
		return nil, apperr.E(apperr.NotVerified, "Please verify your account before signing in")
	}

	valid, err := utils.VerifyPassword(password, user.Password)
	if err != nil || !valid {
		return nil, apperr.E(apperr.Unauthenticated, "Invalid username/email or password")
	}

	return user, nil
}
