package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"github.com/Affo25/Ecoomerce-apis/validation"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	roleAdmin         = "admin"
	// firstAdminCounter is claimed once by the keyless first registration.
	firstAdminCounter = "admin-first-registration"
)

type AdminRepository interface {
	Insert(ctx context.Context, a *models.Admin) error
	FindByLogin(ctx context.Context, login string) (*models.Admin, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Admin, error)
	Count(ctx context.Context) (int64, error)
}

// Sequence hands out strictly increasing values per name.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	// Login is a username or an email address.
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	Token string        `json:"token"`
	Admin *models.Admin `json:"admin"`
}

type AdminService struct {
	repo            AdminRepository
	seq             Sequence
	gateway         *Gateway
	registrationKey string
	logger          *slog.Logger
	cost            int
	now             func() time.Time
}

// NewAdminService returns the admin account service. Only one keyless
// registration is ever accepted, gated through seq; after that registration
// requires registrationKey and an empty key closes it.
func NewAdminService(repo AdminRepository, seq Sequence, gateway *Gateway, registrationKey string, logger *slog.Logger) *AdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdminService{
		repo:            repo,
		seq:             seq,
		gateway:         gateway,
		registrationKey: registrationKey,
		logger:          logger,
		cost:            bcrypt.DefaultCost,
		now:             func() time.Time { return time.Now().UTC() },
	}
}

func (s *AdminService) Register(ctx context.Context, req RegisterRequest, key string) (*Session, error) {
	first, err := s.allowRegistration(ctx, key)
	if err != nil {
		return nil, err
	}

	admin := models.Admin{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Role:      roleAdmin,
		CreatedAt: s.now(),
	}
	err = validation.Struct(admin)
	if utf8.RuneCountInString(req.Password) < minPasswordLength {
		err = withDetail(err, "password must be at least 8 characters long")
	}
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	admin.Password = string(hash)

	if first {
		if err := s.claimFirstRegistration(ctx, key); err != nil {
			return nil, err
		}
	}
	if err := s.repo.Insert(ctx, &admin); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateKey) {
			return nil, apperrors.Conflict("Username or email already registered", err)
		}
		return nil, storeError(err)
	}

	s.logger.Info("Admin registered", "id", admin.ID.Hex(), "username", admin.Username)
	return s.session(&admin)
}

// allowRegistration reports whether the request takes the keyless first-admin
// path. A valid key always passes without it.
func (s *AdminService) allowRegistration(ctx context.Context, key string) (bool, error) {
	if s.keyMatches(key) {
		return false, nil
	}
	n, err := s.repo.Count(ctx)
	if err != nil {
		return false, storeError(err)
	}
	if n == 0 {
		return true, nil
	}
	return false, keyError(key)
}

// claimFirstRegistration lets exactly one concurrent keyless registration
// through. If the insert after a claim fails, registration needs the key.
func (s *AdminService) claimFirstRegistration(ctx context.Context, key string) error {
	n, err := s.seq.Next(ctx, firstAdminCounter)
	if err != nil {
		return storeError(err)
	}
	if n != 1 {
		s.logger.Warn("Rejected concurrent first admin registration", "claim", n)
		return keyError(key)
	}
	return nil
}

func (s *AdminService) keyMatches(key string) bool {
	return key != "" && s.registrationKey != "" &&
		subtle.ConstantTimeCompare([]byte(key), []byte(s.registrationKey)) == 1
}

func keyError(key string) error {
	if key == "" {
		return apperrors.Unauthorized(apperrors.ReasonMissing, "Registration key required")
	}
	return apperrors.Unauthorized(apperrors.ReasonInvalid, "Invalid registration key")
}

// Login accepts a username or email with the account password.
func (s *AdminService) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	login := strings.TrimSpace(req.Login)
	if login == "" {
		login = strings.TrimSpace(req.Username)
	}
	if login == "" {
		login = strings.TrimSpace(req.Email)
	}
	if login == "" || req.Password == "" {
		return nil, apperrors.Validation("Login and password are required")
	}

	admin, err := s.repo.FindByLogin(ctx, login)
	if apperrors.Is(err, apperrors.KindNotFound) {
		return nil, apperrors.Unauthorized(apperrors.ReasonInvalid, "Invalid credentials")
	}
	if err != nil {
		return nil, storeError(err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Unauthorized(apperrors.ReasonInvalid, "Invalid credentials")
	}

	s.logger.Info("Admin signed in", "id", admin.ID.Hex())
	return s.session(admin)
}

// Profile returns the admin behind a verified identity.
func (s *AdminService) Profile(ctx context.Context, id Identity) (*models.Admin, error) {
	oid, err := primitive.ObjectIDFromHex(id.AdminID)
	if err != nil {
		return nil, apperrors.Unauthorized(apperrors.ReasonInvalid, "Admin ID not found in token")
	}
	admin, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, storeError(err)
	}
	return admin, nil
}

func (s *AdminService) session(admin *models.Admin) (*Session, error) {
	token, err := s.gateway.Issue(Identity{
		AdminID:  admin.ID.Hex(),
		Username: admin.Username,
		Role:     admin.Role,
	})
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, Admin: admin}, nil
}

func withDetail(err error, detail string) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Kind == apperrors.KindValidation {
		appErr.Details = append(appErr.Details, detail)
		return appErr
	}
	return apperrors.Validation("Validation failed", detail)
}

func storeError(err error) error {
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Upstream("Admin store unavailable", err)
}
