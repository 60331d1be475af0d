package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"github.com/Affo25/Ecoomerce-apis/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AdminStore struct {
	mu     sync.RWMutex
	admins []models.Admin
}

func NewAdminStore() *AdminStore {
	return &AdminStore{}
}

func (s *AdminStore) Insert(_ context.Context, a *models.Admin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.admins {
		if existing.Username == a.Username || strings.EqualFold(existing.Email, a.Email) {
			return apperrors.Conflict("Username or email already registered", apperrors.ErrDuplicateKey)
		}
	}
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	s.admins = append(s.admins, *a)
	return nil
}

func (s *AdminStore) FindByLogin(_ context.Context, login string) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.admins {
		if a.Username == login || strings.EqualFold(a.Email, login) {
			c := a
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Admin not found")
}

func (s *AdminStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.admins {
		if a.ID == id {
			c := a
			return &c, nil
		}
	}
	return nil, apperrors.NotFound("Admin not found")
}

func (s *AdminStore) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.admins)), nil
}
