// Package repositories persists products, orders, admins and counters in
// MongoDB.
package repositories

import (
	"errors"

	"github.com/Affo25/Ecoomerce-apis/apperrors"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	adminsCollection   = "admins"
	countersCollection = "counters"
)

// mapError translates driver errors into the application taxonomy.
func mapError(err error, notFound, duplicate string) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound(notFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return apperrors.Conflict(duplicate, errors.Join(apperrors.ErrDuplicateKey, err))
	}
	return apperrors.Upstream("Database unavailable", err)
}
