// Package mongo wraps driver sessions so a service can run a
// read-validate-write sequence atomically, most importantly the booking
// decision window.
package mongo

import (
	"context"
	"fmt"

	apperrors "lendly/pkg/errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionFunc is the body of a transaction. Every repository call inside
// it must use the session context it receives, or the call escapes the
// transaction.
type TransactionFunc func(ctx mongo.SessionContext) error

// TransactionManager runs a TransactionFunc transactionally. Domain errors
// raised inside the body come back unchanged so callers can map them to
// responses; driver failures are wrapped.
type TransactionManager interface {
	ExecuteTransaction(ctx context.Context, fn TransactionFunc) error
}

type mongoTransactionManager struct {
	client *mongo.Client
}

func NewTransactionManager(client *mongo.Client) TransactionManager {
	return &mongoTransactionManager{
		client: client,
	}
}

func (m *mongoTransactionManager) ExecuteTransaction(ctx context.Context, fn TransactionFunc) error {
	session, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (any, error) {
		return nil, fn(sessCtx)
	})

	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}
