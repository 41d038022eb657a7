package customer

import (
	"context"
	"errors"

	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Connector runs fn on a connection that is released when fn returns
type Connector interface {
	WithConnection(ctx context.Context, fn func(conn *gorm.DB) error) error
}

// Manager handles the database operations relating to Customers.
// Every method runs exactly one statement on its own connection.
type Manager struct {
	conns  Connector
	logger *zap.Logger
}

// NewManager returns a new Manager for customers, creating the table if it is absent
func NewManager(ctx context.Context, logger *zap.Logger, conns Connector) (*Manager, error) {
	m := &Manager{
		conns:  conns,
		logger: logger,
	}
	if err := m.Bootstrap(ctx); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initilize customer.Manager")
	}
	return m, nil
}

// Bootstrap creates the customers table if it does not exist yet. It is safe to run repeatedly.
func (m *Manager) Bootstrap(ctx context.Context) error {
	return m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		stmt, err := createTableStatement(conn.Dialector.Name())
		if err != nil {
			return err
		}
		if err := conn.Exec(stmt).Error; err != nil {
			m.logger.Error("Database returned error",
				zap.Error(err),
			)
			return extErrors.Wrap(err, "Cannot create customers table")
		}
		return nil
	})
}

// Create inserts cust. Any id set by the caller is ignored; on success cust.ID holds the id
// assigned by the storage engine.
func (m *Manager) Create(ctx context.Context, cust *Customer) error {
	cust.ID = 0
	return m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Create(cust)
		if result.Error != nil {
			m.logger.Error("Unable to create new customer in database",
				zap.Error(result.Error),
			)
			return extErrors.Wrap(result.Error, "Cannot create customer")
		}
		return nil
	})
}

// List returns every customer in storage order
func (m *Manager) List(ctx context.Context) ([]Customer, error) {
	results := make([]Customer, 0)
	err := m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Find(&results)
		if result.Error != nil {
			m.logger.Error("Database returned error",
				zap.Error(result.Error),
			)
			return extErrors.Wrap(result.Error, "Cannot list customers")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Get returns the customer with id, or nil if there is none
func (m *Manager) Get(ctx context.Context, id int) (*Customer, error) {
	var cust Customer
	var found bool
	err := m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Where("id = ?", id).Take(&cust)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil
		}
		if result.Error != nil {
			m.logger.Error("Database returned error",
				zap.Error(result.Error),
			)
			return extErrors.Wrap(result.Error, "Cannot get customer by id")
		}
		found = true
		return nil
	})
	if err != nil || !found {
		return nil, err
	}
	return &cust, nil
}

// Update overwrites every column except id of the row with id. It returns the number of rows
// affected; zero is not an error.
func (m *Manager) Update(ctx context.Context, id int, cust *Customer) (int64, error) {
	var affected int64
	err := m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Model(&Customer{}).
			Where("id = ?", id).
			Select("name", "country_of_birth", "country_of_residence", "segment").
			Updates(map[string]interface{}{
				"name":                 cust.Name,
				"country_of_birth":     cust.CountryOfBirth,
				"country_of_residence": cust.CountryOfResidence,
				"segment":              cust.Segment,
			})
		if result.Error != nil {
			m.logger.Error("Database returned error",
				zap.Error(result.Error),
			)
			return extErrors.Wrap(result.Error, "Cannot update customer")
		}
		affected = result.RowsAffected
		return nil
	})
	return affected, err
}

// Delete removes the row with id if it exists and returns the number of rows removed
func (m *Manager) Delete(ctx context.Context, id int) (int64, error) {
	var affected int64
	err := m.conns.WithConnection(ctx, func(conn *gorm.DB) error {
		result := conn.Where("id = ?", id).Delete(&Customer{})
		if result.Error != nil {
			m.logger.Error("Database returned error",
				zap.Error(result.Error),
			)
			return extErrors.Wrap(result.Error, "Cannot delete customer")
		}
		affected = result.RowsAffected
		return nil
	})
	return affected, err
}
