package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var ErrOrderNotFound = errors.New("order not found")

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	ListByUserID(ctx context.Context, userID string) ([]domain.Order, error)
	ListByEmail(ctx context.Context, email string) ([]domain.Order, error)
	GetByNumberAndEmail(ctx context.Context, orderNumber, email string) (*domain.Order, error)
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{MigrationsTable: "orders_schema_migrations"})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// DB exposes the pool for other read models living in the same database.
func (r *Repository) DB() *sql.DB {
	return r.db
}

const orderColumns = `id, order_number, user_id, customer_email, total_amount, currency, status, created_at, updated_at`

// ListByUserID returns the user's orders, newest first.
func (r *Repository) ListByUserID(ctx context.Context, userID string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
}

// ListByEmail matches the customer email case-insensitively, newest first.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE LOWER(customer_email) = LOWER($1)
		ORDER BY created_at DESC
	`, email)
}

func (r *Repository) GetByNumberAndEmail(ctx context.Context, orderNumber, email string) (*domain.Order, error) {
	orders, err := r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE order_number = $1 AND LOWER(customer_email) = LOWER($2)
	`, orderNumber, email)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var (
		orders []domain.Order
		ids    []string
	)
	for rows.Next() {
		var (
			o      domain.Order
			userID sql.NullString
			status string
		)
		err := rows.Scan(
			&o.ID,
			&o.OrderNumber,
			&userID,
			&o.CustomerEmail,
			&o.TotalAmount,
			&o.Currency,
			&status,
			&o.CreatedAt,
			&o.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if userID.Valid {
			o.UserID = &userID.String
		}
		o.Status = domain.OrderStatus(status)
		orders = append(orders, o)
		ids = append(ids, o.ID.String())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	if len(orders) == 0 {
		return nil, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = items[orders[i].ID]
	}
	return orders, nil
}

func (r *Repository) itemsFor(ctx context.Context, orderIDs []string) (map[uuid.UUID][]domain.OrderItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, name, variant_ref, quantity, price
		FROM order_items
		WHERE order_id = ANY($1::uuid[])
		ORDER BY id
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem)
	for rows.Next() {
		var (
			orderID uuid.UUID
			it      domain.OrderItem
		)
		if err := rows.Scan(&orderID, &it.Name, &it.VariantRef, &it.Quantity, &it.Price); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	return items, rows.Err()
}
