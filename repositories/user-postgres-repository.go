package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"taskboard-service/logging"
	"taskboard-service/models"

	_ "github.com/lib/pq"
)

// PostgresConfig holds the DB_* connection settings.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func ConnectPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	logging.Logger.Infof("Event ID: POSTGRES_CONNECTED, Description: Connected to PostgreSQL %s:%s/%s", cfg.Host, cfg.Port, cfg.Name)
	return db, nil
}

// UserPostgresRepo resolves users from a SQL users table
// (id, username, name, last_name, is_active).
type UserPostgresRepo struct {
	db *sql.DB
}

func NewUserPostgresRepo(db *sql.DB) *UserPostgresRepo {
	return &UserPostgresRepo{db: db}
}

func (r *UserPostgresRepo) Lookup(ctx context.Context, userID string) (*models.User, error) {
	var (
		user           models.User
		name, lastName sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, name, last_name FROM users WHERE id = $1 AND is_active`,
		userID,
	).Scan(&user.ID, &user.Username, &name, &lastName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NotFoundError("user %s not found", userID)
		}
		return nil, fmt.Errorf("lookup user %s: %w", userID, err)
	}
	user.DisplayName = strings.TrimSpace(name.String + " " + lastName.String)
	return &user, nil
}
