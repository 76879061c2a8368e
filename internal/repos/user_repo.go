package repos

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"eshop/internal/domain"

	"github.com/jmoiron/sqlx"
)

const userCols = `id, first_name, last_name, email, password_hash, role, COALESCE(payment_customer_id,'') AS payment_customer_id`

type UserRepo struct{ DB *sqlx.DB }

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{DB: db} }

func (r *UserRepo) get(ctx context.Context, query string, args ...any) (*domain.User, error) {
	var u domain.User
	err := r.DB.GetContext(ctx, &u, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepo) ByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userCols+` FROM users WHERE email = LOWER(?)`, strings.TrimSpace(email))
}

func (r *UserRepo) ByID(ctx context.Context, id string) (*domain.User, error) {
	return r.get(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
}

// Create inserts a new account. Emails are stored lowercase and must be unique.
func (r *UserRepo) Create(ctx context.Context, u domain.User) error {
	_, err := r.DB.ExecContext(ctx, `
	  INSERT INTO users(id,first_name,last_name,email,password_hash,role)
	  VALUES(?,?,?,?,?,?)
	`, u.ID, u.FirstName, u.LastName, strings.ToLower(u.Email), u.Hash, u.Role)
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.email") {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *UserRepo) SetPaymentCustomer(ctx context.Context, userID, customerID string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE users SET payment_customer_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		customerID, userID)
	return err
}

func (r *UserRepo) BindSession(ctx context.Context, sid, userID string) error {
	_, err := r.DB.ExecContext(ctx, `INSERT INTO sessions(id,user_id,last_seen)
                          VALUES(?,?,CURRENT_TIMESTAMP)
                          ON CONFLICT(id) DO UPDATE SET user_id=excluded.user_id,last_seen=CURRENT_TIMESTAMP`, sid, userID)
	return err
}

func (r *UserRepo) SessionUser(ctx context.Context, sid string) (*domain.User, error) {
	return r.get(ctx, `
      SELECT u.id, u.first_name, u.last_name, u.email, u.password_hash, u.role,
             COALESCE(u.payment_customer_id,'') AS payment_customer_id
      FROM sessions s
      JOIN users u ON u.id = s.user_id
      WHERE s.id = ?`, sid)
}

func (r *UserRepo) UnbindSession(ctx context.Context, sid string) error {
	_, err := r.DB.ExecContext(ctx, `UPDATE sessions SET user_id=NULL,last_seen=CURRENT_TIMESTAMP WHERE id=?`, sid)
	return err
}
