package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackmathlogic/hackmath/internal/db"
	"github.com/hackmathlogic/hackmath/internal/rbac"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLastAdmin          = errors.New("cannot demote the last admin")
	ErrInvalidRole        = errors.New("invalid role")
)

type Account struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	IsAdmin   bool      `json:"is_admin"`
	Role      string    `json:"role"` // empty when the profile is missing
	CreatedAt time.Time `json:"created_at"`
}

// AccountPatch holds the fields an admin may change. Nil means unchanged.
type AccountPatch struct {
	IsAdmin *bool
	Role    *string
}

type Accounts struct {
	db *sql.DB
}

func NewAccounts(dbh *sql.DB) *Accounts { return &Accounts{db: dbh} }

// Register creates a student account and its profile together.
func (s *Accounts) Register(ctx context.Context, username, password string) (Account, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Account{}, err
	}
	return s.create(ctx, username, string(hash), false)
}

// Bootstrap makes sure the configured admin exists. It never touches an
// existing account.
func (s *Accounts) Bootstrap(ctx context.Context, username, passHash string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, username).Scan(&one)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	if _, err := s.create(ctx, username, passHash, true); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Accounts) create(ctx context.Context, username, hash string, isAdmin bool) (Account, error) {
	acc := Account{Username: username, IsAdmin: isAdmin, Role: rbac.RoleStudent, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if isAdmin {
		acc.Role = rbac.RoleAdmin
	}
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, username).Scan(&one)
		if err == nil {
			return fmt.Errorf("%s: %w", username, ErrUsernameTaken)
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (username, password_hash, is_admin, created_at) VALUES ($1,$2,$3,$4) RETURNING id`,
			username, hash, isAdmin, acc.CreatedAt.Unix()).Scan(&acc.ID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO user_profiles (user_id, role) VALUES ($1,$2)`, acc.ID, acc.Role)
		return err
	})
	if err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Login checks the password and returns the account.
func (s *Accounts) Login(ctx context.Context, username, password string) (Account, error) {
	var id int64
	var hash string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, password_hash FROM users WHERE username=$1`, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	if err != nil {
		return Account{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return Account{}, ErrInvalidCredentials
	}
	return s.Get(ctx, id)
}

func (s *Accounts) Get(ctx context.Context, id int64) (Account, error) {
	return getAccount(ctx, s.db, id)
}

// Update applies an admin patch. Granting is_admin re-syncs the profile role
// to admin; a missing profile is recreated.
func (s *Accounts) Update(ctx context.Context, id int64, p AccountPatch) (Account, error) {
	if p.Role != nil && !rbac.ValidRole(*p.Role) {
		return Account{}, fmt.Errorf("%q: %w", *p.Role, ErrInvalidRole)
	}
	var out Account
	err := db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		cur, err := getAccount(ctx, tx, id)
		if err != nil {
			return err
		}
		next := cur
		if p.IsAdmin != nil {
			next.IsAdmin = *p.IsAdmin
		}
		if p.Role != nil {
			next.Role = *p.Role
		}
		if next.IsAdmin {
			next.Role = rbac.RoleAdmin
		}
		if next.Role == "" {
			next.Role = rbac.RoleStudent
		}

		if cur.Role == rbac.RoleAdmin && next.Role != rbac.RoleAdmin {
			var admins int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(1) FROM user_profiles WHERE role=$1`, rbac.RoleAdmin).Scan(&admins); err != nil {
				return err
			}
			if admins <= 1 {
				return ErrLastAdmin
			}
		}

		if _, err := tx.ExecContext(ctx, `UPDATE users SET is_admin=$1 WHERE id=$2`, next.IsAdmin, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE user_profiles SET role=$1 WHERE user_id=$2`, next.Role, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_profiles (user_id, role) VALUES ($1,$2)`, id, next.Role); err != nil {
				return err
			}
		}
		out = next
		return nil
	})
	return out, err
}

func getAccount(ctx context.Context, q db.Queryer, id int64) (Account, error) {
	var a Account
	var role sql.NullString
	var created int64
	err := q.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.is_admin, u.created_at, p.role
		  FROM users u
		  LEFT JOIN user_profiles p ON p.user_id=u.id
		 WHERE u.id=$1`, id).Scan(&a.ID, &a.Username, &a.IsAdmin, &created, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Account{}, err
	}
	a.Role = role.String
	a.CreatedAt = time.Unix(created, 0).UTC()
	return a, nil
}

// List returns accounts ordered by username, optionally only those with role.
func (s *Accounts) List(ctx context.Context, role string) ([]Account, error) {
	q := `SELECT u.id, u.username, u.is_admin, u.created_at, p.role
	        FROM users u
	        LEFT JOIN user_profiles p ON p.user_id=u.id`
	args := []any{}
	if role != "" {
		q += ` WHERE p.role=$1`
		args = append(args, role)
	}
	rows, err := s.db.QueryContext(ctx, q+` ORDER BY u.username`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Account{}
	for rows.Next() {
		var a Account
		var r sql.NullString
		var created int64
		if err := rows.Scan(&a.ID, &a.Username, &a.IsAdmin, &created, &r); err != nil {
			return nil, err
		}
		a.Role = r.String
		a.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// ChangePassword replaces the password after checking the current one.
func (s *Accounts) ChangePassword(ctx context.Context, id int64, oldPassword, newPassword string) error {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte(oldPassword)) != nil {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `UPDATE users SET password_hash=$1 WHERE id=$2`, string(hash), id)
	return err
}
