package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"agencydesk/internal/domain"
)

// Queryer is satisfied by both *sql.DB and *sql.Tx.
type Queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Repo struct {
	DB Queryer
}

var ErrNotFound = errors.New("not found")

// WithTx returns a Repo bound to tx.
func (r Repo) WithTx(tx *sql.Tx) Repo {
	return Repo{DB: tx}
}

func insertID(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func mustAffect(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// exists reports whether a row with id is present in table. table is never user input.
func (r Repo) exists(ctx context.Context, table string, id int64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id=?`, table), id).Scan(&n)
	return n > 0, err
}

// ---- users ----

const userColumns = `id,email,name,role,created_at`

func scanUser(s interface{ Scan(...any) error }) (domain.User, error) {
	var u domain.User
	err := s.Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

func (r Repo) InsertUser(ctx context.Context, u domain.User) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO users(email,name,role,created_at) VALUES (?,?,?,?)`,
		strings.ToLower(u.Email), u.Name, u.Role, u.CreatedAt))
}

func (r Repo) GetUser(ctx context.Context, id int64) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (r Repo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email=?`, strings.ToLower(email)))
}

func (r Repo) UserExists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "users", id)
}

func (r Repo) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

// ---- clients ----

const clientColumns = `id,name,COALESCE(sector,''),status,created_at,updated_at`

func scanClient(s interface{ Scan(...any) error }) (domain.Client, error) {
	var c domain.Client
	err := s.Scan(&c.ID, &c.Name, &c.Sector, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	return c, err
}

func (r Repo) InsertClient(ctx context.Context, c domain.Client) (int64, error) {
	return insertID(r.DB.ExecContext(ctx, `INSERT INTO clients(name,sector,status,created_at,updated_at) VALUES (?,?,?,?,?)`,
		c.Name, nullable(c.Sector), c.Status, c.CreatedAt, c.UpdatedAt))
}

func (r Repo) GetClient(ctx context.Context, id int64) (domain.Client, error) {
	return scanClient(r.DB.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id=?`, id))
}

func (r Repo) ListClients(ctx context.Context) ([]domain.Client, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	res := []domain.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullableStr(v *string) any {
	if v == nil || *v == "" {
		return nil
	}
	return *v
}

func nullableInt(v *int64) any {
	if v == nil || *v <= 0 {
		return nil
	}
	return *v
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func intPtr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	v := ni.Int64
	return &v
}
