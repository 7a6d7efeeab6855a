package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

const userColumns = "id, password, image_path, phone_number, email, created_at, updated_at"

// UserRepository implements storage.UserRepository
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Password, &u.ImagePath, &u.PhoneNumber, &u.Email, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts the user, assigning an id and creation time when unset
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (id, password, image_path, phone_number, email, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Password, user.ImagePath, user.PhoneNumber, user.Email, user.CreatedAt,
	)
	if err != nil {
		return createError("user", err)
	}
	return nil
}

func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		return nil, getError("User", err)
	}
	return u, nil
}

func (r *UserRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE phone_number = $1", phoneNumber)
	u, err := scanUser(row)
	if err != nil {
		return nil, getError("User", err)
	}
	return u, nil
}

func (r *UserRepository) List(ctx context.Context, query storage.UserQuery) (*storage.Page[models.User], error) {
	q := conn(ctx, r.db)
	w := &where{}
	w.filter(query.Filter)

	total, err := count(ctx, q, "users", w)
	if err != nil {
		return nil, serverError("failed to list users", err)
	}

	stmt, args := w.page("SELECT "+userColumns+" FROM users", query.PageParams)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, serverError("failed to list users", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, serverError("failed to scan user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate users", err)
	}

	return storage.NewPage(users, total, query.PageParams), nil
}

func (r *UserRepository) Patch(ctx context.Context, id string, patch models.UserPatch) (*models.User, error) {
	s := &setter{}
	if patch.PhoneNumber != nil {
		s.set("phone_number", *patch.PhoneNumber)
	}
	if patch.Email != nil {
		s.set("email", *patch.Email)
	}
	if patch.ImagePath != nil {
		s.set("image_path", *patch.ImagePath)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "users", id, "User"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *UserRepository) ChangePassword(ctx context.Context, id, passwordHash string) error {
	s := &setter{}
	s.set("password", passwordHash)
	s.set("updated_at", utcNow())
	return s.update(ctx, conn(ctx, r.db), "users", id, "User")
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "users", id, "User")
}
