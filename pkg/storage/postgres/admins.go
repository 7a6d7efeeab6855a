package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

const adminColumns = "id, password, phone_number, role, created_at, updated_at"

// AdminRepository implements storage.AdminRepository
type AdminRepository struct {
	db *sql.DB
}

func NewAdminRepository(db *sql.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func scanAdmin(row rowScanner) (*models.Admin, error) {
	var a models.Admin
	if err := row.Scan(&a.ID, &a.Password, &a.PhoneNumber, &a.Role, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AdminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = uuid.NewString()
	}
	if admin.CreatedAt.IsZero() {
		admin.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO admins (id, password, phone_number, role, created_at) VALUES ($1, $2, $3, $4, $5)`,
		admin.ID, admin.Password, admin.PhoneNumber, admin.Role, admin.CreatedAt,
	)
	if err != nil {
		return createError("admin", err)
	}
	return nil
}

func (r *AdminRepository) Get(ctx context.Context, id string) (*models.Admin, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE id = $1", id)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, getError("Admin", err)
	}
	return a, nil
}

func (r *AdminRepository) GetByPhoneNumber(ctx context.Context, phoneNumber string) (*models.Admin, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+adminColumns+" FROM admins WHERE phone_number = $1", phoneNumber)
	a, err := scanAdmin(row)
	if err != nil {
		return nil, getError("Admin", err)
	}
	return a, nil
}

func (r *AdminRepository) CountByRole(ctx context.Context, role models.AdminRole) (int64, error) {
	var n int64
	err := conn(ctx, r.db).QueryRowContext(ctx, "SELECT COUNT(*) FROM admins WHERE role = $1", role).Scan(&n)
	if err != nil {
		return 0, serverError("failed to count admins", err)
	}
	return n, nil
}

func (r *AdminRepository) List(ctx context.Context, query storage.AdminQuery) (*storage.Page[models.Admin], error) {
	q := conn(ctx, r.db)
	w := &where{}
	if query.Role != nil {
		w.eq("role", string(*query.Role))
	}
	w.filter(query.Filter)

	total, err := count(ctx, q, "admins", w)
	if err != nil {
		return nil, serverError("failed to list admins", err)
	}

	stmt, args := w.page("SELECT "+adminColumns+" FROM admins", query.PageParams)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, serverError("failed to list admins", err)
	}
	defer rows.Close()

	var admins []models.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, serverError("failed to scan admin", err)
		}
		admins = append(admins, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate admins", err)
	}

	return storage.NewPage(admins, total, query.PageParams), nil
}

func (r *AdminRepository) Patch(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	s := &setter{}
	if patch.PhoneNumber != nil {
		s.set("phone_number", *patch.PhoneNumber)
	}
	if patch.Role != nil {
		s.set("role", *patch.Role)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "admins", id, "Admin"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *AdminRepository) ChangePassword(ctx context.Context, id, passwordHash string) error {
	s := &setter{}
	s.set("password", passwordHash)
	s.set("updated_at", utcNow())
	return s.update(ctx, conn(ctx, r.db), "admins", id, "Admin")
}

func (r *AdminRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "admins", id, "Admin")
}
