package admins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

type recordingSMS struct{ texts []string }

func (r *recordingSMS) SendSMS(_ context.Context, _ string, text string) error {
	r.texts = append(r.texts, text)
	return nil
}

func newService(t *testing.T) (*Service, *recordingSMS) {
	t.Helper()
	db, err := postgres.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sms := &recordingSMS{}
	return NewService(Deps{
		Admins:    postgres.NewAdminRepository(db),
		Hasher:    auth.NewArgon2Hasher(auth.PasswordParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}),
		Tokens:    auth.NewTokenManager("test-secret", 0),
		SMS:       sms,
		Evaluator: rbac.NewEvaluator(nil),
	}), sms
}

func adminReq(phone string, role models.AdminRole) CreateRequest {
	return CreateRequest{PhoneNumber: phone, Password: "pw", ConfirmPassword: "pw", Role: role}
}

func TestSignupSuperAdmin_Singleton(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	root, err := svc.SignupSuperAdmin(ctx, "+998900000001", "pw", "pw")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleSuperAdmin, root.Role)

	_, err = svc.SignupSuperAdmin(ctx, "+998900000002", "pw", "pw")
	require.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, "Super Admin already exists", apperr.From(err).Message)

	_, err = svc.Create(ctx, root.ID, adminReq("+998900000003", models.AdminRoleSuperAdmin))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestSignin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.SignupSuperAdmin(ctx, "+998900000001", "pw", "pw")
	require.NoError(t, err)

	token, err := svc.Signin(ctx, SigninRequest{PhoneNumber: "+998900000001", Password: "pw"})
	require.NoError(t, err)

	_, err = svc.Tokens.Verify(token.AccessToken, auth.AudienceAdmin)
	assert.NoError(t, err)
	_, err = svc.Tokens.Verify(token.AccessToken, auth.AudienceUser)
	assert.Error(t, err)

	_, err = svc.Signin(ctx, SigninRequest{PhoneNumber: "+998900000001", Password: "bad"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestAdminPermissions(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	root, err := svc.SignupSuperAdmin(ctx, "+998900000001", "pw", "pw")
	require.NoError(t, err)

	a, err := svc.Create(ctx, root.ID, adminReq("+998900000002", models.AdminRoleAdmin))
	require.NoError(t, err)
	b, err := svc.Create(ctx, root.ID, adminReq("+998900000003", models.AdminRoleAdmin))
	require.NoError(t, err)

	_, err = svc.Create(ctx, a.ID, adminReq("+998900000004", models.AdminRoleAdmin))
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.List(ctx, a.ID, storage.AdminQuery{})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Get(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Get(ctx, a.ID, a.ID)
	assert.NoError(t, err)

	me, err := svc.Me(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, me.ID)

	role := models.AdminRoleSuperAdmin
	_, err = svc.Patch(ctx, a.ID, a.ID, models.AdminPatch{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	_, err = svc.Patch(ctx, root.ID, a.ID, models.AdminPatch{Role: &role})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	page, err := svc.List(ctx, root.ID, storage.AdminQuery{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	assert.ErrorIs(t, svc.Delete(ctx, a.ID, b.ID), apperr.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, root.ID, b.ID))
	assert.ErrorIs(t, svc.Delete(ctx, root.ID, b.ID), apperr.ErrNotFound)
}

func TestChangeAndResetPassword(t *testing.T) {
	svc, sms := newService(t)
	ctx := context.Background()
	root, err := svc.SignupSuperAdmin(ctx, "+998900000001", "pw", "pw")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, root.ID, root.ID, ChangePasswordRequest{ActualPassword: "x", Password: "n", ConfirmPassword: "n"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	require.NoError(t, svc.ChangePassword(ctx, root.ID, root.ID, ChangePasswordRequest{ActualPassword: "pw", Password: "n", ConfirmPassword: "n"}))

	require.NoError(t, svc.ResetPassword(ctx, ResetPasswordRequest{PhoneNumber: "+998900000001"}))
	require.Len(t, sms.texts, 1)
	_, err = svc.Signin(ctx, SigninRequest{PhoneNumber: "+998900000001", Password: "n"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestMerge(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.CreateFromCLI(ctx, adminReq("+998900000002", models.AdminRoleAdmin))
	require.NoError(t, err)

	phone := "+998900000009"
	merged, err := svc.Merge(ctx, "+998900000002", models.AdminPatch{PhoneNumber: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, merged.PhoneNumber)

	_, err = svc.Merge(ctx, "+998900000002", models.AdminPatch{PhoneNumber: &phone})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
