package admins

import (
	"context"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/events"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// superAdminExists is the denial for a second SuperAdmin
const superAdminExists = "Super Admin already exists"

// Deps are the collaborators of the admin service. SMS may be nil for the
// CLI, which never resets passwords.
type Deps struct {
	Admins    storage.AdminRepository
	Hasher    auth.PasswordHasher
	Tokens    *auth.TokenManager
	SMS       events.SMSNotifier
	Evaluator *rbac.Evaluator
	Audit     audit.Logger
}

// Service manages administrator accounts. There is at most one SuperAdmin.
type Service struct {
	Deps
}

func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

type SigninRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
}

type ResetPasswordRequest struct {
	PhoneNumber string `json:"phone_number"`
}

type ChangePasswordRequest struct {
	ActualPassword  string `json:"actual_password"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"password2"`
}

func (r ChangePasswordRequest) Validate() error {
	if r.ActualPassword == "" {
		return apperr.Validation("Actual password can't be empty!")
	}
	return auth.ValidateNewPassword(r.Password, r.ConfirmPassword)
}

type CreateRequest struct {
	PhoneNumber     string           `json:"phone_number"`
	Password        string           `json:"password"`
	ConfirmPassword string           `json:"password2"`
	Role            models.AdminRole `json:"role"`
}

func (r CreateRequest) Validate() error {
	if err := auth.ValidatePhoneNumber(r.PhoneNumber); err != nil {
		return err
	}
	if _, err := models.ParseAdminRole(string(r.Role)); err != nil {
		return err
	}
	return auth.ValidateNewPassword(r.Password, r.ConfirmPassword)
}

func (s *Service) Signin(ctx context.Context, req SigninRequest) (*models.Token, error) {
	admin, err := s.Admins.GetByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if err := s.verify(req.Password, admin.Password); err != nil {
		audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthSigninFailed, audit.EventStatusFailure,
			audit.ResourceTypeAdmin, admin.ID).WithSubject(admin.ID))
		return nil, err
	}

	token, err := s.Tokens.Generate(admin.ID, auth.AudienceAdmin)
	if err != nil {
		return nil, apperr.ServerError("failed to issue token", err)
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthSignin, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, admin.ID).WithSubject(admin.ID))
	return &models.Token{AccessToken: token}, nil
}

// ResetPassword texts a generated password to the admin's phone number
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	admin, err := s.Admins.GetByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return err
	}
	if s.SMS == nil {
		return apperr.BadRequest("Error sending OTP!")
	}
	password, err := auth.GeneratePassword(auth.ResetPasswordLength)
	if err != nil {
		return apperr.ServerError("failed to generate password", err)
	}
	if err := s.SMS.SendSMS(ctx, admin.PhoneNumber, auth.ResetMessage(password)); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("admin_id", admin.ID).Warn("reset SMS failed")
		return apperr.BadRequest("Error sending OTP!")
	}
	if err := s.setPassword(ctx, admin.ID, password); err != nil {
		return err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthPasswordReset, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, admin.ID).WithSubject(admin.ID))
	return nil
}

// ChangePassword sets the password of targetID. The target's current
// password is required even when a SuperAdmin acts on another admin.
func (s *Service) ChangePassword(ctx context.Context, actorID, targetID string, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	if _, err := s.authorize(ctx, actorID, targetID); err != nil {
		return err
	}
	target, err := s.Admins.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if err := s.verify(req.ActualPassword, target.Password); err != nil {
		return err
	}
	if err := s.setPassword(ctx, targetID, req.Password); err != nil {
		return err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthPasswordChange, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, targetID))
	return nil
}

func (s *Service) Me(ctx context.Context, actorID string) (*models.Admin, error) {
	admin, err := s.Admins.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.denied(ctx, s.Evaluator.AdminSelfViewPermission(*admin), actorID); err != nil {
		return nil, err
	}
	return admin, nil
}

// Create adds an administrator; only the SuperAdmin may
func (s *Service) Create(ctx context.Context, actorID string, req CreateRequest) (*models.Admin, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	actor, err := s.Admins.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.denied(ctx, s.Evaluator.AdminListCreatePermission(*actor), ""); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// CreateFromCLI adds an administrator without an acting admin
func (s *Service) CreateFromCLI(ctx context.Context, req CreateRequest) (*models.Admin, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

// SignupSuperAdmin bootstraps the SuperAdmin. It fails once one exists.
func (s *Service) SignupSuperAdmin(ctx context.Context, phoneNumber, password, confirm string) (*models.Admin, error) {
	req := CreateRequest{
		PhoneNumber:     phoneNumber,
		Password:        password,
		ConfirmPassword: confirm,
		Role:            models.AdminRoleSuperAdmin,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.create(ctx, req)
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*models.Admin, error) {
	if req.Role == models.AdminRoleSuperAdmin {
		if err := s.requireNoSuperAdmin(ctx); err != nil {
			return nil, err
		}
	}
	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.ServerError("failed to hash password", err)
	}

	admin := &models.Admin{
		Password:    hash,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Role:        req.Role,
	}
	if err := s.Admins.Create(ctx, admin); err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataCreate, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, admin.ID))
	return admin, nil
}

func (s *Service) List(ctx context.Context, actorID string, query storage.AdminQuery) (*storage.Page[models.Admin], error) {
	actor, err := s.Admins.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.denied(ctx, s.Evaluator.AdminListCreatePermission(*actor), ""); err != nil {
		return nil, err
	}
	return s.Admins.List(ctx, query)
}

func (s *Service) Get(ctx context.Context, actorID, id string) (*models.Admin, error) {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return nil, err
	}
	return s.Admins.Get(ctx, id)
}

// Patch changes an admin's phone number or role. Only the SuperAdmin may
// change a role, and never to a second SuperAdmin.
func (s *Service) Patch(ctx context.Context, actorID, id string, patch models.AdminPatch) (*models.Admin, error) {
	if patch.PhoneNumber != nil {
		if err := auth.ValidatePhoneNumber(*patch.PhoneNumber); err != nil {
			return nil, err
		}
	}
	actor, err := s.authorize(ctx, actorID, id)
	if err != nil {
		return nil, err
	}
	if patch.Role != nil && actor.Role != models.AdminRoleSuperAdmin {
		return nil, s.denied(ctx, apperr.Forbidden(""), id)
	}
	return s.patch(ctx, id, patch)
}

// Merge updates the admin currently holding phoneNumber; used by the CLI
func (s *Service) Merge(ctx context.Context, phoneNumber string, patch models.AdminPatch) (*models.Admin, error) {
	if patch.PhoneNumber != nil {
		if err := auth.ValidatePhoneNumber(*patch.PhoneNumber); err != nil {
			return nil, err
		}
	}
	admin, err := s.Admins.GetByPhoneNumber(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	return s.patch(ctx, admin.ID, patch)
}

func (s *Service) patch(ctx context.Context, id string, patch models.AdminPatch) (*models.Admin, error) {
	if patch.Role != nil && *patch.Role == models.AdminRoleSuperAdmin {
		current, err := s.Admins.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Role != models.AdminRoleSuperAdmin {
			if err := s.requireNoSuperAdmin(ctx); err != nil {
				return nil, err
			}
		}
	}

	admin, err := s.Admins.Patch(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, id))
	return admin, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if _, err := s.authorize(ctx, actorID, id); err != nil {
		return err
	}
	if err := s.Admins.Delete(ctx, id); err != nil {
		return err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeAdmin, id))
	return nil
}

// authorize loads the acting admin and applies the mutate check on targetID
func (s *Service) authorize(ctx context.Context, actorID, targetID string) (*models.Admin, error) {
	actor, err := s.Admins.Get(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.denied(ctx, s.Evaluator.AdminMutatePermission(targetID, *actor), targetID); err != nil {
		return nil, err
	}
	return actor, nil
}

func (s *Service) denied(ctx context.Context, err error, targetID string) error {
	return audit.Denied(ctx, s.Audit, err, audit.ResourceTypeAdmin, targetID, "", "")
}

func (s *Service) requireNoSuperAdmin(ctx context.Context) error {
	n, err := s.Admins.CountByRole(ctx, models.AdminRoleSuperAdmin)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Forbidden(superAdminExists)
	}
	return nil
}

func (s *Service) verify(password, hash string) error {
	ok, err := s.Hasher.Verify(password, hash)
	if err != nil {
		return apperr.ServerError("failed to verify password", err)
	}
	if !ok {
		return apperr.Forbidden("Password is not correct!")
	}
	return nil
}

func (s *Service) setPassword(ctx context.Context, id, password string) error {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return apperr.ServerError("failed to hash password", err)
	}
	return s.Admins.ChangePassword(ctx, id, hash)
}
