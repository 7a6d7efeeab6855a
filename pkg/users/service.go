package users

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.opentelemetry.io/otel"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/events"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/observability"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/storage/objects"
)

// DefaultAvatarPath is stored for users who never uploaded an image
const DefaultAvatarPath = "avatars/default.png"

var tracer = otel.Tracer("tenancy/users")

// Deps are the collaborators of the user service. Images may be nil, in
// which case avatar uploads are refused.
type Deps struct {
	Repos   storage.Repositories
	Hasher  auth.PasswordHasher
	Tokens  *auth.TokenManager
	SMS     events.SMSNotifier
	Images  objects.ImageStore
	Cascade *orgs.Cascade
	Audit   audit.Logger
}

// Service manages end-user accounts
type Service struct {
	Deps
}

func NewService(deps Deps) *Service {
	return &Service{Deps: deps}
}

type SignupRequest struct {
	PhoneNumber     string  `json:"phone_number"`
	Email           *string `json:"email,omitempty"`
	Password        string  `json:"password"`
	ConfirmPassword string  `json:"password2"`
}

func (r SignupRequest) Validate() error {
	if err := auth.ValidatePhoneNumber(r.PhoneNumber); err != nil {
		return err
	}
	if r.Email != nil {
		if err := auth.ValidateEmail(*r.Email); err != nil {
			return err
		}
	}
	return auth.ValidateNewPassword(r.Password, r.ConfirmPassword)
}

type SigninRequest struct {
	PhoneNumber string `json:"phone_number"`
	Password    string `json:"password"`
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

type ResetPasswordRequest struct {
	PhoneNumber string `json:"phone_number"`
}

// Signup creates an account and returns its first token
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "users.Signup")
	defer span.End()

	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthSignup, audit.EventStatusSuccess,
		audit.ResourceTypeUser, user.ID).WithSubject(user.ID))
	return s.token(user.ID)
}

// Create adds an account on behalf of actorID
func (s *Service) Create(ctx context.Context, actorID string, req SignupRequest) (*models.User, error) {
	if _, err := s.Repos.Users.Get(ctx, actorID); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataCreate, audit.EventStatusSuccess,
		audit.ResourceTypeUser, user.ID))
	return user, nil
}

func (s *Service) create(ctx context.Context, req SignupRequest) (*models.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	hash, err := s.Hasher.Hash(req.Password)
	if err != nil {
		return nil, apperr.ServerError("failed to hash password", err)
	}

	user := &models.User{
		Password:    hash,
		ImagePath:   DefaultAvatarPath,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		Email:       req.Email,
	}
	if err := s.Repos.Users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Signin exchanges a phone number and password for a token
func (s *Service) Signin(ctx context.Context, req SigninRequest) (*models.Token, error) {
	ctx, span := tracer.Start(ctx, "users.Signin")
	defer span.End()

	user, err := s.Repos.Users.GetByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return nil, err
	}
	if err := s.verify(req.Password, user.Password); err != nil {
		audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthSigninFailed, audit.EventStatusFailure,
			audit.ResourceTypeUser, user.ID).WithSubject(user.ID))
		return nil, err
	}

	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthSignin, audit.EventStatusSuccess,
		audit.ResourceTypeUser, user.ID).WithSubject(user.ID))
	return s.token(user.ID)
}

func (s *Service) ChangePassword(ctx context.Context, userID string, req ChangePasswordRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	user, err := s.Repos.Users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.verify(req.ActualPassword, user.Password); err != nil {
		return err
	}
	if err := s.setPassword(ctx, userID, req.Password); err != nil {
		return err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthPasswordChange, audit.EventStatusSuccess,
		audit.ResourceTypeUser, userID))
	return nil
}

// ResetPassword texts a freshly generated password to the account's phone
// number. The stored hash only changes once the message was handed off.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	user, err := s.Repos.Users.GetByPhoneNumber(ctx, req.PhoneNumber)
	if err != nil {
		return err
	}
	password, err := auth.GeneratePassword(auth.ResetPasswordLength)
	if err != nil {
		return apperr.ServerError("failed to generate password", err)
	}
	if err := s.SMS.SendSMS(ctx, user.PhoneNumber, auth.ResetMessage(password)); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("user_id", user.ID).Warn("reset SMS failed")
		return apperr.BadRequest("Error sending OTP!")
	}
	if err := s.setPassword(ctx, user.ID, password); err != nil {
		return err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeAuthPasswordReset, audit.EventStatusSuccess,
		audit.ResourceTypeUser, user.ID).WithSubject(user.ID))
	return nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.Repos.Users.Get(ctx, userID)
}

// PatchMe updates the caller's contact details. The avatar changes only
// through UploadAvatar.
func (s *Service) PatchMe(ctx context.Context, userID string, patch models.UserPatch) (*models.User, error) {
	if patch.PhoneNumber != nil {
		if err := auth.ValidatePhoneNumber(*patch.PhoneNumber); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if err := auth.ValidateEmail(*patch.Email); err != nil {
			return nil, err
		}
	}
	patch.ImagePath = nil

	user, err := s.Repos.Users.Patch(ctx, userID, patch)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataUpdate, audit.EventStatusSuccess,
		audit.ResourceTypeUser, userID))
	return user, nil
}

// DeleteMe removes the caller and, best effort, their relations,
// registrations and avatar.
func (s *Service) DeleteMe(ctx context.Context, userID string) (*orgs.CascadeResult, error) {
	user, err := s.Repos.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	steps := []orgs.CascadeStep{
		orgs.ScopeStep("relations", s.Repos.Relations, storage.ScopeUser, userID),
		orgs.ScopeStep("fcm_subscriptions", s.Repos.FCM, storage.ScopeUser, userID),
		orgs.ScopeStep("subscriptions", s.Repos.Subscriptions, storage.ScopeUser, userID),
	}
	if s.Images != nil && user.ImagePath != "" && user.ImagePath != DefaultAvatarPath {
		steps = append(steps, orgs.CascadeStep{
			Name: "avatar",
			Delete: func(ctx context.Context) (int64, error) {
				if err := s.Images.DeleteImage(ctx, user.ImagePath); err != nil {
					return 0, err
				}
				return 1, nil
			},
		})
	}

	result, err := s.Cascade.Run(ctx, "user", userID,
		func(ctx context.Context) error { return s.Repos.Users.Delete(ctx, userID) },
		steps...)
	if err != nil {
		return nil, err
	}
	audit.Record(ctx, s.Audit, audit.NewEvent(ctx, audit.EventTypeDataDelete, audit.EventStatusSuccess,
		audit.ResourceTypeUser, userID))
	return result, nil
}

// UploadAvatar stores a new profile image and points the user at it. The
// previous image is removed best effort.
func (s *Service) UploadAvatar(ctx context.Context, userID string, content io.Reader, contentType string) (*models.User, error) {
	if s.Images == nil {
		return nil, apperr.BadRequest("Image uploads are not configured")
	}
	user, err := s.Repos.Users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	key, err := s.Images.PutImage(ctx, userID, content, contentType)
	switch {
	case errors.Is(err, objects.ErrUnsupportedImage), errors.Is(err, objects.ErrImageTooLarge):
		return nil, apperr.Validation(err.Error())
	case err != nil:
		return nil, apperr.ServerError("failed to store image", err)
	}
	updated, err := s.Repos.Users.Patch(ctx, userID, models.UserPatch{ImagePath: &key})
	if err != nil {
		return nil, err
	}

	if user.ImagePath != "" && user.ImagePath != DefaultAvatarPath && user.ImagePath != key {
		if err := s.Images.DeleteImage(ctx, user.ImagePath); err != nil {
			observability.FromContext(ctx).WithError(err).WithField("key", user.ImagePath).Warn("failed to delete previous avatar")
		}
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, actorID, id string) (*models.User, error) {
	if _, err := s.Repos.Users.Get(ctx, actorID); err != nil {
		return nil, err
	}
	return s.Repos.Users.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, actorID string, query storage.UserQuery) (*storage.Page[models.User], error) {
	if _, err := s.Repos.Users.Get(ctx, actorID); err != nil {
		return nil, err
	}
	return s.Repos.Users.List(ctx, query)
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

func (s *Service) setPassword(ctx context.Context, userID, password string) error {
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		return apperr.ServerError("failed to hash password", err)
	}
	return s.Repos.Users.ChangePassword(ctx, userID, hash)
}

func (s *Service) token(userID string) (*models.Token, error) {
	token, err := s.Tokens.Generate(userID, auth.AudienceUser)
	if err != nil {
		return nil, apperr.ServerError("failed to issue token", err)
	}
	return &models.Token{AccessToken: token}, nil
}
