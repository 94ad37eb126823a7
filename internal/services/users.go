package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/blogprojesi/backend/internal/models"
	"github.com/blogprojesi/backend/internal/utils"
)

// UserService owns accounts: registration, credential checks and the admin
// user-management actions, each of which is written to the audit trail.
type UserService struct {
	db       *gorm.DB
	hasher   PasswordHasher
	settings *SettingsService
	audit    *AuditLogService
	now      func() time.Time
}

func NewUserService(db *gorm.DB, hasher PasswordHasher, settings *SettingsService, audit *AuditLogService) *UserService {
	return &UserService{db: db, hasher: hasher, settings: settings, audit: audit, now: time.Now}
}

type RegisterInput struct {
	Username  string `json:"username" form:"username"`
	Email     string `json:"email" form:"email"`
	Password  string `json:"password" form:"password"`
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name" form:"last_name"`
}

type CreateUserInput struct {
	RegisterInput
	Role string `json:"role" form:"role"`
}

// UpdateUserInput carries optional changes; nil fields are left alone.
type UpdateUserInput struct {
	Email     *string `json:"email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Bio       *string `json:"bio"`
}

type UserFilter struct {
	Search string
	Role   string
	Page   int
	Size   int
}

// Register creates a self-service account with the configured default role.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if !s.settings.IsRegistrationEnabled(ctx) {
		return nil, forbidden("registration is currently disabled")
	}
	return s.create(ctx, in, s.settings.DefaultUserRole(ctx))
}

func (s *UserService) create(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	username := utils.SanitizeString(in.Username)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	if ok, msg := utils.ValidateUsername(username); !ok {
		return nil, invalid("%s", msg)
	}
	if !utils.ValidateEmail(email) {
		return nil, invalid("invalid email address format")
	}
	if ok, msg := utils.ValidatePassword(in.Password); !ok {
		return nil, invalid("%s", msg)
	}
	if !models.ValidRole(role) {
		return nil, invalid("unknown role %q", role)
	}
	for _, name := range []string{in.FirstName, in.LastName} {
		if name = utils.SanitizeString(name); name != "" {
			if ok, msg := utils.ValidateName(name); !ok {
				return nil, invalid("%s", msg)
			}
		}
	}

	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return nil, invalid("username %s is already taken", username)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if n > 0 {
		return nil, invalid("email %s is already registered", email)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := models.User{
		Username:  username,
		Email:     email,
		Password:  hash,
		FirstName: optional(utils.SanitizeString(in.FirstName)),
		LastName:  optional(utils.SanitizeString(in.LastName)),
		Role:      role,
		Enabled:   true,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if isDuplicate(err) {
			return nil, invalid("username or email is already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate checks a username and password. Unknown users and wrong
// passwords both yield ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user %s: %w", username, err)
	}
	if !s.hasher.Verify(user.Password, password) {
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrAccountDisabled
	}
	return &user, nil
}

func (s *UserService) MarkLogin(ctx context.Context, userID uint) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("last_login_at", s.now().UTC()).Error
	if err != nil {
		return fmt.Errorf("stamp last login: %w", err)
	}
	return nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("user %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", id, err)
	}
	return &user, nil
}

// List pages through users, newest first, optionally filtered by role and a
// username/email/name search.
func (s *UserService) List(ctx context.Context, f UserFilter) (*Page[models.User], error) {
	page, size := normalizePage(f.Page, f.Size)
	q := s.db.WithContext(ctx).Model(&models.User{})
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			like, like, like, like)
	}
	if f.Role != "" {
		q = q.Where("role = ?", strings.ToUpper(f.Role))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	var users []models.User
	if err := q.Order("created_at DESC, id DESC").Offset(page * size).Limit(size).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return newPage(users, page, size, total), nil
}

func (s *UserService) CountByRole(ctx context.Context, role string) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s users: %w", role, err)
	}
	return n, nil
}

func (s *UserService) Admins(ctx context.Context) ([]models.User, error) {
	var admins []models.User
	err := s.db.WithContext(ctx).Where("role = ?", models.RoleAdmin).Order("created_at DESC").Find(&admins).Error
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

// CreateUser is the admin-panel account creation.
func (s *UserService) CreateUser(ctx context.Context, in CreateUserInput, admin *models.User, ip string) (*models.User, error) {
	role := strings.ToUpper(in.Role)
	if role == "" {
		role = models.RoleUser
	}
	user, err := s.create(ctx, in.RegisterInput, role)
	if err != nil {
		return nil, err
	}
	_, err = s.audit.LogUserAction(ctx, admin, models.ActionUserCreate, user, "New user created", ip)
	warnAuditFailure(models.ActionUserCreate, err)
	slog.Info("user created by admin", "user", user.Username, "admin", admin.Username)
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id uint, in UpdateUserInput, admin *models.User, ip string) (*models.User, error) {
	user, err := s.update(ctx, id, in)
	if err != nil {
		return nil, err
	}
	_, err = s.audit.LogUserAction(ctx, admin, models.ActionUserUpdate, user, "User details updated", ip)
	warnAuditFailure(models.ActionUserUpdate, err)
	return user, nil
}

// UpdateProfile applies a user's own profile edits. It is not audited.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, in UpdateUserInput) (*models.User, error) {
	return s.update(ctx, user.ID, in)
}

func (s *UserService) update(ctx context.Context, id uint, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email != user.Email {
			if !utils.ValidateEmail(email) {
				return nil, invalid("invalid email address format")
			}
			var n int64
			if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ? AND id <> ?", email, id).Count(&n).Error; err != nil {
				return nil, fmt.Errorf("check email: %w", err)
			}
			if n > 0 {
				return nil, invalid("email %s is already registered", email)
			}
			updates["email"] = email
		}
	}
	names := map[string]*string{"first_name": in.FirstName, "last_name": in.LastName}
	for column, value := range names {
		if value == nil {
			continue
		}
		name := utils.SanitizeString(*value)
		if name != "" {
			if ok, msg := utils.ValidateName(name); !ok {
				return nil, invalid("%s", msg)
			}
		}
		updates[column] = optional(name)
	}
	if in.Bio != nil {
		updates["bio"] = optional(strings.TrimSpace(*in.Bio))
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if isDuplicate(err) {
				return nil, invalid("email is already registered")
			}
			return nil, fmt.Errorf("update user %d: %w", id, err)
		}
	}
	return s.Get(ctx, id)
}

// ChangePassword replaces a user's own password after checking the current
// one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(user.Password, current) {
		return invalid("current password is incorrect")
	}
	if ok, msg := utils.ValidatePassword(next); !ok {
		return invalid("%s", msg)
	}
	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("change password of user %d: %w", userID, err)
	}
	slog.Info("password changed", "user", user.Username)
	return nil
}

// ToggleEnabled flips the enabled flag. An admin cannot disable themselves.
func (s *UserService) ToggleEnabled(ctx context.Context, id uint, admin *models.User, ip string) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == admin.ID && user.Enabled {
		return nil, forbidden("you cannot disable your own account")
	}

	wasEnabled := user.Enabled
	if err := s.db.WithContext(ctx).Model(user).Update("enabled", !wasEnabled).Error; err != nil {
		return nil, fmt.Errorf("toggle user %d: %w", id, err)
	}
	user.Enabled = !wasEnabled

	action, description := models.ActionUserEnable, "User enabled"
	if wasEnabled {
		action, description = models.ActionUserDisable, "User disabled"
	}
	_, err = s.audit.LogUserAction(ctx, admin, action, user, description, ip)
	warnAuditFailure(action, err)
	slog.Info("user enabled flag changed", "user", user.Username, "enabled", user.Enabled, "admin", admin.Username)
	return user, nil
}

// ChangeRole assigns role to the user. Admins cannot change their own role.
func (s *UserService) ChangeRole(ctx context.Context, id uint, role string, admin *models.User, ip string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return nil, invalid("unknown role %q", role)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.ID == admin.ID {
		return nil, forbidden("you cannot change your own role")
	}

	oldRole := user.Role
	if err := s.db.WithContext(ctx).Model(user).Update("role", role).Error; err != nil {
		return nil, fmt.Errorf("change role of user %d: %w", id, err)
	}
	user.Role = role

	description := fmt.Sprintf("User role changed: %s -> %s", oldRole, role)
	_, err = s.audit.LogUserAction(ctx, admin, models.ActionUserRoleChange, user, description, ip)
	warnAuditFailure(models.ActionUserRoleChange, err)
	slog.Info("user role changed", "user", user.Username, "from", oldRole, "to", role, "admin", admin.Username)
	return user, nil
}

func (s *UserService) ResetPassword(ctx context.Context, id uint, newPassword string, admin *models.User, ip string) error {
	if ok, msg := utils.ValidatePassword(newPassword); !ok {
		return invalid("%s", msg)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password", hash).Error; err != nil {
		return fmt.Errorf("reset password of user %d: %w", id, err)
	}
	_, err = s.audit.LogUserAction(ctx, admin, models.ActionUserUpdate, user, "User password reset", ip)
	warnAuditFailure(models.ActionUserUpdate, err)
	return nil
}

// DeleteUser removes the account with everything it owns or wrote. Admins
// cannot delete themselves and the last admin can never be deleted.
func (s *UserService) DeleteUser(ctx context.Context, id uint, admin *models.User, ip string) error {
	var deleted models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&deleted, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound("user %d not found", id)
			}
			return fmt.Errorf("load user %d: %w", id, err)
		}
		if deleted.ID == admin.ID {
			return forbidden("you cannot delete your own account")
		}
		if deleted.IsAdmin() {
			var admins int64
			if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&admins).Error; err != nil {
				return fmt.Errorf("count admins: %w", err)
			}
			if admins <= 1 {
				return forbidden("at least one admin must remain")
			}
		}
		dependents := []any{&models.Comment{}, &models.Rating{}, &models.Bookmark{}}
		for _, dependent := range dependents {
			if err := tx.Where("user_id = ?", deleted.ID).Delete(dependent).Error; err != nil {
				return fmt.Errorf("delete %T of user %d: %w", dependent, id, err)
			}
		}
		var postIDs []uint
		if err := tx.Model(&models.Post{}).Where("author_id = ?", deleted.ID).Pluck("id", &postIDs).Error; err != nil {
			return fmt.Errorf("list posts of user %d: %w", id, err)
		}
		if len(postIDs) > 0 {
			for _, dependent := range dependents {
				if err := tx.Where("post_id IN ?", postIDs).Delete(dependent).Error; err != nil {
					return fmt.Errorf("delete %T on posts of user %d: %w", dependent, id, err)
				}
			}
			if err := tx.Where("id IN ?", postIDs).Delete(&models.Post{}).Error; err != nil {
				return fmt.Errorf("delete posts of user %d: %w", id, err)
			}
		}
		if err := tx.Delete(&deleted).Error; err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	_, err = s.audit.LogUserAction(ctx, admin, models.ActionUserDelete, &deleted, "User deleted: "+deleted.Username, ip)
	warnAuditFailure(models.ActionUserDelete, err)
	slog.Info("user deleted", "user", deleted.Username, "admin", admin.Username)
	return nil
}

// EnsureAdmin creates the given admin when the system has none. It reports
// whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, password string) (bool, error) {
	n, err := s.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if username == "" || password == "" {
		slog.Warn("no admin account exists and no bootstrap admin is configured")
		return false, nil
	}
	if email == "" {
		email = username + "@localhost.localdomain"
	}
	user, err := s.create(ctx, RegisterInput{Username: username, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return false, err
	}
	slog.Info("bootstrap admin created", "username", user.Username)
	return true, nil
}
