package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"finmate/internal/amqp"
	"finmate/internal/auth"
	"finmate/internal/cache"
	"finmate/internal/core"
	"finmate/internal/currency"
	"finmate/internal/mail"
	"finmate/internal/models"
)

const maxAvatarBytes = 2 << 20 // 2 MiB

// UserService handles accounts: registration, login, email verification
// and profile management.
type UserService struct {
	db         *gorm.DB
	tokens     *auth.TokenIssuer
	mailer     *mail.Mailer
	amqpClient *amqp.Client
	insights   *cache.LRUCache[core.MonthlyInsight]
	uploadDir  string
}

func NewUserService(db *gorm.DB, tokens *auth.TokenIssuer, mailer *mail.Mailer, amqpClient *amqp.Client, insights *cache.LRUCache[core.MonthlyInsight], uploadDir string) *UserService {
	return &UserService{
		db:         db,
		tokens:     tokens,
		mailer:     mailer,
		amqpClient: amqpClient,
		insights:   insights,
		uploadDir:  uploadDir,
	}
}

// Register creates an account and dispatches a verification email. The
// email is queued over AMQP when a client is configured, otherwise sent
// inline so a single-process deployment still works.
func (s *UserService) Register(ctx context.Context, email, password, fullName string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, core.ErrInvalidEmail
	}
	if len(password) < 8 {
		return nil, core.ErrWeakPassword
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if count > 0 {
		return nil, core.ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:          email,
		FullName:       strings.TrimSpace(fullName),
		HashedPassword: hash,
		Currency:       "EUR",
		MonthlyIncome:  decimal.Zero,
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		// Backstop for registrations racing past the count check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, core.ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.IssueVerificationToken(email)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to issue verification token", "email", email, "error", err)
		return user, nil // account exists, verification can be retried later
	}
	s.dispatchVerificationEmail(ctx, email, token)

	return user, nil
}

func (s *UserService) dispatchVerificationEmail(ctx context.Context, email, token string) {
	if s.amqpClient != nil {
		err := s.amqpClient.PublishVerificationEmail(ctx, email, token)
		if err == nil {
			return
		}
		slog.ErrorContext(ctx, "Failed to queue verification email, sending inline",
			"email", email, "error", err)
	}
	if err := s.mailer.SendVerificationEmail(ctx, email, token); err != nil {
		slog.ErrorContext(ctx, "Failed to send verification email", "email", email, "error", err)
	}
}

// Authenticate checks credentials and returns the user with a fresh
// access token.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", core.ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}

	if !auth.CheckPassword(user.HashedPassword, password) {
		return nil, "", core.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueAccessToken(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("issue access token: %w", err)
	}
	return &user, token, nil
}

// VerifyEmail validates a verification token and marks the account.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	email, err := s.tokens.VerifyVerificationToken(token)
	if err != nil {
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Update("is_email_verified", true)
	if result.Error != nil {
		return fmt.Errorf("mark email verified: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ResendVerification issues a fresh verification token for an
// unverified account. It never reveals whether the address exists.
func (s *UserService) ResendVerification(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	if user.IsEmailVerified {
		return nil
	}

	token, err := s.tokens.IssueVerificationToken(email)
	if err != nil {
		return fmt.Errorf("issue verification token: %w", err)
	}
	s.dispatchVerificationEmail(ctx, email, token)
	return nil
}

// GetUser loads a user by ID.
func (s *UserService) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

// UserUpdate carries the optional profile fields of a sparse update.
// Nil fields are left untouched.
type UserUpdate struct {
	FullName      *string
	MonthlyIncome *decimal.Decimal
}

// UpdateProfile applies a sparse profile update and returns the fresh user.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, update UserUpdate) (*models.User, error) {
	changes := map[string]any{}
	if update.FullName != nil {
		changes["full_name"] = strings.TrimSpace(*update.FullName)
	}
	if update.MonthlyIncome != nil {
		if update.MonthlyIncome.IsNegative() {
			return nil, core.ErrInvalidAmount
		}
		changes["monthly_income"] = *update.MonthlyIncome
	}

	if len(changes) > 0 {
		result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(changes)
		if result.Error != nil {
			return nil, fmt.Errorf("update profile: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, core.ErrNotFound
		}
	}

	return s.GetUser(ctx, userID)
}

// ChangePassword verifies the current password before setting a new one.
func (s *UserService) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.HashedPassword, current) {
		return core.ErrInvalidCredentials
	}
	if len(next) < 8 {
		return core.ErrWeakPassword
	}

	hash, err := auth.HashPassword(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("hashed_password", hash).Error; err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ChangeCurrency switches the user's display currency. With
// convertExisting set, stored transaction amounts, budget limits and
// the monthly income are converted in the same database transaction.
func (s *UserService) ChangeCurrency(ctx context.Context, userID uint, code string, convertExisting bool) (*models.User, error) {
	code, err := core.NormalizeCurrency(code)
	if err != nil {
		return nil, err
	}
	if !currency.IsSupported(code) {
		return nil, core.ErrUnsupportedCurrency
	}

	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	old := user.Currency
	if old == code {
		return user, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		changes := map[string]any{"currency": code}
		if convertExisting {
			changes["monthly_income"] = currency.Convert(user.MonthlyIncome, old, code)
		}
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Updates(changes).Error; err != nil {
			return fmt.Errorf("update user currency: %w", err)
		}

		if !convertExisting {
			return nil
		}

		var transactions []models.Transaction
		if err := tx.Where("user_id = ?", userID).Find(&transactions).Error; err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		for _, t := range transactions {
			converted := currency.Convert(t.Amount, t.Currency, code)
			if err := tx.Model(&models.Transaction{}).Where("id = ?", t.ID).
				Updates(map[string]any{"amount": converted, "currency": code}).Error; err != nil {
				return fmt.Errorf("convert transaction %d: %w", t.ID, err)
			}
		}

		var budgets []models.BudgetGoal
		if err := tx.Where("user_id = ?", userID).Find(&budgets).Error; err != nil {
			return fmt.Errorf("load budget goals: %w", err)
		}
		for _, b := range budgets {
			converted := currency.Convert(b.LimitAmount, old, code)
			if err := tx.Model(&models.BudgetGoal{}).Where("id = ?", b.ID).
				Update("limit_amount", converted).Error; err != nil {
				return fmt.Errorf("convert budget goal %d: %w", b.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	// Converted amounts make any cached insight for this user wrong.
	s.insights.DeletePrefix(fmt.Sprintf("user:%d:", userID))

	slog.InfoContext(ctx, "Changed user currency",
		"user_id", userID,
		"from", old,
		"to", code,
		"converted_existing", convertExisting)

	return s.GetUser(ctx, userID)
}

// UpdateProfilePicture stores a base64-encoded avatar on disk and
// records its public path. Plain base64 and data URLs are both accepted;
// the previous avatar file is removed.
func (s *UserService) UpdateProfilePicture(ctx context.Context, userID uint, encoded string) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, ext, err := decodeAvatar(encoded)
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.uploadDir, "avatars")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create avatar directory: %w", err)
	}

	filename := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		return nil, fmt.Errorf("write avatar file: %w", err)
	}

	if old := user.ProfilePicture; old != "" {
		oldPath := filepath.Join(dir, path.Base(old))
		if err := os.Remove(oldPath); err != nil && !os.IsNotExist(err) {
			slog.WarnContext(ctx, "Failed to remove previous avatar", "path", oldPath, "error", err)
		}
	}

	publicPath := "/uploads/avatars/" + filename
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Update("profile_picture", publicPath).Error; err != nil {
		return nil, fmt.Errorf("update profile picture: %w", err)
	}

	return s.GetUser(ctx, userID)
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
}

func decodeAvatar(encoded string) (data []byte, ext string, err error) {
	encoded = strings.TrimSpace(encoded)

	// Tolerate data URLs ("data:image/png;base64,....").
	if strings.HasPrefix(encoded, "data:") {
		_, after, found := strings.Cut(encoded, ",")
		if !found {
			return nil, "", core.ErrUnsupportedImageType
		}
		encoded = after
	}

	data, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, "", core.ErrInvalidImage
	}
	if len(data) > maxAvatarBytes {
		return nil, "", core.ErrImageTooLarge
	}

	ext, ok := imageExtensions[http.DetectContentType(data)]
	if !ok {
		return nil, "", core.ErrUnsupportedImageType
	}
	return data, ext, nil
}
