// Package auth はパスワード認証とログインセッションの発行を提供する。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/taskdeck/internal/model"
	"github.com/hitoshi/taskdeck/internal/repository"
	"github.com/hitoshi/taskdeck/internal/session"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository) *Service {
	return &Service{userRepo: userRepo}
}

// Register は新規ユーザーを登録する。
// メールアドレスが登録済みの場合はEmailTakenエラーを返す。
// パスワードはbcryptでハッシュ化して保存する。
func (s *Service) Register(ctx context.Context, email, name, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	name = strings.TrimSpace(name)

	if email == "" || !strings.Contains(email, "@") {
		return nil, model.NewValidationError("メールアドレスの形式が正しくありません")
	}
	if name == "" {
		return nil, model.NewValidationError("名前は必須です")
	}
	if len(password) < minPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("パスワードは%d文字以上で指定してください", minPasswordLength))
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email uniqueness: %w", err)
	}
	if existing != nil {
		return nil, model.NewEmailTakenError()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, nil
}

// Login は認証情報を検証し、成功時にセッションへログイン状態を書き込む。
// メールアドレスの存在有無を区別しないため、ユーザー未検出と
// パスワード不一致のどちらでも同一のエラーを返す。
// セッション固定攻撃への対策として、ログイン成功時にセッションIDを再生成する。
func (s *Service) Login(ctx context.Context, store *session.Store, email, password string) (*model.Principal, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		return nil, model.NewInvalidCredentialsError()
	}

	principal := &model.Principal{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}
	payload, err := json.Marshal(principal)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal principal: %w", err)
	}

	store.SetIdentity(string(payload))

	if err := store.Regenerate(ctx, true); err != nil {
		return nil, fmt.Errorf("failed to regenerate session on login: %w", err)
	}

	slog.Info("user logged in",
		slog.String("user_id", user.ID),
	)

	return principal, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, store *session.Store) error {
	if err := store.Destroy(ctx); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}
