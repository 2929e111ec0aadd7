package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/taskmarket-backend/internal/domain/valueobject"
	"github.com/ignatzorin/taskmarket-backend/internal/logger"
	"github.com/ignatzorin/taskmarket-backend/internal/models"
	"github.com/ignatzorin/taskmarket-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskmarket-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, name string, image *string) (*models.User, error)
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
}

// AuthService инкапсулирует бизнес-логику регистрации и аутентификации.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// SessionMeta сведения о клиенте для сессии.
type SessionMeta struct {
	UserAgent string
	IP        string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User `json:"user"`
	TokenPair *TokenPair   `json:"tokens"`
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
	}
}

// Register создаёт пользователя с ролью POSTER или DOER и открывает сессию.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta SessionMeta) (*AuthResult, error) {
	role := valueobject.RoleDoer
	if in.Role != "" {
		role = valueobject.Role(in.Role)
	}
	if role != valueobject.RolePoster && role != valueobject.RoleDoer {
		return nil, apperror.Validation("роль должна быть POSTER или DOER", map[string]string{"role": "invalid"})
	}

	user, err := s.createUser(ctx, in.Email, in.Password, in.Name, role)
	if err != nil {
		return nil, err
	}

	pair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("auth service: пользователь зарегистрирован")

	return &AuthResult{User: user, TokenPair: pair}, nil
}

// CreateAdmin заводит администратора. Доступно только из командной строки.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	user, err := s.createUser(ctx, email, password, name, valueobject.RoleAdmin)
	if err != nil {
		return nil, err
	}
	logger.Log.WithField("user_id", user.ID).Info("auth service: создан администратор")
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, email, password, name string, role valueobject.Role) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if err := validation.ValidateEmail(email); err != nil {
		return nil, validation.Field("email", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, validation.Field("password", err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = deriveName(email)
	}
	if err := validation.ValidateLength("имя", name, validation.MinNameLength, validation.MaxNameLength); err != nil {
		return nil, validation.Field("name", err)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(passHash),
		Name:         name,
		Role:         role,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta SessionMeta) (*AuthResult, error) {
	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if apperror.IsNotFound(err) {
		return nil, apperror.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	pair, err := s.openSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, TokenPair: pair}, nil
}

// Refresh выпускает новую пару токенов. Старая сессия удаляется.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta SessionMeta) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	session, err := s.repo.GetSession(ctx, oldToken)
	if err != nil {
		return nil, err
	}
	if session.ExpiresAt.Before(time.Now()) || session.UserID.String() != claims.Subject {
		_ = s.repo.DeleteSession(ctx, oldToken)
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия истекла")
	}

	user, err := s.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, err
	}
	return s.openSession(ctx, user, meta)
}

// Logout удаляет сессию.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// Me возвращает текущего пользователя.
func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	return s.repo.GetByID(ctx, userID)
}

// UpdateProfile меняет имя и аватар.
func (s *AuthService) UpdateProfile(ctx context.Context, userID uuid.UUID, name string, image *string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if err := validation.ValidateLength("имя", name, validation.MinNameLength, validation.MaxNameLength); err != nil {
		return nil, validation.Field("name", err)
	}
	return s.repo.UpdateProfile(ctx, userID, name, image)
}

func (s *AuthService) openSession(ctx context.Context, user *models.User, meta SessionMeta) (*TokenPair, error) {
	pair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}
	if meta.IP != "" {
		ip := meta.IP
		session.IP = &ip
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return pair, nil
}

// deriveName формирует имя из email.
func deriveName(email string) string {
	name := strings.Split(email, "@")[0]
	name = strings.NewReplacer(".", " ", "_", " ", "+", " ").Replace(name)
	name = strings.TrimSpace(name)
	if len(name) < validation.MinNameLength {
		name = "user " + uuid.NewString()[:6]
	}
	return name
}
