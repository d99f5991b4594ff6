package usecases

import (
	"errors"
	"log/slog"
	"strings"

	"shoplist-server/entities"
	"shoplist-server/repositories"

	"golang.org/x/crypto/bcrypt"
)

// TokenIssuer signs and verifies access tokens.
type TokenIssuer interface {
	Sign(userID string) (string, error)
	Verify(token string) (string, error)
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string              `json:"token"`
	User  entities.PublicUser `json:"user"`
}

type AuthUseCase struct {
	users  repositories.UserRepository
	tokens TokenIssuer
	cost   int
}

func NewAuthUseCase(users repositories.UserRepository, tokens TokenIssuer) *AuthUseCase {
	return &AuthUseCase{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and signs the caller in.
func (uc *AuthUseCase) Register(name, email, password string) (*AuthResult, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, newError(KindInvalidInput, "all fields are required")
	}

	if _, err := uc.users.GetByEmail(email); err == nil {
		return nil, newError(KindDuplicateEmail, "email already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, internal("failed to look up user", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.cost)
	if err != nil {
		return nil, internal("failed to hash password", err)
	}
	user := &entities.User{Name: name, Email: email, PasswordHash: string(hash)}
	if err := uc.users.Create(user); err != nil {
		if errors.Is(err, repositories.ErrDuplicateEmail) {
			return nil, newError(KindDuplicateEmail, "email already exists")
		}
		return nil, internal("failed to create user", err)
	}
	slog.Info("user registered", "user_id", user.ID)
	return uc.issue(user)
}

// Login checks credentials. Unknown emails and wrong passwords produce the
// same error.
func (uc *AuthUseCase) Login(email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, newError(KindInvalidInput, "email and password are required")
	}

	user, err := uc.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(KindInvalidCredentials, "invalid credentials")
		}
		return nil, internal("failed to look up user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, newError(KindInvalidCredentials, "invalid credentials")
	}
	return uc.issue(user)
}

// VerifyToken returns the user id embedded in a valid token.
func (uc *AuthUseCase) VerifyToken(token string) (string, error) {
	if token == "" {
		return "", newError(KindUnauthorized, "no token provided")
	}
	userID, err := uc.tokens.Verify(token)
	if err != nil {
		return "", &Error{Kind: KindUnauthorized, Message: "invalid token", Err: err}
	}
	return userID, nil
}

// CurrentUser returns the public record of an authenticated user.
func (uc *AuthUseCase) CurrentUser(userID string) (*entities.PublicUser, error) {
	user, err := uc.users.GetByID(userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(KindNotFound, "user not found")
		}
		return nil, internal("failed to look up user", err)
	}
	pub := user.Public()
	return &pub, nil
}

func (uc *AuthUseCase) issue(user *entities.User) (*AuthResult, error) {
	token, err := uc.tokens.Sign(user.ID)
	if err != nil {
		return nil, internal("failed to issue token", err)
	}
	return &AuthResult{Token: token, User: user.Public()}, nil
}
