package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/common/security"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/domain/repository"
	"github.com/BytePitApp/bytepit-api/internal/platform/logger"

	"github.com/google/uuid"
)

// MailEnqueuer hands a mail job to the outbox.
type MailEnqueuer interface {
	Enqueue(ctx context.Context, job model.MailJob) error
}

type AuthService struct {
	db               TxBeginner
	userRepo         repository.UserRepository
	verificationRepo repository.VerificationRepository
	jwt              *security.JWTManager
	mail             MailEnqueuer
	publicBaseURL    string
	tokenTTL         time.Duration
	now              func() time.Time
}

func NewAuthService(
	db TxBeginner,
	userRepo repository.UserRepository,
	verificationRepo repository.VerificationRepository,
	jwt *security.JWTManager,
	mail MailEnqueuer,
	publicBaseURL string,
	tokenTTL time.Duration,
) *AuthService {
	return &AuthService{
		db:               db,
		userRepo:         userRepo,
		verificationRepo: verificationRepo,
		jwt:              jwt,
		mail:             mail,
		publicBaseURL:    strings.TrimRight(publicBaseURL, "/"),
		tokenTTL:         tokenTTL,
		now:              time.Now,
	}
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=4"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Surname  string `json:"surname" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=contestant organiser"`
	Image    []byte `json:"-"`
}

type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"` // username or email
	Password   string `json:"password" validate:"required"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := security.NewVerificationToken()
	if err != nil {
		return nil, fmt.Errorf("failed to create verification token: %w", err)
	}

	user := &model.User{
		ID:              uuid.NewString(),
		Username:        req.Username,
		Email:           strings.ToLower(req.Email),
		HashedPassword:  hashedPassword,
		Name:            req.Name,
		Surname:         req.Surname,
		Role:            req.Role,
		ApprovedByAdmin: req.Role != model.RoleOrganiser,
		Image:           req.Image,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.Create(ctx, tx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	verification := model.VerificationToken{
		Token:     token,
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.tokenTTL),
	}
	if err := s.verificationRepo.Create(ctx, tx, verification); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	// Registration stands even if the mail cannot be queued.
	if err := s.mail.Enqueue(ctx, s.verificationMail(user, token)); err != nil {
		logger.FromContext(ctx).Error("failed to enqueue verification mail", "user_id", user.ID, "error", err)
	}

	user.HashedPassword = ""
	return user, nil
}

func (s *AuthService) verificationMail(user *model.User, token string) model.MailJob {
	link := fmt.Sprintf("%s/confirm-registration/%s", s.publicBaseURL, token)
	body := fmt.Sprintf(
		`<p>Hi %s,</p><p>Confirm your BytePit account by following <a href="%s">this link</a>.</p>`,
		html.EscapeString(user.Name), link,
	)
	return model.MailJob{To: user.Email, Subject: "Confirm your BytePit registration", HTMLBody: body}
}

func (s *AuthService) ConfirmEmail(ctx context.Context, token string) error {
	verification, err := s.verificationRepo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("wrong verification token: %w", common.ErrBadRequest)
		}
		return err
	}
	if !s.now().Before(verification.ExpiresAt) {
		return fmt.Errorf("wrong verification token: %w", common.ErrBadRequest)
	}

	user, err := s.userRepo.FindByID(ctx, verification.UserID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return fmt.Errorf("user is already verified: %w", common.ErrBadRequest)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.userRepo.MarkVerified(ctx, tx, user.ID); err != nil {
		return err
	}
	if err := s.verificationRepo.Delete(ctx, tx, token); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	var user *model.User
	var err error
	if strings.Contains(req.Identifier, "@") {
		user, err = s.userRepo.FindByEmail(ctx, strings.ToLower(req.Identifier))
	} else {
		user, err = s.userRepo.FindByUsername(ctx, req.Identifier)
	}
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("incorrect username or password: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("incorrect username or password: %w", common.ErrUnauthorized)
	}
	if !user.IsVerified {
		return nil, fmt.Errorf("email is not verified: %w", common.ErrForbidden)
	}
	if !user.ApprovedByAdmin {
		return nil, fmt.Errorf("organiser is not approved yet: %w", common.ErrForbidden)
	}

	token, err := s.jwt.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &LoginResponse{AccessToken: token, TokenType: "bearer"}, nil
}

// TokenTTL is how long an issued access token (and its cookie) lives.
func (s *AuthService) TokenTTL() time.Duration {
	return s.jwt.TTL()
}

func (s *AuthService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

func (s *AuthService) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	return s.userRepo.FindByUsername(ctx, username)
}
