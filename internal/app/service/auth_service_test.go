package service

import (
	"context"
	"testing"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/common"
	"github.com/BytePitApp/bytepit-api/internal/common/security"
	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	svc    *AuthService
	users  *fakeUserRepo
	tokens *fakeVerificationRepo
	mail   *recordingMailer
	jwt    *security.JWTManager
}

func newAuthFixture(t *testing.T, commits int, users ...*model.User) *authFixture {
	t.Helper()
	f := &authFixture{
		users:  newFakeUserRepo(users...),
		tokens: newFakeVerificationRepo(),
		mail:   &recordingMailer{},
		jwt:    security.NewJWTManager([]byte("test-secret"), 30*time.Minute),
	}
	f.svc = NewAuthService(newMockTx(t, commits), f.users, f.tokens, f.jwt, f.mail, "https://bytepit.example/", 24*time.Hour)
	f.svc.now = func() time.Time { return fixedNow }
	return f
}

func registration() RegisterRequest {
	return RegisterRequest{
		Username: "ana_k",
		Email:    "Ana@Example.com",
		Password: "correct horse",
		Name:     "Ana",
		Surname:  "Kovač",
		Role:     model.RoleContestant,
	}
}

func TestRegister(t *testing.T) {
	f := newAuthFixture(t, 1)

	user, err := f.svc.Register(context.Background(), registration())

	require.NoError(t, err)
	assert.Empty(t, user.HashedPassword)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.True(t, user.ApprovedByAdmin)
	assert.False(t, user.IsVerified)

	stored := f.users.users[user.ID]
	assert.True(t, security.CheckPasswordHash("correct horse", stored.HashedPassword))

	require.Len(t, f.tokens.tokens, 1)
	var token model.VerificationToken
	for _, tok := range f.tokens.tokens {
		token = tok
	}
	assert.Equal(t, user.ID, token.UserID)
	assert.Equal(t, fixedNow.Add(24*time.Hour), token.ExpiresAt)

	require.Len(t, f.mail.jobs, 1)
	assert.Equal(t, "ana@example.com", f.mail.jobs[0].To)
	assert.Contains(t, f.mail.jobs[0].HTMLBody, "https://bytepit.example/confirm-registration/"+token.Token)
}

func TestRegisterOrganiserNeedsApproval(t *testing.T) {
	f := newAuthFixture(t, 1)
	req := registration()
	req.Role = model.RoleOrganiser

	user, err := f.svc.Register(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, user.ApprovedByAdmin)
}

func TestRegisterSurvivesMailFailure(t *testing.T) {
	f := newAuthFixture(t, 1)
	f.mail.err = assert.AnError

	_, err := f.svc.Register(context.Background(), registration())

	require.NoError(t, err)
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RegisterRequest)
	}{
		{"short username", func(r *RegisterRequest) { r.Username = "ana" }},
		{"short password", func(r *RegisterRequest) { r.Password = "1234567" }},
		{"bad email", func(r *RegisterRequest) { r.Email = "ana.example.com" }},
		{"admin role", func(r *RegisterRequest) { r.Role = model.RoleAdmin }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, 0)
			req := registration()
			tt.mutate(&req)

			_, err := f.svc.Register(context.Background(), req)

			assert.ErrorIs(t, err, common.ErrValidation)
			assert.Empty(t, f.users.users)
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	f := newAuthFixture(t, 1, &model.User{ID: "u1", Username: "ana_k", Email: "other@example.com"})

	_, err := f.svc.Register(context.Background(), registration())

	assert.ErrorIs(t, err, common.ErrConflict)
	assert.Empty(t, f.tokens.tokens)
	assert.Empty(t, f.mail.jobs)
}

func TestConfirmEmail(t *testing.T) {
	f := newAuthFixture(t, 1, &model.User{ID: "u1", Username: "ana_k"})
	f.tokens.tokens["good"] = model.VerificationToken{Token: "good", UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)}
	f.tokens.tokens["stale"] = model.VerificationToken{Token: "stale", UserID: "u1", ExpiresAt: fixedNow}

	assert.ErrorIs(t, f.svc.ConfirmEmail(context.Background(), "unknown"), common.ErrBadRequest)
	assert.ErrorIs(t, f.svc.ConfirmEmail(context.Background(), "stale"), common.ErrBadRequest)

	require.NoError(t, f.svc.ConfirmEmail(context.Background(), "good"))
	assert.True(t, f.users.users["u1"].IsVerified)
	assert.NotContains(t, f.tokens.tokens, "good")
}

func TestConfirmEmailAlreadyVerified(t *testing.T) {
	f := newAuthFixture(t, 0, &model.User{ID: "u1", IsVerified: true})
	f.tokens.tokens["again"] = model.VerificationToken{Token: "again", UserID: "u1", ExpiresAt: fixedNow.Add(time.Hour)}

	err := f.svc.ConfirmEmail(context.Background(), "again")

	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestLogin(t *testing.T) {
	hash, err := security.HashPassword("correct horse")
	require.NoError(t, err)
	users := []*model.User{
		{ID: "u1", Username: "ana_k", Email: "ana@example.com", HashedPassword: hash, Role: model.RoleContestant, IsVerified: true, ApprovedByAdmin: true},
		{ID: "u2", Username: "fresh", Email: "fresh@example.com", HashedPassword: hash, Role: model.RoleContestant, ApprovedByAdmin: true},
		{ID: "u3", Username: "pending", Email: "pending@example.com", HashedPassword: hash, Role: model.RoleOrganiser, IsVerified: true},
	}

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"by username", "ana_k", "correct horse", nil},
		{"by email", "ANA@example.com", "correct horse", nil},
		{"wrong password", "ana_k", "battery staple", common.ErrUnauthorized},
		{"unknown user", "nobody", "correct horse", common.ErrUnauthorized},
		{"unverified", "fresh", "correct horse", common.ErrForbidden},
		{"unapproved organiser", "pending", "correct horse", common.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t, 0, users...)

			resp, err := f.svc.Login(context.Background(), LoginRequest{Identifier: tt.identifier, Password: tt.password})

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "bearer", resp.TokenType)

			token, err := jwtauth.VerifyToken(f.jwt.Auth(), resp.AccessToken)
			require.NoError(t, err)
			claims, err := token.AsMap(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "u1", claims["user_id"])
			assert.Equal(t, model.RoleContestant, claims["role"])
		})
	}
}
