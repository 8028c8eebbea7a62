package services

import (
	"context"
	"testing"

	"github.com/Dosada05/gauntlet-system/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	return NewAuthService(userRepo, "test-secret", testLogger()), userRepo
}

func seedUser(repo *fakeUserRepo, email, password string, role models.UserRole) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return repo.add(models.User{
		Email:        email,
		Nickname:     "seed",
		PasswordHash: string(hash),
		Role:         role,
	})
}

func TestLoginAndParseToken(t *testing.T) {
	svc, userRepo := newAuthFixture(t)
	user := seedUser(userRepo, "ops@example.com", "correct horse", models.RoleAdmin)

	token, got, err := svc.Login(context.Background(), "  OPS@example.com ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, userRepo := newAuthFixture(t)
	seedUser(userRepo, "ops@example.com", "correct horse", models.RoleAdmin)

	_, _, err := svc.Login(context.Background(), "ops@example.com", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, _, err = svc.Login(context.Background(), "nobody@example.com", "correct horse")
	assert.ErrorIs(t, err, ErrAuthenticationFailed, "unknown email must look like a bad password")

	_, _, err = svc.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestParseTokenRejectsForeignSignature(t *testing.T) {
	svc, userRepo := newAuthFixture(t)
	seedUser(userRepo, "ops@example.com", "correct horse", models.RoleAdmin)
	token, _, err := svc.Login(context.Background(), "ops@example.com", "correct horse")
	require.NoError(t, err)

	other := NewAuthService(newFakeUserRepo(), "different-secret", testLogger())
	_, err = other.ParseToken(token)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = svc.ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestCreateUserRequiresMaster(t *testing.T) {
	svc, _ := newAuthFixture(t)
	admin := &models.User{ID: 1, Nickname: "admin", Role: models.RoleAdmin}

	_, err := svc.CreateUser(context.Background(), admin, CreateUserInput{
		Email: "new@example.com", Nickname: "new", Password: "long enough", Role: models.RoleViewer,
	})
	assert.ErrorIs(t, err, ErrMasterRoleRequired)
}

func TestCreateUserValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)
	master := &models.User{ID: 1, Nickname: "root", Role: models.RoleMaster}

	cases := []struct {
		name  string
		input CreateUserInput
	}{
		{"bad email", CreateUserInput{Email: "not-an-email", Nickname: "x", Password: "long enough", Role: models.RoleViewer}},
		{"empty nickname", CreateUserInput{Email: "a@example.com", Nickname: " ", Password: "long enough", Role: models.RoleViewer}},
		{"short password", CreateUserInput{Email: "a@example.com", Nickname: "x", Password: "short", Role: models.RoleViewer}},
		{"unknown role", CreateUserInput{Email: "a@example.com", Nickname: "x", Password: "long enough", Role: "superuser"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateUser(context.Background(), master, tc.input)
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}

func TestCreateUserEmailConflict(t *testing.T) {
	svc, userRepo := newAuthFixture(t)
	master := &models.User{ID: 1, Nickname: "root", Role: models.RoleMaster}
	seedUser(userRepo, "taken@example.com", "correct horse", models.RoleViewer)

	_, err := svc.CreateUser(context.Background(), master, CreateUserInput{
		Email: "Taken@Example.com", Nickname: "dup", Password: "long enough", Role: models.RoleViewer,
	})
	assert.ErrorIs(t, err, ErrUserEmailConflict)

	created, err := svc.CreateUser(context.Background(), master, CreateUserInput{
		Email: "fresh@example.com", Nickname: "fresh", Password: "long enough", Role: models.RoleAdmin,
	})
	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", created.Email)
	assert.NotEqual(t, "long enough", created.PasswordHash)
}
