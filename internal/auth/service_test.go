package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/angelmondragon/sweetshop-backend/internal/users"
	pkgAuth "github.com/angelmondragon/sweetshop-backend/pkg/auth"
	"github.com/angelmondragon/sweetshop-backend/pkg/config"
	"github.com/angelmondragon/sweetshop-backend/pkg/db/models"
	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/security"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "sweetshop", ExpirationMinutes: 60}

type stubUserRepo struct {
	byEmail  map[string]*models.User
	created  []users.CreateUserDTO
	rehashed map[uuid.UUID]string
}

func newStubUserRepo(existing ...*models.User) *stubUserRepo {
	repo := &stubUserRepo{byEmail: map[string]*models.User{}}
	for _, u := range existing {
		repo.byEmail[u.Email] = u
	}
	return repo
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if _, ok := s.byEmail[dto.Email]; ok {
		return nil, users.ErrEmailTaken
	}
	s.created = append(s.created, dto)
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := s.byEmail[email]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) EmailTaken(ctx context.Context, email string) (bool, error) {
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if s.rehashed == nil {
		s.rehashed = map[uuid.UUID]string{}
	}
	s.rehashed[id] = hash
	return nil
}

type stubSessions struct {
	registered map[string]uuid.UUID
	revoked    []string
	err        error
}

func (s *stubSessions) Register(ctx context.Context, tokenID string, userID uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	if s.registered == nil {
		s.registered = map[string]uuid.UUID{}
	}
	s.registered[tokenID] = userID
	return nil
}

func (s *stubSessions) Revoke(ctx context.Context, tokenID string) error {
	s.revoked = append(s.revoked, tokenID)
	return nil
}

func testHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(config.PasswordConfig{ArgonMemoryKB: 8 * 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32})
}

func mustUser(t *testing.T, email, password string, role enums.Role) *models.User {
	t.Helper()
	hash, err := testHasher().Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &models.User{ID: uuid.New(), Email: email, PasswordHash: hash, Name: "Test", Role: role}
}

func buildService(t *testing.T, repo *stubUserRepo, sessions sessionManager) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:       repo,
		Hasher:         testHasher(),
		SessionManager: sessions,
		JWTConfig:      testJWT,
		Now:            func() time.Time { return time.Now() },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code, message string) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s", code, typed.Code())
	}
	if message != "" && typed.Message() != message {
		t.Fatalf("expected message %q, got %q", message, typed.Message())
	}
}

func TestRegisterCreatesCustomerAndToken(t *testing.T) {
	repo := newStubUserRepo()
	sessions := &stubSessions{}
	svc := buildService(t, repo, sessions)

	resp, err := svc.Register(context.Background(), RegisterRequest{Email: " Jane@Example.com ", Password: "sugar123", Name: "Jane"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(repo.created) != 1 || repo.created[0].Email != "jane@example.com" {
		t.Fatalf("expected normalized email to be stored, got %+v", repo.created)
	}
	if repo.created[0].PasswordHash == "sugar123" {
		t.Fatal("password must be hashed")
	}
	if resp.User.Role != enums.RoleCustomer {
		t.Fatalf("expected CUSTOMER role, got %s", resp.User.Role)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != resp.User.ID || claims.Role != enums.RoleCustomer {
		t.Fatalf("unexpected claims %+v", claims)
	}
	if sessions.registered[claims.ID] != resp.User.ID {
		t.Fatalf("expected session registered for jti %s", claims.ID)
	}
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	repo := newStubUserRepo(mustUser(t, "taken@example.com", "pw", enums.RoleCustomer))
	svc := buildService(t, repo, nil)

	_, err := svc.Register(context.Background(), RegisterRequest{Email: "taken@example.com", Password: "pw1234", Name: "X"})
	assertCode(t, err, pkgerrors.CodeValidation, "Email already exists")
}

func TestRegisterRequiresFields(t *testing.T) {
	svc := buildService(t, newStubUserRepo(), nil)
	_, err := svc.Register(context.Background(), RegisterRequest{Email: "a@b.c", Password: "pw1234"})
	assertCode(t, err, pkgerrors.CodeValidation, "Missing required fields")
}

func TestLoginRejectsAdminAccounts(t *testing.T) {
	admin := mustUser(t, "admin@sweetshop.com", "admin123", enums.RoleAdmin)
	svc := buildService(t, newStubUserRepo(admin), nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: admin.Email, Password: "admin123"})
	assertCode(t, err, pkgerrors.CodeUnauthorized, "Invalid credentials")

	resp, err := svc.AdminLogin(context.Background(), LoginRequest{Email: admin.Email, Password: "admin123"})
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.Role != enums.RoleAdmin {
		t.Fatalf("expected ADMIN claim, got %s", claims.Role)
	}
}

func TestAdminLoginRejectsCustomers(t *testing.T) {
	customer := mustUser(t, "jane@example.com", "sugar123", enums.RoleCustomer)
	svc := buildService(t, newStubUserRepo(customer), nil)

	_, err := svc.AdminLogin(context.Background(), LoginRequest{Email: customer.Email, Password: "sugar123"})
	assertCode(t, err, pkgerrors.CodeUnauthorized, "Invalid credentials")

	if _, err := svc.Login(context.Background(), LoginRequest{Email: customer.Email, Password: "sugar123"}); err != nil {
		t.Fatalf("customer login: %v", err)
	}
}

func TestLoginWrongPasswordAndUnknownEmail(t *testing.T) {
	customer := mustUser(t, "jane@example.com", "sugar123", enums.RoleCustomer)
	svc := buildService(t, newStubUserRepo(customer), nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: customer.Email, Password: "nope"})
	assertCode(t, err, pkgerrors.CodeUnauthorized, "Invalid credentials")

	_, err = svc.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "nope"})
	assertCode(t, err, pkgerrors.CodeUnauthorized, "Invalid credentials")

	_, err = svc.Login(context.Background(), LoginRequest{Email: "", Password: ""})
	assertCode(t, err, pkgerrors.CodeValidation, "Missing email or password")
}

func TestSessionFailureSurfacesAsDependencyError(t *testing.T) {
	customer := mustUser(t, "jane@example.com", "sugar123", enums.RoleCustomer)
	svc := buildService(t, newStubUserRepo(customer), &stubSessions{err: errors.New("redis down")})

	_, err := svc.Login(context.Background(), LoginRequest{Email: customer.Email, Password: "sugar123"})
	assertCode(t, err, pkgerrors.CodeDependency, "")
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessions{}
	svc := buildService(t, newStubUserRepo(), sessions)

	if err := svc.Logout(context.Background(), "jti-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != "jti-1" {
		t.Fatalf("expected jti-1 to be revoked, got %v", sessions.revoked)
	}

	stateless := buildService(t, newStubUserRepo(), nil)
	if err := stateless.Logout(context.Background(), "jti-2"); err != nil {
		t.Fatalf("stateless logout should be a no-op: %v", err)
	}
}

func TestNewServiceValidatesDeps(t *testing.T) {
	if _, err := NewService(ServiceParams{Hasher: testHasher()}); err == nil {
		t.Fatal("expected missing repo error")
	}
	if _, err := NewService(ServiceParams{UserRepo: newStubUserRepo()}); err == nil {
		t.Fatal("expected missing hasher error")
	}
}

func TestLoginUpgradesLegacyBcryptHash(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("customer123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	user := &models.User{ID: uuid.New(), Email: "old@sweets.test", PasswordHash: string(legacy), Name: "Old", Role: enums.RoleCustomer}
	repo := newStubUserRepo(user)
	svc := buildService(t, repo, nil)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "old@sweets.test", Password: "customer123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	upgraded, ok := repo.rehashed[user.ID]
	if !ok {
		t.Fatal("expected the bcrypt hash to be replaced")
	}
	if ok, err := testHasher().Verify("customer123", upgraded); err != nil || !ok {
		t.Fatalf("upgraded hash does not verify: ok=%v err=%v", ok, err)
	}
	if testHasher().NeedsRehash(upgraded) {
		t.Fatal("upgraded hash should use current parameters")
	}
}

func TestLoginKeepsCurrentHash(t *testing.T) {
	repo := newStubUserRepo(mustUser(t, "fresh@sweets.test", "customer123", enums.RoleCustomer))
	svc := buildService(t, repo, nil)

	if _, err := svc.Login(context.Background(), LoginRequest{Email: "fresh@sweets.test", Password: "customer123"}); err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(repo.rehashed) != 0 {
		t.Fatalf("unexpected rehash: %v", repo.rehashed)
	}
}
