package auth

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/nebari-dev/crmkit/internal/models"
	"github.com/nebari-dev/crmkit/internal/rbac"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.AuditLog{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func protectedRouter(a Authenticator) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", a.Middleware(), func(c *gin.Context) {
		user, err := UserFromContext(c)
		if err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, user.Username)
	})
	return r
}

func get(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBasicAuthenticator_LoginAndMiddleware(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	if _, err := CreateUser(db, "alice", "", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	a := NewBasicAuthenticator(db, "test-secret")

	if _, err := a.Login(ctx, "alice", "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := a.Login(ctx, "bob", "s3cret"); err != ErrInvalidCredentials {
		t.Errorf("unknown user: got %v", err)
	}

	resp, err := a.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.User.Email != "alice@crmkit.local" {
		t.Errorf("email = %q", resp.User.Email)
	}
	if time.Until(resp.ExpiresAt) <= 0 {
		t.Errorf("expires_at %v is not in the future", resp.ExpiresAt)
	}

	r := protectedRouter(a)
	if w := get(r, "Bearer "+resp.Token); w.Code != http.StatusOK || w.Body.String() != "alice" {
		t.Errorf("valid token: %d %s", w.Code, w.Body.String())
	}
	if w := get(r, ""); w.Code != http.StatusUnauthorized {
		t.Errorf("missing header: %d", w.Code)
	}
	if w := get(r, "Token "+resp.Token); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong scheme: %d", w.Code)
	}

	other := NewBasicAuthenticator(db, "other-secret")
	if w := get(protectedRouter(other), "Bearer "+resp.Token); w.Code != http.StatusUnauthorized {
		t.Errorf("foreign secret: %d", w.Code)
	}
}

func TestBasicAuthenticator_ExpiredToken(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	if _, err := CreateUser(db, "alice", "alice@example.com", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	a := NewBasicAuthenticator(db, "test-secret")
	a.tokens.now = func() time.Time { return time.Now().Add(-2 * DefaultTokenTTL) }

	resp, err := a.Login(ctx, "alice", "s3cret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if w := get(protectedRouter(a), "Bearer "+resp.Token); w.Code != http.StatusUnauthorized {
		t.Errorf("expired token accepted: %d", w.Code)
	}
}

func TestLoginWritesAuditLog(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	if _, err := CreateUser(db, "alice", "", "s3cret"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	a := NewBasicAuthenticator(db, "test-secret")
	a.Login(ctx, "alice", "nope")
	a.Login(ctx, "alice", "s3cret")

	var actions []string
	if err := db.Model(&models.AuditLog{}).Order("id").Pluck("action", &actions).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	if len(actions) != 2 || actions[0] != "login_failed" || actions[1] != "login" {
		t.Errorf("audit actions = %v", actions)
	}
}

func TestNoneAuthenticator(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	if err := rbac.InitEnforcer(db, slog.Default()); err != nil {
		t.Fatalf("init rbac: %v", err)
	}
	a := NewNoneAuthenticator(db)

	w := get(protectedRouter(a), "")
	if w.Code != http.StatusOK || w.Body.String() != LocalUsername {
		t.Fatalf("got %d %s", w.Code, w.Body.String())
	}

	var user models.User
	if err := db.Where("username = ?", LocalUsername).First(&user).Error; err != nil {
		t.Fatalf("local user not created: %v", err)
	}
	isAdmin, err := rbac.IsAdmin(user.ID)
	if err != nil || !isAdmin {
		t.Errorf("local user admin = %v, %v", isAdmin, err)
	}

	if _, err := a.Login(ctx, "x", "y"); err == nil {
		t.Error("expected Login to fail when auth is disabled")
	}
}
