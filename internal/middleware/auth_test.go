package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/warehouse-ops/warehouse-ops/internal/auth"
	"github.com/warehouse-ops/warehouse-ops/internal/db/repositories"
)

func newMockUserRepo(t *testing.T) (*repositories.UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repositories.NewUserRepository(sqlx.NewDb(db, "postgres")), mock
}

func userRows(id, email, role string, active bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "email", "full_name", "role", "password_hash", "is_active", "created_at", "updated_at",
	}).AddRow(id, email, "Test User", role, "$2a$10$hash", active, now, now)
}

func authedRouter(repo *repositories.UserRepository) *gin.Engine {
	r := gin.New()
	r.Use(AuthMiddleware(repo))
	r.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString(UserIDContextKey),
			"role":    c.GetString(UserRoleContextKey),
		})
	})
	return r
}

func doAuthed(r *gin.Engine, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// Token validation
// ---------------------------------------------------------------------------

func TestAuthMiddleware_RejectsMissingAndMalformedHeaders(t *testing.T) {
	repo, _ := newMockUserRepo(t)
	r := authedRouter(repo)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"bearer with no token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := doAuthed(r, tt.header); w.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", w.Code)
			}
		})
	}
}

func TestAuthMiddleware_ValidTokenActiveUser(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectQuery("SELECT \\* FROM users WHERE id").
		WithArgs("user-42").
		WillReturnRows(userRows("user-42", "picker@warehouse.test", "picker", true))

	token, err := auth.GenerateJWT("user-42", "picker@warehouse.test", "picker", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	w := doAuthed(authedRouter(repo), "Bearer "+token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	for _, want := range []string{`"user_id":"user-42"`, `"role":"picker"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body %q missing %q", body, want)
		}
	}
}

func TestAuthMiddleware_DeactivatedUserRejected(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectQuery("SELECT \\* FROM users WHERE id").
		WithArgs("user-42").
		WillReturnRows(userRows("user-42", "picker@warehouse.test", "picker", false))

	token, _ := auth.GenerateJWT("user-42", "picker@warehouse.test", "picker", time.Hour)

	if w := doAuthed(authedRouter(repo), "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for deactivated user", w.Code)
	}
}

func TestAuthMiddleware_UnknownUserRejected(t *testing.T) {
	repo, mock := newMockUserRepo(t)
	mock.ExpectQuery("SELECT \\* FROM users WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	token, _ := auth.GenerateJWT("ghost", "ghost@warehouse.test", "picker", time.Hour)

	if w := doAuthed(authedRouter(repo), "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for unknown user", w.Code)
	}
}

func TestAuthMiddleware_ExpiredTokenRejected(t *testing.T) {
	repo, _ := newMockUserRepo(t)

	token, _ := auth.GenerateJWT("user-42", "picker@warehouse.test", "picker", -time.Minute)

	if w := doAuthed(authedRouter(repo), "Bearer "+token); w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 for expired token", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Role enforcement
// ---------------------------------------------------------------------------

func TestRequireRole(t *testing.T) {
	router := func(role string) *gin.Engine {
		r := gin.New()
		r.Use(func(c *gin.Context) {
			if role != "" {
				c.Set(UserRoleContextKey, role)
			}
			c.Next()
		})
		r.GET("/admin", RequireRole("admin", "supervisor"), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return r
	}

	tests := []struct {
		role string
		want int
	}{
		{"admin", http.StatusOK},
		{"supervisor", http.StatusOK},
		{"picker", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		name := tt.role
		if name == "" {
			name = "no role"
		}
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/admin", nil)
			router(tt.role).ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
