package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"consultant-dashboard/internal/adapter/cache"
	"consultant-dashboard/internal/adapter/db/postgres"
	"consultant-dashboard/internal/adapter/gin/handler"
	"consultant-dashboard/internal/adapter/gin/middleware"
	"consultant-dashboard/internal/adapter/repository/cached"
	"consultant-dashboard/internal/adapter/viacep"
	"consultant-dashboard/internal/dashboard"
	"consultant-dashboard/internal/usecase/user"
	redisclient "consultant-dashboard/pkg/redis"
)

type RouterSuite struct {
	suite.Suite
	log    *zap.Logger
	db     *gorm.DB
	mr     *miniredis.Miniredis
	viacep *httptest.Server
	router *gin.Engine
	seq    int
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.log = zaptest.NewLogger(s.T())
	s.seq = 0

	db, err := gorm.Open(sqlite.Open("file::memory:?_pragma=foreign_keys(1)"), &gorm.Config{})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)
	s.Require().NoError(postgres.Migrate(context.Background(), db, s.log))
	s.db = db

	s.mr = miniredis.RunT(s.T())
	rdb := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	s.viacep = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws/01310100/json/" {
			_, _ = w.Write([]byte(`{"cep":"01310-100","logradouro":"Avenida Paulista","complemento":"","bairro":"Bela Vista","localidade":"São Paulo","uf":"SP"}`))
			return
		}
		_, _ = w.Write([]byte(`{"erro":true}`))
	}))

	repo := cached.NewCachedUserRepository(
		postgres.NewUserRepoPG(db, s.log),
		cache.NewRedisUserCache(rdb, time.Minute, s.log),
		s.log,
	)
	uc := user.New(repo, s.log)
	lookup := viacep.NewClient(s.viacep.URL, 2*time.Second, s.log)

	s.router = SetupRouter(Handlers{
		Users:     handler.NewUserHandler(uc, lookup, s.log),
		Dashboard: handler.NewDashboardHandler(uc, lookup, dashboard.NewLookupTracker(), s.log),
		Health:    handler.NewHealthHandler(db, redisclient.Wrap(rdb, s.log), "consultant-dashboard"),
	}, middleware.NewRateLimiter(rdb, middleware.RateLimiterConfig{Enabled: true, RequestsPerSecond: 1000, BurstCapacity: 1000}, s.log), s.log)
}

func (s *RouterSuite) TearDownTest() {
	s.viacep.Close()
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

type result struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (s *RouterSuite) do(method, path string, body any) (int, result) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var res result
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w.Code, res
}

func (s *RouterSuite) create(name, typ string, consultantID *string) handler.UserResponse {
	s.seq++
	body := map[string]any{
		"name":    name,
		"email":   fmt.Sprintf("user%d@example.com", s.seq),
		"phone":   "(11) 91234-5678",
		"cpf":     fmt.Sprintf("123.456.789-%02d", s.seq),
		"cep":     "01310-100",
		"address": "Avenida Paulista, 1000",
		"type":    typ,
	}
	if consultantID != nil {
		body["consultantId"] = *consultantID
	}

	code, res := s.do(http.MethodPost, "/v1/users", body)
	s.Require().Equal(http.StatusCreated, code, res.Error)

	var u handler.UserResponse
	s.Require().NoError(json.Unmarshal(res.Data, &u))
	return u
}

func (s *RouterSuite) list(path string) []handler.UserResponse {
	code, res := s.do(http.MethodGet, path, nil)
	s.Require().Equal(http.StatusOK, code, res.Error)
	var users []handler.UserResponse
	s.Require().NoError(json.Unmarshal(res.Data, &users))
	return users
}

func (s *RouterSuite) TestHealth() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	s.Equal(http.StatusOK, w.Code)
	s.JSONEq(`{"status":"healthy","service":"consultant-dashboard","database":"up","redis":"up"}`, w.Body.String())
}

func (s *RouterSuite) TestConsultantLifecycle() {
	consultant := s.create("Ana Souza", "CONSULTANT", nil)
	client := s.create("Bruno Lima", "CLIENT", &consultant.ID)

	s.Equal("12345678902", client.CPF, "stored digits only")
	s.Equal("11912345678", client.Phone)
	s.Require().NotNil(client.Consultant)
	s.Equal("Ana Souza", client.Consultant.Name)

	users := s.list("/v1/users")
	s.Require().Len(users, 2)

	clients := s.list("/v1/consultants/" + consultant.ID + "/clients")
	s.Require().Len(clients, 1)
	s.Equal(client.ID, clients[0].ID)

	code, res := s.do(http.MethodDelete, "/v1/users/"+consultant.ID, nil)
	s.Equal(http.StatusConflict, code)
	s.Equal(user.MsgHasClients, res.Error)

	code, res = s.do(http.MethodPatch, "/v1/users/"+client.ID, map[string]any{"consultantId": ""})
	s.Require().Equal(http.StatusOK, code, res.Error)
	var updated handler.UserResponse
	s.Require().NoError(json.Unmarshal(res.Data, &updated))
	s.Nil(updated.ConsultantID)
	s.Nil(updated.Consultant)

	code, _ = s.do(http.MethodDelete, "/v1/users/"+consultant.ID, nil)
	s.Equal(http.StatusOK, code)

	code, res = s.do(http.MethodGet, "/v1/users/"+consultant.ID, nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal(user.MsgUserNotFound, res.Error)
}

func (s *RouterSuite) TestConsultantMustBeConsultant() {
	client := s.create("Carla", "CLIENT", nil)

	code, res := s.do(http.MethodPost, "/v1/users", map[string]any{
		"name": "Davi", "email": "davi@example.com", "phone": "11912345678",
		"cpf": "98765432100", "cep": "01310100", "address": "Rua A",
		"type": "CLIENT", "consultantId": client.ID,
	})
	s.Equal(http.StatusConflict, code)
	s.Equal(user.MsgNotAConsultant, res.Error)

	code, res = s.do(http.MethodPost, "/v1/users", map[string]any{
		"name": "Davi", "email": "davi@example.com", "phone": "11912345678",
		"cpf": "98765432100", "cep": "01310100", "address": "Rua A",
		"type": "CLIENT", "consultantId": "6f1c2d7e-2b9a-4c1e-9a57-0b2b8f1e4d10",
	})
	s.Equal(http.StatusNotFound, code)
	s.Equal(user.MsgConsultantNotFound, res.Error)

	code, res = s.do(http.MethodPost, "/v1/users", map[string]any{
		"name": "Davi", "email": "davi@example.com", "phone": "11912345678",
		"cpf": "98765432100", "cep": "01310100", "address": "Rua A",
		"type": "CLIENT", "consultantId": "does-not-exist",
	})
	s.Equal(http.StatusNotFound, code)
	s.Equal(user.MsgConsultantNotFound, res.Error)
}

func (s *RouterSuite) TestListSnapshotInvalidatedOnWrite() {
	s.create("Ana", "CONSULTANT", nil)
	s.Len(s.list("/v1/users"), 1)

	s.create("Bruno", "CLIENT", nil)
	users := s.list("/v1/users")
	s.Require().Len(users, 2)
	s.Equal("Bruno", users[0].Name, "newest first")

	s.Len(s.list("/v1/users?type=CONSULTANT"), 1)
	s.Len(s.list("/v1/users?query=brun"), 1)
}

func (s *RouterSuite) TestValidation() {
	code, res := s.do(http.MethodPost, "/v1/users", map[string]any{"name": "X", "type": "CLIENT"})
	s.Equal(http.StatusBadRequest, code)
	s.False(res.Success)

	code, _ = s.do(http.MethodGet, "/v1/users?type=ADMIN", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *RouterSuite) TestCEPLookup() {
	code, res := s.do(http.MethodGet, "/v1/cep/01310-100", nil)
	s.Require().Equal(http.StatusOK, code)
	var addr handler.AddressResponse
	s.Require().NoError(json.Unmarshal(res.Data, &addr))
	s.Equal("Avenida Paulista", addr.Street)
	s.Equal("SP", addr.State)

	code, res = s.do(http.MethodGet, "/v1/cep/99999999", nil)
	s.Equal(http.StatusNotFound, code)
	s.Equal("CEP não encontrado", res.Error)

	code, _ = s.do(http.MethodGet, "/v1/cep/123", nil)
	s.Equal(http.StatusBadRequest, code)
}

func (s *RouterSuite) TestDocsAndMetrics() {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"openapi"`)

	s.list("/v1/users")
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "dashboard_http_requests_total")
}

func (s *RouterSuite) TestDashboardPage() {
	s.create("Ana Souza", "CONSULTANT", nil)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "Ana Souza")
	s.NotEmpty(w.Header().Get("X-Request-ID"))
}
