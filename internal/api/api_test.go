package api

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jon4hz/gradebook/internal/cache"
	"github.com/jon4hz/gradebook/internal/config"
	"github.com/jon4hz/gradebook/internal/database"
	"github.com/jon4hz/gradebook/internal/database/mock"
	"github.com/jon4hz/gradebook/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"
)

func testConfig() *config.Config {
	return &config.Config{
		Listen:        "127.0.0.1:0",
		SessionKey:    "test-secret-test-secret-test-sec",
		SessionMaxAge: 3600,
		Cache:         &config.CacheConfig{Type: config.CacheTypeMemory, TTL: 60},
		Password:      &config.PasswordConfig{MinLength: 8, BcryptCost: bcrypt.MinCost},
		Grading:       &config.GradingConfig{WeightTolerance: 0.001},
	}
}

type fakeJobs struct{}

func (fakeJobs) GetJobs() []scheduler.JobInfo {
	return []scheduler.JobInfo{{ID: "weight-audit", Name: "Weight audit", Status: scheduler.JobStatusScheduled}}
}

func (f fakeJobs) GetJob(id string) (scheduler.JobInfo, bool) {
	for _, j := range f.GetJobs() {
		if j.ID == id {
			return j, true
		}
	}
	return scheduler.JobInfo{}, false
}

type APITestSuite struct {
	suite.Suite
	db      *mock.MockDB
	handler http.Handler
	cookies []*http.Cookie
}

func (s *APITestSuite) SetupSuite() {
	database.PasswordCost = bcrypt.MinCost
	gin.SetMode(gin.TestMode)
}

func (s *APITestSuite) SetupTest() {
	cfg := testConfig()
	s.db = mock.NewMockDB()
	server, err := New(cfg, s.db, cache.NewSummaryCache(cfg.Cache), nil, fakeJobs{}, true)
	s.Require().NoError(err)
	s.handler = server.Handler()
	s.cookies = nil
}

func (s *APITestSuite) request(method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if cookies := w.Result().Cookies(); len(cookies) > 0 {
		s.cookies = cookies
	}
	return w
}

func (s *APITestSuite) TestFullFlow() {
	w := s.request(http.MethodGet, "/api/courses", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/api/auth/register", `{"username":"alice","email":"alice@example.com","password":"secret123"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())
	s.Require().NotEmpty(s.cookies)
	s.Equal(SessionCookieName, s.cookies[0].Name)
	s.True(s.cookies[0].HttpOnly)

	w = s.request(http.MethodPost, "/api/courses", `{"name":"Maths","assessmentNumber":2,"classWeight":0.4,"examWeight":0.6}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.request(http.MethodPost, "/api/courses/1/assessments", `{"name":"Quiz","weight":0.5,"mark":80}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.request(http.MethodGet, "/api/courses/1/summary?target=60", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Success bool `json:"success"`
		Summary struct {
			ClassAverage float64 `json:"classAverage"`
			Requirement  struct {
				ExamMark float64 `json:"examMark"`
			} `json:"requirement"`
		} `json:"summary"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.True(resp.Success)
	s.InDelta(80, resp.Summary.ClassAverage, 1e-9)
	s.InDelta(46.67, resp.Summary.Requirement.ExamMark, 1e-9)

	w = s.request(http.MethodPost, "/api/auth/logout", "")
	s.Require().Equal(http.StatusOK, w.Code)

	w = s.request(http.MethodGet, "/api/courses", "")
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *APITestSuite) TestJobs() {
	w := s.request(http.MethodGet, "/api/jobs", "")
	s.Equal(http.StatusUnauthorized, w.Code)

	w = s.request(http.MethodPost, "/api/auth/register", `{"username":"bob","email":"bob@example.com","password":"secret123"}`)
	s.Require().Equal(http.StatusCreated, w.Code, w.Body.String())

	w = s.request(http.MethodGet, "/api/jobs", "")
	s.Require().Equal(http.StatusOK, w.Code)
	var resp struct {
		Jobs []scheduler.JobInfo `json:"jobs"`
	}
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Require().Len(resp.Jobs, 1)
	s.Equal("weight-audit", resp.Jobs[0].ID)
	s.Equal(scheduler.JobStatusScheduled, resp.Jobs[0].Status)

	w = s.request(http.MethodGet, "/api/jobs/weight-audit", "")
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), `"name":"Weight audit"`)

	w = s.request(http.MethodGet, "/api/jobs/nope", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *APITestSuite) TestHealthz() {
	w := s.request(http.MethodGet, "/healthz", "")
	s.Equal(http.StatusOK, w.Code)
	s.NotEmpty(w.Header().Get(requestIDHeader))
}

func (s *APITestSuite) TestRequestIDIsPropagated() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	s.Equal("abc-123", w.Header().Get(requestIDHeader))
}

func (s *APITestSuite) TestGzip() {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	s.Require().Equal("gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	s.Require().NoError(err)
	body, err := io.ReadAll(zr)
	s.Require().NoError(err)
	s.Contains(string(body), `"success":true`)
}

func (s *APITestSuite) TestUnknownRoute() {
	w := s.request(http.MethodGet, "/api/nope", "")
	s.Equal(http.StatusNotFound, w.Code)

	w = s.request(http.MethodGet, "/nope", "")
	s.Equal(http.StatusNotFound, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}

func TestNew_Validation(t *testing.T) {
	cfg := testConfig()
	db := mock.NewMockDB()
	summaries := cache.NewSummaryCache(cfg.Cache)

	_, err := New(nil, db, summaries, nil, nil, true)
	assert.Error(t, err)
	_, err = New(cfg, nil, summaries, nil, nil, true)
	assert.Error(t, err)
	_, err = New(cfg, db, nil, nil, nil, true)
	assert.Error(t, err)

	server, err := New(cfg, db, summaries, nil, nil, true)
	require.NoError(t, err)
	assert.NotNil(t, server.Handler())

	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
