package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"coursehub/config"
	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/service"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/query"
	"coursehub/pkg/response"
	"coursehub/pkg/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock IdentityService ──

type mockIdentityService struct {
	registerResult *dto.AccountResponse
	registerErr    error
	loginResult    *dto.TokenResponse
	loginErr       error
	logoutErr      error
	meResult       *dto.AccountResponse
	meErr          error
	authCaller     *service.Caller
	authErr        error
}

func (m *mockIdentityService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.AccountResponse, error) {
	return m.registerResult, m.registerErr
}
func (m *mockIdentityService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.TokenResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockIdentityService) Logout(_ context.Context, _ *service.Caller) error {
	return m.logoutErr
}
func (m *mockIdentityService) Authenticate(_ context.Context, _ string) (*service.Caller, error) {
	return m.authCaller, m.authErr
}
func (m *mockIdentityService) Me(_ context.Context, _ *service.Caller) (*dto.AccountResponse, error) {
	return m.meResult, m.meErr
}
func (m *mockIdentityService) EnsureAdmin(_ context.Context, _ config.SeedAdmin) error {
	return nil
}
func (m *mockIdentityService) SweepExpiredSessions(_ context.Context) (int64, error) {
	return 0, nil
}

// ── Mock CatalogService ──

type mockCatalogService struct {
	taxonomy      *dto.TaxonomyResponse
	taxonomies    []dto.TaxonomyResponse
	course        *dto.CourseResponse
	coursePage    *query.Page[dto.CourseResponse]
	lesson        *dto.LessonResponse
	lessons       []dto.LessonResponse
	err           error
	gotVisible    *bool
	gotReorder    *dto.ReorderLessonsRequest
	gotUpload     []byte
	gotUploadType string
}

func (m *mockCatalogService) CreateKnowledgeArea(_ context.Context, _ *service.Caller, _ *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error) {
	return m.taxonomy, m.err
}
func (m *mockCatalogService) ListKnowledgeAreas(_ context.Context, _ *service.Caller) ([]dto.TaxonomyResponse, error) {
	return m.taxonomies, m.err
}
func (m *mockCatalogService) SetKnowledgeAreaVisibility(_ context.Context, _ *service.Caller, _ int64, visible bool) (*dto.TaxonomyResponse, error) {
	m.gotVisible = &visible
	return m.taxonomy, m.err
}
func (m *mockCatalogService) CreateCampus(_ context.Context, _ *service.Caller, _ *dto.CreateTaxonomyRequest) (*dto.TaxonomyResponse, error) {
	return m.taxonomy, m.err
}
func (m *mockCatalogService) ListCampuses(_ context.Context, _ *service.Caller) ([]dto.TaxonomyResponse, error) {
	return m.taxonomies, m.err
}
func (m *mockCatalogService) SetCampusVisibility(_ context.Context, _ *service.Caller, _ int64, visible bool) (*dto.TaxonomyResponse, error) {
	m.gotVisible = &visible
	return m.taxonomy, m.err
}
func (m *mockCatalogService) CreateCourse(_ context.Context, _ *service.Caller, _ *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	return m.course, m.err
}
func (m *mockCatalogService) GetCourse(_ context.Context, _ *service.Caller, _ int64) (*dto.CourseResponse, error) {
	return m.course, m.err
}
func (m *mockCatalogService) ListCourses(_ context.Context, _ *service.Caller, _ *dto.CourseListRequest) (*query.Page[dto.CourseResponse], error) {
	return m.coursePage, m.err
}
func (m *mockCatalogService) SetCourseVisibility(_ context.Context, _ *service.Caller, _ int64, visible bool) (*dto.CourseResponse, error) {
	m.gotVisible = &visible
	return m.course, m.err
}
func (m *mockCatalogService) UploadCourseThumbnail(_ context.Context, _ *service.Caller, _ int64, contentType string, r io.Reader) (*dto.CourseResponse, error) {
	m.gotUploadType = contentType
	m.gotUpload, _ = io.ReadAll(r)
	return m.course, m.err
}
func (m *mockCatalogService) CreateLesson(_ context.Context, _ *service.Caller, _ int64, _ *dto.CreateLessonRequest) (*dto.LessonResponse, error) {
	return m.lesson, m.err
}
func (m *mockCatalogService) ListLessons(_ context.Context, _ *service.Caller, _ int64) ([]dto.LessonResponse, error) {
	return m.lessons, m.err
}
func (m *mockCatalogService) ReorderLessons(_ context.Context, _ *service.Caller, _ int64, req *dto.ReorderLessonsRequest) ([]dto.LessonResponse, error) {
	m.gotReorder = req
	return m.lessons, m.err
}

// ── Mock EnrollmentService ──

type mockEnrollmentService struct {
	enrollment    *dto.EnrollmentResponse
	created       bool
	mark          *dto.MarkProgressResponse
	myCourses     *query.Page[dto.MyCourseResponse]
	list          []dto.EnrollmentResponse
	err           error
	gotEnrollment int64
	gotLesson     int64
	gotDone       *bool
}

func (m *mockEnrollmentService) Enroll(_ context.Context, _ *service.Caller, _ *dto.EnrollRequest) (*dto.EnrollmentResponse, bool, error) {
	return m.enrollment, m.created, m.err
}
func (m *mockEnrollmentService) MarkLessonProgress(_ context.Context, _ *service.Caller, enrollmentID, lessonID int64, done bool) (*dto.MarkProgressResponse, error) {
	m.gotEnrollment, m.gotLesson, m.gotDone = enrollmentID, lessonID, &done
	return m.mark, m.err
}
func (m *mockEnrollmentService) RecomputeCompletion(_ context.Context, _ int64) (*dto.EnrollmentResponse, error) {
	return m.enrollment, m.err
}
func (m *mockEnrollmentService) GetEnrollment(_ context.Context, _ *service.Caller, _ int64) (*dto.EnrollmentResponse, error) {
	return m.enrollment, m.err
}
func (m *mockEnrollmentService) ListMyCourses(_ context.Context, _ *service.Caller, _ *dto.MyCoursesRequest) (*query.Page[dto.MyCourseResponse], error) {
	return m.myCourses, m.err
}
func (m *mockEnrollmentService) ListCourseEnrollments(_ context.Context, _ *service.Caller, _ int64) ([]dto.EnrollmentResponse, error) {
	return m.list, m.err
}

// ── Mock CertificateService ──

type mockCertificateService struct {
	result    *dto.CertificateResponse
	page      *query.Page[dto.CertificateResponse]
	err       error
	gotDecide *dto.DecideCertificateRequest
}

func (m *mockCertificateService) Request(_ context.Context, _ *service.Caller, _ int64) (*dto.CertificateResponse, error) {
	return m.result, m.err
}
func (m *mockCertificateService) Approve(_ context.Context, _ *service.Caller, _ int64) (*dto.CertificateResponse, error) {
	return m.result, m.err
}
func (m *mockCertificateService) Reject(_ context.Context, _ *service.Caller, _ int64, _ *string) (*dto.CertificateResponse, error) {
	return m.result, m.err
}
func (m *mockCertificateService) Decide(_ context.Context, _ *service.Caller, _ int64, req *dto.DecideCertificateRequest) (*dto.CertificateResponse, error) {
	m.gotDecide = req
	return m.result, m.err
}
func (m *mockCertificateService) Get(_ context.Context, _ *service.Caller, _ int64) (*dto.CertificateResponse, error) {
	return m.result, m.err
}
func (m *mockCertificateService) List(_ context.Context, _ *service.Caller, _ *dto.CertificateListRequest) (*query.Page[dto.CertificateResponse], error) {
	return m.page, m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf      *bytes.Buffer
	filename string
	err      error
}

func (m *mockExportService) ExportCourseProgress(_ context.Context, _ *service.Caller, _ int64) (*bytes.Buffer, string, error) {
	return m.buf, m.filename, m.err
}

// ═══════════════════════════════════════════════════════════
// Test Helpers
// ═══════════════════════════════════════════════════════════

var (
	adminCaller   = &service.Caller{AccountID: 1, Role: model.RoleAdmin, SessionToken: "s-admin"}
	studentCaller = &service.Caller{AccountID: 2, Role: model.RoleStudent, SessionToken: "s-student"}
)

// newRouter 创建测试引擎；caller 非 nil 时模拟认证中间件注入调用方
func newRouter(caller *service.Caller) *gin.Engine {
	r := gin.New()
	if caller != nil {
		r.Use(func(c *gin.Context) {
			SetCaller(c, caller)
			c.Next()
		})
	}
	return r
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func doJSON(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status, code int) {
	t.Helper()
	if w.Code != status {
		t.Errorf("expected %d, got %d (%s)", status, w.Code, w.Body.String())
	}
	if resp := parseResponse(w); resp.Code != code {
		t.Errorf("expected code %d, got %d", code, resp.Code)
	}
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Register_Success(t *testing.T) {
	mock := &mockIdentityService{registerResult: &dto.AccountResponse{ID: 7, Name: "Ana", Email: "ana@x.com", Role: "student"}}
	h := NewAuthHandler(mock)

	r := newRouter(nil)
	r.POST("/auth/register", h.Register)
	w := doJSON(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: "Ana", Email: "ana@x.com", Password: "senha123"}))

	expectStatus(t, w, http.StatusCreated, 0)
}

func TestAuthHandler_Register_Invalid(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{})
	r := newRouter(nil)
	r.POST("/auth/register", h.Register)

	w := doJSON(r, "POST", "/auth/register", jsonBody(map[string]string{"nome": "Ana", "email": "not-an-email", "senha": "senha123"}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	w = doJSON(r, "POST", "/auth/register", strings.NewReader("invalid json"))
	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func TestAuthHandler_Register_BodyTooLarge(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{})
	r := newRouter(nil)
	r.POST("/auth/register", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 16)
		c.Next()
	}, h.Register)

	w := doJSON(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: strings.Repeat("a", 64), Email: "ana@x.com", Password: "senha123"}))
	expectStatus(t, w, http.StatusRequestEntityTooLarge, 10005)
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	h := NewAuthHandler(&mockIdentityService{registerErr: service.ErrEmailExists})
	r := newRouter(nil)
	r.POST("/auth/register", h.Register)

	w := doJSON(r, "POST", "/auth/register", jsonBody(dto.RegisterRequest{Name: "Ana", Email: "ana@x.com", Password: "senha123"}))
	expectStatus(t, w, http.StatusConflict, 11005)
}

func TestAuthHandler_Login(t *testing.T) {
	mock := &mockIdentityService{loginResult: &dto.TokenResponse{Token: "jwt", ExpiresAt: "2026-01-01T00:00:00Z"}}
	h := NewAuthHandler(mock)
	r := newRouter(nil)
	r.POST("/auth/login", h.Login)

	w := doJSON(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "ana@x.com", Password: "senha123"}))
	expectStatus(t, w, http.StatusOK, 0)
	data, _ := parseResponse(w).Data.(map[string]interface{})
	if data["token"] != "jwt" {
		t.Errorf("expected token jwt, got %v", data["token"])
	}

	mock.loginErr = service.ErrInvalidCredentials
	w = doJSON(r, "POST", "/auth/login", jsonBody(dto.LoginRequest{Email: "ana@x.com", Password: "errada"}))
	expectStatus(t, w, http.StatusUnauthorized, 11004)
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	mock := &mockIdentityService{meResult: &dto.AccountResponse{ID: 2, Name: "Ana"}}
	h := NewAuthHandler(mock)

	// 未注入调用方
	r := newRouter(nil)
	r.GET("/auth/me", h.Me)
	w := doJSON(r, "GET", "/auth/me", nil)
	expectStatus(t, w, http.StatusUnauthorized, 10002)

	r = newRouter(studentCaller)
	r.GET("/auth/me", h.Me)
	r.POST("/auth/logout", h.Logout)
	w = doJSON(r, "GET", "/auth/me", nil)
	expectStatus(t, w, http.StatusOK, 0)

	w = doJSON(r, "POST", "/auth/logout", nil)
	expectStatus(t, w, http.StatusOK, 0)

	mock.logoutErr = service.ErrInvalidSession
	w = doJSON(r, "POST", "/auth/logout", nil)
	expectStatus(t, w, http.StatusUnauthorized, 11002)
}

// ═══════════════════════════════════════════════════════════
// CatalogHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCatalogHandler_CreateCourse(t *testing.T) {
	mock := &mockCatalogService{course: &dto.CourseResponse{ID: 1, Name: "Go"}}
	h := NewCatalogHandler(mock, 0)
	r := newRouter(adminCaller)
	r.POST("/courses", h.CreateCourse)

	body := dto.CreateCourseRequest{Name: "Go", Professor: "Maria", Workload: 40, KnowledgeAreaID: 1, CampusID: 1}
	w := doJSON(r, "POST", "/courses", jsonBody(body))
	expectStatus(t, w, http.StatusCreated, 0)

	mock.err = apperrors.Forbidden(string(model.RoleAdmin))
	w = doJSON(r, "POST", "/courses", jsonBody(body))
	expectStatus(t, w, http.StatusForbidden, 10003)

	mock.err = service.ErrKnowledgeAreaNotFound
	w = doJSON(r, "POST", "/courses", jsonBody(body))
	expectStatus(t, w, http.StatusNotFound, 12001)
}

func TestCatalogHandler_GetCourse_BadID(t *testing.T) {
	h := NewCatalogHandler(&mockCatalogService{}, 0)
	r := newRouter(studentCaller)
	r.GET("/courses/:id", h.GetCourse)

	for _, id := range []string{"abc", "0", "-3"} {
		w := doJSON(r, "GET", "/courses/"+id, nil)
		expectStatus(t, w, http.StatusBadRequest, 10001)
	}
}

func TestCatalogHandler_ListCourses(t *testing.T) {
	mock := &mockCatalogService{coursePage: &query.Page[dto.CourseResponse]{
		Content: []dto.CourseResponse{{ID: 1}}, Page: 0, Size: 10, TotalItems: 1, TotalPages: 1,
	}}
	h := NewCatalogHandler(mock, 0)
	r := newRouter(studentCaller)
	r.GET("/courses", h.ListCourses)

	w := doJSON(r, "GET", "/courses?nome=go&page=0&size=10&direction=desc", nil)
	expectStatus(t, w, http.StatusOK, 0)
	data, _ := parseResponse(w).Data.(map[string]interface{})
	if data["totalItems"] != float64(1) {
		t.Errorf("expected totalItems 1, got %v", data["totalItems"])
	}

	w = doJSON(r, "GET", "/courses?page=abc", nil)
	expectStatus(t, w, http.StatusBadRequest, 10001)

	for _, q := range []string{"size=0", "size=101", "page=-1"} {
		w = doJSON(r, "GET", "/courses?"+q, nil)
		expectStatus(t, w, http.StatusBadRequest, 10001)
	}

	w = doJSON(r, "GET", "/courses?page=4611686018427387904&size=100", nil)
	expectStatus(t, w, http.StatusOK, 0)

	mock.err = query.ErrInvalidPage
	w = doJSON(r, "GET", "/courses?size=5", nil)
	expectStatus(t, w, http.StatusBadRequest, 10006)
}

func TestCatalogHandler_UpdateVisibility(t *testing.T) {
	mock := &mockCatalogService{course: &dto.CourseResponse{ID: 1}, taxonomy: &dto.TaxonomyResponse{ID: 1}}
	h := NewCatalogHandler(mock, 0)
	r := newRouter(adminCaller)
	r.PATCH("/courses/:id", h.UpdateCourse)
	r.PATCH("/campuses/:id", h.UpdateCampus)

	// visivel 为必填
	w := doJSON(r, "PATCH", "/courses/1", jsonBody(map[string]string{}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	w = doJSON(r, "PATCH", "/courses/1", jsonBody(map[string]bool{"visivel": false}))
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotVisible == nil || *mock.gotVisible {
		t.Errorf("expected visible=false to reach service, got %v", mock.gotVisible)
	}

	w = doJSON(r, "PATCH", "/campuses/1", jsonBody(map[string]bool{"visivel": true}))
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotVisible == nil || !*mock.gotVisible {
		t.Errorf("expected visible=true to reach service, got %v", mock.gotVisible)
	}
}

func TestCatalogHandler_ReorderLessons(t *testing.T) {
	mock := &mockCatalogService{lessons: []dto.LessonResponse{{ID: 3, Ordinal: 1}}}
	h := NewCatalogHandler(mock, 0)
	r := newRouter(adminCaller)
	r.PATCH("/courses/:id/lessons/reorder", h.ReorderLessons)

	body := map[string]interface{}{"aulas": []map[string]interface{}{{"id": 3, "ordemAula": 1}, {"id": 4, "ordemAula": 2}}}
	w := doJSON(r, "PATCH", "/courses/1/lessons/reorder", jsonBody(body))
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotReorder == nil || len(mock.gotReorder.Lessons) != 2 || mock.gotReorder.Lessons[1].LessonID != 4 {
		t.Errorf("reorder body not forwarded: %+v", mock.gotReorder)
	}

	mock.err = service.ErrLessonNotInCourse
	w = doJSON(r, "PATCH", "/courses/1/lessons/reorder", jsonBody(body))
	expectStatus(t, w, http.StatusBadRequest, 12005)
}

func TestCatalogHandler_CreateLesson(t *testing.T) {
	mock := &mockCatalogService{lesson: &dto.LessonResponse{ID: 9, Ordinal: 3}}
	h := NewCatalogHandler(mock, 0)
	r := newRouter(adminCaller)
	r.POST("/courses/:id/lessons", h.CreateLesson)

	w := doJSON(r, "POST", "/courses/1/lessons", jsonBody(dto.CreateLessonRequest{Title: "Aula", VideoURL: "v"}))
	expectStatus(t, w, http.StatusCreated, 0)

	w = doJSON(r, "POST", "/courses/1/lessons", jsonBody(map[string]string{"descricao": "sem título"}))
	expectStatus(t, w, http.StatusBadRequest, 10001)
}

func multipartUpload(t *testing.T, field, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	mw := multipart.NewWriter(body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="`+field+`"; filename="thumb.png"`)
	hdr.Set("Content-Type", contentType)
	part, err := mw.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(content)
	mw.Close()
	return body, mw.FormDataContentType()
}

func TestCatalogHandler_UploadThumbnail(t *testing.T) {
	mock := &mockCatalogService{course: &dto.CourseResponse{ID: 1, ThumbnailURL: "http://blobs.test/courses/1/thumbnail"}}
	h := NewCatalogHandler(mock, 16)
	r := newRouter(adminCaller)
	r.PUT("/courses/:id/thumbnail", h.UploadThumbnail)

	send := func(field string, content []byte) *httptest.ResponseRecorder {
		body, ct := multipartUpload(t, field, "image/png", content)
		w := httptest.NewRecorder()
		req := httptest.NewRequest("PUT", "/courses/1/thumbnail", body)
		req.Header.Set("Content-Type", ct)
		r.ServeHTTP(w, req)
		return w
	}

	w := send("file", []byte("png-bytes"))
	expectStatus(t, w, http.StatusOK, 0)
	if string(mock.gotUpload) != "png-bytes" || mock.gotUploadType != "image/png" {
		t.Errorf("upload not forwarded: %q %q", mock.gotUpload, mock.gotUploadType)
	}

	w = send("other", []byte("png-bytes"))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	w = send("file", bytes.Repeat([]byte("x"), 17))
	expectStatus(t, w, http.StatusRequestEntityTooLarge, 10005)
}

// ═══════════════════════════════════════════════════════════
// EnrollmentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestEnrollmentHandler_Enroll_CreatedOrExisting(t *testing.T) {
	mock := &mockEnrollmentService{enrollment: &dto.EnrollmentResponse{ID: 5}, created: true}
	h := NewEnrollmentHandler(mock)
	r := newRouter(studentCaller)
	r.POST("/enrollments", h.Enroll)

	w := doJSON(r, "POST", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 1}))
	expectStatus(t, w, http.StatusCreated, 0)

	mock.created = false
	w = doJSON(r, "POST", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 1}))
	expectStatus(t, w, http.StatusOK, 0)

	w = doJSON(r, "POST", "/enrollments", jsonBody(map[string]int{"cursoId": 0}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	mock.err = service.ErrCourseNotFound
	w = doJSON(r, "POST", "/enrollments", jsonBody(dto.EnrollRequest{CourseID: 1}))
	expectStatus(t, w, http.StatusNotFound, 12003)
}

func TestEnrollmentHandler_MarkProgress(t *testing.T) {
	mock := &mockEnrollmentService{mark: &dto.MarkProgressResponse{}}
	h := NewEnrollmentHandler(mock)
	r := newRouter(studentCaller)
	r.POST("/enrollments/:id/lessons/:lessonId/progress", h.MarkProgress)

	w := doJSON(r, "POST", "/enrollments/4/lessons/9/progress", jsonBody(map[string]bool{"concluido": false}))
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotEnrollment != 4 || mock.gotLesson != 9 || mock.gotDone == nil || *mock.gotDone {
		t.Errorf("unexpected args: %d %d %v", mock.gotEnrollment, mock.gotLesson, mock.gotDone)
	}

	// concluido 缺失时拒绝，而不是当作 false
	w = doJSON(r, "POST", "/enrollments/4/lessons/9/progress", jsonBody(map[string]string{}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	w = doJSON(r, "POST", "/enrollments/4/lessons/x/progress", jsonBody(map[string]bool{"concluido": true}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	mock.err = apperrors.Forbidden(string(model.RoleAdmin), string(model.RoleStudent))
	w = doJSON(r, "POST", "/enrollments/4/lessons/9/progress", jsonBody(map[string]bool{"concluido": true}))
	expectStatus(t, w, http.StatusForbidden, 10003)
}

func TestEnrollmentHandler_MyCourses(t *testing.T) {
	mock := &mockEnrollmentService{myCourses: &query.Page[dto.MyCourseResponse]{Content: []dto.MyCourseResponse{}, TotalPages: 1}}
	h := NewEnrollmentHandler(mock)
	r := newRouter(studentCaller)
	r.GET("/enrollments/my-courses", h.MyCourses)

	w := doJSON(r, "GET", "/enrollments/my-courses?concluido=true", nil)
	expectStatus(t, w, http.StatusOK, 0)

	w = doJSON(r, "GET", "/enrollments/my-courses?concluido=talvez", nil)
	expectStatus(t, w, http.StatusBadRequest, 10001)
}

// ═══════════════════════════════════════════════════════════
// CertificateHandler Tests
// ═══════════════════════════════════════════════════════════

func TestCertificateHandler_Request(t *testing.T) {
	mock := &mockCertificateService{result: &dto.CertificateResponse{ID: 1, Status: "pending"}}
	h := NewCertificateHandler(mock)
	r := newRouter(studentCaller)
	r.POST("/enrollments/:id/certificate-requests", h.Request)

	w := doJSON(r, "POST", "/enrollments/3/certificate-requests", nil)
	expectStatus(t, w, http.StatusCreated, 0)

	mock.err = service.ErrEnrollmentNotCompleted
	w = doJSON(r, "POST", "/enrollments/3/certificate-requests", nil)
	expectStatus(t, w, http.StatusConflict, 14002)

	mock.err = service.ErrDuplicatePendingRequest
	w = doJSON(r, "POST", "/enrollments/3/certificate-requests", nil)
	expectStatus(t, w, http.StatusConflict, 14003)
}

func TestCertificateHandler_Decide(t *testing.T) {
	mock := &mockCertificateService{result: &dto.CertificateResponse{ID: 1, Status: "rejected"}}
	h := NewCertificateHandler(mock)
	r := newRouter(adminCaller)
	r.PATCH("/certificate-requests/:id", h.Decide)

	w := doJSON(r, "PATCH", "/certificate-requests/1", jsonBody(map[string]string{"status": "reprovado", "motivoReprovacao": "incomplete evidence"}))
	expectStatus(t, w, http.StatusOK, 0)
	if mock.gotDecide == nil || mock.gotDecide.Reason == nil || *mock.gotDecide.Reason != "incomplete evidence" {
		t.Errorf("decide body not forwarded: %+v", mock.gotDecide)
	}

	w = doJSON(r, "PATCH", "/certificate-requests/1", jsonBody(map[string]string{}))
	expectStatus(t, w, http.StatusBadRequest, 10001)

	mock.err = service.ErrInvalidTransition
	w = doJSON(r, "PATCH", "/certificate-requests/1", jsonBody(map[string]string{"status": "approved"}))
	expectStatus(t, w, http.StatusConflict, 14004)

	mock.err = service.ErrInvalidCertificateStatus
	w = doJSON(r, "PATCH", "/certificate-requests/1", jsonBody(map[string]string{"status": "foo"}))
	expectStatus(t, w, http.StatusBadRequest, 14005)
}

func TestCertificateHandler_ListAndGet(t *testing.T) {
	mock := &mockCertificateService{
		result: &dto.CertificateResponse{ID: 1},
		page:   &query.Page[dto.CertificateResponse]{Content: []dto.CertificateResponse{{ID: 1}}, TotalItems: 1, TotalPages: 1},
	}
	h := NewCertificateHandler(mock)
	r := newRouter(studentCaller)
	r.GET("/certificate-requests", h.List)
	r.GET("/certificate-requests/:id", h.Get)

	w := doJSON(r, "GET", "/certificate-requests?status=pending&matriculaId=3", nil)
	expectStatus(t, w, http.StatusOK, 0)

	w = doJSON(r, "GET", "/certificate-requests/1", nil)
	expectStatus(t, w, http.StatusOK, 0)

	mock.err = service.ErrCertificateRequestNotFound
	w = doJSON(r, "GET", "/certificate-requests/1", nil)
	expectStatus(t, w, http.StatusNotFound, 14001)
}

// ═══════════════════════════════════════════════════════════
// ExportHandler Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_ExportCourseProgress(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("xlsx-data"), filename: "progresso_curso_1.xlsx"}
	h := NewExportHandler(mock)
	r := newRouter(adminCaller)
	r.GET("/courses/:id/enrollments/export", h.ExportCourseProgress)

	w := doJSON(r, "GET", "/courses/1/enrollments/export", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("unexpected content type %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "progresso_curso_1.xlsx") {
		t.Errorf("unexpected content disposition %q", cd)
	}
	if w.Body.String() != "xlsx-data" {
		t.Errorf("unexpected body %q", w.Body.String())
	}

	mock.err = service.ErrCourseNotFound
	w = doJSON(r, "GET", "/courses/1/enrollments/export", nil)
	expectStatus(t, w, http.StatusNotFound, 12003)
}

// 非业务错误统一 500，不泄露内部信息
func TestFromError_InternalDoesNotLeak(t *testing.T) {
	mock := &mockEnrollmentService{err: errors.New("pq: connection refused")}
	h := NewEnrollmentHandler(mock)
	r := newRouter(adminCaller)
	r.GET("/enrollments/:id", h.GetEnrollment)

	w := doJSON(r, "GET", "/enrollments/1", nil)
	expectStatus(t, w, http.StatusInternalServerError, 50000)
	if strings.Contains(w.Body.String(), "connection refused") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// BlobHandler Tests
// ═══════════════════════════════════════════════════════════

func TestBlobHandler_Get(t *testing.T) {
	blobs := storage.NewMemoryStore("/blobs")
	url, err := blobs.Put(context.Background(), "courses/1/thumbnail", "image/png", strings.NewReader("\x89PNG\r\n\x1a\nrest"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	h := NewBlobHandler(blobs)
	r := newRouter(nil)
	r.GET("/blobs/*key", h.Get)

	w := doJSON(r, "GET", url, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}

	w = doJSON(r, "GET", "/blobs/courses/2/thumbnail", nil)
	expectStatus(t, w, http.StatusNotFound, 10007)
}
