package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"coursehub/config"
	"coursehub/internal/dto"
	"coursehub/internal/model"
	"coursehub/internal/repository"
	"coursehub/internal/repository/memory"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/jwt"
	"coursehub/pkg/storage"
)

// ── 测试辅助 ──

const testBlobBaseURL = "http://blobs.test"

type fixture struct {
	cfg    *config.Config
	repo   *repository.Repository
	jwtMgr *jwt.Manager
	svc    *Service
	admin  *Caller
}

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:  "test-secret-key-for-unit-testing-2026",
			SessionTTL: time.Hour,
		},
	}
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithConfig(t, testConfig())
}

func newFixtureWithConfig(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	repo := memory.NewRepository()
	jwtMgr := jwt.NewManager(&cfg.Auth)
	svc := NewService(cfg, repo, jwtMgr, storage.NewMemoryStore(testBlobBaseURL), zap.NewNop())

	f := &fixture{cfg: cfg, repo: repo, jwtMgr: jwtMgr, svc: svc}
	f.admin = f.account(t, "Admin", "admin@test.com", "admin123", model.RoleAdmin)
	return f
}

// account 直接写入账号并返回对应的调用方
func (f *fixture) account(t *testing.T, name, email, password string, role model.Role) *Caller {
	t.Helper()
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	a := &model.Account{Name: name, Email: email, PasswordHash: string(hash), Role: role}
	if err := f.repo.Account.Create(context.Background(), a); err != nil {
		t.Fatalf("创建账号失败: %v", err)
	}
	return &Caller{AccountID: a.AccountID, Role: role}
}

func (f *fixture) student(t *testing.T, name string) *Caller {
	return f.account(t, name, name+"@test.com", "senha123", model.RoleStudent)
}

// course 创建一门可见课程并追加 lessons 节课
func (f *fixture) course(t *testing.T, visible bool, lessons int) (int64, []int64) {
	t.Helper()
	ctx := context.Background()

	area, err := f.svc.Catalog.CreateKnowledgeArea(ctx, f.admin, &dto.CreateTaxonomyRequest{Name: "Computação"})
	if err != nil {
		t.Fatalf("创建知识领域失败: %v", err)
	}
	campus, err := f.svc.Catalog.CreateCampus(ctx, f.admin, &dto.CreateTaxonomyRequest{Name: "Centro"})
	if err != nil {
		t.Fatalf("创建校区失败: %v", err)
	}
	course, err := f.svc.Catalog.CreateCourse(ctx, f.admin, &dto.CreateCourseRequest{
		Name:            "Go na prática",
		Professor:       "Maria",
		Workload:        40,
		Visible:         &visible,
		KnowledgeAreaID: area.ID,
		CampusID:        campus.ID,
	})
	if err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}

	ids := make([]int64, 0, lessons)
	for i := 0; i < lessons; i++ {
		ids = append(ids, f.lesson(t, course.ID))
	}
	return course.ID, ids
}

func (f *fixture) lesson(t *testing.T, courseID int64) int64 {
	t.Helper()
	l, err := f.svc.Catalog.CreateLesson(context.Background(), f.admin, courseID, &dto.CreateLessonRequest{
		Title:    "Aula",
		VideoURL: "https://video.test/aula",
	})
	if err != nil {
		t.Fatalf("创建课时失败: %v", err)
	}
	return l.ID
}

func (f *fixture) enroll(t *testing.T, student *Caller, courseID int64) int64 {
	t.Helper()
	e, _, err := f.svc.Enrollment.Enroll(context.Background(), student, &dto.EnrollRequest{CourseID: courseID})
	if err != nil {
		t.Fatalf("选课失败: %v", err)
	}
	return e.ID
}

func (f *fixture) mark(t *testing.T, caller *Caller, enrollmentID, lessonID int64, done bool) *dto.MarkProgressResponse {
	t.Helper()
	resp, err := f.svc.Enrollment.MarkLessonProgress(context.Background(), caller, enrollmentID, lessonID, done)
	if err != nil {
		t.Fatalf("标记进度失败: %v", err)
	}
	return resp
}

// ordinals 返回课程按序号排列的 (lessonID → ordinal)
func (f *fixture) ordinals(t *testing.T, courseID int64) map[int64]int {
	t.Helper()
	lessons, err := f.repo.Lesson.ListByCourse(context.Background(), courseID)
	if err != nil {
		t.Fatalf("查询课时失败: %v", err)
	}
	out := make(map[int64]int, len(lessons))
	for _, l := range lessons {
		out[l.LessonID] = l.Ordinal
	}
	return out
}

func assertDense(t *testing.T, ordinals map[int64]int) {
	t.Helper()
	seen := make(map[int]bool, len(ordinals))
	for id, o := range ordinals {
		if o < 1 || o > len(ordinals) || seen[o] {
			t.Fatalf("序号应恰为 1..%d，课时 %d 的序号=%d，全部=%v", len(ordinals), id, o, ordinals)
		}
		seen[o] = true
	}
}

func assertKind(t *testing.T, err error, kind apperrors.Kind) {
	t.Helper()
	if got := apperrors.KindOf(err); got != kind || err == nil {
		t.Errorf("期望错误类别=%s，实际=%s (%v)", kind, got, err)
	}
}

func assertErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Errorf("期望 %v，实际: %v", want, err)
	}
}
