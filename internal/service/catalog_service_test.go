package service

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"coursehub/internal/dto"
	apperrors "coursehub/pkg/errors"
	"coursehub/pkg/query"
)

// ── 课程测试 ──

func TestCatalogService_CreateCourse_UnknownTaxonomy(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Catalog.CreateCourse(context.Background(), f.admin, &dto.CreateCourseRequest{
		Name: "X", Professor: "Y", KnowledgeAreaID: 99, CampusID: 99,
	})
	assertErr(t, err, ErrKnowledgeAreaNotFound)
}

func TestCatalogService_CreateCourse_StudentForbidden(t *testing.T) {
	f := newFixture(t)
	student := f.student(t, "ana")

	_, err := f.svc.Catalog.CreateCourse(context.Background(), student, &dto.CreateCourseRequest{Name: "X"})
	assertKind(t, err, apperrors.KindForbidden)
}

func TestCatalogService_InvisibleCourse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "ana")
	courseID, _ := f.course(t, false, 1)

	_, err := f.svc.Catalog.GetCourse(ctx, student, courseID)
	assertErr(t, err, ErrCourseNotFound)

	_, err = f.svc.Catalog.ListLessons(ctx, student, courseID)
	assertErr(t, err, ErrCourseNotFound)

	got, err := f.svc.Catalog.GetCourse(ctx, f.admin, courseID)
	if err != nil {
		t.Fatalf("管理员应能按 ID 访问隐藏课程: %v", err)
	}
	if got.LessonCount != 1 {
		t.Errorf("期望 totalAulas=1，实际=%d", got.LessonCount)
	}

	// 学生即使显式过滤 visivel=false 也看不到隐藏课程
	hidden := false
	page, err := f.svc.Catalog.ListCourses(ctx, student, &dto.CourseListRequest{Visible: &hidden})
	if err != nil {
		t.Fatalf("ListCourses 应成功: %v", err)
	}
	if page.TotalItems != 0 {
		t.Errorf("学生不应看到隐藏课程，实际=%d", page.TotalItems)
	}
}

func TestCatalogService_SetCourseVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "ana")
	courseID, _ := f.course(t, false, 0)

	if _, err := f.svc.Catalog.SetCourseVisibility(ctx, f.admin, courseID, true); err != nil {
		t.Fatalf("SetCourseVisibility 应成功: %v", err)
	}
	if _, err := f.svc.Catalog.GetCourse(ctx, student, courseID); err != nil {
		t.Errorf("课程公开后学生应可访问: %v", err)
	}

	_, err := f.svc.Catalog.SetCourseVisibility(ctx, f.admin, 999, true)
	assertErr(t, err, ErrCourseNotFound)
}

func TestCatalogService_ListCourses_FilterAndPaginate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.course(t, true, 0)
	f.course(t, true, 0)
	f.course(t, true, 0)

	size := 2
	page := 1
	result, err := f.svc.Catalog.ListCourses(ctx, f.admin, &dto.CourseListRequest{
		PageRequest: dto.PageRequest{Page: &page, Size: &size, Direction: "desc"},
		Name:        "PRÁTICA",
	})
	if err != nil {
		t.Fatalf("ListCourses 应成功: %v", err)
	}
	if result.TotalItems != 3 || result.TotalPages != 2 || len(result.Content) != 1 {
		t.Errorf("分页结果错误: total=%d pages=%d len=%d", result.TotalItems, result.TotalPages, len(result.Content))
	}
	// desc：最后一页是最早创建的课程
	if result.Content[0].ID != 1 {
		t.Errorf("期望最早的课程在最后一页，实际ID=%d", result.Content[0].ID)
	}

	far := 10
	result, err = f.svc.Catalog.ListCourses(ctx, f.admin, &dto.CourseListRequest{PageRequest: dto.PageRequest{Page: &far}})
	if err != nil {
		t.Fatalf("超出末尾的页不应报错: %v", err)
	}
	if len(result.Content) != 0 || result.Content == nil {
		t.Errorf("超出末尾应返回空切片，实际=%v", result.Content)
	}

	zero := 0
	_, err = f.svc.Catalog.ListCourses(ctx, f.admin, &dto.CourseListRequest{PageRequest: dto.PageRequest{Size: &zero}})
	assertErr(t, err, query.ErrInvalidPage)

	_, err = f.svc.Catalog.ListCourses(ctx, f.admin, &dto.CourseListRequest{PageRequest: dto.PageRequest{Direction: "up"}})
	assertKind(t, err, apperrors.KindValidation)
}

func TestCatalogService_TaxonomyVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	student := f.student(t, "ana")

	hidden := false
	area, err := f.svc.Catalog.CreateKnowledgeArea(ctx, f.admin, &dto.CreateTaxonomyRequest{Name: "Oculta", Visible: &hidden})
	if err != nil {
		t.Fatalf("CreateKnowledgeArea 应成功: %v", err)
	}
	_, _ = f.svc.Catalog.CreateKnowledgeArea(ctx, f.admin, &dto.CreateTaxonomyRequest{Name: "Exatas"})

	list, _ := f.svc.Catalog.ListKnowledgeAreas(ctx, student)
	if len(list) != 1 || list[0].Name != "Exatas" {
		t.Errorf("学生只应看到可见领域，实际=%v", list)
	}
	list, _ = f.svc.Catalog.ListKnowledgeAreas(ctx, f.admin)
	if len(list) != 2 {
		t.Errorf("管理员应看到全部领域，实际=%d", len(list))
	}

	if _, err := f.svc.Catalog.SetKnowledgeAreaVisibility(ctx, f.admin, area.ID, true); err != nil {
		t.Fatalf("SetKnowledgeAreaVisibility 应成功: %v", err)
	}
	list, _ = f.svc.Catalog.ListKnowledgeAreas(ctx, student)
	if len(list) != 2 {
		t.Errorf("公开后学生应看到 2 个领域，实际=%d", len(list))
	}

	campus, _ := f.svc.Catalog.CreateCampus(ctx, f.admin, &dto.CreateTaxonomyRequest{Name: "Norte", Visible: &hidden})
	campuses, _ := f.svc.Catalog.ListCampuses(ctx, student)
	if len(campuses) != 0 {
		t.Errorf("学生不应看到隐藏校区，实际=%d", len(campuses))
	}
	if _, err := f.svc.Catalog.SetCampusVisibility(ctx, f.admin, campus.ID, true); err != nil {
		t.Fatalf("SetCampusVisibility 应成功: %v", err)
	}
	_, err = f.svc.Catalog.SetCampusVisibility(ctx, f.admin, 999, true)
	assertErr(t, err, ErrCampusNotFound)
}

func TestCatalogService_UploadCourseThumbnail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseID, _ := f.course(t, true, 0)

	_, err := f.svc.Catalog.UploadCourseThumbnail(ctx, f.admin, courseID, "text/plain", strings.NewReader("x"))
	assertErr(t, err, ErrInvalidThumbnail)

	got, err := f.svc.Catalog.UploadCourseThumbnail(ctx, f.admin, courseID, "image/png", strings.NewReader("png"))
	if err != nil {
		t.Fatalf("UploadCourseThumbnail 应成功: %v", err)
	}
	if got.ThumbnailURL != testBlobBaseURL+"/courses/1/thumbnail" {
		t.Errorf("缩略图 URL 错误: %s", got.ThumbnailURL)
	}

	_, err = f.svc.Catalog.UploadCourseThumbnail(ctx, f.admin, 999, "image/png", strings.NewReader("png"))
	assertErr(t, err, ErrCourseNotFound)
}

// ── 课时测试 ──

func TestCatalogService_CreateLesson_AppendsOrdinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseID, ids := f.course(t, true, 3)

	lessons, err := f.svc.Catalog.ListLessons(ctx, f.admin, courseID)
	if err != nil {
		t.Fatalf("ListLessons 应成功: %v", err)
	}
	for i, l := range lessons {
		if l.ID != ids[i] || l.Ordinal != i+1 {
			t.Errorf("第 %d 节课期望 (id=%d, ordemAula=%d)，实际 (%d, %d)", i, ids[i], i+1, l.ID, l.Ordinal)
		}
	}

	_, err = f.svc.Catalog.CreateLesson(ctx, f.admin, 999, &dto.CreateLessonRequest{Title: "x", VideoURL: "y"})
	assertErr(t, err, ErrCourseNotFound)
}

func TestCatalogService_ReorderLessons_Scenario(t *testing.T) {
	f := newFixture(t)
	courseID, ids := f.course(t, true, 3)
	l1, l2, l3 := ids[0], ids[1], ids[2]

	result, err := f.svc.Catalog.ReorderLessons(context.Background(), f.admin, courseID, &dto.ReorderLessonsRequest{
		Lessons: []dto.LessonOrder{{LessonID: l2, Ordinal: 1}, {LessonID: l1, Ordinal: 2}, {LessonID: l3, Ordinal: 3}},
	})
	if err != nil {
		t.Fatalf("ReorderLessons 应成功: %v", err)
	}
	want := []int64{l2, l1, l3}
	for i, l := range result {
		if l.ID != want[i] || l.Ordinal != i+1 {
			t.Errorf("位置 %d 期望课时 %d，实际 %d (ordemAula=%d)", i, want[i], l.ID, l.Ordinal)
		}
	}

	got := f.ordinals(t, courseID)
	if got[l2] != 1 || got[l1] != 2 || got[l3] != 3 {
		t.Errorf("存储的序号错误: %v", got)
	}
}

func TestCatalogService_ReorderLessons_RenormalizesDegenerateOrdinals(t *testing.T) {
	f := newFixture(t)
	courseID, ids := f.course(t, true, 3)
	l1, l2, l3 := ids[0], ids[1], ids[2]

	// 并列与空洞：L1、L2 并列按原序号决胜，L3 最小
	_, err := f.svc.Catalog.ReorderLessons(context.Background(), f.admin, courseID, &dto.ReorderLessonsRequest{
		Lessons: []dto.LessonOrder{{LessonID: l1, Ordinal: 10}, {LessonID: l2, Ordinal: 10}, {LessonID: l3, Ordinal: -5}},
	})
	if err != nil {
		t.Fatalf("ReorderLessons 不应因序号取值失败: %v", err)
	}

	got := f.ordinals(t, courseID)
	if got[l3] != 1 || got[l1] != 2 || got[l2] != 3 {
		t.Errorf("归一化结果错误: %v", got)
	}
}

func TestCatalogService_ReorderLessons_SetMismatchLeavesOrderUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseID, ids := f.course(t, true, 3)
	_, otherLessons := f.course(t, true, 1)
	before := f.ordinals(t, courseID)

	cases := []struct {
		name  string
		items []dto.LessonOrder
		want  error
	}{
		{"缺少课时", []dto.LessonOrder{{LessonID: ids[0], Ordinal: 2}, {LessonID: ids[1], Ordinal: 1}}, apperrors.ErrInvalidRequest},
		{"重复课时", []dto.LessonOrder{{LessonID: ids[0], Ordinal: 3}, {LessonID: ids[0], Ordinal: 1}, {LessonID: ids[1], Ordinal: 2}}, ErrDuplicateLesson},
		{"其他课程的课时", []dto.LessonOrder{{LessonID: ids[0], Ordinal: 3}, {LessonID: ids[1], Ordinal: 1}, {LessonID: otherLessons[0], Ordinal: 2}}, ErrLessonNotInCourse},
	}
	for _, tc := range cases {
		_, err := f.svc.Catalog.ReorderLessons(ctx, f.admin, courseID, &dto.ReorderLessonsRequest{Lessons: tc.items})
		if err == nil {
			t.Errorf("%s: 期望失败", tc.name)
			continue
		}
		assertErr(t, err, tc.want)
		assertKind(t, err, apperrors.KindValidation)

		after := f.ordinals(t, courseID)
		for id, o := range before {
			if after[id] != o {
				t.Errorf("%s: 失败后序号不应改变，之前=%v 之后=%v", tc.name, before, after)
				break
			}
		}
	}
}

func TestCatalogService_ReorderLessons_Idempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseID, ids := f.course(t, true, 2)
	req := &dto.ReorderLessonsRequest{Lessons: []dto.LessonOrder{{LessonID: ids[1], Ordinal: 1}, {LessonID: ids[0], Ordinal: 2}}}

	first, err := f.svc.Catalog.ReorderLessons(ctx, f.admin, courseID, req)
	if err != nil {
		t.Fatalf("第一次重排应成功: %v", err)
	}
	second, err := f.svc.Catalog.ReorderLessons(ctx, f.admin, courseID, req)
	if err != nil {
		t.Fatalf("重复重排应成功: %v", err)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("重复重排结果应一致: %v vs %v", first, second)
		}
	}
}

// 任意 createLesson / reorderLessons 序列之后序号集合恰为 1..N
func TestCatalogService_OrdinalsStayDense(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	courseID, _ := f.course(t, true, 0)
	rng := rand.New(rand.NewSource(42))

	for step := 0; step < 60; step++ {
		if rng.Intn(3) == 0 {
			f.lesson(t, courseID)
		} else {
			current := f.ordinals(t, courseID)
			items := make([]dto.LessonOrder, 0, len(current))
			for id := range current {
				items = append(items, dto.LessonOrder{LessonID: id, Ordinal: rng.Intn(7) - 2})
			}
			if _, err := f.svc.Catalog.ReorderLessons(ctx, f.admin, courseID, &dto.ReorderLessonsRequest{Lessons: items}); err != nil {
				t.Fatalf("第 %d 步重排失败: %v", step, err)
			}
		}
		assertDense(t, f.ordinals(t, courseID))
	}
}
