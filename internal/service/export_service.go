package service

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"coursehub/internal/model"
	"coursehub/internal/repository"
	apperrors "coursehub/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = apperrors.New(apperrors.KindInternal, 15001, "生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportCourseProgress 导出课程学习进度，每个选课一行
	ExportCourseProgress(ctx context.Context, caller *Caller, courseID int64) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// progressRow 导出的一行
type progressRow struct {
	name        string
	email       string
	done        int
	total       int
	completed   bool
	certificate string
	enrolledAt  string
}

// ═══════════════════════════════════════════════════════════
// ExportCourseProgress 导出课程学习进度
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "Progresso"
//   - 标题行：课程名
//   - 列：学生 | 邮箱 | 已完成课时 | 总课时 | 是否完成 | 证书状态 | 选课时间
//
// 完成状态在导出时按进度重新推导。

func (s *exportService) ExportCourseProgress(ctx context.Context, caller *Caller, courseID int64) (*bytes.Buffer, string, error) {
	if err := RequireRole(caller, model.RoleAdmin); err != nil {
		return nil, "", err
	}

	// 1. 课程与课时
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if isNotFound(err) {
			return nil, "", ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}
	lessons, err := s.repo.Lesson.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课时失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 选课与学生，批量查询避免 N+1
	enrollments, err := s.repo.Enrollment.ListByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询选课失败", zap.Error(err))
		return nil, "", err
	}
	studentIDs := make([]int64, 0, len(enrollments))
	for _, e := range enrollments {
		studentIDs = append(studentIDs, e.StudentID)
	}
	accounts, err := s.repo.Account.ListByIDs(ctx, studentIDs)
	if err != nil {
		s.logger.Error("批量查询学生失败", zap.Error(err))
		return nil, "", err
	}
	accountMap := make(map[int64]model.Account, len(accounts))
	for _, a := range accounts {
		accountMap[a.AccountID] = a
	}

	// 3. 每个选课的进度与最新证书状态
	rows := make([]progressRow, 0, len(enrollments))
	for _, e := range enrollments {
		progress, err := s.repo.Progress.ListByEnrollment(ctx, e.EnrollmentID)
		if err != nil {
			s.logger.Error("查询课时进度失败", zap.Error(err))
			return nil, "", err
		}
		certs, err := s.repo.Certificate.ListByEnrollment(ctx, e.EnrollmentID)
		if err != nil {
			s.logger.Error("查询证书申请失败", zap.Error(err))
			return nil, "", err
		}
		certStatus := "-"
		if len(certs) > 0 {
			certStatus = string(certs[len(certs)-1].Status)
		}

		acc := accountMap[e.StudentID]
		rows = append(rows, progressRow{
			name:        acc.Name,
			email:       acc.Email,
			done:        model.CountDone(lessons, progress),
			total:       len(lessons),
			completed:   model.IsComplete(lessons, progress),
			certificate: certStatus,
			enrolledAt:  formatTime(e.CreatedAt),
		})
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Progresso"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headers := []string{"Aluno", "Email", "Aulas concluídas", "Total de aulas", "Concluído", "Certificado", "Matriculado em"}
	widths := []float64{28, 32, 16, 14, 12, 14, 22}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", course.Name)
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for _, r := range rows {
		completed := "Não"
		if r.completed {
			completed = "Sim"
		}
		values := []interface{}{r.name, r.email, r.done, r.total, completed, r.certificate, r.enrolledAt}
		for i, v := range values {
			f.SetCellValue(sheetName, cell(colName(i), row), v)
		}
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("progresso_curso_%d.xlsx", course.CourseID)
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
