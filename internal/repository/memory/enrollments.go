package memory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"coursehub/internal/model"
)

// ── Enrollment ──

type enrollmentTable struct{ table }

func (t enrollmentTable) Create(_ context.Context, e *model.Enrollment) error {
	return t.write(func(d *dataset) error {
		for _, existing := range d.enrollments {
			if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
				return gorm.ErrDuplicatedKey
			}
		}
		e.EnrollmentID = d.ids.Next("enrollments")
		e.Touch(t.now())
		d.enrollments[e.EnrollmentID] = *e
		return nil
	})
}

func (t enrollmentTable) GetByID(_ context.Context, id int64) (*model.Enrollment, error) {
	var (
		out model.Enrollment
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.enrollments[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t enrollmentTable) GetByStudentAndCourse(_ context.Context, studentID, courseID int64) (*model.Enrollment, error) {
	var (
		out model.Enrollment
		ok  bool
	)
	t.read(func(d *dataset) {
		for _, e := range d.enrollments {
			if e.StudentID == studentID && e.CourseID == courseID {
				out, ok = e, true
				return
			}
		}
	})
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t enrollmentTable) list(match func(model.Enrollment) bool) []model.Enrollment {
	out := []model.Enrollment{}
	t.read(func(d *dataset) {
		for _, e := range d.enrollments {
			if match(e) {
				out = append(out, e)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].EnrollmentID < out[j].EnrollmentID
	})
	return out
}

func (t enrollmentTable) ListByStudent(_ context.Context, studentID int64) ([]model.Enrollment, error) {
	return t.list(func(e model.Enrollment) bool { return e.StudentID == studentID }), nil
}

func (t enrollmentTable) ListByCourse(_ context.Context, courseID int64) ([]model.Enrollment, error) {
	return t.list(func(e model.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (t enrollmentTable) Update(_ context.Context, e *model.Enrollment) error {
	return t.write(func(d *dataset) error {
		if _, ok := d.enrollments[e.EnrollmentID]; !ok {
			return gorm.ErrRecordNotFound
		}
		e.Touch(t.now())
		d.enrollments[e.EnrollmentID] = *e
		return nil
	})
}

// ── LessonProgress ──

type progressTable struct{ table }

func (t progressTable) Get(_ context.Context, enrollmentID, lessonID int64) (*model.LessonProgress, error) {
	var (
		out model.LessonProgress
		ok  bool
	)
	t.read(func(d *dataset) {
		out, ok = d.progress[progressKey{enrollmentID: enrollmentID, lessonID: lessonID}]
	})
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t progressTable) Upsert(_ context.Context, p *model.LessonProgress) error {
	return t.write(func(d *dataset) error {
		key := progressKey{enrollmentID: p.EnrollmentID, lessonID: p.LessonID}
		if existing, ok := d.progress[key]; ok {
			p.ProgressID = existing.ProgressID
		} else {
			p.ProgressID = d.ids.Next("lesson_progress")
		}
		if p.UpdatedAt.IsZero() {
			p.UpdatedAt = t.now()
		}
		d.progress[key] = *p
		return nil
	})
}

func (t progressTable) ListByEnrollment(_ context.Context, enrollmentID int64) ([]model.LessonProgress, error) {
	out := []model.LessonProgress{}
	t.read(func(d *dataset) {
		for k, p := range d.progress {
			if k.enrollmentID == enrollmentID {
				out = append(out, p)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].LessonID < out[j].LessonID })
	return out, nil
}

// ── CertificateRequest ──

type certificateTable struct{ table }

func (t certificateTable) Create(_ context.Context, req *model.CertificateRequest) error {
	return t.write(func(d *dataset) error {
		if req.Status == model.CertificatePending {
			for _, r := range d.certificates {
				if r.EnrollmentID == req.EnrollmentID && r.Status == model.CertificatePending {
					return gorm.ErrDuplicatedKey
				}
			}
		}
		req.RequestID = d.ids.Next("certificate_requests")
		req.Touch(t.now())
		d.certificates[req.RequestID] = *req
		return nil
	})
}

func (t certificateTable) GetByID(_ context.Context, id int64) (*model.CertificateRequest, error) {
	var (
		out model.CertificateRequest
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.certificates[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t certificateTable) GetPendingByEnrollment(_ context.Context, enrollmentID int64) (*model.CertificateRequest, error) {
	var (
		out model.CertificateRequest
		ok  bool
	)
	t.read(func(d *dataset) {
		for _, r := range d.certificates {
			if r.EnrollmentID == enrollmentID && r.Status == model.CertificatePending {
				out, ok = r, true
				return
			}
		}
	})
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t certificateTable) list(match func(model.CertificateRequest) bool) []model.CertificateRequest {
	out := []model.CertificateRequest{}
	t.read(func(d *dataset) {
		for _, r := range d.certificates {
			if match(r) {
				out = append(out, r)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RequestID < out[j].RequestID })
	return out
}

func (t certificateTable) ListByEnrollment(_ context.Context, enrollmentID int64) ([]model.CertificateRequest, error) {
	return t.list(func(r model.CertificateRequest) bool { return r.EnrollmentID == enrollmentID }), nil
}

func (t certificateTable) List(_ context.Context) ([]model.CertificateRequest, error) {
	return t.list(func(model.CertificateRequest) bool { return true }), nil
}

func (t certificateTable) Update(_ context.Context, req *model.CertificateRequest) error {
	return t.write(func(d *dataset) error {
		if _, ok := d.certificates[req.RequestID]; !ok {
			return gorm.ErrRecordNotFound
		}
		if req.Status == model.CertificatePending {
			for _, r := range d.certificates {
				if r.RequestID != req.RequestID && r.EnrollmentID == req.EnrollmentID && r.Status == model.CertificatePending {
					return gorm.ErrDuplicatedKey
				}
			}
		}
		req.Touch(t.now())
		d.certificates[req.RequestID] = *req
		return nil
	})
}
