package memory

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"coursehub/internal/model"
)

// ── KnowledgeArea ──

type areaTable struct{ table }

func (t areaTable) Create(_ context.Context, area *model.KnowledgeArea) error {
	return t.write(func(d *dataset) error {
		area.KnowledgeAreaID = d.ids.Next("knowledge_areas")
		area.Touch(t.now())
		d.areas[area.KnowledgeAreaID] = *area
		return nil
	})
}

func (t areaTable) GetByID(_ context.Context, id int64) (*model.KnowledgeArea, error) {
	var (
		out model.KnowledgeArea
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.areas[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t areaTable) List(_ context.Context) ([]model.KnowledgeArea, error) {
	out := []model.KnowledgeArea{}
	t.read(func(d *dataset) {
		for _, a := range d.areas {
			out = append(out, a)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].KnowledgeAreaID < out[j].KnowledgeAreaID
	})
	return out, nil
}

func (t areaTable) Update(_ context.Context, area *model.KnowledgeArea) error {
	return t.write(func(d *dataset) error {
		if _, ok := d.areas[area.KnowledgeAreaID]; !ok {
			return gorm.ErrRecordNotFound
		}
		area.Touch(t.now())
		d.areas[area.KnowledgeAreaID] = *area
		return nil
	})
}

// ── Campus ──

type campusTable struct{ table }

func (t campusTable) Create(_ context.Context, campus *model.Campus) error {
	return t.write(func(d *dataset) error {
		campus.CampusID = d.ids.Next("campuses")
		campus.Touch(t.now())
		d.campuses[campus.CampusID] = *campus
		return nil
	})
}

func (t campusTable) GetByID(_ context.Context, id int64) (*model.Campus, error) {
	var (
		out model.Campus
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.campuses[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t campusTable) List(_ context.Context) ([]model.Campus, error) {
	out := []model.Campus{}
	t.read(func(d *dataset) {
		for _, c := range d.campuses {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].CampusID < out[j].CampusID
	})
	return out, nil
}

func (t campusTable) Update(_ context.Context, campus *model.Campus) error {
	return t.write(func(d *dataset) error {
		if _, ok := d.campuses[campus.CampusID]; !ok {
			return gorm.ErrRecordNotFound
		}
		campus.Touch(t.now())
		d.campuses[campus.CampusID] = *campus
		return nil
	})
}

// ── Course ──

type courseTable struct{ table }

func (t courseTable) Create(_ context.Context, course *model.Course) error {
	return t.write(func(d *dataset) error {
		course.CourseID = d.ids.Next("courses")
		course.Touch(t.now())
		d.courses[course.CourseID] = *course
		return nil
	})
}

func (t courseTable) GetByID(_ context.Context, id int64) (*model.Course, error) {
	var (
		out model.Course
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.courses[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t courseTable) List(_ context.Context) ([]model.Course, error) {
	out := []model.Course{}
	t.read(func(d *dataset) {
		for _, c := range d.courses {
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CourseID < out[j].CourseID })
	return out, nil
}

func (t courseTable) Update(_ context.Context, course *model.Course) error {
	return t.write(func(d *dataset) error {
		if _, ok := d.courses[course.CourseID]; !ok {
			return gorm.ErrRecordNotFound
		}
		course.Touch(t.now())
		d.courses[course.CourseID] = *course
		return nil
	})
}

// ── Lesson ──

type lessonTable struct{ table }

func (t lessonTable) Create(_ context.Context, lesson *model.Lesson) error {
	return t.write(func(d *dataset) error {
		lesson.LessonID = d.ids.Next("lessons")
		lesson.Touch(t.now())
		d.lessons[lesson.LessonID] = *lesson
		return nil
	})
}

func (t lessonTable) GetByID(_ context.Context, id int64) (*model.Lesson, error) {
	var (
		out model.Lesson
		ok  bool
	)
	t.read(func(d *dataset) { out, ok = d.lessons[id] })
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &out, nil
}

func (t lessonTable) ListByCourse(_ context.Context, courseID int64) ([]model.Lesson, error) {
	out := []model.Lesson{}
	t.read(func(d *dataset) {
		for _, l := range d.lessons {
			if l.CourseID == courseID {
				out = append(out, l)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Ordinal != out[j].Ordinal {
			return out[i].Ordinal < out[j].Ordinal
		}
		return out[i].LessonID < out[j].LessonID
	})
	return out, nil
}

func (t lessonTable) CountByCourse(_ context.Context, courseID int64) (int, error) {
	n := 0
	t.read(func(d *dataset) {
		for _, l := range d.lessons {
			if l.CourseID == courseID {
				n++
			}
		}
	})
	return n, nil
}

// UpdateOrdinals 先整体校验再写入，任何一节课不属于该课程则不做修改
func (t lessonTable) UpdateOrdinals(_ context.Context, courseID int64, ordinals map[int64]int) error {
	return t.write(func(d *dataset) error {
		for id := range ordinals {
			l, ok := d.lessons[id]
			if !ok || l.CourseID != courseID {
				return gorm.ErrRecordNotFound
			}
		}
		now := t.now()
		for id, ordinal := range ordinals {
			l := d.lessons[id]
			l.Ordinal = ordinal
			l.UpdatedAt = now
			d.lessons[id] = l
		}
		return nil
	})
}
