// Package memory 是进程内的权威存储，实现 repository 包的全部接口。
//
// 一致性规则：
//   - 普通读取持有读锁并返回副本，调用方修改返回值不会影响存储；
//   - 普通写入持有写锁，单条记录原子；
//   - Transaction 持有写锁执行回调，回调出错（或 panic）时恢复到进入前的快照，
//     因此其他读者看不到半完成的多记录变更。
package memory

import (
	"context"
	"sync"
	"time"

	"coursehub/internal/model"
	"coursehub/internal/repository"
)

type progressKey struct {
	enrollmentID int64
	lessonID     int64
}

// IDAllocator 按表分配自增 ID，归属于单个 Store 实例
type IDAllocator struct {
	next map[string]int64
}

// Next 返回表 table 的下一个 ID，从 1 开始
func (a *IDAllocator) Next(table string) int64 {
	if a.next == nil {
		a.next = make(map[string]int64)
	}
	a.next[table]++
	return a.next[table]
}

func (a IDAllocator) clone() IDAllocator {
	cp := IDAllocator{next: make(map[string]int64, len(a.next))}
	for k, v := range a.next {
		cp.next[k] = v
	}
	return cp
}

type dataset struct {
	ids          IDAllocator
	accounts     map[int64]model.Account
	sessions     map[string]model.Session
	areas        map[int64]model.KnowledgeArea
	campuses     map[int64]model.Campus
	courses      map[int64]model.Course
	lessons      map[int64]model.Lesson
	enrollments  map[int64]model.Enrollment
	progress     map[progressKey]model.LessonProgress
	certificates map[int64]model.CertificateRequest
}

func newDataset() *dataset {
	return &dataset{
		accounts:     make(map[int64]model.Account),
		sessions:     make(map[string]model.Session),
		areas:        make(map[int64]model.KnowledgeArea),
		campuses:     make(map[int64]model.Campus),
		courses:      make(map[int64]model.Course),
		lessons:      make(map[int64]model.Lesson),
		enrollments:  make(map[int64]model.Enrollment),
		progress:     make(map[progressKey]model.LessonProgress),
		certificates: make(map[int64]model.CertificateRequest),
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	cp := make(map[K]V, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// clone 复制所有表；记录内的指针字段只会被整体替换，浅拷贝即可
func (d *dataset) clone() *dataset {
	return &dataset{
		ids:          d.ids.clone(),
		accounts:     cloneMap(d.accounts),
		sessions:     cloneMap(d.sessions),
		areas:        cloneMap(d.areas),
		campuses:     cloneMap(d.campuses),
		courses:      cloneMap(d.courses),
		lessons:      cloneMap(d.lessons),
		enrollments:  cloneMap(d.enrollments),
		progress:     cloneMap(d.progress),
		certificates: cloneMap(d.certificates),
	}
}

// Store 内存存储
type Store struct {
	mu   sync.RWMutex
	data *dataset
	now  func() time.Time
}

// Option Store 配置项
type Option func(*Store)

// WithClock 替换时间源，测试用
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore 创建空的内存存储
func NewStore(opts ...Option) *Store {
	s := &Store{data: newDataset(), now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRepository 创建基于新内存存储的 Repository 聚合
func NewRepository(opts ...Option) *repository.Repository {
	return NewStore(opts...).Repository()
}

// Repository 返回加锁访问的 Repository 聚合，Transaction 由 Store 提供
func (s *Store) Repository() *repository.Repository {
	r := s.view(false)
	r.Tx = s
	return r
}

// Transaction 持有写锁执行 fn，失败时回滚到快照
func (s *Store) Transaction(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	committed := false
	defer func() {
		if !committed {
			s.data = snapshot
		}
	}()

	if err := fn(s.view(true)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) view(locked bool) *repository.Repository {
	t := table{s: s, locked: locked}
	return &repository.Repository{
		Account:       accountTable{t},
		Session:       sessionTable{t},
		KnowledgeArea: areaTable{t},
		Campus:        campusTable{t},
		Course:        courseTable{t},
		Lesson:        lessonTable{t},
		Enrollment:    enrollmentTable{t},
		Progress:      progressTable{t},
		Certificate:   certificateTable{t},
	}
}

// table 各表实现共用的锁访问；locked=true 表示调用方（事务）已持有写锁
type table struct {
	s      *Store
	locked bool
}

func (t table) read(fn func(d *dataset)) {
	if !t.locked {
		t.s.mu.RLock()
		defer t.s.mu.RUnlock()
	}
	fn(t.s.data)
}

func (t table) write(fn func(d *dataset) error) error {
	if !t.locked {
		t.s.mu.Lock()
		defer t.s.mu.Unlock()
	}
	return fn(t.s.data)
}

func (t table) now() time.Time {
	return t.s.now()
}
