package service

import (
	"fmt"
	"sync"
)

// KeyedLocks 按聚合 ID 分配的读写锁注册表
//
// 加锁顺序固定为 course → enrollment → certificate，同一操作内只能按此顺序获取，
// 避免死锁。没有持有者的锁会从注册表中移除。
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*refLock
}

type refLock struct {
	sync.RWMutex
	refs int
}

// NewKeyedLocks 创建锁注册表
func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*refLock)}
}

func (k *KeyedLocks) acquire(key string) *refLock {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &refLock{}
		k.locks[key] = l
	}
	l.refs++
	return l
}

func (k *KeyedLocks) release(key string, l *refLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
}

// Lock 独占 key，返回解锁函数
func (k *KeyedLocks) Lock(key string) func() {
	l := k.acquire(key)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(key, l)
	}
}

// RLock 共享 key，返回解锁函数
func (k *KeyedLocks) RLock(key string) func() {
	l := k.acquire(key)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(key, l)
	}
}

func courseKey(id int64) string      { return fmt.Sprintf("course:%d", id) }
func enrollmentKey(id int64) string  { return fmt.Sprintf("enrollment:%d", id) }
func certificateKey(id int64) string { return fmt.Sprintf("certificate:%d", id) }

func enrollPairKey(studentID, courseID int64) string {
	return fmt.Sprintf("enroll:%d:%d", studentID, courseID)
}
