// Package state holds an explicit state container with a subscribe/notify
// contract. Subscribers always see whole snapshots; a slow subscriber only
// loses intermediate snapshots, never the latest one.
package state

import (
	"context"
	"sync"
)

// Store хранит значение T и рассылает копии подписчикам при каждом изменении.
type Store[T any] struct {
	mu     sync.RWMutex
	value  T
	clone  func(T) T
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewStore создаёт контейнер. clone может быть nil, если T: значение без общих ссылок.
func NewStore[T any](initial T, clone func(T) T) *Store[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Store[T]{
		value: initial,
		clone: clone,
		subs:  make(map[int]chan T),
	}
}

// Get возвращает копию текущего значения.
func (s *Store[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clone(s.value)
}

// Set заменяет значение и уведомляет подписчиков.
func (s *Store[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.notifyLocked()
}

// Update применяет fn к копии значения. При ошибке значение не меняется и уведомлений нет.
func (s *Store[T]) Update(fn func(T) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.clone(s.value))
	if err != nil {
		return err
	}
	s.value = next
	s.notifyLocked()
	return nil
}

// Optimistic выполняет локальную транзакцию: apply виден подписчикам сразу, затем commit.
// Если commit вернул ошибку, revert отменяет изменение этой транзакции поверх текущего
// значения; чужие записи, сделанные за время commit, сохраняются.
func (s *Store[T]) Optimistic(ctx context.Context, apply, revert func(T) T, commit func(ctx context.Context) error) error {
	s.mu.Lock()
	s.value = apply(s.clone(s.value))
	s.notifyLocked()
	s.mu.Unlock()

	if err := commit(ctx); err != nil {
		s.mu.Lock()
		s.value = revert(s.clone(s.value))
		s.notifyLocked()
		s.mu.Unlock()
		return err
	}
	return nil
}

// Subscribe возвращает канал снимков и функцию отписки. Текущее значение приходит сразу.
func (s *Store[T]) Subscribe(buf int) (<-chan T, func()) {
	if buf < 1 {
		buf = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan T, buf)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	ch <- s.clone(s.value)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if c, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(c)
			}
		})
	}
}

// Close закрывает все подписки; дальнейшие Set продолжают работать без рассылки.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		close(ch)
		delete(s.subs, id)
	}
}

// Subscribers: число активных подписчиков.
func (s *Store[T]) Subscribers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}

func (s *Store[T]) notifyLocked() {
	for _, ch := range s.subs {
		snap := s.clone(s.value)
		select {
		case ch <- snap:
		default:
			// буфер полон: выбрасываем самый старый снимок
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
