package form

import (
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	tempPrefix = "temp-"
	rowPrefix  = "row-"
)

// IDSource выдаёт локальные идентификаторы полей и строк. Безопасен для конкурентного использования.
type IDSource struct {
	mu      sync.Mutex
	entropy io.Reader
	now     func() time.Time
}

func NewIDSource() *IDSource {
	return &IDSource{
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
}

func (s *IDSource) next() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(s.now()), s.entropy).String()
}

// TempID: идентификатор ещё не сохранённого поля.
func (s *IDSource) TempID() string { return tempPrefix + s.next() }

// RowID: идентификатор строки; живёт только в памяти.
func (s *IDSource) RowID() string { return rowPrefix + s.next() }
