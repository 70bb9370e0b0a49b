package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goto/salt/log"
	"golang.org/x/sync/singleflight"

	"scoutadmin/internal/auth"
	"scoutadmin/internal/backend"
	"scoutadmin/internal/catalog"
	"scoutadmin/internal/form"
	"scoutadmin/internal/i18n"
	"scoutadmin/internal/state"
)

// eventsTTL: сколько список событий сессии отдаётся из кэша без похода на бэкенд.
const eventsTTL = 30 * time.Second

// builderKey: конструктор принадлежит паре (сессия, событие).
type builderKey struct {
	session string
	event   int64
}

// Workspace держит всё состояние консоли: каталог шаблонов, сессии, открытые конструкторы,
// кэш событий сессии и доступ к бэкенду.
type Workspace struct {
	mu           sync.RWMutex
	catalog      *catalog.Catalog
	TemplatesDir string

	Backend  *backend.Client
	Sessions auth.SessionStore
	Blob     BlobStore
	I18n     *i18n.Localizer
	Logger   log.Logger

	SessionTTL   time.Duration
	CookieSecure bool

	input    *inputValidator
	builders map[builderKey]*form.Builder
	loads    singleflight.Group
	events   map[string]*state.Store[[]backend.Event]
	eventsAt map[string]time.Time // когда список событий сессии последний раз пришёл целиком
	exports  exportIndex
	now      func() time.Time
}

type Options struct {
	Catalog      *catalog.Catalog
	TemplatesDir string
	Backend      *backend.Client
	Sessions     auth.SessionStore
	Blob         BlobStore
	I18n         *i18n.Localizer
	Logger       log.Logger
	SessionTTL   time.Duration
	CookieSecure bool
}

func NewWorkspace(o Options) (*Workspace, error) {
	if o.Backend == nil {
		return nil, fmt.Errorf("backend client is required")
	}
	if o.Logger == nil {
		o.Logger = log.NewNoop()
	}
	if o.Catalog == nil {
		o.Catalog = catalog.Default()
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 30 * time.Minute
	}
	if o.Sessions == nil {
		o.Sessions = auth.NewMemoryStore(o.SessionTTL)
	}
	if o.I18n == nil {
		l, err := i18n.New(i18n.BaseLocale)
		if err != nil {
			return nil, err
		}
		o.I18n = l
	}
	input, err := newInputValidator()
	if err != nil {
		return nil, fmt.Errorf("input validator: %w", err)
	}
	return &Workspace{
		catalog:      o.Catalog,
		TemplatesDir: o.TemplatesDir,
		Backend:      o.Backend,
		Sessions:     o.Sessions,
		Blob:         o.Blob,
		I18n:         o.I18n,
		Logger:       o.Logger,
		SessionTTL:   o.SessionTTL,
		CookieSecure: o.CookieSecure,
		input:        input,
		builders:     map[builderKey]*form.Builder{},
		events:       map[string]*state.Store[[]backend.Event]{},
		eventsAt:     map[string]time.Time{},
		now:          time.Now,
	}, nil
}

// Catalog: текущий каталог шаблонов (меняется при перезагрузке).
func (w *Workspace) Catalog() *catalog.Catalog {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.catalog
}

func (w *Workspace) swapCatalog(c *catalog.Catalog) {
	w.mu.Lock()
	w.catalog = c
	w.mu.Unlock()
}

// Builder возвращает конструктор сессии для события; created, только что создан.
func (w *Workspace) Builder(sess *auth.Session, eventID int64) (b *form.Builder, created bool) {
	key := builderKey{session: sess.ID, event: eventID}
	w.mu.Lock()
	defer w.mu.Unlock()
	if b, ok := w.builders[key]; ok {
		return b, false
	}
	b = form.NewBuilder(eventID, w.catalog, w.Backend.FormStore(sess.BackendToken), w.Logger)
	w.builders[key] = b
	return b, true
}

// LoadBuilder загружает конструктор с бэкенда. Одновременные вызовы для одной пары
// (сессия, событие) ждут одну и ту же загрузку.
func (w *Workspace) LoadBuilder(ctx context.Context, sessionID string, b *form.Builder) error {
	key := fmt.Sprintf("%s/%d", sessionID, b.EventID())
	_, err, _ := w.loads.Do(key, func() (any, error) {
		return nil, b.Load(ctx)
	})
	return err
}

// OpenBuilder: уже открытый конструктор, без создания.
func (w *Workspace) OpenBuilder(sessionID string, eventID int64) (*form.Builder, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	b, ok := w.builders[builderKey{session: sessionID, event: eventID}]
	return b, ok
}

// CloseBuilder закрывает подписки и забывает конструктор.
func (w *Workspace) CloseBuilder(sessionID string, eventID int64) bool {
	key := builderKey{session: sessionID, event: eventID}
	w.mu.Lock()
	b, ok := w.builders[key]
	delete(w.builders, key)
	w.mu.Unlock()
	if ok {
		b.Close()
	}
	return ok
}

// discardBuilder забывает именно этот конструктор; если пару уже занял новый, он остаётся.
func (w *Workspace) discardBuilder(sessionID string, b *form.Builder) {
	key := builderKey{session: sessionID, event: b.EventID()}
	w.mu.Lock()
	cur, ok := w.builders[key]
	if ok && cur == b {
		delete(w.builders, key)
	}
	w.mu.Unlock()
	if ok && cur == b {
		b.Close()
	}
}

// EventCache: кэш списка событий сессии для оптимистичных изменений.
func (w *Workspace) EventCache(sessionID string) *state.Store[[]backend.Event] {
	w.mu.Lock()
	defer w.mu.Unlock()
	st, ok := w.events[sessionID]
	if !ok {
		st = state.NewStore[[]backend.Event](nil, cloneEvents)
		w.events[sessionID] = st
	}
	return st
}

// cachedEvents: список событий сессии, если он получен не раньше eventsTTL назад.
func (w *Workspace) cachedEvents(sessionID string) ([]backend.Event, bool) {
	w.mu.RLock()
	at, ok := w.eventsAt[sessionID]
	st := w.events[sessionID]
	w.mu.RUnlock()
	if !ok || st == nil || w.now().Sub(at) > eventsTTL {
		return nil, false
	}
	return st.Get(), true
}

// storeEvents кладёт свежий список событий в кэш сессии.
func (w *Workspace) storeEvents(sessionID string, events []backend.Event) {
	st := w.EventCache(sessionID)
	st.Set(events)
	w.mu.Lock()
	w.eventsAt[sessionID] = w.now()
	w.mu.Unlock()
}

func cloneEvents(in []backend.Event) []backend.Event {
	if in == nil {
		return nil
	}
	return append([]backend.Event(nil), in...)
}

// DropSession освобождает всё, что держит сессия: конструкторы и кэши.
func (w *Workspace) DropSession(sessionID string) int {
	w.mu.Lock()
	var closing []*form.Builder
	for k, b := range w.builders {
		if k.session == sessionID {
			closing = append(closing, b)
			delete(w.builders, k)
		}
	}
	cache := w.events[sessionID]
	delete(w.events, sessionID)
	delete(w.eventsAt, sessionID)
	w.mu.Unlock()

	for _, b := range closing {
		b.Close()
	}
	if cache != nil {
		cache.Close()
	}
	return len(closing)
}

// RunJanitor периодически удаляет просроченные сессии вместе с их конструкторами.
func (w *Workspace) RunJanitor(ctx context.Context, every time.Duration) {
	sw, ok := w.Sessions.(auth.Sweeper)
	if !ok {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.sweep(ctx, sw)
		}
	}
}

func (w *Workspace) sweep(ctx context.Context, sw auth.Sweeper) {
	gone, err := sw.SweepExpired(ctx)
	if err != nil {
		w.Logger.Warn("session sweep failed", "error", err)
		return
	}
	builders := 0
	for _, id := range gone {
		builders += w.DropSession(id)
	}
	if len(gone) > 0 {
		w.Logger.Info("expired sessions dropped", "sessions", len(gone), "builders", builders)
	}
}
