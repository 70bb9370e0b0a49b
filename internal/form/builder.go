package form

import (
	"context"
	"fmt"
	"sync"

	"github.com/goto/salt/log"

	"scoutadmin/internal/backend"
	"scoutadmin/internal/catalog"
	"scoutadmin/internal/state"
)

// FieldStore: внешнее хранилище полей формы события.
type FieldStore interface {
	LoadFields(ctx context.Context, eventID int64) ([]backend.FormField, error)
	SaveFields(ctx context.Context, eventID int64, fields []backend.FormField) ([]backend.FormField, error)
}

// Snapshot: целиком состояние конструктора, которое видят подписчики.
type Snapshot struct {
	EventID   int64     `json:"eventId"`
	Version   uint64    `json:"version"`
	Rows      []Row     `json:"rows"`
	Selection Selection `json:"selection"`
	Selected  *Field    `json:"selected,omitempty"`
	Dirty     bool      `json:"hasChanges"`
	Saving    bool      `json:"saving"`
	Preview   bool      `json:"preview"`
}

func cloneSnapshot(s Snapshot) Snapshot {
	out := s
	out.Rows = cloneRows(s.Rows)
	if s.Selected != nil {
		f := s.Selected.Clone()
		out.Selected = &f
	}
	return out
}

// LintError: сохранение отклонено из-за блокирующих проблем.
type LintError struct {
	Issues []Issue
}

func (e *LintError) Error() string {
	return fmt.Sprintf("form has %d blocking issue(s)", len(e.Issues))
}

func (e *LintError) Unwrap() error { return ErrInvalidForm }

// Builder хранит состояние конструктора формы одного события: холст, выделение,
// флаги «есть изменения», «сохраняется», «предпросмотр». Все методы потокобезопасны.
type Builder struct {
	mu      sync.Mutex
	eventID int64
	catalog *catalog.Catalog
	store   FieldStore
	logger  log.Logger

	ids     *IDSource
	canvas  *Canvas
	editor  *Editor
	dirty   bool
	saving  bool
	preview bool
	// loaded: холст получен с бэкенда хотя бы раз; loading: идёт загрузка
	loaded  bool
	loading bool
	version uint64

	state *state.Store[Snapshot]
}

func NewBuilder(eventID int64, cat *catalog.Catalog, store FieldStore, logger log.Logger) *Builder {
	if logger == nil {
		logger = log.NewNoop()
	}
	ids := NewIDSource()
	canvas := NewCanvas(ids)
	b := &Builder{
		eventID: eventID,
		catalog: cat,
		store:   store,
		logger:  logger,
		ids:     ids,
		canvas:  canvas,
		editor:  NewEditor(canvas),
	}
	b.state = state.NewStore(b.snapshotLocked(), cloneSnapshot)
	return b
}

func (b *Builder) EventID() int64 { return b.eventID }

func (b *Builder) snapshotLocked() Snapshot {
	s := Snapshot{
		EventID:   b.eventID,
		Version:   b.version,
		Rows:      b.canvas.Rows(),
		Selection: b.editor.Selection(),
		Dirty:     b.dirty,
		Saving:    b.saving,
		Preview:   b.preview,
	}
	if f, ok := b.editor.Selected(); ok {
		s.Selected = &f
	}
	return s
}

func (b *Builder) publishLocked() {
	b.version++
	b.state.Set(b.snapshotLocked())
}

// Snapshot возвращает текущее состояние.
func (b *Builder) Snapshot() Snapshot { return b.state.Get() }

// Subscribe: поток снимков; текущий приходит сразу.
func (b *Builder) Subscribe(buf int) (<-chan Snapshot, func()) { return b.state.Subscribe(buf) }

// Close закрывает подписки; вызывается при закрытии конструктора или выходе из сессии.
func (b *Builder) Close() { b.state.Close() }

// busyLocked: почему холст сейчас нельзя менять или сохранять.
func (b *Builder) busyLocked() error {
	switch {
	case b.saving:
		return ErrSaving
	case b.loading || !b.loaded:
		return ErrLoading
	}
	return nil
}

// mutate выполняет структурное изменение: запрещено до загрузки и во время сохранения,
// ставит «есть изменения».
func (b *Builder) mutate(fn func() error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.busyLocked(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	b.dirty = true
	b.editor.Sync()
	b.publishLocked()
	return nil
}

// Load загружает поля события. Отсутствие формы на бэкенде: пустой холст.
// Пока идёт загрузка, изменения и сохранение отклоняются с ErrLoading.
func (b *Builder) Load(ctx context.Context) error {
	b.mu.Lock()
	if b.saving {
		b.mu.Unlock()
		return ErrSaving
	}
	if b.loading {
		b.mu.Unlock()
		return ErrLoading
	}
	b.loading = true
	b.mu.Unlock()

	fields, err := b.store.LoadFields(ctx, b.eventID)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false
	if err != nil && !backend.IsNotFound(err) {
		b.logger.Warn("form load failed", "event_id", b.eventID, "error", err)
		return fmt.Errorf("load form fields: %w", err)
	}
	b.canvas.Replace(Rebuild(b.ids, fields))
	b.editor.Clear()
	b.dirty = false
	b.loaded = true
	b.publishLocked()
	b.logger.Debug("form loaded", "event_id", b.eventID, "fields", b.canvas.FieldCount(), "rows", b.canvas.Len())
	return nil
}

// Loaded сообщает, получен ли холст с бэкенда.
func (b *Builder) Loaded() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loaded
}

func (b *Builder) AddRow() (Row, error) {
	var row Row
	err := b.mutate(func() error {
		row = b.canvas.AddRow()
		return nil
	})
	return row, err
}

// RemoveRow удаляет строку; если в ней было выделенное поле, выделение снимается.
func (b *Builder) RemoveRow(rowID string) error {
	return b.mutate(func() error {
		if _, err := b.canvas.RemoveRow(rowID); err != nil {
			return err
		}
		if b.editor.Selection().RowID == rowID {
			b.editor.Clear()
		}
		return nil
	})
}

func (b *Builder) MoveRow(from, to int) error {
	return b.mutate(func() error { return b.canvas.MoveRow(from, to) })
}

// Drop выполняет перетаскивание. Новое одиночное поле из каталога становится выделенным.
func (b *Builder) Drop(in Intent) (Outcome, error) {
	var out Outcome
	err := b.mutate(func() error {
		var err error
		out, err = b.canvas.Apply(in)
		if err != nil {
			return err
		}
		if out.Select != nil {
			if _, err := b.editor.Select(out.SelectIn, *out.Select); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// DropTemplate: перетаскивание шаблона из каталога по его ключу.
func (b *Builder) DropTemplate(key, rowID string, at int) (Outcome, error) {
	tpl, err := b.catalog.Lookup(key)
	if err != nil {
		return Outcome{}, err
	}
	return b.Drop(Intent{Kind: IntentInstantiate, Template: tpl, ToRow: rowID, ToIndex: at})
}

func (b *Builder) DeleteField(rowID string, ref FieldRef) (Field, error) {
	var removed Field
	err := b.mutate(func() error {
		var err error
		removed, err = b.canvas.DeleteField(rowID, ref)
		return err
	})
	return removed, err
}

// Select выделяет поле. Выделение не считается изменением формы.
func (b *Builder) Select(rowID string, ref FieldRef) (Field, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.loading || !b.loaded {
		return Field{}, ErrLoading
	}
	f, err := b.editor.Select(rowID, ref)
	if err != nil {
		return Field{}, err
	}
	b.publishLocked()
	return f, nil
}

func (b *Builder) ClearSelection() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editor.Clear()
	b.publishLocked()
}

func (b *Builder) editSelected(fn func() (Field, error)) (Field, error) {
	var f Field
	err := b.mutate(func() error {
		var err error
		f, err = fn()
		return err
	})
	return f, err
}

func (b *Builder) UpdateSelected(p Patch) (Field, error) {
	return b.editSelected(func() (Field, error) { return b.editor.Apply(p) })
}

func (b *Builder) AddOption() (Field, error) {
	return b.editSelected(b.editor.AddOption)
}

func (b *Builder) RemoveOption(i int) (Field, error) {
	return b.editSelected(func() (Field, error) { return b.editor.RemoveOption(i) })
}

func (b *Builder) UpdateOption(i int, p OptionPatch) (Field, error) {
	return b.editSelected(func() (Field, error) { return b.editor.UpdateOption(i, p) })
}

// TogglePreview переключает предпросмотр; вход в предпросмотр снимает выделение.
func (b *Builder) TogglePreview() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.preview = !b.preview
	if b.preview {
		b.editor.Clear()
	}
	b.publishLocked()
	return b.preview
}

func (b *Builder) Lint() []Issue {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Lint(b.canvas.Rows())
}

// Save отправляет плоский список полей и перестраивает холст из ответа бэкенда.
// При ошибке холст не меняется, флаг «есть изменения» остаётся.
func (b *Builder) Save(ctx context.Context) (Snapshot, error) {
	b.mu.Lock()
	if err := b.busyLocked(); err != nil {
		b.mu.Unlock()
		return Snapshot{}, err
	}
	rows := b.canvas.Rows()
	if blocking := Blocking(Lint(rows)); len(blocking) > 0 {
		b.mu.Unlock()
		return Snapshot{}, &LintError{Issues: blocking}
	}
	flat := Flatten(b.eventID, rows)
	b.saving = true
	b.publishLocked()
	b.mu.Unlock()

	saved, err := b.store.SaveFields(ctx, b.eventID, flat)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.saving = false
	if err != nil {
		b.publishLocked()
		b.logger.Error("form save failed", "event_id", b.eventID, "fields", len(flat), "error", err)
		return b.snapshotLocked(), fmt.Errorf("save form fields: %w", err)
	}
	b.canvas.Replace(Rebuild(b.ids, saved))
	b.editor.Sync()
	b.dirty = false
	b.publishLocked()
	b.logger.Info("form saved", "event_id", b.eventID, "fields", len(saved))
	return b.snapshotLocked(), nil
}

// IsSaving сообщает, идёт ли сохранение.
func (b *Builder) IsSaving() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saving
}
