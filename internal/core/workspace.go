package core

// workspace.go holds the hosting application state: one Session per
// reviewer, each owning a Table. Every dataset replacement is published to a
// Sink so an external collaborator can persist or propagate it.

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JonMunkholm/evalreview/internal/logging"
	"github.com/google/uuid"
)

// ChangeKind says why a dataset was replaced.
type ChangeKind string

const (
	ChangeImport    ChangeKind = "import"
	ChangeEdit      ChangeKind = "edit"
	ChangeBotOutput ChangeKind = "bot_output"
)

// Change describes one dataset replacement. Dataset is the full new snapshot.
type Change struct {
	SessionID string
	Kind      ChangeKind
	FileName  string // Set for imports

	// Set for edits
	RowID    int
	Field    Field
	OldValue string
	NewValue string

	IPAddress string
	UserAgent string
	Dataset   Dataset
	At        time.Time
}

// Sink receives every dataset replacement.
type Sink interface {
	Publish(ctx context.Context, change Change) error
}

// Restorer loads the latest persisted dataset for a session.
type Restorer interface {
	Latest(ctx context.Context, sessionID string) (Dataset, bool, error)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Change) error { return nil }

// WorkspaceOption configures a Workspace.
type WorkspaceOption func(*Workspace)

// WithSink sets the collaborator that receives dataset changes.
func WithSink(sink Sink) WorkspaceOption {
	return func(w *Workspace) {
		if sink != nil {
			w.sink = sink
		}
	}
}

// WithRestorer lets new sessions resume a persisted dataset.
func WithRestorer(r Restorer) WorkspaceOption {
	return func(w *Workspace) {
		w.restorer = r
	}
}

// WithImporter overrides the importer used by sessions.
func WithImporter(im Importer) WorkspaceOption {
	return func(w *Workspace) {
		w.importer = im
	}
}

// WithImportLimiter bounds how many sessions may parse an upload at once.
func WithImportLimiter(l *ImportLimiter) WorkspaceOption {
	return func(w *Workspace) {
		w.limiter = l
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) WorkspaceOption {
	return func(w *Workspace) {
		w.now = now
	}
}

// Workspace tracks reviewer sessions in memory.
type Workspace struct {
	importer Importer
	sink     Sink
	restorer Restorer
	limiter  *ImportLimiter
	now      func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewWorkspace creates an empty workspace.
func NewWorkspace(opts ...WorkspaceOption) *Workspace {
	w := &Workspace{
		sink:     nopSink{},
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// NewSession creates a session with a fresh id and an empty dataset.
func (w *Workspace) NewSession(ctx context.Context) *Session {
	return w.addSession(w.makeSession(uuid.New().String()))
}

// Session returns the session for id.
func (w *Workspace) Session(id string) (*Session, error) {
	w.mu.RLock()
	s, ok := w.sessions[id]
	w.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Resume returns the session for id, creating it if unknown. A valid uuid
// that the workspace has never seen is adopted so a restart keeps the
// reviewer's cookie; anything else gets a new id.
func (w *Workspace) Resume(ctx context.Context, id string) *Session {
	if id != "" {
		if s, err := w.Session(id); err == nil {
			return s
		}
		if _, err := uuid.Parse(id); err == nil {
			s := w.makeSession(id)
			w.restore(ctx, s)
			return w.addSession(s)
		}
	}
	return w.NewSession(ctx)
}

// Len returns the number of live sessions.
func (w *Workspace) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.sessions)
}

func (w *Workspace) makeSession(id string) *Session {
	s := &Session{id: id, ws: w, table: NewTable(nil, nil)}
	s.pubCond = sync.NewCond(&s.pubMu)
	s.touch()
	return s
}

// restore loads the persisted dataset into s. s must not be visible in the
// session map yet.
func (w *Workspace) restore(ctx context.Context, s *Session) {
	if w.restorer == nil {
		return
	}
	ds, ok, err := w.restorer.Latest(ctx, s.id)
	if err != nil {
		logging.FromContext(ctx).Warn("session restore failed", "session_id", s.id, "error", err)
		return
	}
	if ok {
		s.table.SetDataset(ds)
		logging.FromContext(ctx).Info("session restored", "session_id", s.id, "rows", ds.Len())
	}
}

// addSession publishes s under its id unless another request registered
// the same id first, in which case that session wins.
func (w *Workspace) addSession(s *Session) *Session {
	w.mu.Lock()
	defer w.mu.Unlock()
	if existing, ok := w.sessions[s.id]; ok {
		return existing
	}
	w.sessions[s.id] = s
	return s
}

// Expire removes sessions idle for longer than maxIdle and returns how many
// were removed.
func (w *Workspace) Expire(maxIdle time.Duration) int {
	cutoff := w.now().Add(-maxIdle)

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for id, s := range w.sessions {
		if s.LastSeen().Before(cutoff) {
			delete(w.sessions, id)
			removed++
		}
	}
	return removed
}

func (w *Workspace) publish(ctx context.Context, change Change) {
	change.IPAddress = GetIPAddressFromContext(ctx)
	change.UserAgent = GetUserAgentFromContext(ctx)
	change.At = w.now()

	if err := w.sink.Publish(ctx, change); err != nil {
		logging.WithFields(ctx,
			"session_id", change.SessionID,
			"kind", change.Kind,
		).Warn("dataset change not published", "error", err)
	}
}

// Session is one reviewer's in-memory state. All methods are safe for
// concurrent use; calls are serialized as if on a single UI event loop.
// Changes reach the Sink after the session lock is released, in the order
// they were applied.
type Session struct {
	id string
	ws *Workspace

	lastSeen atomic.Int64 // unix nanoseconds

	mu       sync.Mutex
	table    *Table
	fileName string
	staged   uint64 // changes applied so far

	pubMu     sync.Mutex
	pubCond   *sync.Cond
	published uint64 // changes handed to the sink so far
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// LastSeen returns when the session was last used. It never blocks on the
// session lock.
func (s *Session) LastSeen() time.Time {
	return time.Unix(0, s.lastSeen.Load())
}

// View is a consistent read of a session's state.
type View struct {
	SessionID string
	FileName  string
	Dataset   Dataset
	Cursor    Cursor
	Grid      [][]Cell
}

// Snapshot returns the current state for rendering.
func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return View{
		SessionID: s.id,
		FileName:  s.fileName,
		Dataset:   s.table.Dataset(),
		Cursor:    s.table.Cursor(),
		Grid:      s.table.Grid(),
	}
}

// Import loads upload and replaces the dataset on success. A nil upload is
// a no-op. On failure the current dataset is left untouched.
func (s *Session) Import(ctx context.Context, upload *Upload) error {
	if upload == nil {
		return nil
	}
	if l := s.ws.limiter; l != nil {
		if err := l.Acquire(ctx); err != nil {
			return err
		}
		defer l.Release()
	}
	s.touch()

	logger := logging.WithFields(ctx, "session_id", s.id)

	var loaded Dataset
	err := s.ws.importer.Load(upload, func(ds Dataset) {
		loaded = ds
	})
	if err != nil {
		logger.Info("import rejected", "file", upload.Name, "error", err)
		return err
	}

	err = s.apply(ctx, func() (*Change, error) {
		s.table.SetDataset(loaded)
		s.fileName = upload.Name
		return &Change{
			SessionID: s.id,
			Kind:      ChangeImport,
			FileName:  upload.Name,
			Dataset:   loaded,
		}, nil
	})
	if err == nil {
		logger.Info("dataset imported", "file", upload.Name, "rows", loaded.Len())
	}
	return err
}

// Click activates a cell. Returns true if an edit began.
func (s *Session) Click(rowID int, field Field) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.table.Click(rowID, field)
}

// BeginEdit starts editing a cell with an explicit seed value.
func (s *Session) BeginEdit(rowID int, field Field, currentValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.table.BeginEdit(rowID, field, currentValue)
}

// UpdateDraft replaces the draft of the cell being edited.
func (s *Session) UpdateDraft(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	return s.table.UpdateDraft(value)
}

// Commit commits the cell being edited and publishes the new dataset. It
// returns the edit that was committed.
func (s *Session) Commit(ctx context.Context) (Editing, error) {
	var committed Editing
	err := s.apply(ctx, func() (*Change, error) {
		change, err := s.commitLocked(ctx)
		if err == nil {
			committed = editOf(change)
		}
		return change, err
	})
	return committed, err
}

// CommitDraft replaces the draft with value and commits it in one step, so
// no other call on the session can land between the two.
func (s *Session) CommitDraft(ctx context.Context, value string) (Editing, error) {
	var committed Editing
	err := s.apply(ctx, func() (*Change, error) {
		if err := s.table.UpdateDraft(value); err != nil {
			return nil, err
		}
		change, err := s.commitLocked(ctx)
		if err == nil {
			committed = editOf(change)
		}
		return change, err
	})
	return committed, err
}

// Edit begins, drafts and commits one cell in a single step. Unlike the
// click flow it rejects row ids the dataset does not contain.
func (s *Session) Edit(ctx context.Context, rowID int, field Field, value string) error {
	return s.apply(ctx, func() (*Change, error) {
		if !field.Editable() {
			return nil, fmt.Errorf("%w: %s", ErrNotEditable, field)
		}
		row, ok := s.table.Dataset().Row(rowID)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrRowNotFound, rowID)
		}
		if err := s.table.BeginEdit(rowID, field, row.Value(field)); err != nil {
			return nil, err
		}
		if err := s.table.UpdateDraft(value); err != nil {
			return nil, err
		}
		return s.commitLocked(ctx)
	})
}

func (s *Session) commitLocked(ctx context.Context) (*Change, error) {
	ed, ok := s.table.Cursor().(Editing)
	if !ok {
		return nil, ErrNotEditing
	}

	old := ""
	if row, found := s.table.Dataset().Row(ed.RowID); found {
		old = row.Value(ed.Field)
	}

	if err := s.table.CommitEdit(); err != nil {
		return nil, err
	}

	logging.WithFields(ctx, "session_id", s.id).Debug("cell committed",
		"row_id", ed.RowID,
		"field", ed.Field,
	)

	return &Change{
		SessionID: s.id,
		Kind:      ChangeEdit,
		RowID:     ed.RowID,
		Field:     ed.Field,
		OldValue:  old,
		NewValue:  ed.Draft,
		Dataset:   s.table.Dataset(),
	}, nil
}

func editOf(c *Change) Editing {
	return Editing{RowID: c.RowID, Field: c.Field, Draft: c.NewValue}
}

// FillBotOutputs sets BotOutput for the given row ids. The edit cursor is
// kept; it targets editable fields only, which this never touches.
func (s *Session) FillBotOutputs(ctx context.Context, outputs map[int]string) Dataset {
	var ds Dataset
	_ = s.apply(ctx, func() (*Change, error) {
		cursor := s.table.Cursor()
		ds = s.table.Dataset().WithBotOutputs(outputs)
		s.table.SetDataset(ds)
		s.table.cursor = cursor
		return &Change{
			SessionID: s.id,
			Kind:      ChangeBotOutput,
			Dataset:   ds,
		}, nil
	})
	return ds
}

// apply runs fn under the session lock, then hands the change it returns
// to the sink once the lock is released.
func (s *Session) apply(ctx context.Context, fn func() (*Change, error)) error {
	change, seq, err := s.stage(fn)
	if err != nil || change == nil {
		return err
	}

	// Wait for earlier changes of this session to reach the sink first.
	s.pubMu.Lock()
	for s.published != seq-1 {
		s.pubCond.Wait()
	}
	s.pubMu.Unlock()

	defer func() {
		s.pubMu.Lock()
		s.published = seq
		s.pubMu.Unlock()
		s.pubCond.Broadcast()
	}()
	s.ws.publish(ctx, *change)
	return nil
}

func (s *Session) stage(fn func() (*Change, error)) (*Change, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()

	change, err := fn()
	if err != nil || change == nil {
		return nil, 0, err
	}
	s.staged++
	return change, s.staged, nil
}

func (s *Session) touch() {
	s.lastSeen.Store(s.ws.now().UnixNano())
}
