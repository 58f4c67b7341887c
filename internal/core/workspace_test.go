package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// fakeSink records published changes and can be made to fail.
type fakeSink struct {
	mu      sync.Mutex
	changes []Change
	err     error
}

func (f *fakeSink) Publish(_ context.Context, c Change) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changes = append(f.changes, c)
	return f.err
}

func (f *fakeSink) all() []Change {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Change(nil), f.changes...)
}

// fakeRestorer serves fixed datasets by session id.
type fakeRestorer struct {
	data map[string]Dataset
	err  error
}

func (f fakeRestorer) Latest(_ context.Context, id string) (Dataset, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	ds, ok := f.data[id]
	return ds, ok, nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

const scenarioCSV = "Input,Expected Output,Extra\n2+2,4,x\ncapital of France,Paris,y\n"

func TestSession_ImportAndEdit(t *testing.T) {
	sink := &fakeSink{}
	ws := NewWorkspace(WithSink(sink))
	ctx := ContextWithClient(context.Background(), "10.0.0.1", "test-agent")
	s := ws.NewSession(ctx)

	up := csvUpload(scenarioCSV)
	if err := s.Import(ctx, &up); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if !s.Click(1, FieldNotes) {
		t.Fatal("Click() did not begin an edit")
	}
	if err := s.UpdateDraft("good"); err != nil {
		t.Fatalf("UpdateDraft() error = %v", err)
	}
	ed, err := s.Commit(ctx)
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if want := (Editing{RowID: 1, Field: FieldNotes, Draft: "good"}); ed != want {
		t.Errorf("Commit() = %#v, want %#v", ed, want)
	}

	view := s.Snapshot()
	if view.FileName != "review.csv" {
		t.Errorf("FileName = %q", view.FileName)
	}
	if view.Dataset[1].Notes != "good" {
		t.Errorf("row 1 notes = %q", view.Dataset[1].Notes)
	}
	if _, ok := view.Cursor.(Idle); !ok {
		t.Errorf("Cursor = %#v, want Idle", view.Cursor)
	}

	changes := sink.all()
	if len(changes) != 2 {
		t.Fatalf("published %d changes, want 2", len(changes))
	}
	if changes[0].Kind != ChangeImport || changes[0].FileName != "review.csv" {
		t.Errorf("first change = %+v", changes[0])
	}
	edit := changes[1]
	if edit.Kind != ChangeEdit || edit.RowID != 1 || edit.Field != FieldNotes {
		t.Errorf("edit change = %+v", edit)
	}
	if edit.OldValue != "" || edit.NewValue != "good" {
		t.Errorf("edit values = %q -> %q", edit.OldValue, edit.NewValue)
	}
	if edit.IPAddress != "10.0.0.1" || edit.UserAgent != "test-agent" {
		t.Errorf("client info = %q, %q", edit.IPAddress, edit.UserAgent)
	}
	if edit.SessionID != s.ID() {
		t.Errorf("SessionID = %q, want %q", edit.SessionID, s.ID())
	}
	if !edit.Dataset.Equal(view.Dataset) {
		t.Error("published dataset differs from session state")
	}
}

func TestSession_FailedImportKeepsDataset(t *testing.T) {
	sink := &fakeSink{}
	ws := NewWorkspace(WithSink(sink))
	ctx := context.Background()
	s := ws.NewSession(ctx)

	good := csvUpload(scenarioCSV)
	if err := s.Import(ctx, &good); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	before := s.Snapshot().Dataset

	bad := csvUpload("Question,Answer\nq,a\n")
	if err := s.Import(ctx, &bad); !errors.Is(err, ErrMissingColumns) {
		t.Fatalf("Import() error = %v, want ErrMissingColumns", err)
	}

	if !s.Snapshot().Dataset.Equal(before) {
		t.Error("failed import replaced the dataset")
	}
	if len(sink.all()) != 1 {
		t.Errorf("published %d changes, want 1", len(sink.all()))
	}
}

func TestSession_ImportNilIsNoOp(t *testing.T) {
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(context.Background())

	if err := s.Import(context.Background(), nil); err != nil {
		t.Errorf("Import(nil) error = %v", err)
	}
	if len(sink.all()) != 0 {
		t.Error("nil import published a change")
	}
}

func TestSession_ImportClearsCursor(t *testing.T) {
	ctx := context.Background()
	s := NewWorkspace().NewSession(ctx)

	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)
	s.Click(0, FieldNotes)

	again := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &again)

	if _, ok := s.Snapshot().Cursor.(Idle); !ok {
		t.Error("import left an edit in progress")
	}
}

func TestSession_EditRejectsReadOnly(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	err := s.Edit(ctx, 0, FieldExpectedOutput, "5")
	if !errors.Is(err, ErrNotEditable) {
		t.Errorf("Edit() error = %v, want ErrNotEditable", err)
	}
	if len(sink.all()) != 1 {
		t.Error("rejected edit published a change")
	}
}

func TestSession_EditUnknownRow(t *testing.T) {
	ctx := context.Background()
	s := NewWorkspace().NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	if err := s.Edit(ctx, 9, FieldNotes, "x"); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("Edit() error = %v, want ErrRowNotFound", err)
	}
	if _, ok := s.Snapshot().Cursor.(Idle); !ok {
		t.Error("failed edit left the cursor editing")
	}
}

func TestSession_EditRecordsOldValue(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	_ = s.Edit(ctx, 0, FieldBetterAnswer, "four")
	_ = s.Edit(ctx, 0, FieldBetterAnswer, "4 (four)")

	changes := sink.all()
	last := changes[len(changes)-1]
	if last.OldValue != "four" || last.NewValue != "4 (four)" {
		t.Errorf("last edit = %q -> %q", last.OldValue, last.NewValue)
	}
}

func TestSession_CommitWhileIdle(t *testing.T) {
	s := NewWorkspace().NewSession(context.Background())
	if _, err := s.Commit(context.Background()); !errors.Is(err, ErrNotEditing) {
		t.Errorf("Commit() error = %v, want ErrNotEditing", err)
	}
	if _, err := s.CommitDraft(context.Background(), "x"); !errors.Is(err, ErrNotEditing) {
		t.Errorf("CommitDraft() error = %v, want ErrNotEditing", err)
	}
}

func TestSession_CommitDraft(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)
	s.Click(0, FieldBetterAnswer)
	_ = s.UpdateDraft("fo")

	ed, err := s.CommitDraft(ctx, "four")
	if err != nil {
		t.Fatalf("CommitDraft() error = %v", err)
	}
	if ed.RowID != 0 || ed.Field != FieldBetterAnswer || ed.Draft != "four" {
		t.Errorf("CommitDraft() = %#v", ed)
	}
	view := s.Snapshot()
	if view.Dataset[0].BetterAnswer != "four" {
		t.Errorf("better answer = %q, want four", view.Dataset[0].BetterAnswer)
	}
	if _, ok := view.Cursor.(Idle); !ok {
		t.Errorf("Cursor = %#v, want Idle", view.Cursor)
	}
	changes := sink.all()
	if last := changes[len(changes)-1]; last.NewValue != "four" {
		t.Errorf("published value = %q, want four", last.NewValue)
	}
}

func TestSession_CommitDraftIsAtomic(t *testing.T) {
	ctx := context.Background()
	s := NewWorkspace().NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	// Each worker starts its own edit and commits it with its own value.
	// Whatever the interleaving, a commit writes the cell its caller saw.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row := i % 2
			value := fmt.Sprintf("v%d", i)
			s.Click(row, FieldNotes)
			ed, err := s.CommitDraft(ctx, value)
			if err != nil {
				return // another worker committed first
			}
			if ed.Draft != value {
				t.Errorf("committed %q, want %q", ed.Draft, value)
			}
		}(i)
	}
	wg.Wait()

	if _, ok := s.Snapshot().Cursor.(Idle); !ok {
		t.Error("cursor left editing")
	}
}

func TestSession_SinkErrorIsNotSurfaced(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{err: errors.New("db down")}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)

	up := csvUpload(scenarioCSV)
	if err := s.Import(ctx, &up); err != nil {
		t.Errorf("Import() error = %v, want nil", err)
	}
	if s.Snapshot().Dataset.Len() != 2 {
		t.Error("dataset not kept after sink error")
	}
}

func TestSession_FillBotOutputsKeepsCursor(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)
	s.Click(0, FieldNotes)
	_ = s.UpdateDraft("wip")

	ds := s.FillBotOutputs(ctx, map[int]string{0: "4", 1: "Paris"})

	if ds[0].BotOutput != "4" || ds[1].BotOutput != "Paris" {
		t.Errorf("bot outputs = %q, %q", ds[0].BotOutput, ds[1].BotOutput)
	}
	want := Editing{RowID: 0, Field: FieldNotes, Draft: "wip"}
	if got := s.Snapshot().Cursor; got != want {
		t.Errorf("Cursor = %#v, want %#v", got, want)
	}
	changes := sink.all()
	if changes[len(changes)-1].Kind != ChangeBotOutput {
		t.Errorf("last change kind = %s", changes[len(changes)-1].Kind)
	}
}

func TestWorkspace_SessionLookup(t *testing.T) {
	ws := NewWorkspace()
	s := ws.NewSession(context.Background())

	got, err := ws.Session(s.ID())
	if err != nil || got != s {
		t.Errorf("Session(%q) = %v, %v", s.ID(), got, err)
	}
	if _, err := ws.Session("missing"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Session(missing) error = %v, want ErrSessionNotFound", err)
	}
}

func TestWorkspace_Resume(t *testing.T) {
	ctx := context.Background()
	known := uuid.New().String()
	restored := Dataset{{ID: 0, Input: "q", ExpectedOutput: "a", Notes: "kept"}}
	ws := NewWorkspace(WithRestorer(fakeRestorer{data: map[string]Dataset{known: restored}}))

	t.Run("adopts valid unknown id and restores", func(t *testing.T) {
		s := ws.Resume(ctx, known)
		if s.ID() != known {
			t.Errorf("ID() = %q, want %q", s.ID(), known)
		}
		if !s.Snapshot().Dataset.Equal(restored) {
			t.Errorf("dataset = %+v, want restored", s.Snapshot().Dataset)
		}
	})

	t.Run("returns existing session", func(t *testing.T) {
		first := ws.Resume(ctx, known)
		if again := ws.Resume(ctx, known); again != first {
			t.Error("Resume() created a second session for the same id")
		}
	})

	t.Run("invalid id gets a fresh session", func(t *testing.T) {
		s := ws.Resume(ctx, "not-a-uuid")
		if s.ID() == "not-a-uuid" {
			t.Error("invalid id was adopted")
		}
		if _, err := uuid.Parse(s.ID()); err != nil {
			t.Errorf("new id %q is not a uuid", s.ID())
		}
	})

	t.Run("empty id gets a fresh session", func(t *testing.T) {
		if s := ws.Resume(ctx, ""); s.ID() == "" {
			t.Error("empty id")
		}
	})
}

func TestWorkspace_RestoreErrorStartsEmpty(t *testing.T) {
	ws := NewWorkspace(WithRestorer(fakeRestorer{err: errors.New("boom")}))
	s := ws.Resume(context.Background(), uuid.New().String())
	if s.Snapshot().Dataset.Len() != 0 {
		t.Error("session not empty after restore error")
	}
}

func TestWorkspace_Expire(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ws := NewWorkspace(WithClock(clock.Now))
	ctx := context.Background()

	stale := ws.NewSession(ctx)
	clock.Advance(2 * time.Hour)
	fresh := ws.NewSession(ctx)

	if removed := ws.Expire(time.Hour); removed != 1 {
		t.Errorf("Expire() = %d, want 1", removed)
	}
	if _, err := ws.Session(stale.ID()); !errors.Is(err, ErrSessionNotFound) {
		t.Error("stale session survived")
	}
	if _, err := ws.Session(fresh.ID()); err != nil {
		t.Error("fresh session expired")
	}
}

func TestWorkspace_UseRefreshesLastSeen(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	ws := NewWorkspace(WithClock(clock.Now))
	s := ws.NewSession(context.Background())

	clock.Advance(50 * time.Minute)
	s.Snapshot()
	clock.Advance(50 * time.Minute)

	if removed := ws.Expire(time.Hour); removed != 0 {
		t.Errorf("Expire() = %d, want 0", removed)
	}
}

func TestWorkspace_ConcurrentSessions(t *testing.T) {
	ws := NewWorkspace()
	ctx := context.Background()
	s := ws.NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			field := FieldNotes
			if i%2 == 0 {
				field = FieldBetterAnswer
			}
			_ = s.Edit(ctx, i%2, field, "x")
			_ = s.Snapshot()
			ws.NewSession(ctx)
		}(i)
	}
	wg.Wait()

	if got := ws.Len(); got != 21 {
		t.Errorf("Len() = %d, want 21", got)
	}
}

// blockingSink holds every Publish until release is closed.
type blockingSink struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingSink() *blockingSink {
	return &blockingSink{entered: make(chan struct{}), release: make(chan struct{})}
}

func (b *blockingSink) Publish(context.Context, Change) error {
	b.once.Do(func() { close(b.entered) })
	<-b.release
	return nil
}

// within fails the test if fn does not return in time.
func within(t *testing.T, what string, fn func()) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		fn()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("%s blocked behind a slow sink", what)
	}
}

func TestWorkspace_SlowSinkDoesNotBlockOthers(t *testing.T) {
	sink := newBlockingSink()
	ws := NewWorkspace(WithSink(sink))
	ctx := context.Background()
	busy := ws.NewSession(ctx)
	other := ws.NewSession(ctx)

	imported := make(chan error, 1)
	go func() {
		up := csvUpload(scenarioCSV)
		imported <- busy.Import(ctx, &up)
	}()
	<-sink.entered
	defer func() {
		close(sink.release)
		if err := <-imported; err != nil {
			t.Errorf("Import() error = %v", err)
		}
	}()

	within(t, "Expire", func() { ws.Expire(time.Hour) })
	within(t, "Session lookup", func() {
		if _, err := ws.Session(other.ID()); err != nil {
			t.Errorf("Session() error = %v", err)
		}
	})
	within(t, "Snapshot of the publishing session", func() {
		if got := busy.Snapshot().Dataset.Len(); got != 2 {
			t.Errorf("rows = %d, want 2", got)
		}
	})
}

func TestSession_ChangesPublishedInOrder(t *testing.T) {
	ctx := context.Background()
	sink := &fakeSink{}
	s := NewWorkspace(WithSink(sink)).NewSession(ctx)
	up := csvUpload(scenarioCSV)
	_ = s.Import(ctx, &up)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = s.Edit(ctx, 0, FieldNotes, fmt.Sprintf("v%d", i))
		}(i)
	}
	wg.Wait()

	changes := sink.all()
	if len(changes) != 21 {
		t.Fatalf("published %d changes, want 21", len(changes))
	}
	// Each edit saw the value the previous published edit wrote.
	for i := 2; i < len(changes); i++ {
		if changes[i].OldValue != changes[i-1].NewValue {
			t.Fatalf("change %d old value %q, previous wrote %q", i, changes[i].OldValue, changes[i-1].NewValue)
		}
	}
	if !changes[len(changes)-1].Dataset.Equal(s.Snapshot().Dataset) {
		t.Error("last published dataset differs from session state")
	}
}

// gatedRestorer holds its first Latest call until release is closed.
type gatedRestorer struct {
	ds      Dataset
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedRestorer) Latest(context.Context, string) (Dataset, bool, error) {
	if g.calls.Add(1) == 1 {
		close(g.entered)
		<-g.release
	}
	return g.ds, true, nil
}

func TestWorkspace_LateRestoreKeepsNewerImport(t *testing.T) {
	ctx := context.Background()
	id := uuid.New().String()
	old := Dataset{{ID: 0, Input: "old", ExpectedOutput: "old"}}
	restorer := &gatedRestorer{ds: old, entered: make(chan struct{}), release: make(chan struct{})}
	ws := NewWorkspace(WithRestorer(restorer))

	slow := make(chan *Session, 1)
	go func() { slow <- ws.Resume(ctx, id) }()
	<-restorer.entered

	if _, err := ws.Session(id); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("half-restored session visible: %v", err)
	}

	fast := ws.Resume(ctx, id)
	up := csvUpload(scenarioCSV)
	if err := fast.Import(ctx, &up); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	close(restorer.release)
	late := <-slow

	if late != fast {
		t.Error("late restore registered a second session for the id")
	}
	got, err := ws.Session(id)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if ds := got.Snapshot().Dataset; ds.Len() != 2 || ds[0].Input != "2+2" {
		t.Errorf("dataset = %+v, want the imported one", ds)
	}
}

func TestWorkspace_NewSessionSkipsRestore(t *testing.T) {
	restorer := &gatedRestorer{entered: make(chan struct{}), release: make(chan struct{})}
	ws := NewWorkspace(WithRestorer(restorer))
	ws.NewSession(context.Background())
	if n := restorer.calls.Load(); n != 0 {
		t.Errorf("restorer called %d times for a fresh id", n)
	}
}

func TestSweepConfigDefaults(t *testing.T) {
	cfg := SweepConfig{}.withDefaults()
	if cfg.IdleTimeout != 12*time.Hour || cfg.Interval != 10*time.Minute {
		t.Errorf("withDefaults() = %+v", cfg)
	}
}

func TestStartSweeperStopsOnCancel(t *testing.T) {
	ws := NewWorkspace()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		ws.StartSweeper(ctx, SweepConfig{Interval: time.Millisecond, IdleTimeout: time.Hour})
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
