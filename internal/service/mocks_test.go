package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Strob0t/PropExtract/internal/domain"
	"github.com/Strob0t/PropExtract/internal/domain/pdfop"
	"github.com/Strob0t/PropExtract/internal/domain/task"
	"github.com/Strob0t/PropExtract/internal/port/changefeed"
	"github.com/Strob0t/PropExtract/internal/port/docapi"
	"github.com/Strob0t/PropExtract/internal/port/messagequeue"
	"github.com/Strob0t/PropExtract/internal/port/objectstore"
)

// mockStore is an in-memory database.Store enforcing the progress guard.
type mockStore struct {
	mu        sync.Mutex
	tasks     map[string]*task.Task
	results   map[string]*task.Result
	ops       []pdfop.Operation
	progress  map[string][]int
	createErr error
	listErr   error
	clock     time.Time
}

func newMockStore() *mockStore {
	return &mockStore{
		tasks:    make(map[string]*task.Task),
		results:  make(map[string]*task.Result),
		progress: make(map[string][]int),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *mockStore) CreateTask(_ context.Context, t *task.Task) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.clock = m.clock.Add(time.Second)
	c := *t
	c.CreatedAt, c.UpdatedAt = m.clock, m.clock
	m.tasks[c.ID] = &c
	out := c
	return &out, nil
}

func (m *mockStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	c := *t
	return &c, nil
}

func (m *mockStore) ListTasks(_ context.Context) ([]task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]task.Task, 0, len(m.tasks))
	for _, t := range m.tasks {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockStore) UpdateProgress(_ context.Context, id string, progress int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if err := t.CheckProgress(progress); err != nil {
		return err
	}
	t.Progress = progress
	m.progress[id] = append(m.progress[id], progress)
	return nil
}

func (m *mockStore) CompleteTask(_ context.Context, id string, r *task.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", id, t.Status, domain.ErrConflict)
	}
	c := *r
	c.ID = "r-" + id
	c.TaskID = id
	m.results[id] = &c
	t.Status = task.StatusCompleted
	t.Progress = task.ProgressDone
	return nil
}

func (m *mockStore) FailTask(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if t.Status.Terminal() {
		return fmt.Errorf("task %s is %s: %w", id, t.Status, domain.ErrConflict)
	}
	t.Status = task.StatusFailed
	return nil
}

func (m *mockStore) ListResults(_ context.Context) ([]task.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]task.Result, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockStore) GetResult(_ context.Context, taskID string) (*task.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[taskID]
	if !ok {
		return nil, fmt.Errorf("result %s: %w", taskID, domain.ErrNotFound)
	}
	c := *r
	return &c, nil
}

func (m *mockStore) CreatePDFOperation(_ context.Context, op *pdfop.Operation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, *op)
	return nil
}

func (m *mockStore) ListPDFOperations(_ context.Context, taskID string) ([]pdfop.Operation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []pdfop.Operation
	for _, op := range m.ops {
		if op.TaskID == taskID {
			out = append(out, op)
		}
	}
	return out, nil
}

func (m *mockStore) task(id string) task.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.tasks[id]
}

func (m *mockStore) seed(id string, kind task.Kind) {
	_, _ = m.CreateTask(context.Background(), task.New(id, kind, "seed"))
}

// mockFeed delivers events synchronously via emit.
type mockFeed struct {
	mu        sync.Mutex
	listeners map[int]changefeed.Listener
	next      int
	err       error
}

func newMockFeed() *mockFeed { return &mockFeed{listeners: make(map[int]changefeed.Listener)} }

func (f *mockFeed) Subscribe(_ context.Context, _ string, fn changefeed.Listener) (func(), error) {
	if f.err != nil {
		return nil, f.err
	}
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}, nil
}

func (f *mockFeed) emit(ev changefeed.Event) {
	f.mu.Lock()
	fns := make([]changefeed.Listener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(context.Background(), ev)
	}
}

func (f *mockFeed) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// mockInvoker records invocations.
type mockInvoker struct {
	mu    sync.Mutex
	calls []invocation
	err   error
}

type invocation struct {
	kind    task.Kind
	payload any
}

func (i *mockInvoker) Invoke(_ context.Context, kind task.Kind, payload any) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.calls = append(i.calls, invocation{kind, payload})
	return i.err
}

// mockDocs is a docapi.Client with per-operation errors.
type mockDocs struct {
	mu       sync.Mutex
	err      error // applies to every operation when set
	stepErr  map[string]error
	steps    []string
	splitOut []string
}

func (d *mockDocs) record(op string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.steps = append(d.steps, op)
	if d.err != nil {
		return d.err
	}
	return d.stepErr[op]
}

func (d *mockDocs) HTMLToPDF(_ context.Context, _ string, _ docapi.PageOptions) ([]byte, error) {
	if err := d.record("html"); err != nil {
		return nil, err
	}
	return []byte("%PDF-api"), nil
}

func (d *mockDocs) Watermark(_ context.Context, pdf []byte, _ string) ([]byte, error) {
	if err := d.record("watermark"); err != nil {
		return nil, err
	}
	return append(pdf, "+wm"...), nil
}

func (d *mockDocs) Compress(_ context.Context, pdf []byte) ([]byte, error) {
	if err := d.record("compress"); err != nil {
		return nil, err
	}
	return append(pdf, "+cmp"...), nil
}

func (d *mockDocs) Secure(_ context.Context, pdf []byte) ([]byte, error) {
	if err := d.record("secure"); err != nil {
		return nil, err
	}
	return append(pdf, "+sec"...), nil
}

func (d *mockDocs) Merge(_ context.Context, _ []string, outputName string) (string, error) {
	if err := d.record("merge"); err != nil {
		return "", err
	}
	return "https://docs.example/" + outputName, nil
}

func (d *mockDocs) Split(_ context.Context, _ string, _ docapi.SplitOptions, _ string) ([]string, error) {
	if err := d.record("split"); err != nil {
		return nil, err
	}
	return d.splitOut, nil
}

// mockObjects is an in-memory objectstore.Store.
type mockObjects struct {
	mu      sync.Mutex
	objects map[string]objectstore.Object
	err     error
}

func newMockObjects() *mockObjects {
	return &mockObjects{objects: make(map[string]objectstore.Object)}
}

func (o *mockObjects) Put(_ context.Context, name, contentType string, data []byte) (string, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.err != nil {
		return "", o.err
	}
	o.objects[name] = objectstore.Object{Name: name, ContentType: contentType, Data: data}
	return "http://files.test/" + name, nil
}

func (o *mockObjects) Get(_ context.Context, name string) (*objectstore.Object, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[name]
	if !ok {
		return nil, objectstore.ErrNotFound
	}
	return &obj, nil
}

func (o *mockObjects) get(name string) (objectstore.Object, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[name]
	return obj, ok
}

// mockGuard claims each key once.
type mockGuard struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (g *mockGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if g.seen == nil {
		g.seen = make(map[string]bool)
	}
	if g.seen[key] {
		return false, nil
	}
	g.seen[key] = true
	return true, nil
}

// mockQueue records subscriptions and lets tests deliver messages.
type mockQueue struct {
	mu        sync.Mutex
	handlers  map[string]messagequeue.Handler
	published []string
}

func newMockQueue() *mockQueue {
	return &mockQueue{handlers: make(map[string]messagequeue.Handler)}
}

func (q *mockQueue) Publish(_ context.Context, subject string, _ []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.published = append(q.published, subject)
	return nil
}

func (q *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	return q.add(subject, h), nil
}

func (q *mockQueue) SubscribeBroadcast(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	return q.add(subject, h), nil
}

func (q *mockQueue) add(subject string, h messagequeue.Handler) func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[subject] = h
	return func() {
		q.mu.Lock()
		delete(q.handlers, subject)
		q.mu.Unlock()
	}
}

func (q *mockQueue) deliver(ctx context.Context, subject string, data []byte) error {
	q.mu.Lock()
	h, ok := q.handlers[subject]
	q.mu.Unlock()
	if !ok {
		return errors.New("no handler for " + subject)
	}
	return h(ctx, subject, data)
}

func (q *mockQueue) Drain() error      { return nil }
func (q *mockQueue) Close() error      { return nil }
func (q *mockQueue) IsConnected() bool { return true }
