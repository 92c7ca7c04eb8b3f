package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/bigkaa/expiry-reminder/internal/domain/model"
	"github.com/bigkaa/expiry-reminder/internal/events"
	"github.com/bigkaa/expiry-reminder/internal/i18n"
	"github.com/bigkaa/expiry-reminder/internal/message"
	"github.com/bigkaa/expiry-reminder/internal/notifier"
	"github.com/bigkaa/expiry-reminder/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *message.Renderer {
	t.Helper()
	bundle, err := i18n.Load(nil)
	if err != nil {
		t.Fatalf("i18n.Load() ошибка: %v", err)
	}
	return message.NewRenderer(bundle, i18n.LangEnglish)
}

// --- журнал в памяти ---

type fakeLedger struct {
	mu        sync.Mutex
	records   map[string]*model.DispatchRecord
	lookupErr error
	createErr error
	lookups   int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{records: make(map[string]*model.DispatchRecord)}
}

func (l *fakeLedger) Lookup(_ context.Context, documentID string, m model.Milestone) (model.DispatchStatus, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups++
	if l.lookupErr != nil {
		return "", false, l.lookupErr
	}
	rec, ok := l.records[ledgerKey(documentID, m)]
	if !ok {
		return "", false, nil
	}
	return rec.Status, true, nil
}

func (l *fakeLedger) Create(_ context.Context, rec *model.DispatchRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.createErr != nil {
		return l.createErr
	}
	key := ledgerKey(rec.DocumentID, rec.Milestone)
	if _, ok := l.records[key]; ok {
		return fmt.Errorf("%w: %s", repository.ErrConflict, key)
	}
	copied := *rec
	l.records[key] = &copied
	return nil
}

func (l *fakeLedger) GetByID(_ context.Context, id string) (*model.DispatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.records {
		if rec.ID == id {
			copied := *rec
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (l *fakeLedger) filtered(filter repository.DispatchFilter) []*model.DispatchRecord {
	var out []*model.DispatchRecord
	for _, rec := range l.records {
		if filter.Status != nil && rec.Status != *filter.Status {
			continue
		}
		if filter.DocumentID != "" && rec.DocumentID != filter.DocumentID {
			continue
		}
		copied := *rec
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.After(out[j].AttemptedAt) })
	return out
}

func (l *fakeLedger) List(_ context.Context, filter repository.DispatchFilter, limit, offset int) ([]*model.DispatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	all := l.filtered(filter)
	if offset >= len(all) {
		return nil, nil
	}
	end := min(offset+limit, len(all))
	return all[offset:end], nil
}

func (l *fakeLedger) Count(_ context.Context, filter repository.DispatchFilter) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.filtered(filter)), nil
}

func (l *fakeLedger) DeleteFailed(_ context.Context, id string) (*model.DispatchRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, rec := range l.records {
		if rec.ID != id {
			continue
		}
		if rec.Status != model.DispatchFailed {
			return nil, fmt.Errorf("%w: статус %s", repository.ErrConflict, rec.Status)
		}
		delete(l.records, key)
		return rec, nil
	}
	return nil, repository.ErrNotFound
}

func (l *fakeLedger) all() []*model.DispatchRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filtered(repository.DispatchFilter{})
}

func (l *fakeLedger) get(documentID string, m model.Milestone) *model.DispatchRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.records[ledgerKey(documentID, m)]
}

// --- хранилище документов ---

type fakeDocuments struct {
	docs    []*model.Document
	listErr error
}

func (d *fakeDocuments) ListActive(_ context.Context) ([]*model.Document, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	var out []*model.Document
	for _, doc := range d.docs {
		if doc.Status == model.DocumentActive {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *fakeDocuments) GetByID(_ context.Context, id string) (*model.Document, error) {
	for _, doc := range d.docs {
		if doc.ID == id {
			return doc, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (d *fakeDocuments) Create(_ context.Context, doc *model.Document) error {
	d.docs = append(d.docs, doc)
	return nil
}

// --- транспорт ---

type fakeNotifier struct {
	mu      sync.Mutex
	sent    []notifier.Message
	failFor map[string]bool
	// block — если не nil, Send ждёт закрытия канала
	block   chan struct{}
	started chan struct{}
	once    sync.Once
}

func (n *fakeNotifier) Send(ctx context.Context, msg notifier.Message) (*notifier.Receipt, error) {
	if n.started != nil {
		n.once.Do(func() { close(n.started) })
	}
	if n.block != nil {
		select {
		case <-n.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failFor[msg.To] {
		return nil, fmt.Errorf("%w: connection refused", notifier.ErrTransport)
	}
	n.sent = append(n.sent, msg)
	return &notifier.Receipt{
		MessageID: fmt.Sprintf("<%d@test>", len(n.sent)),
		Response:  "250 accepted",
		SentAt:    time.Now(),
	}, nil
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// --- публикатор событий ---

type fakePublisher struct {
	mu     sync.Mutex
	events []events.DispatchEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, event events.DispatchEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

// --- распределённая блокировка ---

type fakeLock struct {
	mu       sync.Mutex
	held     bool
	err      error
	released int
}

func (l *fakeLock) TryAcquire(_ context.Context) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held {
		return "", false, nil
	}
	l.held = true
	return "token", true, nil
}

func (l *fakeLock) Release(_ context.Context, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || token != "token" {
		return errors.New("not held")
	}
	l.held = false
	l.released++
	return nil
}

// day возвращает полночь UTC для даты, смещённой на offset дней от base.
func day(base time.Time, offset int) time.Time {
	y, m, d := base.Date()
	return time.Date(y, m, d+offset, 0, 0, 0, 0, time.UTC)
}

func newDocument(id, email string, expiry time.Time) *model.Document {
	return &model.Document{
		ID:           id,
		HolderName:   "Holder " + id,
		Organization: "PT Test",
		ContactEmail: email,
		Kind:         model.KindKITAS,
		ExpiryDate:   expiry,
		Status:       model.DocumentActive,
	}
}
