package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"livingcost/internal/amqp"
	"livingcost/internal/log"
	"livingcost/internal/prices"
)

type fakeSource struct {
	table prices.Table
	err   error
}

func (f *fakeSource) ReadTable(context.Context) (prices.Table, error) {
	return f.table, f.err
}

type fakeStore struct {
	mu      sync.Mutex
	saved   []prices.Table
	keep    int
	saveErr error
	onSave  func()
}

func (f *fakeStore) SaveTable(_ context.Context, t prices.Table) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return 0, f.saveErr
	}
	f.saved = append(f.saved, t)
	if f.onSave != nil {
		f.onSave()
	}
	return int64(len(f.saved)), nil
}

func (f *fakeStore) PruneSnapshots(_ context.Context, keep int) (int64, error) {
	f.keep = keep
	return 0, nil
}

type fakePublisher struct {
	msgs []*amqp.PriceTableRefreshedMessage
	err  error
}

func (f *fakePublisher) PublishPriceRefresh(_ context.Context, msg *amqp.PriceTableRefreshedMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

func testLogger() *log.Logger {
	return log.New(log.Config{Output: io.Discard})
}

func tableWithRows(n int) prices.Table {
	t := prices.Table{Source: "bea_page", FetchedAt: time.Now().UTC()}
	for i := 0; i < n; i++ {
		t.Entries = append(t.Entries, prices.Entry{Location: fmt.Sprintf("State %d", i), Value: 90 + float64(i)/10})
	}
	return t
}

func TestRefreshSavesAndPublishes(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := NewRefreshWorker(&fakeSource{table: tableWithRows(51)}, store, pub, testLogger(), Options{Retention: 7})

	id, err := w.Refresh(context.Background())
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if id != 1 || len(store.saved) != 1 {
		t.Fatalf("expected one snapshot with id 1, got id %d and %d saved", id, len(store.saved))
	}
	if store.keep != 7 {
		t.Errorf("expected prune to keep 7, got %d", store.keep)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected one published message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.SnapshotID != 1 || msg.Source != "bea_page" || msg.Entries != 51 || msg.ID == "" {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestRefreshRejectsShortTable(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{}
	w := NewRefreshWorker(&fakeSource{table: tableWithRows(12)}, store, pub, testLogger(), Options{})

	_, err := w.Refresh(context.Background())
	if !errors.Is(err, ErrTooFewRows) {
		t.Fatalf("expected ErrTooFewRows, got %v", err)
	}
	if len(store.saved) != 0 || len(pub.msgs) != 0 {
		t.Error("a rejected table must not be saved or published")
	}
}

func TestRefreshErrors(t *testing.T) {
	upstream := errors.New("connection refused")
	w := NewRefreshWorker(&fakeSource{err: upstream}, &fakeStore{}, nil, testLogger(), Options{})
	if _, err := w.Refresh(context.Background()); !errors.Is(err, upstream) {
		t.Errorf("expected upstream error, got %v", err)
	}

	disk := errors.New("disk full")
	w = NewRefreshWorker(&fakeSource{table: tableWithRows(40)}, &fakeStore{saveErr: disk}, nil, testLogger(), Options{})
	if _, err := w.Refresh(context.Background()); !errors.Is(err, disk) {
		t.Errorf("expected save error, got %v", err)
	}
}

func TestRefreshPublishFailureIsNotFatal(t *testing.T) {
	store := &fakeStore{}
	pub := &fakePublisher{err: amqp.ErrCircuitOpen}
	w := NewRefreshWorker(&fakeSource{table: tableWithRows(40)}, store, pub, testLogger(), Options{})

	if _, err := w.Refresh(context.Background()); err != nil {
		t.Fatalf("publish failure should not fail the refresh: %v", err)
	}
	if len(store.saved) != 1 {
		t.Errorf("expected snapshot to be saved, got %d", len(store.saved))
	}
}

func TestRunRefreshesAtStartup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &fakeStore{onSave: cancel}
	w := NewRefreshWorker(&fakeSource{table: tableWithRows(40)}, store, nil, testLogger(), Options{Schedule: "@every 1h"})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}
	if len(store.saved) != 1 {
		t.Errorf("expected one startup refresh, got %d", len(store.saved))
	}
}

func TestRunInvalidSchedule(t *testing.T) {
	w := NewRefreshWorker(&fakeSource{}, &fakeStore{}, nil, testLogger(), Options{Schedule: "every tuesday"})
	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected schedule error")
	}
}
