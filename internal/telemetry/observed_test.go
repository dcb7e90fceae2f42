package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func TestObserved_NotifiesAfterInsert(t *testing.T) {
	var got []Record
	obs := ObserverFunc(func(_ context.Context, rec Record) error {
		got = append(got, rec)
		return nil
	})

	store := NewObserved(NewMemoryStore(), obs)
	ctx := context.Background()
	at := time.Unix(100, 0).UTC()

	if err := store.Insert(ctx, Bike(1), at, bike(90)); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("observer called %d times, want 1", len(got))
	}
	if got[0].Address != Bike(1) || !got[0].Timestamp.Equal(at) {
		t.Errorf("observer got %+v", got[0])
	}

	recs, _ := store.FetchAll(ctx, Bike(1))
	if len(recs) != 1 {
		t.Errorf("FetchAll() through decorator = %d records, want 1", len(recs))
	}
}

func TestObserved_SkipsObserversOnRejectedInsert(t *testing.T) {
	called := false
	store := NewObserved(NewMemoryStore(), ObserverFunc(func(context.Context, Record) error {
		called = true
		return nil
	}))

	err := store.Insert(context.Background(), Oven(1), time.Now(), bike(1))
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("Insert() error = %v, want ErrInvalidPayload", err)
	}
	if called {
		t.Error("observer called for a rejected insert")
	}
}

func TestObserved_ObserverFailureDoesNotFailInsert(t *testing.T) {
	failing := ObserverFunc(func(context.Context, Record) error {
		return errors.New("influx down")
	})
	secondCalled := false
	second := ObserverFunc(func(context.Context, Record) error {
		secondCalled = true
		return nil
	})

	logger := &recordingLogger{}
	store := NewObserved(NewMemoryStore(), failing, second)
	store.SetLogger(logger)

	if err := store.Insert(context.Background(), Bike(1), time.Now(), bike(1)); err != nil {
		t.Fatalf("Insert() error = %v, want nil", err)
	}
	if !secondCalled {
		t.Error("second observer not called after first failed")
	}
	if len(logger.warns) != 1 {
		t.Errorf("logged %d warnings, want 1", len(logger.warns))
	}
}
