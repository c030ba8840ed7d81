package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

func pendingMessage(id string) domain.OutboxMessage {
	return domain.OutboxMessage{
		ID:            id,
		AggregateType: "reservation",
		AggregateID:   "res-" + id,
		EventType:     "reservation.created",
		Payload:       []byte(`{"party_size":4}`),
	}
}

func TestWorker_ProcessOnce_DeliveryOutcomes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		publishErrs  []error
		withDLQ      bool
		wantPublish  int
		wantSent     int
		wantFailed   int
		wantDLQCalls int
	}{
		{
			name:        "first attempt succeeds",
			publishErrs: []error{nil},
			wantPublish: 1,
			wantSent:    1,
		},
		{
			name:        "succeeds after two retries",
			publishErrs: []error{errors.New("broker down"), errors.New("broker down"), nil},
			wantPublish: 3,
			wantSent:    1,
		},
		{
			name:         "all attempts fail, message goes to DLQ",
			publishErrs:  []error{errors.New("a"), errors.New("b"), errors.New("c")},
			withDLQ:      true,
			wantPublish:  3,
			wantFailed:   1,
			wantDLQCalls: 1,
		},
		{
			name:        "all attempts fail without DLQ configured",
			publishErrs: []error{errors.New("a"), errors.New("b"), errors.New("c")},
			wantPublish: 3,
			wantFailed:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := &fakeOutboxRepo{pending: []domain.OutboxMessage{pendingMessage("msg-1")}}
			publisher := &scriptedPublisher{script: tt.publishErrs}
			dlq := &scriptedPublisher{}

			options := []Option{WithRetryBaseDelay(0), WithMaxAttempts(3)}
			if tt.withDLQ {
				options = append(options, WithDLQPublisher(dlq))
			}

			NewWorker(repo, publisher, options...).ProcessOnce(context.Background())

			if got := publisher.calls(); got != tt.wantPublish {
				t.Errorf("expected %d publish attempts, got %d", tt.wantPublish, got)
			}
			if got := len(repo.sentIDs); got != tt.wantSent {
				t.Errorf("expected %d sent marks, got %d", tt.wantSent, got)
			}
			if got := len(repo.failedIDs); got != tt.wantFailed {
				t.Errorf("expected %d failed marks, got %d", tt.wantFailed, got)
			}
			if got := dlq.calls(); got != tt.wantDLQCalls {
				t.Errorf("expected %d DLQ publishes, got %d", tt.wantDLQCalls, got)
			}
		})
	}
}

// Сбой одного сообщения не должен останавливать доставку остального батча.
func TestWorker_ProcessOnce_FailureDoesNotBlockBatch(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []domain.OutboxMessage{
		pendingMessage("msg-1"),
		pendingMessage("msg-2"),
		pendingMessage("msg-3"),
	}}
	// msg-1 падает все 3 попытки, msg-2 и msg-3 проходят с первой
	publisher := &scriptedPublisher{script: []error{
		errors.New("x"), errors.New("x"), errors.New("x"),
		nil,
		nil,
	}}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithMaxAttempts(3))
	worker.ProcessOnce(context.Background())

	if got := len(repo.failedIDs); got != 1 || repo.failedIDs[0] != "msg-1" {
		t.Fatalf("expected only msg-1 failed, got %v", repo.failedIDs)
	}
	if got := len(repo.sentIDs); got != 2 {
		t.Fatalf("expected 2 sent marks, got %v", repo.sentIDs)
	}
}

func TestWorker_ProcessOnce_RespectsBatchSize(t *testing.T) {
	t.Parallel()

	repo := &fakeOutboxRepo{pending: []domain.OutboxMessage{
		pendingMessage("msg-1"),
		pendingMessage("msg-2"),
		pendingMessage("msg-3"),
	}}
	publisher := &scriptedPublisher{}

	worker := NewWorker(repo, publisher, WithRetryBaseDelay(0), WithBatchSize(2))
	worker.ProcessOnce(context.Background())

	if got := publisher.calls(); got != 2 {
		t.Fatalf("expected batch of 2 publishes, got %d", got)
	}
}

func TestWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	worker := NewWorker(
		&fakeOutboxRepo{},
		&scriptedPublisher{},
		WithPollInterval(5*time.Millisecond),
		WithRetryBaseDelay(0),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

// fakeOutboxRepo отдаёт фиксированный набор pending-сообщений и записывает
// смены статусов.
type fakeOutboxRepo struct {
	pending   []domain.OutboxMessage
	sentIDs   []string
	failedIDs []string
}

func (f *fakeOutboxRepo) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	return msg, nil
}

func (f *fakeOutboxRepo) PullPending(limit int) ([]domain.OutboxMessage, error) {
	if limit <= 0 || limit >= len(f.pending) {
		return append([]domain.OutboxMessage(nil), f.pending...), nil
	}
	return append([]domain.OutboxMessage(nil), f.pending[:limit]...), nil
}

func (f *fakeOutboxRepo) Stats() (domain.OutboxStats, error) {
	stats := domain.OutboxStats{PendingCount: len(f.pending)}
	if len(f.pending) > 0 {
		stats.OldestPendingAt = time.Now().UTC().Add(-time.Second)
	}
	return stats, nil
}

func (f *fakeOutboxRepo) MarkSent(id string) error {
	f.sentIDs = append(f.sentIDs, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailed(id string) error {
	f.failedIDs = append(f.failedIDs, id)
	return nil
}

// scriptedPublisher возвращает ошибки по сценарию; после исчерпания
// сценария публикация всегда успешна.
type scriptedPublisher struct {
	mu        sync.Mutex
	script    []error
	callCount int
}

func (s *scriptedPublisher) Publish(_ domain.OutboxMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if len(s.script) > 0 {
		err := s.script[0]
		s.script = s.script[1:]
		return err
	}
	return nil
}

func (s *scriptedPublisher) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

var (
	_ domain.OutboxRepository = (*fakeOutboxRepo)(nil)
	_ domain.OutboxPublisher  = (*scriptedPublisher)(nil)
)
