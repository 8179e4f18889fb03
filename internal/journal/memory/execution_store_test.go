package memory

import (
	"context"
	"errors"
	"testing"

	"solana-grad-pipeline/internal/domain"
	"solana-grad-pipeline/internal/journal"
)

func sampleExecution(id, decisionID string, createdAt int64) *domain.ExecutionRecord {
	return &domain.ExecutionRecord{
		ExecutionID:  id,
		DecisionID:   decisionID,
		Address:      "addr",
		Mode:         domain.ModePaper,
		SizeFraction: 0.005,
		EntryPrice:   0.0002,
		SlippageBps:  42,
		Route:        "paper",
		Success:      true,
		CreatedAt:    createdAt,
	}
}

func TestExecutionStore_InsertAndGetByDecision(t *testing.T) {
	s := NewExecutionStore()
	ctx := context.Background()

	for _, r := range []*domain.ExecutionRecord{
		sampleExecution("e2", "d1", 200),
		sampleExecution("e1", "d1", 100),
		sampleExecution("e3", "d2", 150),
	} {
		if err := s.Insert(ctx, r); err != nil {
			t.Fatalf("Insert %s: %v", r.ExecutionID, err)
		}
	}

	got, err := s.GetByDecisionID(ctx, "d1")
	if err != nil {
		t.Fatalf("GetByDecisionID: %v", err)
	}
	if len(got) != 2 || got[0].ExecutionID != "e1" || got[1].ExecutionID != "e2" {
		t.Errorf("ordering: got %d records", len(got))
	}
	if got[0].Route != "paper" || !got[0].Success {
		t.Errorf("record mismatch: %+v", got[0])
	}

	got, err = s.GetByDecisionID(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetByDecisionID unknown: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("unknown decision: got %d records", len(got))
	}
}

func TestExecutionStore_DuplicateKey(t *testing.T) {
	s := NewExecutionStore()
	ctx := context.Background()

	if err := s.Insert(ctx, sampleExecution("e1", "d1", 1)); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	err := s.Insert(ctx, sampleExecution("e1", "d2", 2))
	if !errors.Is(err, journal.ErrDuplicateKey) {
		t.Errorf("got %v, want ErrDuplicateKey", err)
	}
}

func TestExecutionStore_InvalidInput(t *testing.T) {
	s := NewExecutionStore()
	ctx := context.Background()

	if err := s.Insert(ctx, nil); !errors.Is(err, journal.ErrInvalidInput) {
		t.Errorf("nil record: got %v, want ErrInvalidInput", err)
	}
	if err := s.Insert(ctx, &domain.ExecutionRecord{}); !errors.Is(err, journal.ErrInvalidInput) {
		t.Errorf("empty id: got %v, want ErrInvalidInput", err)
	}
}

func TestExecutionStore_FailedAttemptFields(t *testing.T) {
	s := NewExecutionStore()
	ctx := context.Background()

	msg := "venue rejected order"
	r := sampleExecution("e1", "d1", 100)
	r.Success = false
	r.Error = &msg
	r.TxSignature = nil
	if err := s.Insert(ctx, r); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := s.GetByTimeRange(ctx, 0, 1000)
	if err != nil {
		t.Fatalf("GetByTimeRange: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].Success || got[0].Error == nil || *got[0].Error != msg {
		t.Errorf("failed attempt not preserved: %+v", got[0])
	}
	if got[0].TxSignature != nil {
		t.Error("failed attempt should carry no signature")
	}
}
