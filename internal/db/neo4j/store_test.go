package neo4j

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"github.com/kailas-cloud/cinegraph/internal/db"
	"github.com/kailas-cloud/cinegraph/internal/db/guard"
	"github.com/kailas-cloud/cinegraph/internal/domain"
)

func TestQuery_MapsRecordsByAlias(t *testing.T) {
	var gotParams map[string]any
	s := NewStoreForTest(func(_ context.Context, _ string, params map[string]any) ([]*neo4j.Record, error) {
		gotParams = params
		return []*neo4j.Record{
			{Keys: []string{"username"}, Values: []any{"alice"}},
			{Keys: []string{"username"}, Values: []any{"bob"}},
		}, nil
	})

	rows, err := s.Query(context.Background(), "MATCH (u:User) RETURN u.username AS username",
		map[string]any{"movieId": "603"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 || rows[0]["username"] != "alice" || rows[1]["username"] != "bob" {
		t.Errorf("unexpected rows: %v", rows)
	}
	if gotParams["movieId"] != "603" {
		t.Errorf("params not forwarded: %v", gotParams)
	}
}

func TestQuery_Empty(t *testing.T) {
	s := NewStoreForTest(func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, nil
	})

	rows, err := s.Query(context.Background(), "RETURN 1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("expected no rows, got %v", rows)
	}
}

func TestQuery_ErrorIsUnavailable(t *testing.T) {
	s := NewStoreForTest(func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, errors.New("ConnectivityError: unable to reach bolt://localhost:7687")
	})

	_, err := s.Query(context.Background(), "RETURN 1", nil)
	if !errors.Is(err, domain.ErrBackingStoreUnavailable) {
		t.Fatalf("expected ErrBackingStoreUnavailable, got %v", err)
	}
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpCypher {
		t.Errorf("expected cypher db.Error, got %v", err)
	}
}

func TestQuery_DeadlineIsTimeout(t *testing.T) {
	s := NewStoreForTest(func(context.Context, string, map[string]any) ([]*neo4j.Record, error) {
		return nil, context.DeadlineExceeded
	})

	_, err := s.Query(context.Background(), "RETURN 1", nil)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestBoundedBy_CapsDriverBudgets(t *testing.T) {
	c := config.Config{MaxTransactionRetryTime: 30 * time.Second}
	boundedBy(300 * time.Millisecond)(&c)

	if c.MaxTransactionRetryTime != 300*time.Millisecond {
		t.Errorf("MaxTransactionRetryTime = %s", c.MaxTransactionRetryTime)
	}
	if c.ConnectionAcquisitionTimeout != 300*time.Millisecond {
		t.Errorf("ConnectionAcquisitionTimeout = %s", c.ConnectionAcquisitionTimeout)
	}
	if c.SocketConnectTimeout != 300*time.Millisecond {
		t.Errorf("SocketConnectTimeout = %s", c.SocketConnectTimeout)
	}
}

func TestBoundedBy_ZeroKeepsDefaults(t *testing.T) {
	c := config.Config{MaxTransactionRetryTime: 30 * time.Second}
	boundedBy(0)(&c)
	if c.MaxTransactionRetryTime != 30*time.Second {
		t.Errorf("MaxTransactionRetryTime = %s, want untouched", c.MaxTransactionRetryTime)
	}
}

func TestQuery_RetryExhaustionAfterDeadlineIsTimeout(t *testing.T) {
	settings := guard.DefaultSettings()
	settings.Timeout = 20 * time.Millisecond
	s := &Store{
		execute: func(ctx context.Context, _ string, _ map[string]any) ([]*neo4j.Record, error) {
			<-ctx.Done()
			return nil, errors.New("TransactionExecutionLimit: timeout after 2 attempts")
		},
		guard: guard.New(StoreName, settings, nil),
	}

	_, err := s.Query(context.Background(), "RETURN 1", nil)
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}
