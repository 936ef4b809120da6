package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Rao130/SARA-PHARMACY-sub000/internal/domain"
)

type stubTag int64

func (t stubTag) RowsAffected() int64 { return int64(t) }

type stubTx struct{}

func (stubTx) Query(_ context.Context, _ string, _ ...any) (Rows, error) { return nil, nil }
func (stubTx) QueryRow(_ context.Context, _ string, _ ...any) Row        { return nil }
func (stubTx) Exec(_ context.Context, _ string, _ ...any) (CommandTag, error) {
	return stubTag(0), nil
}
func (stubTx) Commit(_ context.Context) error   { return nil }
func (stubTx) Rollback(_ context.Context) error { return nil }

type stubDB struct {
	begins int
}

func (d *stubDB) Query(_ context.Context, _ string, _ ...any) (Rows, error) { return nil, nil }
func (d *stubDB) QueryRow(_ context.Context, _ string, _ ...any) Row        { return nil }
func (d *stubDB) Exec(_ context.Context, _ string, _ ...any) (CommandTag, error) {
	return stubTag(0), nil
}
func (d *stubDB) Begin(_ context.Context) (Tx, error) {
	d.begins++
	return stubTx{}, nil
}
func (d *stubDB) Close() {}

func testPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Backoff: time.Millisecond}
}

func TestWithTx_DomainErrorsAreNotRetried(t *testing.T) {
	db := &stubDB{}
	calls := 0

	err := withTx(context.Background(), db, testPolicy(), func(Tx) error {
		calls++
		return domain.ErrOrderNotFound
	})

	require.True(t, errors.Is(err, domain.ErrOrderNotFound))
	require.Equal(t, 1, calls)

	calls = 0
	err = withTx(context.Background(), db, testPolicy(), func(Tx) error {
		calls++
		return domain.ErrAgentUnavailable
	})
	require.True(t, errors.Is(err, domain.ErrAgentUnavailable))
	require.Equal(t, 1, calls)
}

func TestWithTx_TransientErrorsAreRetried(t *testing.T) {
	db := &stubDB{}
	calls := 0

	err := withTx(context.Background(), db, testPolicy(), func(Tx) error {
		calls++
		if calls < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, 3, calls)
	require.Equal(t, 3, db.begins)
}

func TestWithTx_ExhaustionSurfacesLastError(t *testing.T) {
	db := &stubDB{}
	persistErr := errors.New("disk full")

	err := withTx(context.Background(), db, testPolicy(), func(Tx) error {
		return persistErr
	})

	require.True(t, errors.Is(err, persistErr))
	require.Equal(t, 3, db.begins)
}

func TestWithTx_CancelledContextStopsRetry(t *testing.T) {
	db := &stubDB{}
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := withTx(ctx, db, testPolicy(), func(Tx) error {
		calls++
		cancel()
		return errors.New("connection reset")
	})

	require.Error(t, err)
	require.Equal(t, 1, calls)
}
