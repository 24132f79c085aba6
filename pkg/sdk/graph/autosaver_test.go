package graph

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
)

type fakeSaver struct {
	mu       sync.Mutex
	saved    []SaveGraphRequest
	failures []error
	gate     chan struct{}
	calls    int
}

func (f *fakeSaver) Save(ctx context.Context, graphID string, req *SaveGraphRequest) (*SaveGraphResult, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	f.saved = append(f.saved, *req)
	return &SaveGraphResult{GraphID: graphID, Nodes: len(req.Nodes)}, nil
}

func (f *fakeSaver) snapshot() ([]SaveGraphRequest, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SaveGraphRequest(nil), f.saved...), f.calls
}

func withNodes(ids ...string) *SaveGraphRequest {
	req := &SaveGraphRequest{}
	for _, id := range ids {
		req.Nodes = append(req.Nodes, SaveNode{ID: id, EntityID: "ent-" + id, Position: &Position{}})
	}
	return req
}

func interrupted() error {
	return &sdkerrors.Error{StatusCode: 503, Code: sdkerrors.CodeTransactionInterrupted, Message: "retry"}
}

func TestAutoSaver_CoalescesToLatest(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour})

	require.NoError(t, a.Update(withNodes("a")))
	require.NoError(t, a.Update(withNodes("a", "b")))
	require.NoError(t, a.Update(withNodes("a", "b", "c")))
	assert.True(t, a.Dirty())

	require.NoError(t, a.Flush(context.Background()))

	saved, calls := saver.snapshot()
	assert.Equal(t, 1, calls)
	require.Len(t, saved, 1)
	assert.Len(t, saved[0].Nodes, 3)
	assert.False(t, a.Dirty())
	assert.Equal(t, 3, a.LastResult().Nodes)
}

func TestAutoSaver_SnapshotIsCopied(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour})

	req := withNodes("a")
	require.NoError(t, a.Update(req))
	req.Nodes[0].ID = "mutated"
	require.NoError(t, a.Flush(context.Background()))

	saved, _ := saver.snapshot()
	assert.Equal(t, "a", saved[0].Nodes[0].ID)
}

func TestAutoSaver_OneSaveInFlight(t *testing.T) {
	saver := &fakeSaver{gate: make(chan struct{})}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: -1})

	require.NoError(t, a.SaveNow(withNodes("first")))
	require.NoError(t, a.SaveNow(withNodes("second")))
	require.NoError(t, a.SaveNow(withNodes("third")))

	close(saver.gate)
	require.NoError(t, a.Flush(context.Background()))

	saved, calls := saver.snapshot()
	assert.Equal(t, 2, calls)
	require.Len(t, saved, 2)
	assert.Equal(t, "first", saved[0].Nodes[0].ID)
	assert.Equal(t, "third", saved[1].Nodes[0].ID)
}

func TestAutoSaver_RetriesInterruptedTransactions(t *testing.T) {
	saver := &fakeSaver{failures: []error{interrupted(), interrupted()}}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{
		Debounce:    time.Hour,
		MaxAttempts: 3,
		RetryDelay:  time.Millisecond,
	})

	require.NoError(t, a.Update(withNodes("a")))
	require.NoError(t, a.Flush(context.Background()))

	saved, calls := saver.snapshot()
	assert.Equal(t, 3, calls)
	assert.Len(t, saved, 1)
}

func TestAutoSaver_GivesUpAfterMaxAttempts(t *testing.T) {
	saver := &fakeSaver{failures: []error{interrupted(), interrupted(), interrupted()}}
	var reported []error
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{
		Debounce:    time.Hour,
		MaxAttempts: 2,
		RetryDelay:  time.Millisecond,
		OnError:     func(err error) { reported = append(reported, err) },
	})

	require.NoError(t, a.Update(withNodes("a")))
	err := a.Flush(context.Background())
	assert.True(t, sdkerrors.IsTransactionInterrupted(err))

	_, calls := saver.snapshot()
	assert.Equal(t, 2, calls)
	assert.Len(t, reported, 1)
	assert.True(t, a.Dirty())
}

func TestAutoSaver_DoesNotRetryOtherErrors(t *testing.T) {
	validation := &sdkerrors.Error{StatusCode: 422, Code: sdkerrors.CodeValidation, Message: "duplicate node id"}
	saver := &fakeSaver{failures: []error{validation}}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour, RetryDelay: time.Millisecond})

	require.NoError(t, a.Update(withNodes("a")))
	err := a.Flush(context.Background())
	assert.True(t, errors.Is(err, validation) || sdkerrors.IsValidation(err))

	_, calls := saver.snapshot()
	assert.Equal(t, 1, calls)
}

func TestAutoSaver_MirrorLifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mirror", "case-1.json")
	saver := &fakeSaver{failures: []error{errors.New("offline")}}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour, MirrorPath: path})

	require.NoError(t, a.Update(withNodes("a", "b")))

	m, err := ReadMirror(path)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, "case-1", m.GraphID)
	assert.Equal(t, uint64(1), m.Seq)
	assert.Len(t, m.Snapshot.Nodes, 2)

	assert.Error(t, a.Flush(context.Background()))
	m, err = ReadMirror(path)
	require.NoError(t, err)
	assert.NotNil(t, m, "failed save keeps the mirror")

	// A new process for the same graph recovers the snapshot.
	restarted := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour, MirrorPath: path})
	recovered, err := restarted.Recover()
	require.NoError(t, err)
	require.NotNil(t, recovered)
	assert.Len(t, recovered.Nodes, 2)

	other := NewAutoSaver(context.Background(), saver, "case-2", AutoSaveOptions{MirrorPath: path})
	none, err := other.Recover()
	require.NoError(t, err)
	assert.Nil(t, none, "mirror of another graph is ignored")

	require.NoError(t, restarted.Update(recovered))
	require.NoError(t, restarted.Flush(context.Background()))
	m, err = ReadMirror(path)
	require.NoError(t, err)
	assert.Nil(t, m, "successful save clears the mirror")
}

func TestAutoSaver_RecoverWithoutMirror(t *testing.T) {
	a := NewAutoSaver(context.Background(), &fakeSaver{}, "case-1", AutoSaveOptions{})
	snap, err := a.Recover()
	require.NoError(t, err)
	assert.Nil(t, snap)

	a = NewAutoSaver(context.Background(), &fakeSaver{}, "case-1", AutoSaveOptions{
		MirrorPath: filepath.Join(t.TempDir(), "absent.json"),
	})
	snap, err = a.Recover()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestAutoSaver_Close(t *testing.T) {
	saver := &fakeSaver{}
	a := NewAutoSaver(context.Background(), saver, "case-1", AutoSaveOptions{Debounce: time.Hour})

	require.NoError(t, a.Update(withNodes("a")))
	require.NoError(t, a.Close(context.Background()))

	_, calls := saver.snapshot()
	assert.Equal(t, 1, calls, "close saves the pending snapshot")
}
