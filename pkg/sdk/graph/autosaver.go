package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"

	sdkerrors "github.com/Tatenda/fullstori/pkg/sdk/errors"
	"github.com/Tatenda/fullstori/pkg/savequeue"
)

// Saver persists a full graph snapshot. *Client implements it.
type Saver interface {
	Save(ctx context.Context, graphID string, req *SaveGraphRequest) (*SaveGraphResult, error)
}

// AutoSaveOptions configure an AutoSaver.
type AutoSaveOptions struct {
	// Debounce is the quiet period after the last Update before saving.
	// Zero uses savequeue.DefaultDebounce.
	Debounce time.Duration

	// MirrorPath, when set, receives every unsaved snapshot so it can be
	// recovered after a crash. The file is removed once the latest snapshot
	// is saved.
	MirrorPath string

	// MaxAttempts bounds retries of interrupted transactions. Default 3.
	MaxAttempts int

	// RetryDelay is the first backoff interval. Default 200ms.
	RetryDelay time.Duration

	OnSaved func(*SaveGraphResult)
	OnError func(error)
}

// Mirror is the on-disk form of an unsaved snapshot.
type Mirror struct {
	GraphID  string           `json:"graphId"`
	Seq      uint64           `json:"seq"`
	StoredAt time.Time        `json:"storedAt"`
	Snapshot SaveGraphRequest `json:"snapshot"`
}

// AutoSaver keeps a graph saved while the caller edits it locally. Updates
// are coalesced so that only the latest snapshot is sent, never more than
// one save is in flight, and saves happen after a quiet period.
type AutoSaver struct {
	saver   Saver
	graphID string
	opts    AutoSaveOptions
	queue   *savequeue.Queue

	mu         sync.Mutex
	seq        uint64
	savedSeq   uint64
	lastResult *SaveGraphResult
}

// NewAutoSaver returns an AutoSaver for graphID. Saves run with a context
// derived from ctx.
func NewAutoSaver(ctx context.Context, saver Saver, graphID string, opts AutoSaveOptions) *AutoSaver {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 200 * time.Millisecond
	}
	a := &AutoSaver{saver: saver, graphID: graphID, opts: opts}
	a.queue = savequeue.New(ctx, savequeue.Options{Debounce: opts.Debounce})
	return a
}

// Update records a new snapshot and schedules a debounced save. The snapshot
// is copied, so the caller may keep mutating it.
func (a *AutoSaver) Update(snapshot *SaveGraphRequest) error {
	task, err := a.prepare(snapshot)
	if err != nil {
		return err
	}
	a.queue.Schedule(task)
	return nil
}

// SaveNow records a snapshot and saves it as soon as no save is in flight.
func (a *AutoSaver) SaveNow(snapshot *SaveGraphRequest) error {
	task, err := a.prepare(snapshot)
	if err != nil {
		return err
	}
	a.queue.Submit(task)
	return nil
}

// Flush saves the pending snapshot immediately and waits for it.
func (a *AutoSaver) Flush(ctx context.Context) error {
	return a.queue.Flush(ctx)
}

// Close flushes and stops the saver.
func (a *AutoSaver) Close(ctx context.Context) error {
	return a.queue.Close(ctx)
}

// Dirty reports whether the latest snapshot has not been saved yet.
func (a *AutoSaver) Dirty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seq != a.savedSeq
}

// LastResult returns the result of the most recent successful save.
func (a *AutoSaver) LastResult() *SaveGraphResult {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastResult
}

// Recover returns the snapshot left in the mirror file by a previous run,
// or nil when there is none for this graph.
func (a *AutoSaver) Recover() (*SaveGraphRequest, error) {
	if a.opts.MirrorPath == "" {
		return nil, nil
	}
	m, err := ReadMirror(a.opts.MirrorPath)
	if err != nil || m == nil {
		return nil, err
	}
	if m.GraphID != a.graphID {
		return nil, nil
	}
	return &m.Snapshot, nil
}

// ReadMirror loads a mirror file. A missing file is not an error.
func ReadMirror(path string) (*Mirror, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read mirror: %w", err)
	}
	var m Mirror
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mirror: %w", err)
	}
	return &m, nil
}

// prepare assigns the snapshot a sequence number and mirrors it. The mirror
// is written under mu so a finishing save never removes a newer snapshot.
func (a *AutoSaver) prepare(snapshot *SaveGraphRequest) (savequeue.Task, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	seq := a.seq + 1
	data, err := json.Marshal(Mirror{
		GraphID:  a.graphID,
		Seq:      seq,
		StoredAt: time.Now().UTC(),
		Snapshot: *snapshot,
	})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	if a.opts.MirrorPath != "" {
		if err := writeFileAtomic(a.opts.MirrorPath, data); err != nil {
			return nil, err
		}
	}

	var copied Mirror
	if err := json.Unmarshal(data, &copied); err != nil {
		return nil, fmt.Errorf("copy snapshot: %w", err)
	}
	a.seq = seq
	return func(ctx context.Context) error {
		return a.save(ctx, seq, &copied.Snapshot)
	}, nil
}

func (a *AutoSaver) save(ctx context.Context, seq uint64, snapshot *SaveGraphRequest) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = a.opts.RetryDelay

	res, err := backoff.Retry(ctx, func() (*SaveGraphResult, error) {
		res, err := a.saver.Save(ctx, a.graphID, snapshot)
		if err != nil && !sdkerrors.IsTransactionInterrupted(err) {
			return nil, backoff.Permanent(err)
		}
		return res, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(a.opts.MaxAttempts)))
	if err != nil {
		if a.opts.OnError != nil {
			a.opts.OnError(err)
		}
		return err
	}

	a.mu.Lock()
	a.lastResult = res
	if seq > a.savedSeq {
		a.savedSeq = seq
	}
	var clearErr error
	if a.seq == seq && a.opts.MirrorPath != "" {
		if err := os.Remove(a.opts.MirrorPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			clearErr = fmt.Errorf("clear mirror: %w", err)
		}
	}
	a.mu.Unlock()

	if clearErr != nil && a.opts.OnError != nil {
		a.opts.OnError(clearErr)
	}
	if a.opts.OnSaved != nil {
		a.opts.OnSaved(res)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mirror dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("mirror temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write mirror: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write mirror: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write mirror: %w", err)
	}
	return nil
}
