// Package capture synchronizes trace requests with the frame boundaries of the render loop.
//
// A request arms the Rendezvous. The render goroutine's pre-frame hook starts
// recording into the Stream, and the post-frame hook of the same frame stops
// it, builds the tree, applies resource deletions and publishes the result.
//
//	Idle -> Armed -> Capturing -> Ready -> (Armed | Idle)
package capture

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/yuuki0xff/frametrace/logging"
	"github.com/yuuki0xff/frametrace/metrics"
	"github.com/yuuki0xff/frametrace/tracer/frame"
	"github.com/yuuki0xff/frametrace/tracer/reaper"
	"github.com/yuuki0xff/frametrace/tracer/stream"
	"github.com/yuuki0xff/frametrace/tracer/tree"
	"github.com/yuuki0xff/frametrace/tracer/util"
	"go.uber.org/zap"
)

const (
	// pre-frameは他のcallbackより先に、post-frameは後に呼び出されるようにする。
	PreFrameKey  = "frametrace"
	PostFrameKey = "~frametrace"
)

var (
	ErrBusy    = errors.New("capture already in progress")
	ErrCleared = errors.New("capture request was cleared")
)

type State int

const (
	Idle State = iota
	Armed
	Capturing
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	case Capturing:
		return "capturing"
	case Ready:
		return "ready"
	default:
		return "unknown"
	}
}

// Capture is the result of one traced frame. It is never modified after it was published.
type Capture struct {
	Frame   uint64
	Tree    tree.Tree
	Lines   int
	Deleted []reaper.Kind
}

// Snapshot is a consistent view of the Rendezvous.
type Snapshot struct {
	// 次に描画されるフレームの番号
	Frame uint64
	State State
	// 古い順。clearされるまで蓄積される。
	Captures []Capture
}

// Latest returns the newest capture.
func (s Snapshot) Latest() (Capture, bool) {
	if len(s.Captures) == 0 {
		return Capture{}, false
	}
	return s.Captures[len(s.Captures)-1], true
}

type Options struct {
	// Stream is the sink of the instrumentation. Required.
	Stream *stream.Stream
	// Deleter receives the resource deletion requests. Optional.
	Deleter reaper.Deleter
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// HistoryLimit is the maximum number of captures kept. 0 means unlimited.
	HistoryLimit int
}

// Rendezvous is the single capture state of a process.
// Arm, Clear and Snapshot may be called from any goroutine. PreFrame and
// PostFrame must be called from the render goroutine.
type Rendezvous struct {
	stream       *stream.Stream
	deleter      reaper.Deleter
	logger       *zap.Logger
	metrics      *metrics.Metrics
	historyLimit int

	lock    sync.Mutex
	state   State
	frame   uint64
	pending *request
	// 公開後は変更しない。追加するときは新しいスライスに置き換える。
	history []Capture
}

type request struct {
	blocking bool
	deletes  reaper.Set
	frame    uint64
	buf      *stream.Buffer

	done chan struct{}
	// doneをcloseする前に書き込む
	snap Snapshot
	err  error
}

// Ticket is returned by Arm and completes when the armed frame was published.
type Ticket struct {
	req *request
}

// Done is closed when the capture was published or the request was cleared.
func (t *Ticket) Done() <-chan struct{} {
	return t.req.done
}

// Wait blocks until the capture of the armed frame was published.
// The returned snapshot ends with that capture. If ctx is done first, Wait
// returns ctx.Err() and the capture still completes in the background.
func (t *Ticket) Wait(ctx context.Context) (Snapshot, error) {
	select {
	case <-t.req.done:
		return t.req.snap, t.req.err
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func New(opts Options) *Rendezvous {
	if opts.Stream == nil {
		opts.Stream = &stream.Stream{}
	}
	return &Rendezvous{
		stream:       opts.Stream,
		deleter:      opts.Deleter,
		logger:       logging.OrNop(opts.Logger),
		metrics:      opts.Metrics,
		historyLimit: opts.HistoryLimit,
	}
}

// Stream returns the sink which the instrumentation should write into.
func (r *Rendezvous) Stream() *stream.Stream {
	return r.stream
}

// Attach registers the frame hooks on f.
func (r *Rendezvous) Attach(f *frame.Frame) {
	f.AddPreFrameCallback(PreFrameKey, r.PreFrame)
	f.AddPostFrameCallback(PostFrameKey, r.PostFrame)
}

// Detach removes the frame hooks from f.
func (r *Rendezvous) Detach(f *frame.Frame) {
	f.RemoveCallbacks(PreFrameKey)
	f.RemoveCallbacks(PostFrameKey)
}

// Arm requests a capture of the next frame.
// deletes are applied at the end of that frame, after its tree was built.
// It fails with ErrBusy while another capture is armed or running.
func (r *Rendezvous) Arm(blocking bool, deletes reaper.Set) (*Ticket, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	switch r.state {
	case Armed, Capturing:
		r.metrics.Arm(metrics.ArmBusy)
		r.logger.Info("rejected trace request", zap.Stringer("state", r.state), zap.Uint64("frame", r.frame))
		return nil, ErrBusy
	}

	req := &request{
		blocking: blocking,
		deletes:  deletes,
		done:     make(chan struct{}),
	}
	r.pending = req
	r.state = Armed
	r.metrics.Arm(metrics.ArmAccepted)
	r.logger.Debug("armed",
		zap.Uint64("frame", r.frame),
		zap.Bool("blocking", blocking),
		zap.Stringer("delete", deletes))
	return &Ticket{req: req}, nil
}

// TraceNextFrame arms the Rendezvous.
// When blocking, it waits until the next frame was captured and returns the
// snapshot published with it. Otherwise it returns the current snapshot
// immediately, which does not contain the newly armed frame.
func (r *Rendezvous) TraceNextFrame(ctx context.Context, blocking bool, deletes reaper.Set) (Snapshot, error) {
	t, err := r.Arm(blocking, deletes)
	if err != nil {
		return Snapshot{}, err
	}
	if !blocking {
		return r.Snapshot(), nil
	}
	return t.Wait(ctx)
}

// Clear discards all captures.
// A request which is armed but not started yet is cancelled with ErrCleared.
// A capture which is already running completes normally.
func (r *Rendezvous) Clear() {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.history = nil
	switch r.state {
	case Ready:
		r.state = Idle
	case Armed:
		req := r.pending
		r.pending = nil
		r.state = Idle
		req.snap = r.snapshotLocked()
		req.err = ErrCleared
		close(req.done)
	}
	r.metrics.Cleared()
	r.logger.Debug("cleared", zap.Stringer("state", r.state))
}

// Snapshot returns the current state and history.
func (r *Rendezvous) Snapshot() Snapshot {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.snapshotLocked()
}

func (r *Rendezvous) State() State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.state
}

func (r *Rendezvous) snapshotLocked() Snapshot {
	return Snapshot{
		Frame:    r.frame,
		State:    r.state,
		Captures: r.history,
	}
}

// PreFrame is the hook called at the beginning of frame counter.
func (r *Rendezvous) PreFrame(counter uint64) {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.frame = counter
	if r.state != Armed {
		return
	}
	req := r.pending
	req.frame = counter
	req.buf = &stream.Buffer{}
	r.stream.Install(req.buf)
	r.state = Capturing
	r.logger.Debug("capturing", zap.Uint64("frame", counter))
}

// PostFrame is the hook called at the end of frame counter.
func (r *Rendezvous) PostFrame(counter uint64) {
	r.lock.Lock()
	r.frame = counter + 1
	r.metrics.SetFrame(r.frame)
	if r.state != Capturing {
		r.lock.Unlock()
		return
	}
	req := r.pending
	buf := r.stream.Uninstall()
	r.lock.Unlock()

	// 状態はCapturingのままなので、他のリクエストはArmできない。
	// ロックを解放して、バッファを所有したまま木を構築する。
	if buf == nil {
		buf = req.buf
	}
	start := time.Now()
	lines := buf.Lines()
	t := tree.Build(lines)
	buildTime := time.Since(start)

	// レンダラがpanicしても、待機中のリクエストを解放するために結果は公開する。
	var deleted []reaper.Kind
	if err := util.PanicHandler(func() {
		deleted = reaper.Reap(r.deleter, req.deletes)
	}); err != nil {
		r.logger.Error("failed to delete resources",
			zap.Uint64("frame", req.frame),
			zap.Stringer("delete", req.deletes),
			zap.Error(err))
	}
	for _, k := range deleted {
		r.metrics.Deleted(k.String())
	}

	c := Capture{
		Frame:   req.frame,
		Tree:    t,
		Lines:   len(lines),
		Deleted: deleted,
	}

	r.lock.Lock()
	r.history = r.appendHistory(c)
	r.pending = nil
	r.state = Ready
	req.snap = r.snapshotLocked()
	close(req.done)
	r.lock.Unlock()

	r.metrics.Captured(len(lines), buildTime)
	r.logger.Debug("captured",
		zap.Uint64("frame", req.frame),
		zap.Int("lines", len(lines)),
		zap.Int("nodes", t.Len()),
		zap.Duration("build", buildTime))
}

// appendHistory returns a new slice. The old one may still be referenced by snapshots.
func (r *Rendezvous) appendHistory(c Capture) []Capture {
	old := r.history
	if r.historyLimit > 0 && len(old) >= r.historyLimit {
		old = old[len(old)-r.historyLimit+1:]
	}
	h := make([]Capture, len(old), len(old)+1)
	copy(h, old)
	return append(h, c)
}
