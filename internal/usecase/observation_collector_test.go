package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"OpsPulse/internal/domain/models"
	"OpsPulse/internal/service/feed"
	xhttp "OpsPulse/pkg/http"
)

// fakeStream is a scriptable observation stream. Reconnect hands out
// fresh channels, mirroring what the real client does.
type fakeStream struct {
	mu            sync.Mutex
	obsCh         chan *models.Observation
	errCh         chan error
	connected     bool
	connectErr    error
	subscribeErr  error
	reconnectErrs []error
	reconnects    int
	closed        bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		obsCh: make(chan *models.Observation, 16),
		errCh: make(chan error, 16),
	}
}

func (f *fakeStream) Connect(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	f.connected = true
	return nil
}

func (f *fakeStream) Subscribe(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subscribeErr
}

func (f *fakeStream) Read(context.Context) (<-chan *models.Observation, <-chan error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.obsCh, f.errCh
}

func (f *fakeStream) Reconnect(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconnects++
	if len(f.reconnectErrs) > 0 {
		err := f.reconnectErrs[0]
		f.reconnectErrs = f.reconnectErrs[1:]
		return err
	}
	f.obsCh = make(chan *models.Observation, 16)
	f.errCh = make(chan error, 16)
	return nil
}

func (f *fakeStream) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.connected = false
	return nil
}

func (f *fakeStream) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeStream) push(o *models.Observation) {
	f.mu.Lock()
	ch := f.obsCh
	f.mu.Unlock()
	ch <- o
}

func (f *fakeStream) fail(err error) {
	f.mu.Lock()
	ch := f.errCh
	f.mu.Unlock()
	ch <- err
}

func newTestCollector(stream *fakeStream, pub *fakePublisher) *ObservationCollector {
	proc := NewObservationProcessor(pub, &fakeStorage{}, nopMetrics{}, "kafka", 100, time.Second)
	return NewObservationCollector(stream, proc, nopMetrics{}, nil)
}

func published(pub *fakePublisher) func() int {
	return func() int {
		pub.mu.Lock()
		defer pub.mu.Unlock()
		return len(pub.single)
	}
}

func TestCollectorProcessesStreamed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream()
	pub := &fakePublisher{}
	c := newTestCollector(stream, pub)

	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsConnected())

	stream.push(testObservation("cpu.load", 0.5))

	count := published(pub)
	assert.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)
}

func TestCollectorConnectError(t *testing.T) {
	stream := newFakeStream()
	stream.connectErr = errors.New("dial failed")
	c := newTestCollector(stream, &fakePublisher{})

	err := c.Start(context.Background())
	require.Error(t, err)
}

func TestCollectorSubscribeError(t *testing.T) {
	stream := newFakeStream()
	stream.subscribeErr = errors.New("subscribe rejected")
	c := newTestCollector(stream, &fakePublisher{})

	err := c.Start(context.Background())
	require.Error(t, err)
}

func TestCollectorReconnectReadsNewChannels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream()
	pub := &fakePublisher{}
	c := newTestCollector(stream, pub)
	require.NoError(t, c.Start(ctx))

	count := published(pub)

	stream.push(testObservation("cpu.load", 1))
	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)

	stream.fail(errors.New("connection reset"))
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.reconnects == 1
	}, 2*time.Second, 5*time.Millisecond)

	// observations on the post-reconnect channel must still arrive
	require.Eventually(t, func() bool {
		stream.push(testObservation("cpu.load", 2))
		return count() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCollectorRetriesFailedReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream()
	stream.reconnectErrs = []error{errors.New("still down"), errors.New("still down")}
	pub := &fakePublisher{}
	c := newTestCollector(stream, pub)
	require.NoError(t, c.Start(ctx))

	stream.fail(errors.New("connection reset"))

	// two failed dials, then the third succeeds
	require.Eventually(t, func() bool {
		stream.mu.Lock()
		defer stream.mu.Unlock()
		return stream.reconnects == 3
	}, 2*time.Second, 5*time.Millisecond)

	count := published(pub)
	require.Eventually(t, func() bool {
		stream.push(testObservation("cpu.load", 1))
		return count() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCollectorCatchupAfterReconnect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/points/cpu.load" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"metric":"cpu.load","value":3.5,"ts":1748736000000,"source":"rest"}]}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream := newFakeStream()
	pub := &fakePublisher{}
	c := newTestCollector(stream, pub)
	rest := feed.NewRestClient(xhttp.NewClient(xhttp.WithTimeout(2*time.Second)), srv.URL, "tok")
	c.SetCatchup(rest, []string{"cpu.load"})

	require.NoError(t, c.Start(ctx))

	count := published(pub)

	// one live observation seeds lastAt, then the stream drops
	stream.push(testObservation("cpu.load", 1))
	require.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)

	stream.fail(errors.New("gone away"))

	// the missed point arrives via REST replay
	require.Eventually(t, func() bool { return count() == 2 }, 2*time.Second, 5*time.Millisecond)

	pub.mu.Lock()
	replayed := pub.single[1]
	pub.mu.Unlock()
	assert.Equal(t, "cpu.load", replayed.MetricID)
	assert.InDelta(t, 3.5, replayed.Value, 1e-9)
	assert.Equal(t, int64(1748736000), replayed.Timestamp)
	assert.Equal(t, "rest", replayed.Source)
}

func TestCollectorShutdownClosesStream(t *testing.T) {
	stream := newFakeStream()
	c := newTestCollector(stream, &fakePublisher{})

	require.NoError(t, c.Shutdown(context.Background()))
	assert.True(t, stream.closed)
}

func TestCollectorProcessorAccessor(t *testing.T) {
	c := newTestCollector(newFakeStream(), &fakePublisher{})
	assert.NotNil(t, c.Processor())
}
