package worker_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/feedrelay/internal/adapters/mq/queue"
	"github.com/okian/feedrelay/internal/adapters/mq/worker"
	"github.com/okian/feedrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

// stubSource replays a fixed set of deliveries.
type stubSource struct {
	deliveries []queue.Delivery
}

func (s *stubSource) Consume(ctx context.Context) <-chan queue.Delivery {
	out := make(chan queue.Delivery)
	go func() {
		defer close(out)
		for _, d := range s.deliveries {
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// recordingBroadcaster captures every broadcast field map.
type recordingBroadcaster struct {
	mu     sync.Mutex
	fields []map[string]any
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, fields map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fields = append(b.fields, fields)
}

func (b *recordingBroadcaster) all() []map[string]any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]any(nil), b.fields...)
}

func ackTracker(acked *sync.Map, id string) func(context.Context) error {
	return func(context.Context) error {
		acked.Store(id, true)
		return nil
	}
}

func runWorker(t *testing.T, src worker.Source, b worker.Broadcaster) {
	t.Helper()
	w := worker.New(src, b, worker.WithName("test-worker"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)
	select {
	case <-w.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not finish")
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a worker over a stub queue", t, func() {
		var acked sync.Map

		Convey("When a well-formed message is delivered", func() {
			src := &stubSource{deliveries: []queue.Delivery{{
				ID:   "1-0",
				Body: `{"data":["id",745322704471887900,"text","From bird flu..."]}`,
				Ack:  ackTracker(&acked, "1-0"),
			}}}
			b := &recordingBroadcaster{}
			runWorker(t, src, b)

			Convey("Then it should be decoded, broadcast, and acked", func() {
				fields := b.all()
				So(fields, ShouldHaveLength, 1)
				So(fields[0]["id"], ShouldEqual, json.Number("745322704471887900"))
				So(fields[0]["text"], ShouldEqual, "From bird flu...")

				_, ok := acked.Load("1-0")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When a malformed message is delivered", func() {
			src := &stubSource{deliveries: []queue.Delivery{
				{ID: "1-0", Body: `{not json`, Ack: ackTracker(&acked, "1-0")},
				{ID: "2-0", Body: `{"data":["id","2"]}`, Ack: ackTracker(&acked, "2-0")},
			}}
			b := &recordingBroadcaster{}
			runWorker(t, src, b)

			Convey("Then it should be acked and dropped, not retried", func() {
				_, ok := acked.Load("1-0")
				So(ok, ShouldBeTrue)
			})

			Convey("Then later messages should still flow", func() {
				fields := b.all()
				So(fields, ShouldHaveLength, 1)
				So(fields[0]["id"], ShouldEqual, json.Number("2"))
				_, ok := acked.Load("2-0")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When an ack fails", func() {
			src := &stubSource{deliveries: []queue.Delivery{
				{ID: "1-0", Body: `{"data":["id","1"]}`, Ack: func(context.Context) error {
					return queue.ErrUnavailable
				}},
				{ID: "2-0", Body: `{"data":["id","2"]}`, Ack: ackTracker(&acked, "2-0")},
			}}
			b := &recordingBroadcaster{}
			runWorker(t, src, b)

			Convey("Then the loop should keep draining", func() {
				So(b.all(), ShouldHaveLength, 2)
				_, ok := acked.Load("2-0")
				So(ok, ShouldBeTrue)
			})
		})

		Convey("When there are no subscribers at all", func() {
			src := &stubSource{deliveries: []queue.Delivery{{
				ID: "1-0", Body: `{"data":["id","1"]}`, Ack: ackTracker(&acked, "1-0"),
			}}}
			b := &recordingBroadcaster{}
			runWorker(t, src, b)

			Convey("Then delivery still completes and acks", func() {
				_, ok := acked.Load("1-0")
				So(ok, ShouldBeTrue)
			})
		})
	})
}
