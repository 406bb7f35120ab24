package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/feedrelay/internal/adapters/mq/queue"
	"github.com/okian/feedrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

func testQueue(t *testing.T, consumer string) (*queue.Queue, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := queue.New(client,
		queue.WithStream("relay:test"),
		queue.WithGroup("relay"),
		queue.WithConsumer(consumer),
		queue.WithBlock(50*time.Millisecond),
		queue.WithRetryDelay(10*time.Millisecond),
	)
	return q, client
}

func testQueueOn(t *testing.T, client *redis.Client, consumer string) *queue.Queue {
	t.Helper()
	return queue.New(client,
		queue.WithStream("relay:test"),
		queue.WithGroup("relay"),
		queue.WithConsumer(consumer),
		queue.WithBlock(50*time.Millisecond),
		queue.WithRetryDelay(10*time.Millisecond),
	)
}

func receive(t *testing.T, ch <-chan queue.Delivery) (queue.Delivery, bool) {
	t.Helper()
	select {
	case d, ok := <-ch:
		return d, ok
	case <-time.After(2 * time.Second):
		return queue.Delivery{}, false
	}
}

func TestQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given an initialized queue", t, func() {
		q, client := testQueue(t, "worker-a")
		So(q.Init(ctx), ShouldBeNil)

		Convey("When Init runs twice", func() {
			Convey("Then the existing group should be tolerated", func() {
				So(q.Init(ctx), ShouldBeNil)
			})
		})

		Convey("When a message is enqueued and consumed", func() {
			So(q.Enqueue(ctx, `{"data":["id","1"]}`), ShouldBeNil)

			consumeCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			ch := q.Consume(consumeCtx)

			d, ok := receive(t, ch)

			Convey("Then the delivery should carry the body", func() {
				So(ok, ShouldBeTrue)
				So(d.Body, ShouldEqual, `{"data":["id","1"]}`)
				So(d.ID, ShouldNotBeEmpty)
			})

			Convey("Then acking should clear the pending entry", func() {
				So(ok, ShouldBeTrue)
				So(d.Ack(ctx), ShouldBeNil)

				pending, err := client.XPending(ctx, "relay:test", "relay").Result()
				So(err, ShouldBeNil)
				So(pending.Count, ShouldEqual, 0)
			})
		})

		Convey("When a delivery is never acked", func() {
			So(q.Enqueue(ctx, "first"), ShouldBeNil)

			consumeCtx, cancel := context.WithCancel(ctx)
			ch := q.Consume(consumeCtx)
			d, ok := receive(t, ch)
			So(ok, ShouldBeTrue)
			So(d.Body, ShouldEqual, "first")
			cancel() // stop without acking

			Convey("Then a fresh consumer should reclaim it", func() {
				q2 := testQueueOn(t, client, "worker-b")

				consume2, cancel2 := context.WithCancel(ctx)
				defer cancel2()
				ch2 := q2.Consume(consume2)

				d2, ok := receive(t, ch2)
				So(ok, ShouldBeTrue)
				So(d2.Body, ShouldEqual, "first")
				So(d2.Ack(ctx), ShouldBeNil)
			})
		})

		Convey("When consumption is canceled", func() {
			consumeCtx, cancel := context.WithCancel(ctx)
			ch := q.Consume(consumeCtx)
			cancel()

			Convey("Then the delivery channel should close", func() {
				select {
				case _, open := <-ch:
					So(open, ShouldBeFalse)
				case <-time.After(2 * time.Second):
					So("channel did not close", ShouldBeEmpty)
				}
			})
		})
	})

	Convey("Given a Redis that goes away", t, func() {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		q := testQueueOn(t, client, "worker-a")
		So(q.Init(context.Background()), ShouldBeNil)
		mr.Close()

		Convey("When enqueuing", func() {
			err := q.Enqueue(context.Background(), "x")

			Convey("Then the failure should be surfaced, not swallowed", func() {
				So(err, ShouldWrap, queue.ErrUnavailable)
			})
		})
	})
}
