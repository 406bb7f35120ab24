package ws_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/feedrelay/internal/adapters/ws"
	"github.com/okian/feedrelay/internal/sessions"
	"github.com/okian/feedrelay/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

type fakeBacklog struct {
	recent []map[string]any
}

func (f *fakeBacklog) Recent(context.Context) ([]map[string]any, error) {
	return f.recent, nil
}

type frame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f frame
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return f
}

func waitForCount(reg *sessions.Registry, want int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if reg.Count() == want {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestHandler(t *testing.T) {
	ctx := context.Background()

	Convey("Given a WebSocket handler over a registry", t, func() {
		reg := sessions.New(&fakeBacklog{recent: []map[string]any{{"id": "1001"}}})
		srv := httptest.NewServer(ws.NewHandler(reg))
		defer srv.Close()

		Convey("When a client connects", func() {
			conn := dial(t, srv.URL)
			defer conn.Close()

			Convey("Then it receives the backlog frame first", func() {
				f := readFrame(t, conn)
				So(f.Channel, ShouldEqual, sessions.BacklogChannel)

				var recent []map[string]any
				So(json.Unmarshal(f.Data, &recent), ShouldBeNil)
				So(recent, ShouldHaveLength, 1)
				So(recent[0]["id"], ShouldEqual, "1001")
			})

			Convey("Then broadcasts reach it on the event channel", func() {
				So(waitForCount(reg, 1, time.Second), ShouldBeTrue)
				_ = readFrame(t, conn) // backlog

				reg.Broadcast(ctx, map[string]any{"data": []any{"id", "42"}})

				f := readFrame(t, conn)
				So(f.Channel, ShouldEqual, sessions.EventChannel)
				So(string(f.Data), ShouldContainSubstring, `"42"`)
			})
		})

		Convey("When two clients connect", func() {
			c1 := dial(t, srv.URL)
			defer c1.Close()
			c2 := dial(t, srv.URL)
			defer c2.Close()
			So(waitForCount(reg, 2, time.Second), ShouldBeTrue)
			_ = readFrame(t, c1)
			_ = readFrame(t, c2)

			Convey("Then a broadcast reaches both", func() {
				reg.Broadcast(ctx, map[string]any{"data": []any{"id", "7"}})

				So(readFrame(t, c1).Channel, ShouldEqual, sessions.EventChannel)
				So(readFrame(t, c2).Channel, ShouldEqual, sessions.EventChannel)
			})
		})

		Convey("When a client disconnects", func() {
			conn := dial(t, srv.URL)
			So(waitForCount(reg, 1, time.Second), ShouldBeTrue)

			conn.Close()

			Convey("Then its session is unregistered", func() {
				So(waitForCount(reg, 0, time.Second), ShouldBeTrue)
			})
		})
	})
}
