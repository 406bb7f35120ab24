package main

import (
	"context"
	"net/http"
	"os"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/feedrelay/internal/adapters/http/api"
	app "github.com/okian/feedrelay/internal/app"
	"github.com/okian/feedrelay/internal/config"
	"github.com/okian/feedrelay/internal/domain/model"
	"github.com/okian/feedrelay/pkg/logger"
	"github.com/okian/feedrelay/pkg/metrics"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	m.Run()
}

type nopIngestor struct{}

func (nopIngestor) Ingest(context.Context, ...model.RawEvent) error { return nil }

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("FEEDRELAY_ADDR", ":8080")
			_ = os.Setenv("FEEDRELAY_BACKLOG_COUNT", "5")
			defer func() {
				_ = os.Unsetenv("FEEDRELAY_ADDR")
				_ = os.Unsetenv("FEEDRELAY_BACKLOG_COUNT")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				ctx := context.Background()
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.BacklogCount, convey.ShouldEqual, 5)
			})
		})

		convey.Convey("When testing service creation", func() {
			convey.Convey("Then service should be creatable with default options", func() {
				svc := app.New()
				convey.So(svc, convey.ShouldNotBeNil)
			})

			convey.Convey("And service should be creatable with custom options", func() {
				svc := app.New(
					app.WithRedisAddr("127.0.0.1:6380"),
					app.WithSubject("7"),
					app.WithBacklogCount(25),
				)
				convey.So(svc, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing HTTP server creation", func() {
			convey.Convey("Then HTTP routes should be creatable", func() {
				noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
				server := api.New(nopIngestor{}, noop)
				convey.So(server, convey.ShouldNotBeNil)
				convey.So(server.Routes(), convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			convey.Convey("Then metrics manager should be creatable", func() {
				manager := metrics.NewManager()
				convey.So(manager, convey.ShouldNotBeNil)
			})
		})
	})
}
