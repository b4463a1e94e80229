package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/speedcube/internal/config"
	"github.com/okian/speedcube/internal/domain/advancement"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		ctx := context.Background()
		cfg := config.New(ctx)

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.DatabaseDSN, convey.ShouldStartWith, "file:speedcube.db")
			convey.So(cfg.AutoMigrate, convey.ShouldBeTrue)
			convey.So(cfg.FeedBufferSize, convey.ShouldEqual, 64)
			convey.So(cfg.RequestTimeout(), convey.ShouldEqual, 5*time.Second)
			convey.So(cfg.TiePolicy(), convey.ShouldEqual, advancement.SliceByPosition)
			convey.So(cfg.Validate(ctx), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a config with one bad field", t, func() {
		ctx := context.Background()

		cases := map[string]func(*config.Config){
			"database_dsn":       func(c *config.Config) { c.DatabaseDSN = " " },
			"log_format":         func(c *config.Config) { c.LogFormat = "xml" },
			"log_level":          func(c *config.Config) { c.LogLevel = "loud" },
			"tie policy":         func(c *config.Config) { c.AdvancementTiePolicy = "coin_flip" },
			"feed_buffer_size":   func(c *config.Config) { c.FeedBufferSize = 0 },
			"request_timeout_ms": func(c *config.Config) { c.RequestTimeoutMS = -1 },
		}

		for field, mutate := range cases {
			cfg := config.New(ctx)
			mutate(cfg)
			err := cfg.Validate(ctx)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			convey.So(err.Error(), convey.ShouldContainSubstring, field)
		}
	})

	convey.Convey("Given the admit_ties policy", t, func() {
		cfg := config.New(context.Background())
		cfg.AdvancementTiePolicy = "ADMIT_TIES"

		convey.So(cfg.Validate(context.Background()), convey.ShouldBeNil)
		convey.So(cfg.TiePolicy(), convey.ShouldEqual, advancement.AdmitTies)
	})
}
