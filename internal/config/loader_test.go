package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/dudu/eyescreen/internal/config"
)

func clearConfigEnv() {
	for _, e := range os.Environ() {
		if len(e) > 10 && e[:10] == "EYESCREEN_" {
			for i := range e {
				if e[i] == '=' {
					_ = os.Unsetenv(e[:i])
					break
				}
			}
		}
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given the config loader", t, func() {
		clearConfigEnv()

		convey.Convey("When loading with defaults only", func() {
			cfg, err := config.Load("")

			convey.Convey("Then the built-in tuning applies", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
				convey.So(cfg.Gate.TickIntervalMS, convey.ShouldEqual, 100)
				convey.So(cfg.Gate.CountdownMS, convey.ShouldEqual, 3000)
				convey.So(cfg.Gate.GuideRadiusPX, convey.ShouldEqual, 30)
				convey.So(cfg.Gate.CropSize, convey.ShouldEqual, 160)
				convey.So(cfg.Gate.JPEGQuality, convey.ShouldEqual, 90)
				convey.So(cfg.Gate.MinBrightness, convey.ShouldEqual, 80)
				convey.So(cfg.Gate.MaxBrightness, convey.ShouldEqual, 180)
				convey.So(cfg.Gate.MinFaceWidth, convey.ShouldEqual, 0.15)
				convey.So(cfg.Gate.MaxFaceWidth, convey.ShouldEqual, 0.4)
				convey.So(cfg.Gate.MinEAR, convey.ShouldEqual, 0.25)
				convey.So(cfg.Server.Addr, convey.ShouldEqual, ":8080")
			})
		})

		convey.Convey("When a YAML file overrides defaults", func() {
			path := filepath.Join(t.TempDir(), "eyescreen.yaml")
			yaml := []byte("log_level: debug\ngate:\n  tick_interval_ms: 50\n  crop_size: 224\ncamera:\n  device_id: 2\n")
			convey.So(os.WriteFile(path, yaml, 0o644), convey.ShouldBeNil)

			cfg, err := config.Load(path)

			convey.Convey("Then file values win over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Gate.TickIntervalMS, convey.ShouldEqual, 50)
				convey.So(cfg.Gate.CropSize, convey.ShouldEqual, 224)
				convey.So(cfg.Camera.DeviceID, convey.ShouldEqual, 2)
				convey.So(cfg.Gate.CountdownMS, convey.ShouldEqual, 3000)
			})
		})

		convey.Convey("When environment variables override everything", func() {
			_ = os.Setenv("EYESCREEN_LOG_LEVEL", "warn")
			_ = os.Setenv("EYESCREEN_GATE__TICK_INTERVAL_MS", "25")
			_ = os.Setenv("EYESCREEN_SERVER__ADDR", ":9090")
			defer clearConfigEnv()

			cfg, err := config.Load("")

			convey.Convey("Then env values win", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "warn")
				convey.So(cfg.Gate.TickIntervalMS, convey.ShouldEqual, 25)
				convey.So(cfg.Server.Addr, convey.ShouldEqual, ":9090")
			})
		})

		convey.Convey("When the config is invalid", func() {
			_ = os.Setenv("EYESCREEN_GATE__TICK_INTERVAL_MS", "0")
			defer clearConfigEnv()

			_, err := config.Load("")

			convey.Convey("Then loading fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_, err := config.Load("/nonexistent/eyescreen.yaml")
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
