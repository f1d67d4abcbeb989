package config_test

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/sentinel/internal/config"
	"github.com/okian/sentinel/internal/domain/scoring"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default values", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreURL, convey.ShouldEqual, "memory://")
			convey.So(cfg.QueueKey, convey.ShouldEqual, "anomaly:queue")
			convey.So(cfg.NotifyChannel, convey.ShouldEqual, "anomaly:channel")
			convey.So(cfg.DeadLetterKey, convey.ShouldEqual, "anomaly:deadletter")
			convey.So(cfg.ReputationMaxAge, convey.ShouldEqual, 90)
			convey.So(cfg.DispatchMaxAttempts, convey.ShouldEqual, 3)
			convey.So(cfg.Thresholds(), convey.ShouldResemble, scoring.DefaultThresholds())
			convey.So(cfg.KafkaEnabled(), convey.ShouldBeFalse)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then weights equal the defaults", func() {
			w, err := cfg.Weights()
			convey.So(err, convey.ShouldBeNil)
			convey.So(w, convey.ShouldResemble, scoring.DefaultWeights())
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		convey.Convey("An empty addr is rejected", func() {
			cfg.Addr = " "
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Inverted thresholds are rejected", func() {
			cfg.AnomalyThreshold, cfg.SuspiciousThreshold = 30, 60
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Negative or unknown weights are rejected", func() {
			cfg.RuleWeights = map[string]int{"proxy": -1}
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
			cfg.RuleWeights = map[string]int{"no_such_rule": 5}
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Zero dispatch attempts are rejected", func() {
			cfg.DispatchMaxAttempts = 0
			convey.So(cfg.Validate(), convey.ShouldWrap, config.ErrInvalidConfig)
		})

		convey.Convey("Missing credentials are fine", func() {
			cfg.AbuseIPDBAPIKey, cfg.WebhookURL = "", ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
