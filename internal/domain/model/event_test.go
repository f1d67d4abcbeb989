package model_test

import (
	"encoding/json"
	"testing"
	"time"

	model "github.com/okian/sentinel/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestRawEventSignals(t *testing.T) {
	convey.Convey("Given a raw event", t, func() {
		convey.Convey("When metadata is absent", func() {
			e := model.RawEvent{Wallet: "0xabc", Action: model.ActionSwap}
			s := e.Signals()

			convey.Convey("Then every signal should be absent", func() {
				convey.So(s.WalletCreatedAt, convey.ShouldBeNil)
				convey.So(s.RecentAttempts, convey.ShouldEqual, 0)
				convey.So(s.FingerprintCount, convey.ShouldEqual, 0)
				convey.So(s.LastKnownCountry, convey.ShouldEqual, "")
				convey.So(e.AmountValue(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When metadata arrives from JSON", func() {
			body := `{"wallet":"0xabc","action":"send","amount":12.5,"metadata":{
				"walletCreatedAt":"2026-10-01T00:00:00Z","recentAttempts":6,
				"fingerprintAssociatedCount":"3","lastKnownCountry":" IN "}}`
			var e model.RawEvent
			convey.So(json.Unmarshal([]byte(body), &e), convey.ShouldBeNil)
			s := e.Signals()

			convey.Convey("Then typed signals should be extracted", func() {
				convey.So(s.WalletCreatedAt, convey.ShouldNotBeNil)
				convey.So(s.WalletCreatedAt.Equal(time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
				convey.So(s.RecentAttempts, convey.ShouldEqual, 6)
				convey.So(s.FingerprintCount, convey.ShouldEqual, 3)
				convey.So(s.LastKnownCountry, convey.ShouldEqual, "IN")
				convey.So(e.AmountValue(), convey.ShouldEqual, 12.5)
			})
		})

		convey.Convey("When walletCreatedAt is epoch milliseconds", func() {
			e := model.RawEvent{Metadata: map[string]any{model.MetaWalletCreatedAt: float64(1_700_000_000_000)}}

			convey.Convey("Then it should be parsed as a UTC instant", func() {
				s := e.Signals()
				convey.So(s.WalletCreatedAt, convey.ShouldNotBeNil)
				convey.So(s.WalletCreatedAt.UnixMilli(), convey.ShouldEqual, int64(1_700_000_000_000))
			})
		})

		convey.Convey("When walletCreatedAt is garbage", func() {
			e := model.RawEvent{Metadata: map[string]any{model.MetaWalletCreatedAt: "last tuesday", model.MetaRecentAttempts: []int{1}}}

			convey.Convey("Then it should be treated as absent", func() {
				s := e.Signals()
				convey.So(s.WalletCreatedAt, convey.ShouldBeNil)
				convey.So(s.RecentAttempts, convey.ShouldEqual, 0)
			})
		})
	})
}

func TestActionValid(t *testing.T) {
	convey.Convey("Given the action enumeration", t, func() {
		convey.So(model.ActionConnect.Valid(), convey.ShouldBeTrue)
		convey.So(model.ActionSwap.Valid(), convey.ShouldBeTrue)
		convey.So(model.ActionSend.Valid(), convey.ShouldBeTrue)
		convey.So(model.Action("withdraw").Valid(), convey.ShouldBeFalse)
		convey.So(model.Action("").Valid(), convey.ShouldBeFalse)
	})
}

func TestScoredEventMessage(t *testing.T) {
	convey.Convey("Given a scored event", t, func() {
		created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		se := model.ScoredEvent{
			ID:        "evt-1",
			Event:     model.RawEvent{Wallet: "0xabc", Action: model.ActionSend},
			Score:     90,
			Reasons:   []string{"Very large send"},
			Verdict:   model.VerdictAnomaly,
			CreatedAt: created,
		}

		convey.Convey("When projecting onto a queue message", func() {
			msg := se.Message()

			convey.Convey("Then identity, verdict and score should carry over", func() {
				convey.So(msg.ID, convey.ShouldEqual, "evt-1")
				convey.So(msg.Subject, convey.ShouldEqual, "0xabc")
				convey.So(msg.Verdict, convey.ShouldEqual, model.VerdictAnomaly)
				convey.So(msg.Score, convey.ShouldEqual, 90)
				convey.So(msg.CreatedAt, convey.ShouldEqual, created)
				convey.So(msg.Event.Action, convey.ShouldEqual, model.ActionSend)
			})
		})

		convey.Convey("When summarizing a listing", func() {
			events := []model.ScoredEvent{se, {Verdict: model.VerdictClear}, {Verdict: model.VerdictClear}, {Verdict: model.VerdictSuspicious}}
			s := model.Summarize(events)

			convey.Convey("Then each verdict should be counted", func() {
				convey.So(s, convey.ShouldResemble, model.VerdictSummary{Anomaly: 1, Suspicious: 1, Clear: 2})
			})
		})
	})
}
