package scoring_test

import (
	"testing"
	"time"

	"github.com/okian/sentinel/internal/domain/model"
	scoring "github.com/okian/sentinel/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var arrived = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func amount(v float64) *float64 { return &v }
func intp(v int) *int           { return &v }
func boolp(v bool) *bool        { return &v }
func strp(v string) *string     { return &v }

func walletAge(days float64) string {
	return arrived.Add(-time.Duration(days * 24 * float64(time.Hour))).Format(time.RFC3339)
}

func event(action model.Action, amt float64, meta map[string]any) model.RawEvent {
	return model.RawEvent{
		Wallet:      "0xabc",
		Action:      action,
		Amount:      amount(amt),
		Fingerprint: "fp1",
		Metadata:    meta,
		IP:          "203.0.113.7",
		ArrivedAt:   arrived,
	}
}

func neutral() model.ReputationProfile {
	return model.NeutralReputation(model.ReputationNoAPIKey)
}

func TestEngine_Scenarios(t *testing.T) {
	Convey("Given the default engine", t, func() {
		engine := scoring.NewEngine()

		Convey("When a small event arrives with a neutral reputation", func() {
			res := engine.Evaluate(event(model.ActionConnect, 50, map[string]any{
				model.MetaRecentAttempts: 1,
				model.MetaWalletCreatedAt: walletAge(30),
			}), neutral())

			Convey("Then nothing fires and the verdict is CLEAR", func() {
				So(res.Score, ShouldEqual, 0)
				So(res.Reasons, ShouldBeEmpty)
				So(res.Verdict, ShouldEqual, model.VerdictClear)
			})
		})

		Convey("When a large swap comes from a flagged proxy", func() {
			rep := model.ReputationProfile{
				AbuseConfidenceScore: intp(80),
				IsProxy:              boolp(true),
				Status:               model.ReputationOK,
			}
			res := engine.Evaluate(event(model.ActionSwap, 2000, map[string]any{
				model.MetaWalletCreatedAt: walletAge(10),
			}), rep)

			Convey("Then abuse, proxy and large swap add up to an ANOMALY", func() {
				So(res.Score, ShouldEqual, 120)
				So(res.Reasons, ShouldResemble, []string{
					"High IP abuseConfidenceScore",
					"IP flagged as proxy/VPN/Tor",
					"Very large swap",
				})
				So(res.Verdict, ShouldEqual, model.VerdictAnomaly)
			})
		})

		Convey("When a five day old wallet moves 500", func() {
			res := engine.Evaluate(event(model.ActionConnect, 500, map[string]any{
				model.MetaWalletCreatedAt: walletAge(5),
			}), neutral())

			Convey("Then only the new-ish wallet rule fires", func() {
				So(res.Score, ShouldEqual, 35)
				So(res.Reasons, ShouldResemble, []string{"Very new wallet with large txn"})
				So(res.Verdict, ShouldEqual, model.VerdictClear)
			})
		})

		Convey("When the reputation lookup failed", func() {
			res := engine.Evaluate(event(model.ActionSend, 2500, map[string]any{
				model.MetaWalletCreatedAt: walletAge(100),
				model.MetaRecentAttempts:  6,
			}), model.NeutralReputation(model.ReputationAPIError))

			Convey("Then only non-reputation rules contribute", func() {
				So(res.Score, ShouldEqual, 80)
				So(res.Reasons, ShouldResemble, []string{
					"High recent attempts from same fingerprint/wallet",
					"Very large send",
				})
				So(res.Verdict, ShouldEqual, model.VerdictAnomaly)
			})
		})
	})
}

func TestEngine_Rules(t *testing.T) {
	Convey("Given the default engine", t, func() {
		engine := scoring.NewEngine()

		Convey("Abuse tiers are mutually exclusive", func() {
			cases := []struct {
				confidence int
				score      int
			}{
				{9, 0}, {10, 10}, {39, 10}, {40, 25}, {74, 25}, {75, 50}, {100, 50},
			}
			for _, c := range cases {
				rep := model.ReputationProfile{AbuseConfidenceScore: intp(c.confidence)}
				res := engine.Evaluate(event(model.ActionConnect, 0, nil), rep)
				So(res.Score, ShouldEqual, c.score)
			}
		})

		Convey("A brand new wallet suppresses the new-ish rule", func() {
			res := engine.Evaluate(event(model.ActionConnect, 600, map[string]any{
				model.MetaWalletCreatedAt: walletAge(1),
			}), neutral())
			So(res.Score, ShouldEqual, 40)
			So(res.Reasons, ShouldResemble, []string{"New wallet performing high-value txn"})
		})

		Convey("A missing wallet age only matters for amounts of 100 or more", func() {
			So(engine.Evaluate(event(model.ActionConnect, 99, nil), neutral()).Score, ShouldEqual, 0)
			res := engine.Evaluate(event(model.ActionConnect, 100, nil), neutral())
			So(res.Score, ShouldEqual, 10)
			So(res.Reasons, ShouldResemble, []string{"Missing wallet age metadata"})
		})

		Convey("An absent amount counts as zero", func() {
			ev := event(model.ActionSend, 0, nil)
			ev.Amount = nil
			res := engine.Evaluate(ev, neutral())
			So(res.Score, ShouldEqual, 0)
		})

		Convey("Fingerprint reuse and velocity fire at their thresholds", func() {
			res := engine.Evaluate(event(model.ActionConnect, 0, map[string]any{
				model.MetaRecentAttempts:   "5",
				model.MetaFingerprintCount: 3,
			}), neutral())
			So(res.Score, ShouldEqual, 60)
		})

		Convey("Geo mismatch requires both countries", func() {
			meta := map[string]any{model.MetaLastKnownCountry: "DE"}
			So(engine.Evaluate(event(model.ActionConnect, 0, meta), neutral()).Score, ShouldEqual, 0)

			rep := model.ReputationProfile{Country: strp("US")}
			res := engine.Evaluate(event(model.ActionConnect, 0, meta), rep)
			So(res.Score, ShouldEqual, 20)
			So(res.Reasons, ShouldResemble, []string{"Geo mismatch between previous usage and current IP"})

			same := model.ReputationProfile{Country: strp("de")}
			So(engine.Evaluate(event(model.ActionConnect, 0, meta), same).Score, ShouldEqual, 0)
		})

		Convey("Large transfer limits are strict", func() {
			So(engine.Evaluate(event(model.ActionSwap, 1000, nil), neutral()).Score, ShouldEqual, 10)
			So(engine.Evaluate(event(model.ActionSwap, 1000.01, nil), neutral()).Score, ShouldEqual, 50)
			So(engine.Evaluate(event(model.ActionSend, 2000, nil), neutral()).Score, ShouldEqual, 10)
			So(engine.Evaluate(event(model.ActionSend, 2001, nil), neutral()).Score, ShouldEqual, 60)
		})

		Convey("Evaluation is deterministic", func() {
			ev := event(model.ActionSwap, 1500, map[string]any{
				model.MetaWalletCreatedAt: walletAge(1),
				model.MetaRecentAttempts:  9,
			})
			rep := model.ReputationProfile{AbuseConfidenceScore: intp(50), IsProxy: boolp(true)}
			first := engine.Evaluate(ev, rep)
			for i := 0; i < 10; i++ {
				So(engine.Evaluate(ev, rep), ShouldResemble, first)
			}
		})

		Convey("The score does not depend on metadata insertion order", func() {
			a := map[string]any{}
			a[model.MetaRecentAttempts] = 7
			a[model.MetaFingerprintCount] = 4
			a[model.MetaLastKnownCountry] = "FR"
			b := map[string]any{}
			b[model.MetaLastKnownCountry] = "FR"
			b[model.MetaFingerprintCount] = 4
			b[model.MetaRecentAttempts] = 7
			rep := model.ReputationProfile{Country: strp("US")}
			So(engine.Evaluate(event(model.ActionConnect, 0, a), rep), ShouldResemble,
				engine.Evaluate(event(model.ActionConnect, 0, b), rep))
		})

		Convey("Wallet age falls back to the engine clock without an arrival stamp", func() {
			clocked := scoring.NewEngine(scoring.WithClock(func() time.Time { return arrived }))
			ev := event(model.ActionConnect, 150, map[string]any{
				model.MetaWalletCreatedAt: walletAge(1),
			})
			ev.ArrivedAt = time.Time{}
			So(clocked.Evaluate(ev, neutral()).Score, ShouldEqual, 40)
		})
	})
}

func TestThresholds_VerdictFor(t *testing.T) {
	Convey("Given the default thresholds", t, func() {
		th := scoring.DefaultThresholds()

		Convey("Boundaries resolve to the upper verdict", func() {
			So(th.VerdictFor(0), ShouldEqual, model.VerdictClear)
			So(th.VerdictFor(39), ShouldEqual, model.VerdictClear)
			So(th.VerdictFor(40), ShouldEqual, model.VerdictSuspicious)
			So(th.VerdictFor(69), ShouldEqual, model.VerdictSuspicious)
			So(th.VerdictFor(70), ShouldEqual, model.VerdictAnomaly)
			So(th.VerdictFor(500), ShouldEqual, model.VerdictAnomaly)
		})

		Convey("Validation rejects inverted thresholds", func() {
			So(th.Validate(), ShouldBeNil)
			So(scoring.Thresholds{Anomaly: 40, Suspicious: 40}.Validate(), ShouldWrap, scoring.ErrInvalidThresholds)
			So(scoring.Thresholds{Anomaly: 10, Suspicious: -1}.Validate(), ShouldNotBeNil)
		})
	})
}

func TestWeights_WithOverrides(t *testing.T) {
	Convey("Given the default weight table", t, func() {
		w := scoring.DefaultWeights()

		Convey("Known rules can be reweighted without touching the original", func() {
			out, err := w.WithOverrides(map[string]int{"large_send": 70})
			So(err, ShouldBeNil)
			So(out[scoring.RuleLargeSend], ShouldEqual, 70)
			So(w[scoring.RuleLargeSend], ShouldEqual, 50)

			engine := scoring.NewEngine(scoring.WithWeights(out))
			So(engine.Evaluate(event(model.ActionSend, 3000, map[string]any{
				model.MetaWalletCreatedAt: walletAge(90),
			}), neutral()).Score, ShouldEqual, 70)
		})

		Convey("Unknown rules and negative weights are rejected", func() {
			_, err := w.WithOverrides(map[string]int{"bogus": 1})
			So(err, ShouldWrap, scoring.ErrInvalidWeights)
			_, err = w.WithOverrides(map[string]int{"proxy": -5})
			So(err, ShouldWrap, scoring.ErrInvalidWeights)
		})

		Convey("Custom thresholds move the verdict boundaries", func() {
			engine := scoring.NewEngine(scoring.WithThresholds(scoring.Thresholds{Anomaly: 30, Suspicious: 10}))
			res := engine.Evaluate(event(model.ActionConnect, 100, nil), neutral())
			So(res.Score, ShouldEqual, 10)
			So(res.Verdict, ShouldEqual, model.VerdictSuspicious)
		})
	})
}
