package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a fresh registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithRegisterer(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "sentinel")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test_namespace"),
				WithSubsystem("test_subsystem"),
				WithMetricPrefix("pfx"),
				WithLatencyBuckets([]float64{1, 5, 10}),
				WithScoreBuckets([]float64{25, 50}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithRegisterer(registry),
			)

			Convey("Then the metric names should carry the custom parts", func() {
				manager.queuePushes.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_namespace_test_subsystem_pfx_queue_pushes_total" {
						found = true
					}
				}
				So(found, ShouldBeTrue)
			})

			Convey("Then the score histogram should use the custom buckets and labels", func() {
				manager.scoreDistribution.Observe(30)
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				for _, f := range families {
					if f.GetName() != "test_namespace_test_subsystem_pfx_event_score" {
						continue
					}
					metric := f.GetMetric()[0]
					So(metric.GetHistogram().GetBucket(), ShouldHaveLength, 2)
					So(metric.GetLabel()[0].GetName(), ShouldEqual, "env")
					So(metric.GetLabel()[0].GetValue(), ShouldEqual, "test")
					return
				}
				So("event_score family", ShouldBeEmpty)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording scored events", func() {
			before := testutil.ToFloat64(globalManager.eventsScored.WithLabelValues("ANOMALY"))
			RecordEventScored("ANOMALY", 120)
			RecordEventScored("ANOMALY", 90)

			Convey("Then the verdict counter should advance", func() {
				So(testutil.ToFloat64(globalManager.eventsScored.WithLabelValues("ANOMALY")), ShouldEqual, before+2)
			})
		})

		Convey("When recording store operations", func() {
			okBefore := testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("insert", "ok"))
			errBefore := testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("insert", "error"))
			RecordStoreOperation("insert", nil, 3)
			RecordStoreOperation("insert", errors.New("down"), 3)

			Convey("Then results should be split by outcome", func() {
				So(testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("insert", "ok")), ShouldEqual, okBefore+1)
				So(testutil.ToFloat64(globalManager.storeOperations.WithLabelValues("insert", "error")), ShouldEqual, errBefore+1)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			Convey("Then none of the helpers should panic", func() {
				So(func() {
					RecordQueuePush()
					RecordQueuePop()
					RecordQueueError("push")
					RecordQueueNotification()
					UpdateQueueLength(12)
					RecordDispatchOutcome("delivered")
					RecordDispatchAttempt(40)
					RecordDeadLetter("redis", nil)
					SetWorkerIdle(true)
					SetWorkerIdle(false)
					RecordReputationLookup("ok", 12)
					RecordEvaluationLatency(30)
				}, ShouldNotPanic)
				So(testutil.ToFloat64(globalManager.queueLength), ShouldEqual, 12)
			})
		})

		Convey("When recording HTTP and error metrics", func() {
			Convey("Then none of the helpers should panic", func() {
				So(func() {
					RecordHTTPRequest("events", "POST", "200")
					RecordHTTPRequestDuration("events", "POST", "200", 12)
					RecordErrorByComponent("queue", "push_failed")
					RecordErrorByType("server_error", "high")
					RecordErrorByEndpoint("events", "POST", "server_error")
					UpdateSystemMemoryUsage(1024)
					UpdateSystemGoroutineCount(10)
					RecordSystemGCPauseTime(0.5)
				}, ShouldNotPanic)
			})
		})

		Convey("When asking for the registry", func() {
			Convey("Then the custom registry should be returned", func() {
				So(GetRegistry(), ShouldEqual, customRegistry)
			})
		})
	})
}
