package reputation_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sentinel/internal/adapters/reputation"
	"github.com/okian/sentinel/internal/domain/model"
	"github.com/okian/sentinel/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestClient_Lookup(t *testing.T) {
	Convey("Given an AbuseIPDB-compatible server", t, func() {
		var (
			status = http.StatusOK
			body   = `{"data":{"ipAddress":"203.0.113.7","abuseConfidenceScore":82,"isProxy":true,"isp":"Example ISP","countryCode":"NL","lastReportedAt":"2025-03-01T10:00:00+00:00"}}`
			delay  time.Duration
			query  map[string]string
			key    string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			query = map[string]string{
				"ipAddress":    r.URL.Query().Get("ipAddress"),
				"maxAgeInDays": r.URL.Query().Get("maxAgeInDays"),
			}
			key = r.Header.Get("Key")
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-r.Context().Done():
					return
				}
			}
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		client := reputation.New("k3y", reputation.WithBaseURL(srv.URL))

		Convey("When the provider has data for the address", func() {
			p := client.Lookup(context.Background(), "203.0.113.7")

			Convey("Then provider fields are mapped with status ok", func() {
				So(p.Status, ShouldEqual, model.ReputationOK)
				So(*p.AbuseConfidenceScore, ShouldEqual, 82)
				So(p.Proxy(), ShouldBeTrue)
				So(p.CountryCode(), ShouldEqual, "NL")
				So(*p.ISP, ShouldEqual, "Example ISP")
				So(*p.LastReportedAt, ShouldStartWith, "2025-03-01")
				So(query["ipAddress"], ShouldEqual, "203.0.113.7")
				So(query["maxAgeInDays"], ShouldEqual, "90")
				So(key, ShouldEqual, "k3y")
			})
		})

		Convey("When the payload carries no data", func() {
			body = `{}`
			p := client.Lookup(context.Background(), "203.0.113.7")
			So(p.Status, ShouldEqual, model.ReputationNoData)
			So(p.AbuseConfidenceScore, ShouldBeNil)
		})

		Convey("When the provider answers 200 with an empty body", func() {
			body = ""
			p := client.Lookup(context.Background(), "203.0.113.7")
			So(p, ShouldResemble, model.NeutralReputation(model.ReputationNoData))
		})

		Convey("When the provider answers 200 with only whitespace", func() {
			body = " \n"
			So(client.Lookup(context.Background(), "203.0.113.7").Status, ShouldEqual, model.ReputationNoData)
		})

		Convey("When the provider answers with an error status", func() {
			status = http.StatusTooManyRequests
			p := client.Lookup(context.Background(), "203.0.113.7")
			So(p.Status, ShouldEqual, model.ReputationAPIError)
			So(p.AbuseConfidenceScore, ShouldBeNil)
			So(p.IsProxy, ShouldBeNil)
			So(p.Country, ShouldBeNil)
		})

		Convey("When the payload is not JSON", func() {
			body = `<html>`
			So(client.Lookup(context.Background(), "203.0.113.7").Status, ShouldEqual, model.ReputationAPIError)
		})

		Convey("When the provider is slower than the timeout", func() {
			delay = time.Second
			slow := reputation.New("k3y", reputation.WithBaseURL(srv.URL), reputation.WithTimeout(50*time.Millisecond))

			start := time.Now()
			p := slow.Lookup(context.Background(), "203.0.113.7")

			Convey("Then the lookup gives up with api_error", func() {
				So(p.Status, ShouldEqual, model.ReputationAPIError)
				So(p.AbuseConfidenceScore, ShouldBeNil)
				So(time.Since(start), ShouldBeLessThan, 900*time.Millisecond)
			})
		})
	})

	Convey("Given no API key", t, func() {
		client := reputation.New("")
		p := client.Lookup(context.Background(), "203.0.113.7")

		So(client.Enabled(), ShouldBeFalse)
		So(p, ShouldResemble, model.NeutralReputation(model.ReputationNoAPIKey))
	})

	Convey("Given an unreachable provider", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		p := reputation.New("k3y", reputation.WithBaseURL(addr)).Lookup(context.Background(), "203.0.113.7")
		So(p.Status, ShouldEqual, model.ReputationAPIError)
	})
}
