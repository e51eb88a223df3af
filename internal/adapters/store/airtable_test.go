package store_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/evfeat/internal/adapters/store"
	"github.com/okian/evfeat/internal/domain/feature"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAirtableStore_FetchFeatures(t *testing.T) {
	Convey("Given a fake Airtable API", t, func() {
		var (
			mu       sync.Mutex
			calls    int32
			lastAuth string
			lastPath string
			formula  string
			fields   []string
		)
		pages := map[string]string{
			"": `{"records":[
				{"id":"rec1","fields":{"event_id":42,"feature_key":"registration_form","enabled":true}},
				{"id":"rec2","fields":{"event_id":42,"feature_key":""}}
			],"offset":"page2"}`,
			"page2": `{"records":[
				{"id":"rec3","fields":{"event_id":42,"feature_key":"live_polling"}}
			]}`,
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			mu.Lock()
			lastAuth = r.Header.Get("Authorization")
			lastPath = r.URL.Path
			formula = r.URL.Query().Get("filterByFormula")
			fields = r.URL.Query()["fields[]"]
			mu.Unlock()
			body, ok := pages[r.URL.Query().Get("offset")]
			if !ok {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(`{"error":{"type":"LIST_RECORDS_ITERATOR_NOT_AVAILABLE"}}`))
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(body))
		}))
		defer srv.Close()

		s := store.NewAirtableStore("appTEST", "patSECRET", store.WithBaseURL(srv.URL+"/"))

		Convey("When fetching an event with rows on two pages", func() {
			got, err := s.FetchFeatures(context.Background(), 42)

			Convey("Then every page is read and mapped by feature key", func() {
				So(err, ShouldBeNil)
				So(atomic.LoadInt32(&calls), ShouldEqual, int32(2))
				So(got, ShouldResemble, map[string]feature.RemoteFeature{
					"registration_form": {RecordID: "rec1", Enabled: true},
					"live_polling":      {RecordID: "rec3", Enabled: false},
				})
			})

			Convey("And the request targets the event features table with a bearer token", func() {
				mu.Lock()
				defer mu.Unlock()
				So(lastPath, ShouldEqual, "/v0/appTEST/event_features")
				So(lastAuth, ShouldEqual, "Bearer patSECRET")
				So(formula, ShouldEqual, "{event_id} = 42")
				So(fields, ShouldResemble, []string{"feature_key", "enabled"})
			})
		})

		Convey("When a custom table is configured", func() {
			custom := store.NewAirtableStore("appTEST", "patSECRET", store.WithBaseURL(srv.URL), store.WithTable("features v2"))
			_, err := custom.FetchFeatures(context.Background(), 42)

			Convey("Then the table name is path escaped", func() {
				So(err, ShouldBeNil)
				mu.Lock()
				defer mu.Unlock()
				So(lastPath, ShouldEqual, "/v0/appTEST/features v2")
			})
		})

		Convey("When the event id is negative", func() {
			got, err := s.FetchFeatures(context.Background(), -1)

			Convey("Then no request is made and the mapping is empty", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(errors.Is(err, store.ErrInvalidEventID), ShouldBeTrue)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
				So(atomic.LoadInt32(&calls), ShouldEqual, int32(0))
			})
		})
	})
}

func TestAirtableStore_Failures(t *testing.T) {
	Convey("Given an Airtable API that fails", t, func() {
		Convey("When the API rejects the token", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":{"type":"AUTHENTICATION_REQUIRED","message":"Authentication required"}}`))
			}))
			defer srv.Close()

			got, err := store.NewAirtableStore("app", "bad", store.WithBaseURL(srv.URL)).FetchFeatures(context.Background(), 42)

			Convey("Then the error is a remote fetch failure with the API message", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "401")
				So(err.Error(), ShouldContainSubstring, "AUTHENTICATION_REQUIRED: Authentication required")
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the table does not exist", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"error":"NOT_FOUND"}`))
			}))
			defer srv.Close()

			_, err := store.NewAirtableStore("app", "key", store.WithBaseURL(srv.URL)).FetchFeatures(context.Background(), 1)

			Convey("Then the plain error code is reported", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "NOT_FOUND")
			})
		})

		Convey("When the body is not json", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`<html>`))
			}))
			defer srv.Close()

			got, err := store.NewAirtableStore("app", "key", store.WithBaseURL(srv.URL)).FetchFeatures(context.Background(), 1)

			Convey("Then decoding fails as a remote fetch failure", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the server is unreachable", func() {
			srv := httptest.NewServer(http.NotFoundHandler())
			addr := srv.URL
			srv.Close()

			got, err := store.NewAirtableStore("app", "key", store.WithBaseURL(addr)).FetchFeatures(context.Background(), 42)

			Convey("Then the transport failure becomes an empty mapping", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(got, ShouldNotBeNil)
				So(got, ShouldBeEmpty)
			})
		})

		Convey("When the server is slower than the timeout", func() {
			release := make(chan struct{})
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-release:
				case <-r.Context().Done():
				}
			}))
			defer srv.Close()
			defer close(release)

			s := store.NewAirtableStore("app", "key", store.WithBaseURL(srv.URL), store.WithTimeout(50*time.Millisecond))
			_, err := s.FetchFeatures(context.Background(), 42)

			Convey("Then the fetch fails with a deadline error", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})

		Convey("When the API keeps returning an offset", func() {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&calls, 1)
				_, _ = fmt.Fprintf(w, `{"records":[],"offset":"o%d"}`, n)
			}))
			defer srv.Close()

			_, err := store.NewAirtableStore("app", "key", store.WithBaseURL(srv.URL)).FetchFeatures(context.Background(), 42)

			Convey("Then paging stops at the page limit", func() {
				So(errors.Is(err, store.ErrRemoteFetch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "pages")
				So(atomic.LoadInt32(&calls), ShouldEqual, int32(100))
			})
		})
	})
}

func TestFormula(t *testing.T) {
	Convey("Given an event id", t, func() {
		Convey("Then the filter compares the event_id field", func() {
			So(store.Formula(0), ShouldEqual, "{event_id} = 0")
			So(store.Formula(42), ShouldEqual, "{event_id} = 42")
		})
	})
}

type countingTransport struct {
	n    int32
	next http.RoundTripper
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	atomic.AddInt32(&c.n, 1)
	return c.next.RoundTrip(r)
}

func TestAirtableStore_EnabledValues(t *testing.T) {
	Convey("Given rows whose enabled cell is not a checkbox", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"records":[
				{"id":"rec1","fields":{"feature_key":"registration_form","enabled":1}},
				{"id":"rec2","fields":{"feature_key":"live_polling","enabled":true}},
				{"id":"rec3","fields":{"feature_key":"survey","enabled":"x"}},
				{"id":"rec4","fields":{"feature_key":"badges","enabled":0}},
				{"id":"rec5","fields":{"feature_key":"agenda","enabled":""}},
				{"id":"rec6","fields":{"feature_key":"photos","enabled":null}}
			]}`))
		}))
		defer srv.Close()

		transport := &countingTransport{next: http.DefaultTransport}
		s := store.NewAirtableStore("app", "key",
			store.WithBaseURL(srv.URL),
			store.WithHTTPClient(&http.Client{Transport: transport}))

		Convey("When the event is fetched", func() {
			got, err := s.FetchFeatures(context.Background(), 42)

			Convey("Then every row is kept and read by truthiness", func() {
				So(err, ShouldBeNil)
				So(got, ShouldResemble, map[string]feature.RemoteFeature{
					"registration_form": {RecordID: "rec1", Enabled: true},
					"live_polling":      {RecordID: "rec2", Enabled: true},
					"survey":            {RecordID: "rec3", Enabled: true},
					"badges":            {RecordID: "rec4", Enabled: false},
					"agenda":            {RecordID: "rec5", Enabled: false},
					"photos":            {RecordID: "rec6", Enabled: false},
				})
			})

			Convey("And the request went through the supplied client", func() {
				So(atomic.LoadInt32(&transport.n), ShouldEqual, int32(1))
			})
		})
	})
}
