package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/evfeat/internal/adapters/store"
	service "github.com/okian/evfeat/internal/app"
	"github.com/okian/evfeat/internal/domain/feature"
	"github.com/okian/evfeat/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func enabledRow(eventID int64) feature.Record {
	return feature.Record{RecordID: "rec42", EventID: eventID, FeatureKey: "registration_form", Enabled: true}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it serves the built-in catalog", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Catalog().Len(), ShouldEqual, 1)
		})
	})
}

func TestService_Page(t *testing.T) {
	Convey("Given a service over a memory store", t, func() {
		ctx := context.Background()
		st := store.NewMemoryStore(store.WithRecords(enabledRow(42)))
		svc := service.New(service.WithStore(st))

		Convey("When event 42 has the registration form enabled", func() {
			p := svc.Page(ctx, 42)

			Convey("Then the feature is enabled and summarized", func() {
				So(p.EventID, ShouldEqual, int64(42))
				So(p.DataAvailable, ShouldBeTrue)
				So(p.Notices, ShouldBeEmpty)
				item := p.Sections[0].Items[0]
				So(item.Key, ShouldEqual, "registration_form")
				So(item.Enabled, ShouldBeTrue)
				So(item.Configured, ShouldBeTrue)
				So(p.Summary.EnabledCount, ShouldEqual, 1)
				So(p.Summary.Names, ShouldResemble, []string{"Kayıt Formu"})
			})
		})

		Convey("When the event has no rows", func() {
			p := svc.Page(ctx, 43)

			Convey("Then nothing is enabled and the count is zero", func() {
				item := p.Sections[0].Items[0]
				So(item.Enabled, ShouldBeFalse)
				So(item.Configured, ShouldBeFalse)
				So(p.Summary.EnabledCount, ShouldEqual, 0)
			})
		})

		Convey("When the event id is unspecified", func() {
			p := svc.Page(ctx, feature.UnspecifiedEventID)

			Convey("Then a warning notice is shown", func() {
				So(len(p.Notices), ShouldEqual, 1)
				So(p.Notices[0].Level, ShouldEqual, service.NoticeWarning)
				So(p.Notices[0].Message, ShouldContainSubstring, "Event ID belirtilmedi")
			})
		})

		Convey("When the page is built twice", func() {
			first := svc.Page(ctx, 42)
			second := svc.Page(ctx, 42)

			Convey("Then both builds are identical", func() {
				So(second, ShouldResemble, first)
			})
		})

		Convey("When the sections are listed", func() {
			p := svc.Page(ctx, 42)

			Convey("Then all three categories are present in order", func() {
				So(len(p.Sections), ShouldEqual, 3)
				So(p.Sections[0].Title, ShouldEqual, "Etkinlik Öncesi Özellikler")
				So(p.Sections[1].Items, ShouldBeEmpty)
				So(p.Sections[2].Items, ShouldBeEmpty)
			})
		})
	})

	Convey("Given a service whose store fails", t, func() {
		st := store.NewMemoryStore(
			store.WithRecords(enabledRow(42)),
			store.WithFailure(errors.New("dial tcp: connection refused")),
		)
		svc := service.New(service.WithStore(st))

		Convey("When building a page", func() {
			var p service.Page
			So(func() { p = svc.Page(context.Background(), 42) }, ShouldNotPanic)

			Convey("Then an error notice is shown and nothing is enabled", func() {
				So(p.DataAvailable, ShouldBeFalse)
				So(len(p.Notices), ShouldEqual, 1)
				So(p.Notices[0].Level, ShouldEqual, service.NoticeError)
				So(p.Notices[0].Message, ShouldContainSubstring, "Özellikler yüklenirken hata oluştu")
				So(p.Notices[0].Message, ShouldContainSubstring, "connection refused")
				So(p.Sections[0].Items[0].Enabled, ShouldBeFalse)
				So(p.Sections[0].Items[0].Configured, ShouldBeFalse)
				So(p.Summary.EnabledCount, ShouldEqual, 0)
			})
		})
	})
}

func TestService_ConfigureURL(t *testing.T) {
	Convey("Given a service with a custom configuration tool", t, func() {
		svc := service.New(service.WithConfigureURL("https://tool.example.com/setup"))

		Convey("When asking for a catalog feature", func() {
			u, d, err := svc.ConfigureURL(42, "registration_form")

			Convey("Then the link carries the event and feature", func() {
				So(err, ShouldBeNil)
				So(u, ShouldEqual, "https://tool.example.com/setup?event_id=42&feature=registration_form")
				So(d.Name, ShouldEqual, "Kayıt Formu")
			})
		})

		Convey("When asking for an unknown feature", func() {
			_, _, err := svc.ConfigureURL(42, "nope")

			Convey("Then it is rejected", func() {
				So(errors.Is(err, feature.ErrUnknownFeature), ShouldBeTrue)
			})
		})
	})
}
