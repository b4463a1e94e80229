package model_test

import (
	"errors"
	"math"
	"testing"

	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/errs"
	"github.com/smartystreets/goconvey/convey"
)

func ptr(f float64) *float64 { return &f }

func TestValueEncoding(t *testing.T) {
	convey.Convey("Given summary values", t, func() {
		convey.Convey("When encoding for storage", func() {
			convey.So(model.UnscoredValue().Encode(), convey.ShouldBeNil)
			convey.So(*model.CutoffMissValue().Encode(), convey.ShouldEqual, 0)
			convey.So(*model.DNFValue().Encode(), convey.ShouldEqual, -1)
			convey.So(*model.Time(12.5).Encode(), convey.ShouldEqual, 12.5)
		})

		convey.Convey("When decoding stored results", func() {
			convey.So(model.DecodeResult(nil).Kind, convey.ShouldEqual, model.Unscored)
			convey.So(model.DecodeResult(ptr(0)).Kind, convey.ShouldEqual, model.CutoffMiss)
			convey.So(model.DecodeResult(ptr(-1)).Kind, convey.ShouldEqual, model.DNF)
			convey.So(model.DecodeResult(ptr(8.1)), convey.ShouldResemble, model.Time(8.1))
		})

		convey.Convey("When decoding stored bests", func() {
			convey.So(model.DecodeBest(nil).Kind, convey.ShouldEqual, model.Unscored)
			convey.So(model.DecodeBest(ptr(0)).Kind, convey.ShouldEqual, model.Unscored)
			convey.So(model.DecodeBest(ptr(-1)).Kind, convey.ShouldEqual, model.DNF)
			convey.So(model.DecodeBest(ptr(7)), convey.ShouldResemble, model.Time(7))
		})

		convey.Convey("Then every variant renders in the wire vocabulary", func() {
			convey.So(model.UnscoredValue().Format(), convey.ShouldEqual, "None")
			convey.So(model.CutoffMissValue().Format(), convey.ShouldEqual, "")
			convey.So(model.DNFValue().Format(), convey.ShouldEqual, "DNF")
			convey.So(model.Time(71.25).Format(), convey.ShouldEqual, "1:11.25")
		})
	})
}

func TestProceedRule(t *testing.T) {
	convey.Convey("Given stored proceed values", t, func() {
		r, err := model.DecodeProceed(nil)
		convey.So(err, convey.ShouldBeNil)
		convey.So(r.Kind, convey.ShouldEqual, model.ProceedFinal)

		r, err = model.DecodeProceed(ptr(8))
		convey.So(err, convey.ShouldBeNil)
		convey.So(r, convey.ShouldResemble, model.Top(8))

		r, err = model.DecodeProceed(ptr(0.75))
		convey.So(err, convey.ShouldBeNil)
		convey.So(r, convey.ShouldResemble, model.Percent(0.75))

		convey.Convey("And an integral 1 is a count, not 100%", func() {
			r, err := model.DecodeProceed(ptr(1))
			convey.So(err, convey.ShouldBeNil)
			convey.So(r, convey.ShouldResemble, model.Top(1))
		})

		convey.Convey("And malformed values are rejected", func() {
			for _, bad := range []float64{0, -2, 2.5, 1e20, math.MaxInt32 + 1} {
				_, err := model.DecodeProceed(ptr(bad))
				convey.So(errors.Is(err, errs.ErrValidation), convey.ShouldBeTrue)
			}
		})

		convey.Convey("And rules encode back to the stored form", func() {
			convey.So(model.Final().Encode(), convey.ShouldBeNil)
			convey.So(*model.Top(4).Encode(), convey.ShouldEqual, 4)
			convey.So(*model.Percent(0.5).Encode(), convey.ShouldEqual, 0.5)
			convey.So(model.Top(0).Validate(), convey.ShouldNotBeNil)
			convey.So(model.Percent(1).Validate(), convey.ShouldNotBeNil)
			convey.So(model.Percent(0.25).Validate(), convey.ShouldBeNil)
		})
	})
}

func TestEventCode(t *testing.T) {
	convey.Convey("Given event codes", t, func() {
		c, err := model.ParseEventCode("333BF")
		convey.So(err, convey.ShouldBeNil)
		convey.So(c, convey.ShouldEqual, model.Event333BF)
		convey.So(c.Family(), convey.ShouldEqual, model.FamilyBlind)
		convey.So(model.Event333.Family(), convey.ShouldEqual, model.FamilyStandard)
		convey.So(model.Event333OH.Name(), convey.ShouldEqual, "3x3x3 One-Handed")

		_, err = model.ParseEventCode("mirror")
		convey.So(errors.Is(err, errs.ErrValidation), convey.ShouldBeTrue)

		age := 12
		convey.So(model.Event{Code: model.Event333, MaxAge: &age}.Label(), convey.ShouldEqual, "333-12")
		convey.So(model.Event{Code: model.Event222}.Label(), convey.ShouldEqual, "222")
	})

	convey.Convey("Given format codes", t, func() {
		f, err := model.ParseFormatCode("ao5")
		convey.So(err, convey.ShouldBeNil)
		convey.So(f, convey.ShouldEqual, model.FormatAO5)
		_, err = model.ParseFormatCode("MO3")
		convey.So(err, convey.ShouldNotBeNil)
	})
}
