package scoring_test

import (
	"errors"
	"testing"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	scoring "github.com/okian/speedcube/internal/domain/scoring"
	"github.com/okian/speedcube/internal/errs"
	. "github.com/smartystreets/goconvey/convey"
)

const (
	dnf = attempt.DNF
	dns = attempt.DNS
)

func as(vs ...attempt.Attempt) []attempt.Attempt { return vs }

func TestAggregateAo5(t *testing.T) {
	Convey("Given average of 5 without cutoff", t, func() {
		Convey("When all five attempts are DNF", func() {
			s, err := scoring.AggregateAo5(as(dnf, dnf, dnf, dnf, dnf), false)

			Convey("Then best and result are DNF", func() {
				So(err, ShouldBeNil)
				So(s.Best, ShouldResemble, model.DNFValue())
				So(s.Result, ShouldResemble, model.DNFValue())
			})
		})

		Convey("When every attempt is a valid time", func() {
			s, err := scoring.AggregateAo5(as(12.34, 13.45, 11.11, 15.00, 10.00), false)

			Convey("Then the best and worst are dropped and the rest averaged", func() {
				So(err, ShouldBeNil)
				So(s.Best, ShouldResemble, model.Time(10))
				So(s.Result, ShouldResemble, model.Time(12.30))
			})
		})

		Convey("When exactly one attempt is DNF", func() {
			// Mean of 10, 11 and 12 over three counting attempts, not 21/3.
			s, err := scoring.AggregateAo5(as(10.00, 11.00, 12.00, dnf, 9.00), false)

			Convey("Then the DNF is the trimmed worst and the fastest time the trimmed best", func() {
				So(err, ShouldBeNil)
				So(s.Best, ShouldResemble, model.Time(9))
				So(s.Result, ShouldResemble, model.Time(11))
			})
		})

		Convey("When the lone failure is a DNS", func() {
			s, err := scoring.AggregateAo5(as(dns, 20, 21, 22, 23), false)
			So(err, ShouldBeNil)
			So(s.Result, ShouldResemble, model.Time(22))
		})

		Convey("When three attempts are DNF", func() {
			s, err := scoring.AggregateAo5(as(12.00, 13.00, dnf, dnf, dnf), false)

			Convey("Then the best stands and the average is DNF", func() {
				So(err, ShouldBeNil)
				So(s.Best, ShouldResemble, model.Time(12))
				So(s.Result, ShouldResemble, model.DNFValue())
			})
		})

		Convey("When two attempts are DNF", func() {
			s, err := scoring.AggregateAo5(as(8, dnf, 9, dns, 10), false)
			So(err, ShouldBeNil)
			So(s.Best, ShouldResemble, model.Time(8))
			So(s.Result.Kind, ShouldEqual, model.DNF)
		})

		Convey("When the average needs rounding", func() {
			s, err := scoring.AggregateAo5(as(10.01, 10.02, 10.02, 9, 11), false)
			So(err, ShouldBeNil)
			So(s.Result, ShouldResemble, model.Time(10.02))
		})

		Convey("When an attempt is missing", func() {
			_, err := scoring.AggregateAo5(as(10, 11, 12, 13, 0), false)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("When the attempt count is wrong", func() {
			_, err := scoring.AggregateAo5(as(10, 11, 12), false)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("When an attempt carries an unknown code", func() {
			_, err := scoring.AggregateAo5(as(10, 11, 12, 13, -7), false)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})

	Convey("Given average of 5 with cutoff", t, func() {
		Convey("When only two attempts were taken", func() {
			s, err := scoring.AggregateAo5(as(9.50, 10.20, 0, 0, 0), true)

			Convey("Then there is no average but the best counts", func() {
				So(err, ShouldBeNil)
				So(s.Result, ShouldResemble, model.CutoffMissValue())
				So(s.Best, ShouldResemble, model.Time(9.5))
			})
		})

		Convey("When both cutoff attempts failed", func() {
			s, err := scoring.AggregateAo5(as(dnf, dnf, 0, 0, 0), true)
			So(err, ShouldBeNil)
			So(s.Result, ShouldResemble, model.CutoffMissValue())
			So(s.Best, ShouldResemble, model.DNFValue())
		})

		Convey("When the competitor went on to complete the average", func() {
			s, err := scoring.AggregateAo5(as(9, 10, 11, 12, 13), true)
			So(err, ShouldBeNil)
			So(s.Result, ShouldResemble, model.Time(11))
		})

		Convey("When the average is only partly entered", func() {
			_, err := scoring.AggregateAo5(as(9, 10, 11, 0, 0), true)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})

		Convey("When nothing was entered", func() {
			_, err := scoring.AggregateAo5(as(0, 0, 0, 0, 0), true)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestAggregateBo3(t *testing.T) {
	Convey("Given best of 3", t, func() {
		Convey("When at least one attempt succeeded", func() {
			s, err := scoring.AggregateBo3(as(dnf, 61.5, 58.2))
			So(err, ShouldBeNil)
			So(s.Best, ShouldResemble, model.Time(58.2))
			So(s.Result, ShouldResemble, s.Best)
		})

		Convey("When every attempt failed", func() {
			s, err := scoring.AggregateBo3(as(dnf, dns, dnf))
			So(err, ShouldBeNil)
			So(s.Result, ShouldResemble, model.DNFValue())
		})

		Convey("When the attempt count is wrong", func() {
			_, err := scoring.AggregateBo3(as(dnf, 30, 31, 32, 33))
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestAggregateDispatch(t *testing.T) {
	Convey("Given a format", t, func() {
		s, err := scoring.Aggregate(as(30, 40, 0), scoring.BO3)
		So(err, ShouldBeNil)
		So(s.Result, ShouldResemble, model.Time(30))

		s, err = scoring.Aggregate(as(9, 9.5, 0, 0, 0), scoring.AO5Cutoff)
		So(err, ShouldBeNil)
		So(s.Result.Kind, ShouldEqual, model.CutoffMiss)

		_, err = scoring.Aggregate(as(9, 9.5, 0, 0, 0), scoring.AO5Plain)
		So(err, ShouldNotBeNil)

		_, err = scoring.Aggregate(as(1), scoring.Format(0))
		So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
	})
}

func TestFormatFor(t *testing.T) {
	Convey("Given events and rounds", t, func() {
		cutoff := 30.0
		standard := model.Event{Code: model.Event333}
		blind := model.Event{Code: model.Event333BF}

		f, err := scoring.FormatFor(standard, model.Round{Format: model.FormatAO5})
		So(err, ShouldBeNil)
		So(f, ShouldEqual, scoring.AO5Plain)
		So(f.Attempts(), ShouldEqual, 5)

		f, err = scoring.FormatFor(standard, model.Round{Format: model.FormatAO5, Cutoff: &cutoff})
		So(err, ShouldBeNil)
		So(f, ShouldEqual, scoring.AO5Cutoff)

		f, err = scoring.FormatFor(blind, model.Round{Format: model.FormatAO5, Cutoff: &cutoff})
		So(err, ShouldBeNil)
		So(f, ShouldEqual, scoring.BO3)
		So(f.Attempts(), ShouldEqual, 3)

		_, err = scoring.FormatFor(standard, model.Round{Format: model.FormatH2H})
		So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
	})
}

func TestApplyTimeLimit(t *testing.T) {
	Convey("Given a time limit", t, func() {
		Convey("When the format is an average", func() {
			in := as(50, 60, 59.99, dnf, 0)
			out := scoring.ApplyTimeLimit(in, 60, scoring.AO5Plain)

			Convey("Then each attempt at or over the limit becomes DNF", func() {
				So(out, ShouldResemble, as(50, dnf, 59.99, dnf, 0))
				So(in[1], ShouldEqual, 60)
			})
		})

		Convey("When the format is best of 3", func() {
			out := scoring.ApplyTimeLimit(as(200, 250, 300), 400, scoring.BO3)

			Convey("Then the limit is cumulative", func() {
				So(out, ShouldResemble, as(200, dnf, dns))
			})
		})

		Convey("When no limit is set", func() {
			out := scoring.ApplyTimeLimit(as(200, 250, 300), 0, scoring.BO3)
			So(out, ShouldResemble, as(200, 250, 300))
		})
	})
}

func TestCutoff(t *testing.T) {
	Convey("Given a 20 second cutoff", t, func() {
		So(scoring.MadeCutoff(as(25, 19.99, 0, 0, 0), 20), ShouldBeTrue)
		So(scoring.MadeCutoff(as(20, 21, 0, 0, 0), 20), ShouldBeFalse)
		So(scoring.MadeCutoff(as(dnf, 25, 0, 0, 0), 20), ShouldBeFalse)

		Convey("When a competitor who missed it has later attempts", func() {
			err := scoring.CheckCutoff(as(25, 26, 18, 0, 0), 20)
			So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "attempt 3")
		})

		Convey("When a competitor who missed it stopped after two", func() {
			So(scoring.CheckCutoff(as(25, 26, 0, 0, 0), 20), ShouldBeNil)
		})

		Convey("When a competitor made it", func() {
			So(scoring.CheckCutoff(as(19, 26, 18, 17, 22), 20), ShouldBeNil)
		})
	})
}
