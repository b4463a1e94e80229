package scoretaker

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/scoring"
)

func TestGenerator(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		g := NewGenerator(42, 0)

		Convey("When generating competitors", func() {
			people := g.Competitors(50)

			Convey("Then every competitor passes request validation rules", func() {
				So(len(people), ShouldEqual, 50)
				for _, p := range people {
					So(p.Request.Name, ShouldNotBeBlank)
					So(p.Skill, ShouldBeBetweenOrEqual, skillMin, skillMax)
					if p.Request.WCAID != nil {
						So(len(*p.Request.WCAID), ShouldEqual, 10)
					}
				}
			})
		})

		Convey("When the same seed is reused", func() {
			a := NewGenerator(7, 0.1).Competitors(5)
			b := NewGenerator(7, 0.1).Competitors(5)
			So(a, ShouldResemble, b)
		})

		Convey("When generating an average of 5", func() {
			texts := g.Attempts(10, scoring.AO5Plain, 0)
			as, err := attempt.ParseAll(texts)

			Convey("Then five parseable times come back", func() {
				So(err, ShouldBeNil)
				So(len(as), ShouldEqual, 5)
				for _, a := range as {
					So(a.IsTime(), ShouldBeTrue)
				}
			})
		})

		Convey("When the cutoff is out of reach", func() {
			texts := g.Attempts(30, scoring.AO5Cutoff, 5)
			So(len(texts), ShouldEqual, 2)
		})

		Convey("When the cutoff is easy", func() {
			texts := g.Attempts(10, scoring.AO5Cutoff, 60)
			So(len(texts), ShouldEqual, 5)
		})

		Convey("When every attempt fails", func() {
			texts := NewGenerator(1, 0.999999).Attempts(10, scoring.BO3, 0)
			So(texts, ShouldResemble, []string{"DNF", "DNF", "DNF"})
		})
	})
}
