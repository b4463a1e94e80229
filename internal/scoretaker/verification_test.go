package scoretaker

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/types"
)

func testScorer(cutoff, limit float64) Scorer {
	round := model.Round{ID: 1, Number: 1, Format: model.FormatAO5, Proceed: model.Top(2)}
	if cutoff > 0 {
		round.Cutoff = &cutoff
	}
	if limit > 0 {
		round.TimeLimit = &limit
	}
	s, err := NewScorer(model.Event{Code: model.Event333}, round)
	if err != nil {
		panic(err)
	}
	return s
}

func TestScorer(t *testing.T) {
	Convey("Given a scorer for an average of 5", t, func() {
		s := testScorer(0, 0)

		Convey("When a submission has one DNF", func() {
			row, err := s.Score(1, Submission{CompetitorID: 3, Name: "Ana", Attempts: []string{"10.00", "11.00", "12.00", "DNF", "9.00"}})

			Convey("Then the average trims it", func() {
				So(err, ShouldBeNil)
				So(row.Result.Format(), ShouldEqual, "11.00")
				So(row.Best.Format(), ShouldEqual, "9.00")
				So(row.Name(), ShouldEqual, "Ana")
			})
		})

		Convey("When a submission cannot be parsed", func() {
			_, err := s.Score(1, Submission{CompetitorID: 3, Attempts: []string{"1.2.3"}})
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Given a scorer with a cutoff and a time limit", t, func() {
		s := testScorer(20, 60)

		Convey("When only the first two attempts are entered", func() {
			row, err := s.Score(1, Submission{CompetitorID: 1, Attempts: []string{"25.00", "24.00"}})
			So(err, ShouldBeNil)
			So(row.Result.Kind, ShouldEqual, model.CutoffMiss)
			So(len(row.Attempts), ShouldEqual, 5)
		})

		Convey("When an attempt reaches the limit", func() {
			row, err := s.Score(1, Submission{CompetitorID: 1, Attempts: []string{"19.00", "1:00.00", "18.00", "17.00", "16.00"}})
			So(err, ShouldBeNil)
			So(row.Result.Format(), ShouldEqual, "18.00")
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given expected standings", t, func() {
		s := testScorer(0, 0)
		subs := []Submission{
			{CompetitorID: 1, Name: "Ana", Attempts: []string{"10", "11", "12", "13", "14"}},
			{CompetitorID: 2, Name: "Ben", Attempts: []string{"12", "12", "12", "12", "12"}},
			{CompetitorID: 3, Name: "Cai", Attempts: []string{"DNF", "DNF", "10", "11", "12"}},
		}
		want, err := s.Expected(1, subs, map[uint]string{4: "Dee"})
		So(err, ShouldBeNil)
		remote := types.FromStandings(1, want)

		Convey("When the server agrees", func() {
			So(VerifyStandings(want, remote), ShouldBeNil)
		})

		Convey("When the server ranks differently", func() {
			remote.Valued[0].Result = "11.50"
			So(errors.Is(VerifyStandings(want, remote), ErrMismatch), ShouldBeTrue)
		})

		Convey("When the server drops a blank row", func() {
			remote.Blank = remote.Blank[:1]
			So(errors.Is(VerifyStandings(want, remote), ErrMismatch), ShouldBeTrue)
		})

		Convey("When the advancement preview matches", func() {
			ids, err := VerifyAdvancers(want, model.Top(2), types.Advancers{
				RoundID: 1, Threshold: 2, TiePolicy: "slice", CompetitorIDs: []uint{2, 1},
			})
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, []uint{1, 2})
		})

		Convey("When the preview selects the wrong competitors", func() {
			_, err := VerifyAdvancers(want, model.Top(2), types.Advancers{
				RoundID: 1, Threshold: 2, TiePolicy: "slice", CompetitorIDs: []uint{1, 3},
			})
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
		})

		Convey("When the preview uses another threshold", func() {
			_, err := VerifyAdvancers(want, model.Percent(0.5), types.Advancers{Threshold: 1, TiePolicy: "slice"})
			So(errors.Is(err, ErrMismatch), ShouldBeTrue)
		})

		Convey("When the next round is seeded", func() {
			next := types.Standings{RoundID: 2, Valued: []types.StandingEntry{}, Blank: []types.StandingEntry{
				{CompetitorID: 2, Name: "Ben", Result: "None"},
				{CompetitorID: 1, Name: "Ana", Result: "None"},
			}}
			opened := types.OpenRoundResponse{Seeded: 2}
			So(VerifySeeding([]uint{1, 2}, opened, next), ShouldBeNil)

			opened.Seeded = 3
			So(errors.Is(VerifySeeding([]uint{1, 2}, opened, next), ErrMismatch), ShouldBeTrue)

			So(errors.Is(VerifySeeding([]uint{1, 3}, types.OpenRoundResponse{Seeded: 2}, next), ErrMismatch), ShouldBeTrue)
		})
	})
}
