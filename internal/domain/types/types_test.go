package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/ranking"
	types "github.com/okian/speedcube/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestFromStandings(t *testing.T) {
	Convey("Given ranked standings", t, func() {
		st := ranking.Rank([]model.RoundResult{
			{
				CompetitorID: 1,
				Competitor:   model.Competitor{ID: 1, Name: "Ann"},
				Attempts:     []attempt.Attempt{10, 11, 12, attempt.DNF, 9},
				Best:         model.Time(9),
				Result:       model.Time(11),
			},
			{
				CompetitorID: 2,
				Competitor:   model.Competitor{ID: 2, Name: "Bo"},
				Attempts:     []attempt.Attempt{65.5, 70, 0, 0, 0},
				Best:         model.Time(65.5),
				Result:       model.CutoffMissValue(),
			},
			{CompetitorID: 3, Competitor: model.Competitor{ID: 3, Name: "Cy"}, Attempts: []attempt.Attempt{}},
		})

		Convey("When converting to the wire shape", func() {
			out := types.FromStandings(4, st)

			Convey("Then times use the wire vocabulary", func() {
				So(out.RoundID, ShouldEqual, 4)
				So(len(out.Valued), ShouldEqual, 1)
				So(out.Valued[0].Rank, ShouldEqual, 1)
				So(out.Valued[0].Attempts, ShouldResemble, []string{"10.00", "11.00", "12.00", "DNF", "9.00"})
				So(out.Valued[0].Result, ShouldEqual, "11.00")
			})

			Convey("And blank rows carry no rank", func() {
				So(len(out.Blank), ShouldEqual, 2)
				So(out.Blank[0].Name, ShouldEqual, "Bo")
				So(out.Blank[0].Rank, ShouldEqual, 0)
				So(out.Blank[0].Best, ShouldEqual, "1:05.50")
				So(out.Blank[0].Result, ShouldEqual, "")
				So(out.Blank[1].Result, ShouldEqual, "None")

				raw, err := json.Marshal(out.Blank[1])
				So(err, ShouldBeNil)
				So(string(raw), ShouldNotContainSubstring, `"rank"`)
			})
		})
	})

	Convey("Given an empty round", t, func() {
		out := types.FromStandings(1, ranking.Standings{})
		raw, err := json.Marshal(out)
		So(err, ShouldBeNil)
		So(string(raw), ShouldEqual, `{"round_id":1,"valued":[],"blank":[]}`)
	})
}

func TestFromModels(t *testing.T) {
	Convey("Given domain models", t, func() {
		age := 12
		e := types.FromEvent(model.Event{ID: 2, CompetitionID: "c", Code: model.Event333, MaxAge: &age})
		So(e.Label, ShouldEqual, "333-12")
		So(e.Name, ShouldEqual, "3x3x3 Cube")

		r := types.FromRound(model.Round{ID: 3, Number: 1, Format: model.FormatAO5, Proceed: model.Top(8)})
		So(*r.Proceed, ShouldEqual, 8)

		r = types.FromRound(model.Round{ID: 4, Number: 2, Format: model.FormatAO5, Proceed: model.Final()})
		So(r.Proceed, ShouldBeNil)
	})
}
