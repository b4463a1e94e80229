package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/speedcube/internal/adapters/http/api"
	service "github.com/okian/speedcube/internal/app"
	"github.com/okian/speedcube/internal/domain/types"
	"github.com/okian/speedcube/internal/scoretaker"
	"github.com/okian/speedcube/pkg/logger"
)

func init() {
	_ = logger.Init(logger.WithLevel("error"))
}

func startService(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	svc := service.New(service.WithDatabaseDSN("file:" + uuid.NewString() + "?mode=memory&cache=shared"))
	if err := svc.Start(ctx); err != nil {
		t.Fatalf("start service: %v", err)
	}
	ts := httptest.NewServer(api.NewServer(svc).Router(ctx))
	t.Cleanup(func() {
		ts.Close()
		svc.Stop()
	})
	return ts.URL
}

func run(url string, args ...string) (string, error) {
	var out bytes.Buffer
	app := newApp(&out)
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run(append([]string{"scoretaker", "--url", url, "--log-level", "error"}, args...))
	return out.String(), err
}

func TestCommands(t *testing.T) {
	Convey("Given an event with one registered competitor", t, func() {
		url := startService(t)
		ctx := context.Background()
		c := scoretaker.NewClient(url, 0)

		comp, err := c.CreateCompetition(ctx, types.CreateCompetitionRequest{Name: "Tiny Open"})
		So(err, ShouldBeNil)
		ev, err := c.CreateEvent(ctx, comp.ID, types.CreateEventRequest{Code: "222"})
		So(err, ShouldBeNil)
		round, err := c.CreateRound(ctx, ev.ID, types.CreateRoundRequest{Number: 1, Format: "AO5"})
		So(err, ShouldBeNil)
		person, err := c.CreateCompetitor(ctx, types.CreateCompetitorRequest{Name: "Ana"})
		So(err, ShouldBeNil)
		So(c.Register(ctx, ev.ID, person.ID), ShouldBeNil)

		roundID := fmt.Sprint(round.ID)
		out, err := run(url, "open", roundID)
		So(err, ShouldBeNil)
		So(out, ShouldContainSubstring, "1 competitors seeded")

		Convey("When attempts are typed in", func() {
			out, err := run(url, "submit", roundID, fmt.Sprint(person.ID), "10", "11", "12", "DNF", "9")

			Convey("Then the scored row is echoed", func() {
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "result 11.00")
			})

			Convey("And standings list the competitor ranked", func() {
				out, err := run(url, "standings", roundID)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "RANK")
				So(out, ShouldContainSubstring, "Ana")
				So(out, ShouldContainSubstring, "11.00")

				out, err = run(url, "standings", "--json", roundID)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, `"result": "11.00"`)
			})

			Convey("And clear resets the round", func() {
				out, err := run(url, "clear", roundID)
				So(err, ShouldBeNil)
				So(out, ShouldContainSubstring, "1 rows reset")
			})
		})

		Convey("When attempts are typed on the keypad", func() {
			out, err := run(url, "submit", "--digits", roundID, fmt.Sprint(person.ID), "1000", "1100", "1200", "/", "900")
			So(err, ShouldBeNil)
			So(out, ShouldContainSubstring, "10.00 11.00 12.00 DNF 9.00")
			So(out, ShouldContainSubstring, "result 11.00")
		})

		Convey("When keypad entry holds a letter", func() {
			_, err := run(url, "submit", "--digits", roundID, fmt.Sprint(person.ID), "1000", "12a34")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, `attempt 2: "12a34"`)
		})

		Convey("When an attempt is malformed", func() {
			_, err := run(url, "submit", roundID, fmt.Sprint(person.ID), "1.2.3")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "format_error")
		})

		Convey("When the round id is not a number", func() {
			_, err := run(url, "open", "abc")
			So(err, ShouldNotBeNil)
		})

		Convey("When previewing advancers of a final", func() {
			_, err := run(url, "advancers", roundID)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPrintStandings(t *testing.T) {
	Convey("Given standings with a blank row", t, func() {
		var buf bytes.Buffer
		err := printStandings(&buf, types.Standings{
			Valued: []types.StandingEntry{{Rank: 1, CompetitorID: 1, Name: "Ana", Attempts: []string{"9.00"}, Best: "9.00", Result: "9.00"}},
			Blank:  []types.StandingEntry{{CompetitorID: 2, Name: "Ben", Result: "None"}},
		})
		So(err, ShouldBeNil)
		So(buf.String(), ShouldContainSubstring, "Ana")
		So(buf.String(), ShouldContainSubstring, "-  ")
	})
}
