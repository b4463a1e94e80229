package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	s, err := Open(context.Background(), dsn, WithAutoMigrate(true))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// fixture creates a competition with one 333 event, two rounds and n
// registered competitors.
type fixture struct {
	event       model.Event
	first       model.Round
	second      model.Round
	competitors []uint
}

func newFixture(ctx context.Context, t *testing.T, s *Store, n int) fixture {
	t.Helper()
	var f fixture
	comp := model.Competition{Name: "Test Open 2026", ShortName: "TestOpen26"}
	So(s.CreateCompetition(ctx, &comp), ShouldBeNil)

	f.event = model.Event{CompetitionID: comp.ID, Code: model.Event333}
	So(s.CreateEvent(ctx, &f.event), ShouldBeNil)

	f.first = model.Round{EventID: f.event.ID, Number: 1, Format: model.FormatAO5, Proceed: model.Percent(0.5)}
	So(s.CreateRound(ctx, &f.first), ShouldBeNil)
	f.second = model.Round{EventID: f.event.ID, Number: 2, Format: model.FormatAO5, Proceed: model.Final()}
	So(s.CreateRound(ctx, &f.second), ShouldBeNil)

	for i := 0; i < n; i++ {
		c := model.Competitor{Name: string(rune('A' + i))}
		So(s.CreateCompetitor(ctx, &c), ShouldBeNil)
		So(s.Register(ctx, c.ID, f.event.ID), ShouldBeNil)
		f.competitors = append(f.competitors, c.ID)
	}
	return f
}

func TestStoreSetup(t *testing.T) {
	Convey("Given an empty store", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		f := newFixture(ctx, t, s, 3)

		Convey("Then competitions get a generated id", func() {
			_, err := uuid.Parse(f.event.CompetitionID)
			So(err, ShouldBeNil)
		})

		Convey("Then rounds keep their proceed rules", func() {
			r, err := s.Round(ctx, f.first.ID)
			So(err, ShouldBeNil)
			So(r.Proceed, ShouldResemble, model.Percent(0.5))
			So(r.Open, ShouldBeFalse)

			r, err = s.RoundByNumber(ctx, f.event.ID, 2)
			So(err, ShouldBeNil)
			So(r.ID, ShouldEqual, f.second.ID)
			So(r.Proceed.Kind, ShouldEqual, model.ProceedFinal)

			rounds, err := s.Rounds(ctx, f.event.ID)
			So(err, ShouldBeNil)
			So(len(rounds), ShouldEqual, 2)
			So(rounds[0].Number, ShouldEqual, 1)
		})

		Convey("Then registrations are listed and repeatable", func() {
			So(s.Register(ctx, f.competitors[0], f.event.ID), ShouldBeNil)
			ids, err := s.RegisteredCompetitors(ctx, f.event.ID)
			So(err, ShouldBeNil)
			So(ids, ShouldResemble, f.competitors)
		})

		Convey("When a round number is reused", func() {
			dup := model.Round{EventID: f.event.ID, Number: 1, Format: model.FormatBO3}
			err := s.CreateRound(ctx, &dup)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, errs.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a round's rules are rewritten", func() {
			limit := 120.0
			upd := f.first
			upd.Format = model.FormatBO3
			upd.Proceed = model.Final()
			upd.TimeLimit = &limit
			So(s.UpdateRound(ctx, upd), ShouldBeNil)

			Convey("Then the new rules replace the old ones", func() {
				r, err := s.Round(ctx, f.first.ID)
				So(err, ShouldBeNil)
				So(r.Format, ShouldEqual, model.FormatBO3)
				So(r.Proceed.Kind, ShouldEqual, model.ProceedFinal)
				So(r.Cutoff, ShouldBeNil)
				So(*r.TimeLimit, ShouldEqual, 120)
				So(r.Number, ShouldEqual, 1)
			})

			Convey("Then an unknown round is reported missing", func() {
				err := s.UpdateRound(ctx, model.Round{ID: 999, Format: model.FormatAO5})
				So(errors.Is(err, ErrRoundNotFound), ShouldBeTrue)
			})
		})

		Convey("When references are missing", func() {
			err := s.CreateEvent(ctx, &model.Event{CompetitionID: uuid.NewString(), Code: model.Event222})
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)

			err = s.Register(ctx, 999, f.event.ID)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)

			_, err = s.Round(ctx, 999)
			So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
			So(errors.Is(err, ErrRoundNotFound), ShouldBeTrue)

			So(errors.Is(s.SetRoundOpen(ctx, 999, true), errs.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestStoreResults(t *testing.T) {
	Convey("Given a round with registered competitors", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		f := newFixture(ctx, t, s, 3)

		Convey("When seeding twice", func() {
			n, err := s.SeedResults(ctx, f.first.ID, f.competitors[:2])
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)

			n, err = s.SeedResults(ctx, f.first.ID, f.competitors)
			So(err, ShouldBeNil)

			Convey("Then existing rows are kept and only new ones inserted", func() {
				So(n, ShouldEqual, 1)
				rows, err := s.RoundResults(ctx, f.first.ID)
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)
				for _, r := range rows {
					So(r.Attempts, ShouldBeEmpty)
					So(r.Result.Kind, ShouldEqual, model.Unscored)
					So(r.Best.Kind, ShouldEqual, model.Unscored)
					So(r.Competitor.Name, ShouldNotBeBlank)
				}
			})
		})

		Convey("When seeding nobody", func() {
			n, err := s.SeedResults(ctx, f.first.ID, nil)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When saving results", func() {
			_, err := s.SeedResults(ctx, f.first.ID, f.competitors)
			So(err, ShouldBeNil)

			timed := model.RoundResult{
				CompetitorID: f.competitors[0],
				RoundID:      f.first.ID,
				Attempts:     []attempt.Attempt{10, 11, 12, attempt.DNF, 9},
				Best:         model.Time(9),
				Result:       model.Time(11),
			}
			miss := model.RoundResult{
				CompetitorID: f.competitors[1],
				RoundID:      f.first.ID,
				Attempts:     []attempt.Attempt{31, 32, 0, 0, 0},
				Best:         model.Time(31),
				Result:       model.CutoffMissValue(),
			}
			So(s.SaveResult(ctx, timed), ShouldBeNil)
			So(s.SaveResult(ctx, miss), ShouldBeNil)

			Convey("Then the tagged values round trip", func() {
				rows, err := s.RoundResults(ctx, f.first.ID)
				So(err, ShouldBeNil)
				byID := map[uint]model.RoundResult{}
				for _, r := range rows {
					byID[r.CompetitorID] = r
				}
				So(byID[timed.CompetitorID].Attempts, ShouldResemble, timed.Attempts)
				So(byID[timed.CompetitorID].Result, ShouldResemble, model.Time(11))
				So(byID[miss.CompetitorID].Result, ShouldResemble, model.CutoffMissValue())
				So(byID[miss.CompetitorID].Best, ShouldResemble, model.Time(31))
				So(byID[f.competitors[2]].Result.Kind, ShouldEqual, model.Unscored)
			})

			Convey("Then counts reflect scored rows", func() {
				st, err := s.Stats(ctx)
				So(err, ShouldBeNil)
				So(st.Results, ShouldEqual, 3)
				So(st.ScoredResults, ShouldEqual, 2)
				So(st.Competitors, ShouldEqual, 3)
				So(st.Rounds, ShouldEqual, 2)

				counts, err := s.RoundCounts(ctx)
				So(err, ShouldBeNil)
				So(counts, ShouldResemble, []RoundCount{{RoundID: f.first.ID, Entries: 3, Scored: 2}})
			})

			Convey("And clearing resets every row", func() {
				n, err := s.ClearResults(ctx, f.first.ID)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 3)

				rows, err := s.RoundResults(ctx, f.first.ID)
				So(err, ShouldBeNil)
				for _, r := range rows {
					So(r.Attempts, ShouldBeEmpty)
					So(r.Result.Kind, ShouldEqual, model.Unscored)
					So(r.Best.Kind, ShouldEqual, model.Unscored)
				}
			})
		})

		Convey("When saving for a competitor not in the round", func() {
			err := s.SaveResult(ctx, model.RoundResult{CompetitorID: f.competitors[0], RoundID: f.second.ID})

			Convey("Then nothing is written", func() {
				So(errors.Is(err, errs.ErrNotFound), ShouldBeTrue)
				So(errors.Is(err, ErrResultNotSeeded), ShouldBeTrue)
			})
		})
	})
}

func TestStoreTransaction(t *testing.T) {
	Convey("Given a transaction that fails after writing", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		f := newFixture(ctx, t, s, 2)
		boom := errs.New("test", errs.ErrValidation, "boom")

		err := s.Transaction(ctx, func(tx *Store) error {
			if _, err := tx.SeedResults(ctx, f.first.ID, f.competitors); err != nil {
				return err
			}
			if err := tx.SetRoundOpen(ctx, f.first.ID, true); err != nil {
				return err
			}
			return boom
		})

		Convey("Then the error is returned unchanged and nothing is committed", func() {
			So(err, ShouldEqual, boom)

			rows, err := s.RoundResults(ctx, f.first.ID)
			So(err, ShouldBeNil)
			So(rows, ShouldBeEmpty)

			r, err := s.Round(ctx, f.first.ID)
			So(err, ShouldBeNil)
			So(r.Open, ShouldBeFalse)
		})
	})

	Convey("Given a transaction that succeeds", t, func() {
		ctx := context.Background()
		s := newTestStore(t)
		f := newFixture(ctx, t, s, 2)

		err := s.Transaction(ctx, func(tx *Store) error {
			if _, err := tx.SeedResults(ctx, f.first.ID, f.competitors); err != nil {
				return err
			}
			return tx.SetRoundOpen(ctx, f.first.ID, true)
		})

		Convey("Then both writes are visible", func() {
			So(err, ShouldBeNil)
			rows, err := s.RoundResults(ctx, f.first.ID)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)

			st, err := s.Stats(ctx)
			So(err, ShouldBeNil)
			So(st.OpenRounds, ShouldEqual, 1)
		})
	})
}

func TestAttemptListColumn(t *testing.T) {
	Convey("Given the attempts column type", t, func() {
		v, err := attemptList{12.34, -1, 0}.Value()
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "[12.34,-1,0]")

		v, err = attemptList(nil).Value()
		So(err, ShouldBeNil)
		So(v, ShouldEqual, "[]")

		var a attemptList
		So(a.Scan([]byte("[1.5,-2]")), ShouldBeNil)
		So(a, ShouldResemble, attemptList{1.5, -2})

		So(a.Scan(nil), ShouldBeNil)
		So(a, ShouldBeEmpty)

		So(a.Scan(42), ShouldNotBeNil)
	})
}
