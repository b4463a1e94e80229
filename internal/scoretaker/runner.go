package scoretaker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/okian/speedcube/internal/domain/model"
	"github.com/okian/speedcube/internal/domain/types"
	"github.com/okian/speedcube/pkg/logger"
)

// RoundReport summarizes one simulated round.
type RoundReport struct {
	RoundID   uint
	Number    int
	Entrants  int
	Submitted int
	Failed    int
	Valued    int
	Blank     int
	Advancers int
	Duration  time.Duration
}

// Report summarizes a simulation.
type Report struct {
	CompetitionID string
	EventID       uint
	Competitors   int
	Rounds        []RoundReport
	Duration      time.Duration
}

// simulation carries the state shared across stages.
type simulation struct {
	cfg    Config
	client *Client
	gen    *Generator
	log    logger.Logger

	event  model.Event
	people map[uint]Competitor
}

// Simulate runs a two round competition against the service at
// cfg.BaseURL and checks every standings and advancement response against
// local scoring.
func Simulate(ctx context.Context, cfg Config) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	s := &simulation{
		cfg:    cfg,
		client: NewClient(cfg.BaseURL, cfg.Timeout),
		gen:    NewGenerator(cfg.Seed, cfg.DNFRate),
		log:    logger.Named("scoretaker"),
		people: make(map[uint]Competitor, cfg.Competitors),
	}

	s.log.Info(ctx, "starting simulation",
		logger.String("base_url", cfg.BaseURL),
		logger.String("event", cfg.EventCode),
		logger.Int("competitors", cfg.Competitors),
		logger.Int("workers", cfg.Workers),
	)

	if err := s.client.Health(ctx); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	report := &Report{}
	first, final, err := s.setup(ctx, report)
	if err != nil {
		return nil, err
	}
	if err := s.register(ctx); err != nil {
		return nil, err
	}
	report.Competitors = len(s.people)

	rr, advancers, err := s.playRound(ctx, first, nil)
	if err != nil {
		return nil, err
	}
	report.Rounds = append(report.Rounds, rr)

	rr, _, err = s.playRound(ctx, final, advancers)
	if err != nil {
		return nil, err
	}
	report.Rounds = append(report.Rounds, rr)

	report.Duration = time.Since(start)
	s.log.Info(ctx, "simulation completed", logger.Duration("duration", report.Duration))
	return report, nil
}

// setup creates the competition, the event and both rounds.
func (s *simulation) setup(ctx context.Context, report *Report) (types.Round, types.Round, error) {
	now := time.Now().UTC().Truncate(24 * time.Hour)
	comp, err := s.client.CreateCompetition(ctx, types.CreateCompetitionRequest{
		Name:      "Simulated Open " + now.Format("2006"),
		ShortName: "SimOpen" + now.Format("2006"),
		StartDate: now,
		EndDate:   now.Add(24 * time.Hour),
	})
	if err != nil {
		return types.Round{}, types.Round{}, fmt.Errorf("create competition: %w", err)
	}
	ev, err := s.client.CreateEvent(ctx, comp.ID, types.CreateEventRequest{Code: s.cfg.EventCode})
	if err != nil {
		return types.Round{}, types.Round{}, fmt.Errorf("create event: %w", err)
	}
	s.event = model.Event{ID: ev.ID, CompetitionID: comp.ID, Code: model.EventCode(ev.Code), MaxAge: ev.MaxAge}
	report.CompetitionID, report.EventID = comp.ID, ev.ID

	proceed := s.cfg.Proceed
	req := types.CreateRoundRequest{Number: 1, Format: string(model.FormatAO5), Proceed: &proceed}
	if s.cfg.Cutoff > 0 {
		cutoff := s.cfg.Cutoff
		req.Cutoff = &cutoff
	}
	if s.cfg.TimeLimit > 0 {
		limit := s.cfg.TimeLimit
		req.TimeLimit = &limit
	}
	first, err := s.client.CreateRound(ctx, ev.ID, req)
	if err != nil {
		return types.Round{}, types.Round{}, fmt.Errorf("create round 1: %w", err)
	}

	req = types.CreateRoundRequest{Number: 2, Format: string(model.FormatAO5), TimeLimit: req.TimeLimit}
	final, err := s.client.CreateRound(ctx, ev.ID, req)
	if err != nil {
		return types.Round{}, types.Round{}, fmt.Errorf("create round 2: %w", err)
	}

	s.log.Info(ctx, "competition ready",
		logger.String("competition_id", comp.ID),
		logger.String("event", ev.Label),
		logger.Uint("first_round", first.ID),
		logger.Uint("final_round", final.ID),
	)
	return first, final, nil
}

// register creates and registers the generated competitors concurrently.
func (s *simulation) register(ctx context.Context) error {
	people := s.gen.Competitors(s.cfg.Competitors)
	var mu sync.Mutex

	res := runPool(ctx, "register", s.cfg.Workers, len(people), func(ctx context.Context, i int) error {
		p := people[i]
		c, err := s.client.CreateCompetitor(ctx, p.Request)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity && p.Request.WCAID != nil {
			// generated WCA ID already taken
			p.Request.WCAID = nil
			c, err = s.client.CreateCompetitor(ctx, p.Request)
		}
		if err != nil {
			return fmt.Errorf("create competitor %q: %w", p.Request.Name, err)
		}
		if err := s.client.Register(ctx, s.event.ID, c.ID); err != nil {
			return fmt.Errorf("register competitor %d: %w", c.ID, err)
		}
		p.Request.Name = c.Name
		mu.Lock()
		s.people[c.ID] = p
		mu.Unlock()
		return nil
	})
	if err := ctx.Err(); err != nil {
		return err
	}
	if res.Failed > 0 {
		return fmt.Errorf("registration: %d of %d failed: %w", res.Failed, len(people), errors.Join(res.Errors...))
	}
	s.log.Info(ctx, "competitors registered", logger.Int("count", res.Done))
	return nil
}

// playRound opens a round, checks its seeding against want when given,
// submits generated results for every seeded competitor and verifies the
// standings. For a non-final round it also returns the verified advancers.
func (s *simulation) playRound(ctx context.Context, round types.Round, want []uint) (RoundReport, []uint, error) {
	start := time.Now()
	rr := RoundReport{RoundID: round.ID, Number: round.Number}

	opened, err := s.client.OpenRound(ctx, round.ID)
	if err != nil {
		return rr, nil, fmt.Errorf("open round %d: %w", round.Number, err)
	}
	seeded, err := s.client.Standings(ctx, round.ID)
	if err != nil {
		return rr, nil, fmt.Errorf("standings of round %d: %w", round.Number, err)
	}
	if want != nil {
		if err := VerifySeeding(want, opened, seeded); err != nil {
			return rr, nil, err
		}
	}
	rr.Entrants = opened.Seeded

	mr := opened.Round
	rule, err := model.DecodeProceed(mr.Proceed)
	if err != nil {
		return rr, nil, err
	}
	scorer, err := NewScorer(s.event, model.Round{
		ID: mr.ID, EventID: mr.EventID, Number: mr.Number, Format: model.FormatCode(mr.Format),
		Proceed: rule, Cutoff: mr.Cutoff, TimeLimit: mr.TimeLimit,
	})
	if err != nil {
		return rr, nil, err
	}

	cutoff := 0.0
	if mr.Cutoff != nil {
		cutoff = *mr.Cutoff
	}
	subs := make([]Submission, len(seeded.Blank))
	for i, e := range seeded.Blank {
		subs[i] = Submission{
			CompetitorID: e.CompetitorID,
			Name:         e.Name,
			Attempts:     s.gen.Attempts(s.people[e.CompetitorID].Skill, scorer.format, cutoff),
		}
	}

	var mu sync.Mutex
	var done []Submission
	res := runPool(ctx, fmt.Sprintf("round %d", round.Number), s.cfg.Workers, len(subs),
		func(ctx context.Context, i int) error {
			sub := subs[i]
			row, err := s.client.Submit(ctx, round.ID, sub.CompetitorID, sub.Attempts)
			if err != nil {
				return fmt.Errorf("submit competitor %d: %w", sub.CompetitorID, err)
			}
			if s.cfg.Verbose {
				s.log.Info(ctx, "result submitted",
					logger.Uint("competitor_id", sub.CompetitorID),
					logger.Any("attempts", row.Attempts),
					logger.String("result", row.Result),
				)
			}
			mu.Lock()
			done = append(done, sub)
			mu.Unlock()
			return nil
		})
	if err := ctx.Err(); err != nil {
		return rr, nil, err
	}
	rr.Submitted, rr.Failed = res.Done, res.Failed
	if res.Failed > 0 {
		s.log.Warn(ctx, "some submissions failed",
			logger.Int("failed", res.Failed),
			logger.Error(errors.Join(res.Errors...)),
		)
	}

	unscored := make(map[uint]string)
	for _, e := range seeded.Blank {
		unscored[e.CompetitorID] = e.Name
	}
	for _, sub := range done {
		delete(unscored, sub.CompetitorID)
	}
	expected, err := scorer.Expected(round.ID, done, unscored)
	if err != nil {
		return rr, nil, err
	}

	got, err := s.client.Standings(ctx, round.ID)
	if err != nil {
		return rr, nil, fmt.Errorf("standings of round %d: %w", round.Number, err)
	}
	if err := VerifyStandings(expected, got); err != nil {
		return rr, nil, err
	}
	rr.Valued, rr.Blank = len(got.Valued), len(got.Blank)

	var advancers []uint
	if rule.Kind != model.ProceedFinal {
		preview, err := s.client.Advancers(ctx, round.ID)
		if err != nil {
			return rr, nil, fmt.Errorf("advancers of round %d: %w", round.Number, err)
		}
		if advancers, err = VerifyAdvancers(expected, rule, preview); err != nil {
			return rr, nil, err
		}
		rr.Advancers = len(advancers)
	}

	rr.Duration = time.Since(start)
	s.log.Info(ctx, "round verified",
		logger.Int("round", round.Number),
		logger.Int("entrants", rr.Entrants),
		logger.Int("valued", rr.Valued),
		logger.Int("blank", rr.Blank),
		logger.Int("advancers", rr.Advancers),
		logger.Duration("duration", rr.Duration),
	)
	return rr, advancers, nil
}
