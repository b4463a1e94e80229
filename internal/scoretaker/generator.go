package scoretaker

import (
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/okian/speedcube/internal/domain/attempt"
	"github.com/okian/speedcube/internal/domain/scoring"
	"github.com/okian/speedcube/internal/domain/types"
)

// Ranges for generated solve times.
const (
	skillMin      = 7.0
	skillMax      = 45.0
	spreadLow     = 0.85
	spreadHigh    = 1.25
	wcaIDShare    = 0.7
	firstWCAYear  = 2003
	latestWCAYear = 2025
)

// Generator produces competitors and their attempts. It is not safe for
// concurrent use; generate everything before fanning out.
type Generator struct {
	faker   *gofakeit.Faker
	dnfRate float64
}

// Competitor is a generated person with a typical solve time.
type Competitor struct {
	Request types.CreateCompetitorRequest
	Skill   float64
}

// NewGenerator creates a generator. A zero seed picks a random one.
func NewGenerator(seed uint64, dnfRate float64) *Generator {
	return &Generator{faker: gofakeit.New(seed), dnfRate: dnfRate}
}

// Competitor generates one competitor. Most get a WCA ID like 2014ABCD01.
func (g *Generator) Competitor() Competitor {
	region := g.faker.Country()
	req := types.CreateCompetitorRequest{Name: g.faker.Name(), Region: &region}
	if g.faker.Float64() < wcaIDShare {
		id := strconv.Itoa(g.faker.Number(firstWCAYear, latestWCAYear)) +
			strings.ToUpper(g.faker.Lexify("????")) +
			g.faker.Numerify("##")
		req.WCAID = &id
	}
	return Competitor{Request: req, Skill: g.faker.Float64Range(skillMin, skillMax)}
}

// Competitors generates n competitors.
func (g *Generator) Competitors(n int) []Competitor {
	out := make([]Competitor, n)
	for i := range out {
		out[i] = g.Competitor()
	}
	return out
}

// Attempts generates a full attempt list for format around skill seconds.
// With a cutoff, a competitor who misses it stops after the first two.
func (g *Generator) Attempts(skill float64, format scoring.Format, cutoff float64) []string {
	n := format.Attempts()
	as := make([]attempt.Attempt, n)
	for i := range as {
		if g.faker.Float64() < g.dnfRate {
			as[i] = attempt.DNF
			continue
		}
		as[i] = attempt.MustParse(attempt.Format(attempt.Attempt(skill * g.faker.Float64Range(spreadLow, spreadHigh))))
	}
	if format == scoring.AO5Cutoff && !scoring.MadeCutoff(as, cutoff) {
		as = as[:2]
	}
	return attempt.FormatAll(as)
}
