// Package venue recommends a campus venue for an expected turnout and
// equipment list. Scoring is a pure function over a catalog; the catalog
// itself may come from a YAML file that is reloaded when it changes.
package venue

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrInvalidAttendance is returned when the expected attendance is not positive.
var ErrInvalidAttendance = errors.New("expected attendance must be a positive number")

// Venue is one bookable space.
type Venue struct {
	Name      string   `yaml:"name" json:"name"`
	Capacity  int      `yaml:"capacity" json:"capacity"`
	Features  []string `yaml:"features" json:"features"`
	Location  string   `yaml:"location" json:"location"`
	Strengths []string `yaml:"strengths" json:"strengths"`
}

// Catalog is the set of venues considered by Recommend.
type Catalog struct {
	Venues []Venue `yaml:"venues" json:"venues"`
}

// DefaultCatalog returns the built-in venues used when no catalog file is configured.
func DefaultCatalog() *Catalog {
	return &Catalog{Venues: []Venue{
		{
			Name:      "Main Auditorium",
			Capacity:  600,
			Features:  []string{"projector", "microphone", "sound system", "stage lighting"},
			Location:  "Block A, Level 1",
			Strengths: []string{"Full AV support", "Tiered seating", "Green room access"},
		},
		{
			Name:      "Innovation Hall",
			Capacity:  320,
			Features:  []string{"projector", "sound system", "recording setup"},
			Location:  "Innovation Center",
			Strengths: []string{"Flexible seating", "Acoustic treatment", "Breakout pods"},
		},
		{
			Name:      "Lecture Theatre B",
			Capacity:  180,
			Features:  []string{"projector", "microphone"},
			Location:  "Academic Block 2",
			Strengths: []string{"Stepped seating", "Dual displays", "Easy campus access"},
		},
		{
			Name:      "Collaborative Studio",
			Capacity:  120,
			Features:  []string{"projector", "whiteboards", "conference audio"},
			Location:  "Learning Commons",
			Strengths: []string{"Modular furniture", "Workshop-ready", "Natural light"},
		},
		{
			Name:      "Outdoor Amphitheatre",
			Capacity:  400,
			Features:  []string{"sound system", "stage lighting"},
			Location:  "Central Courtyard",
			Strengths: []string{"Open-air ambience", "360 degree visibility", "Great for performances"},
		},
	}}
}

// Validate rejects catalogs that cannot produce a recommendation.
func (c *Catalog) Validate() error {
	if c == nil || len(c.Venues) == 0 {
		return errors.New("venue catalog is empty")
	}
	for i, v := range c.Venues {
		if strings.TrimSpace(v.Name) == "" {
			return fmt.Errorf("venue %d: name is required", i)
		}
		if v.Capacity <= 0 {
			return fmt.Errorf("venue %q: capacity must be positive", v.Name)
		}
	}
	return nil
}

// Request describes the event being planned.
type Request struct {
	ExpectedAttendance int    `json:"expected_attendance"`
	EquipmentNeeds     string `json:"equipment_needs"`
	HistoricalNotes    string `json:"historical_notes"`
}

// Recommendation is the best venue plus up to three alternatives.
type Recommendation struct {
	Venue      Venue         `json:"venue"`
	Rationale  string        `json:"rationale"`
	Checklist  []string      `json:"checklist"`
	Confidence string        `json:"confidence"`
	Alternates []Alternative `json:"alternatives"`
	Requested  []string      `json:"requested_equipment"`
}

// Alternative is a runner-up venue with a one-line reason.
type Alternative struct {
	Venue  Venue  `json:"venue"`
	Reason string `json:"reason"`
}

const (
	overflowPenalty       = 500
	missingFeaturePenalty = 80
	maxAlternatives       = 3
)

type candidate struct {
	venue   Venue
	gap     int
	fits    bool
	matched []string
	missing []string
	score   int
}

var nonKeyword = regexp.MustCompile(`[^a-z0-9\s,]`)

func keywords(text string) []string {
	text = nonKeyword.ReplaceAllString(strings.ToLower(text), " ")
	seen := make(map[string]bool)
	var out []string
	for _, w := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	}) {
		if !seen[w] {
			seen[w] = true
			out = append(out, w)
		}
	}
	return out
}

// hasFeature matches a keyword against a whole feature name or any word in it,
// so "sound" matches "sound system".
func hasFeature(v Venue, keyword string) bool {
	for _, f := range v.Features {
		f = strings.ToLower(f)
		if f == keyword {
			return true
		}
		for _, w := range strings.Fields(f) {
			if w == keyword {
				return true
			}
		}
	}
	return false
}

// Recommend scores every venue in c and returns the lowest-scoring one.
// A venue that fits scores its spare seats; one that does not fit scores its
// shortfall plus a fixed penalty. Each requested feature it lacks adds a
// further penalty. Ties keep catalog order.
func (c *Catalog) Recommend(req Request) (*Recommendation, error) {
	if req.ExpectedAttendance <= 0 {
		return nil, ErrInvalidAttendance
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	want := keywords(req.EquipmentNeeds)
	candidates := make([]candidate, 0, len(c.Venues))
	for _, v := range c.Venues {
		cand := candidate{venue: v, gap: v.Capacity - req.ExpectedAttendance}
		cand.fits = cand.gap >= 0
		for _, k := range want {
			if hasFeature(v, k) {
				cand.matched = append(cand.matched, k)
			} else {
				cand.missing = append(cand.missing, k)
			}
		}
		if cand.fits {
			cand.score = cand.gap
		} else {
			cand.score = -cand.gap + overflowPenalty
		}
		cand.score += len(cand.missing) * missingFeaturePenalty
		candidates = append(candidates, cand)
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score < candidates[j].score })

	best := candidates[0]
	rec := &Recommendation{
		Venue:      best.venue,
		Rationale:  rationale(best, req),
		Checklist:  checklist(best, req.ExpectedAttendance),
		Confidence: confidence(best, req.ExpectedAttendance),
		Requested:  want,
	}
	if rec.Requested == nil {
		rec.Requested = []string{}
	}
	for _, alt := range candidates[1:min(len(candidates), 1+maxAlternatives)] {
		rec.Alternates = append(rec.Alternates, Alternative{Venue: alt.venue, Reason: reason(alt, req.ExpectedAttendance)})
	}
	return rec, nil
}

func confidence(c candidate, attendance int) string {
	switch {
	case !c.fits:
		return "exploratory"
	case float64(c.gap) < float64(attendance)*0.15:
		return "high"
	case float64(c.gap) < float64(attendance)*0.35:
		return "medium"
	default:
		return "exploratory"
	}
}

func rationale(c candidate, req Request) string {
	parts := []string{}
	if c.fits {
		parts = append(parts, fmt.Sprintf("%s seats up to %d guests, which covers your expected turnout of %d.",
			c.venue.Name, c.venue.Capacity, req.ExpectedAttendance))
	} else {
		parts = append(parts, fmt.Sprintf("%s seats up to %d guests, %d short of your expected turnout of %d.",
			c.venue.Name, c.venue.Capacity, -c.gap, req.ExpectedAttendance))
	}

	needs := ""
	if req.EquipmentNeeds != "" {
		needs = fmt.Sprintf(" (%s)", req.EquipmentNeeds)
	}
	if len(c.matched) > 0 {
		parts = append(parts, fmt.Sprintf("It already includes %s, matching the equipment you requested%s.",
			strings.Join(c.matched, ", "), needs))
	} else {
		parts = append(parts, fmt.Sprintf("It offers core AV infrastructure and can take additional rentals%s.", needs))
	}

	if notes := strings.TrimSpace(req.HistoricalNotes); notes != "" {
		parts = append(parts, fmt.Sprintf("Given your note %q, this space gives more room and better facilities.", notes))
	}
	return strings.Join(parts, " ")
}

func checklist(c candidate, attendance int) []string {
	equipment := "Existing AV setup covers the requested equipment."
	if len(c.missing) > 0 {
		equipment = fmt.Sprintf("Arrange rentals for: %s.", strings.Join(c.missing, ", "))
	}
	return []string{
		equipment,
		fmt.Sprintf("Plan seating for approximately %d participants with %d spare seats.", attendance, max(c.gap, 0)),
		fmt.Sprintf("Confirm availability of %s and schedule setup access at least 2 hours prior.", c.venue.Location),
	}
}

func reason(c candidate, attendance int) string {
	if !c.fits {
		return fmt.Sprintf("Would require limiting attendees by %d or arranging overflow seating.", -c.gap)
	}
	r := fmt.Sprintf("Works for %d attendees with %d seats to spare", attendance, c.gap)
	if len(c.matched) > 0 {
		r += ", offers " + strings.Join(c.matched, ", ")
	}
	return r + "."
}
