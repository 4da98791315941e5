package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/quintalabs/fieldplan/internal/domain"
)

// Narrative is the strict output schema the annotator must conform to.
// It is cosmetic enrichment for human display; a plan is fully valid
// without it.
type Narrative struct {
	Summary    string            `json:"summary"`
	Objectives []string          `json:"objectives"`
	DailyFocus map[string]string `json:"daily_focus,omitempty"`
}

// NarrativeService turns a finalized plan into free-text summaries.
type NarrativeService interface {
	Annotate(ctx context.Context, plan *domain.Plan) (*Narrative, error)
}

type narrativeService struct {
	client   Client
	observer Observer
}

func NewNarrativeService(client Client, observer Observer) NarrativeService {
	if observer == nil {
		observer = NoopObserver{}
	}
	return &narrativeService{client: client, observer: observer}
}

const narrativeSystemPrompt = `You are a field-sales planning assistant. You receive a compact JSON
description of a visit plan and respond with ONLY a JSON object matching:
{"summary": "...", "objectives": ["...."], "daily_focus": {"2026-01-05": "..."}}
Summary is 2-3 sentences. Objectives is 3-5 short bullet strings.
daily_focus is optional, keyed by date. No text outside the JSON object.`

func (s *narrativeService) Annotate(ctx context.Context, plan *domain.Plan) (*Narrative, error) {
	prompt := buildPlanPrompt(plan)

	resp, err := s.client.Generate(ctx, GenerateRequest{
		Task:         TaskNarrative,
		SystemPrompt: narrativeSystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return nil, err
	}

	narrative, err := ParseNarrative(resp.Text)
	if err != nil {
		return nil, err
	}
	return narrative, nil
}

// compactPlan is the abbreviated prompt encoding. Abbreviation lives
// only at this boundary; the core model keeps named fields.
type compactPlan struct {
	Agent  string            `json:"ag"`
	Period string            `json:"pd"`
	TgtV   int               `json:"tv"`
	TgtR   float64           `json:"tr"`
	TgtN   int               `json:"tn"`
	Areas  []string          `json:"fa"`
	Days   map[string]string `json:"dy"`
}

func buildPlanPrompt(plan *domain.Plan) string {
	cp := compactPlan{
		Agent:  plan.AgentID,
		Period: plan.Period.Key(),
		TgtV:   plan.Targets.Visits,
		TgtR:   plan.Targets.Revenue,
		TgtN:   plan.Targets.NBDVisits,
		Areas:  plan.FocusAreas,
		Days:   make(map[string]string, len(plan.Days)),
	}

	var dates []string
	for d := range plan.Days {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	for _, d := range dates {
		route := plan.Days[d]
		var codes []string
		for _, stop := range route.Stops {
			codes = append(codes, stop.Customer.Code)
		}
		cp.Days[d] = fmt.Sprintf("%d visits (%s)", route.TotalCustomers, strings.Join(codes, ","))
	}

	data, err := json.Marshal(cp)
	if err != nil {
		return "plan for agent " + plan.AgentID
	}
	return "Plan data:\n" + string(data)
}

// ParseNarrative extracts and validates the narrative JSON from raw
// model output, tolerating code fences and surrounding prose.
func ParseNarrative(raw string) (*Narrative, error) {
	jsonStr := extractJSONBlock(stripCodeFences(raw))
	if jsonStr == "" {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrInvalidOutput)
	}

	var n Narrative
	if err := json.Unmarshal([]byte(jsonStr), &n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	if strings.TrimSpace(n.Summary) == "" {
		return nil, fmt.Errorf("%w: empty summary", ErrInvalidOutput)
	}
	if len(n.Objectives) == 0 {
		return nil, fmt.Errorf("%w: no objectives", ErrInvalidOutput)
	}
	return &n, nil
}

// stripCodeFences removes markdown code fences around the payload.
func stripCodeFences(s string) string {
	lines := strings.Split(s, "\n")
	var result []string
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		result = append(result, line)
	}
	return strings.Join(result, "\n")
}

// extractJSONBlock finds the first balanced { ... } block in the text,
// respecting string literals and escapes.
func extractJSONBlock(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return ""
}
