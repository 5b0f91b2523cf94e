package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"genengine/internal/domain"
)

// Ranking is pure and local: it reads the request context, never the
// network. Hybrid hedges between the top two concrete candidates, so it only
// earns its extra cost when those two are nearly tied.
const (
	hybridCloseMargin  = 0.75
	hybridHedgeBonus   = 1.0
	hybridSplitPenalty = 0.5
)

// rankCandidates scores every routable strategy against the request context
// and explains the scores with a reasoning trace.
func rankCandidates(c domain.RequestContext) (map[string]float64, []string) {
	var reasons []string
	priors := len(c.PriorOutputs)
	richness := c.Richness()

	pb := 1.0
	if c.AvoidRepetition {
		pb += 3.0
		reasons = append(reasons, fmt.Sprintf("caller requires avoiding prior outputs (%d on record)", priors))
	}
	pb += 0.5 * math.Min(float64(priors), 4)

	te := 2.0
	if richness <= 3 {
		te += 1.5
		reasons = append(reasons, fmt.Sprintf("thin context (richness %d) raises the template-phrasing risk", richness))
	}
	if priors > 0 && !c.AvoidRepetition {
		te += 0.5
	}

	orc := 1.5 + 0.35*math.Min(float64(richness), 8)
	if richness > 3 {
		reasons = append(reasons, fmt.Sprintf("context richness %d favors the orchestrated strategy", richness))
	}

	scores := map[string]float64{
		NamePatternBreaking:     pb,
		NameTemplateElimination: te,
		NameOrchestrated:        orc,
	}

	first, second := topTwoNames(scores)
	hybrid := (scores[first] + scores[second]) / 2
	if scores[first]-scores[second] < hybridCloseMargin {
		hybrid += hybridHedgeBonus
		reasons = append(reasons, fmt.Sprintf("%s and %s are nearly tied; hybrid hedges between them", first, second))
	} else {
		hybrid -= hybridSplitPenalty
	}
	scores[NameHybrid] = hybrid

	return scores, reasons
}

// topTwoNames orders strategies by score descending with name order breaking
// ties, so routing is deterministic for identical contexts. Hybrid itself is
// excluded: it is a combination, not a candidate for its own slots.
func topTwoNames(scores map[string]float64) (string, string) {
	names := make([]string, 0, len(scores))
	for name := range scores {
		if name == NameHybrid {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if scores[names[i]] != scores[names[j]] {
			return scores[names[i]] > scores[names[j]]
		}
		return names[i] < names[j]
	})
	switch len(names) {
	case 0:
		return "", ""
	case 1:
		return names[0], ""
	}
	return names[0], names[1]
}

// Caption budgets by platform, used by the alignment dimension. Values follow
// the published per-platform caption limits; unknown platforms get a middle
// ground.
var platformCaptionBudget = map[string]int{
	"instagram": 2200,
	"tiktok":    2200,
	"facebook":  5000,
	"linkedin":  3000,
	"twitter":   280,
	"x":         280,
}

const defaultCaptionBudget = 2000

// scoreContent computes the composite-ranking dimensions for produced
// content, each 0..10. Everything here is token arithmetic over strings the
// engine already holds; no evaluator call is involved.
func scoreContent(c domain.RequestContext, content *Content) ContentScores {
	text := contentTokens(content)

	signals := tokenize(strings.Join([]string{
		c.BusinessName, c.BusinessType, strings.Join(c.Keywords, " "),
	}, " "))
	relevance := 5.0
	if len(signals) > 0 {
		matched := 0
		for token := range signals {
			if _, ok := text[token]; ok {
				matched++
			}
		}
		relevance = 10 * float64(matched) / float64(len(signals))
	}

	maxSim := 0.0
	for _, prior := range c.PriorOutputs {
		if sim := jaccard(text, tokenize(prior)); sim > maxSim {
			maxSim = sim
		}
	}
	uniqueness := 10 * (1 - maxSim)

	alignment := 5.0
	if anyTokenIn(text, tokenize(c.Tone)) || strings.TrimSpace(c.Tone) == "" {
		alignment += 2.5
	}
	budget := defaultCaptionBudget
	if b, ok := platformCaptionBudget[strings.ToLower(c.Platform)]; ok {
		budget = b
	}
	if len(content.Caption) > 0 && len(content.Caption) <= budget {
		alignment += 2.5
	}

	return ContentScores{
		Relevance:  clampTen(relevance),
		Uniqueness: clampTen(uniqueness),
		Alignment:  clampTen(alignment),
	}
}

func contentTokens(content *Content) map[string]struct{} {
	var sb strings.Builder
	sb.WriteString(content.Headline)
	sb.WriteString(" ")
	sb.WriteString(content.Caption)
	for _, tag := range content.Tags {
		sb.WriteString(" ")
		sb.WriteString(tag)
	}
	return tokenize(sb.String())
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping tokens
// too short to carry meaning.
func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, field := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(field) < 3 {
			continue
		}
		tokens[field] = struct{}{}
	}
	return tokens
}

func anyTokenIn(text, tokens map[string]struct{}) bool {
	for token := range tokens {
		if _, ok := text[token]; ok {
			return true
		}
	}
	return false
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for token := range a {
		if _, ok := b[token]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

func clampTen(v float64) float64 {
	return math.Max(0, math.Min(10, v))
}
