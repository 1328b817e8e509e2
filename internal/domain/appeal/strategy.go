package appeal

import (
	"fmt"

	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/comps"
	"github.com/RandyVollrath/ticketlesschicago-sub000/internal/domain/property"
)

// Gate names, in evaluation order.  Each gate can force do_not_file
// regardless of case strength; the first firing gate supplies the main
// reason, and every firing gate is listed so the outcome is auditable
// gate-by-gate.
const (
	GateBothCasesWeak         = "both_cases_weak"
	GatePoorComparableQuality = "poor_comparable_quality"
	GateBelowDollarFloor      = "below_dollar_floor"
)

// ─────────────────────────────────────────────────────────────────────────────
// Gate table
// ─────────────────────────────────────────────────────────────────────────────

// gateInput carries everything a gate predicate may inspect.
type gateInput struct {
	mv       MarketValueCase
	uni      UniformityCase
	quality  comps.Quality
	selected selection
	opts     Options
}

type gate struct {
	name  string
	fires func(gateInput) (bool, string)
}

// strategyGates returns the ordered hard-stop table.
func strategyGates() []gate {
	return []gate{
		{
			name: GateBothCasesWeak,
			fires: func(in gateInput) (bool, string) {
				if in.mv.Strength == StrengthWeak && in.uni.Strength == StrengthWeak {
					return true, "neither the market-value nor the uniformity case is filable"
				}
				return false, ""
			},
		},
		{
			name: GatePoorComparableQuality,
			fires: func(in gateInput) (bool, string) {
				if in.quality.IsPoor() && in.mv.Strength != StrengthStrong && in.uni.Strength != StrengthStrong {
					return true, "comparable quality is poor and neither case is strong enough to overcome it"
				}
				return false, ""
			},
		},
		{
			name: GateBelowDollarFloor,
			fires: func(in gateInput) (bool, string) {
				if in.selected.reduction < in.opts.MinDollarFloor {
					return true, fmt.Sprintf("the $%.0f reduction at stake is below the $%.0f filing floor",
						in.selected.reduction, in.opts.MinDollarFloor)
				}
				return false, ""
			},
		},
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Case selection
// ─────────────────────────────────────────────────────────────────────────────

// caseView is the strategy-relevant projection of either case type.
type caseView struct {
	primary      PrimaryCase
	soloStrategy Strategy
	strength     Strength
	target       float64
	reduction    float64
	confidence   float64
	riskFlags    []string
}

func viewMV(mv MarketValueCase) caseView {
	return caseView{
		primary:      PrimaryMarketValue,
		soloStrategy: StrategyFileMV,
		strength:     mv.Strength,
		target:       mv.TargetValue,
		reduction:    mv.PotentialReduction,
		confidence:   mv.Confidence,
		riskFlags:    mv.RiskFlags,
	}
}

func viewUNI(uni UniformityCase) caseView {
	return caseView{
		primary:      PrimaryUniformity,
		soloStrategy: StrategyFileUNI,
		strength:     uni.Strength,
		target:       uni.TargetValue,
		reduction:    uni.PotentialReduction,
		confidence:   uni.Confidence,
		riskFlags:    uni.RiskFlags,
	}
}

// selection is the would-be filing before the gates have their say.
type selection struct {
	strategy   Strategy
	primary    PrimaryCase
	target     float64
	reduction  float64
	confidence float64
	reasons    []string
	riskFlags  []string
}

// chooseCases picks which case(s) to file assuming no gate fires.  Both
// strong files both with the larger reduction primary; exactly one strong
// files that case alone; otherwise the higher-confidence non-weak case files
// alone (two moderate arguments would dilute a board hearing).  Ties prefer
// the market-value case, which boards weigh more readily.
func chooseCases(mv MarketValueCase, uni UniformityCase) selection {
	m, u := viewMV(mv), viewUNI(uni)

	if m.strength == StrengthStrong && u.strength == StrengthStrong {
		prim := m
		if u.reduction > m.reduction {
			prim = u
		}
		return selection{
			strategy:   StrategyFileBoth,
			primary:    prim.primary,
			target:     prim.target,
			reduction:  prim.reduction,
			confidence: prim.confidence,
			reasons: []string{
				fmt.Sprintf("both cases are strong; filing both with the %s case primary", caseLabel(prim.primary)),
			},
			riskFlags: mergeFlags(m.riskFlags, u.riskFlags),
		}
	}

	if m.strength == StrengthStrong || u.strength == StrengthStrong {
		prim, other := m, u
		if u.strength == StrengthStrong {
			prim, other = u, m
		}
		return selection{
			strategy:   prim.soloStrategy,
			primary:    prim.primary,
			target:     prim.target,
			reduction:  prim.reduction,
			confidence: prim.confidence,
			reasons: []string{
				fmt.Sprintf("the %s case is strong (confidence %.2f)", caseLabel(prim.primary), prim.confidence),
				fmt.Sprintf("the %s case is %s and is not filed", caseLabel(other.primary), other.strength),
			},
			riskFlags: prim.riskFlags,
		}
	}

	// Neither strong: file the higher-confidence non-weak case alone.  When
	// both are weak the gates force do_not_file, but the floor gate still
	// needs a best-available reduction to judge, so fall through to the
	// market-value view.
	prim, other := m, u
	switch {
	case m.strength == StrengthWeak && u.strength != StrengthWeak:
		prim, other = u, m
	case m.strength != StrengthWeak && u.strength != StrengthWeak && u.confidence > m.confidence:
		prim, other = u, m
	}
	return selection{
		strategy:   prim.soloStrategy,
		primary:    prim.primary,
		target:     prim.target,
		reduction:  prim.reduction,
		confidence: prim.confidence,
		reasons: []string{
			fmt.Sprintf("neither case is strong; the %s case files alone on higher confidence (%.2f vs %.2f)",
				caseLabel(prim.primary), prim.confidence, other.confidence),
		},
		riskFlags: prim.riskFlags,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Decision
// ─────────────────────────────────────────────────────────────────────────────

// DecideStrategy combines the two cases and the comparable quality into a
// filing recommendation.  The gate table runs first; if any gate fires the
// decision is do_not_file with a synthesized explanation, otherwise the
// selected case(s) are filed with the primary case's numbers and a
// quality-discounted confidence.
func DecideStrategy(mv MarketValueCase, uni UniformityCase, quality comps.Quality, subject property.Record, opts Options, th Thresholds) (StrategyDecision, *NoAppealExplanation) {
	sel := chooseCases(mv, uni)
	in := gateInput{mv: mv, uni: uni, quality: quality, selected: sel, opts: opts}

	var (
		fired       []string
		gateReasons []string
	)
	for _, g := range strategyGates() {
		if ok, reason := g.fires(in); ok {
			fired = append(fired, g.name)
			gateReasons = append(gateReasons, reason)
		}
	}

	if len(fired) > 0 {
		d := StrategyDecision{
			Strategy:         StrategyDoNotFile,
			PrimaryCase:      PrimaryNone,
			Reasons:          gateReasons,
			TargetValue:      subject.AssessedValue,
			EstimatedSavings: 0,
			RiskFlags:        mergeFlags(mv.RiskFlags, uni.RiskFlags),
			GatesFired:       fired,
			Confidence:       0,
		}
		d.Summary = summarize(d)
		expl := buildNoAppealExplanation(gateReasons[0], fired, in, th)
		return d, &expl
	}

	discount := th.QualityDiscounts.For(quality.Assessment)
	savings := EstimatedAnnualSavings(sel.reduction, th)

	reasons := append([]string{}, sel.reasons...)
	if discount < 1 {
		reasons = append(reasons,
			fmt.Sprintf("comparable quality is %s; confidence discounted by ×%.2f", quality.Assessment, discount))
	} else {
		reasons = append(reasons,
			fmt.Sprintf("comparable quality is %s; no confidence discount applied", quality.Assessment))
	}
	reasons = append(reasons,
		fmt.Sprintf("the $%.0f reduction at stake clears the $%.0f filing floor", sel.reduction, opts.MinDollarFloor))

	d := StrategyDecision{
		Strategy:         sel.strategy,
		PrimaryCase:      sel.primary,
		Reasons:          reasons,
		TargetValue:      sel.target,
		EstimatedSavings: savings,
		RiskFlags:        sel.riskFlags,
		GatesFired:       []string{},
		Confidence:       clamp01(sel.confidence * discount),
	}
	d.Summary = summarize(d)
	return d, nil
}

// EstimatedAnnualSavings converts an assessed-value reduction into yearly
// tax dollars using the jurisdiction constants.
//
// Formula:
//
//	reduction × StateEqualizer × EffectiveTaxRate
func EstimatedAnnualSavings(reduction float64, th Thresholds) float64 {
	if reduction <= 0 {
		return 0
	}
	return reduction * th.StateEqualizer * th.EffectiveTaxRate
}

// summarize renders the one-line human summary purely from the structured
// decision fields, so rendered text can never disagree with the numbers.
func summarize(d StrategyDecision) string {
	switch d.Strategy {
	case StrategyDoNotFile:
		if len(d.Reasons) > 0 {
			return fmt.Sprintf("Do not file: %s.", d.Reasons[0])
		}
		return "Do not file."
	case StrategyFileBoth:
		return fmt.Sprintf("File both cases with the %s case primary, targeting an assessment of $%.0f for about $%.0f in annual savings.",
			caseLabel(d.PrimaryCase), d.TargetValue, d.EstimatedSavings)
	default:
		return fmt.Sprintf("File a %s appeal targeting an assessment of $%.0f for about $%.0f in annual savings.",
			caseLabel(d.PrimaryCase), d.TargetValue, d.EstimatedSavings)
	}
}

func caseLabel(p PrimaryCase) string {
	switch p {
	case PrimaryMarketValue:
		return "market-value"
	case PrimaryUniformity:
		return "uniformity"
	default:
		return "no"
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// No-appeal explanation
// ─────────────────────────────────────────────────────────────────────────────

// buildNoAppealExplanation synthesizes the do-not-file story: the dominant
// gate supplies the main reason, the observed evidence gaps become
// impact-tagged factors, and each gap drives a concrete suggestion.
func buildNoAppealExplanation(mainReason string, fired []string, in gateInput, th Thresholds) NoAppealExplanation {
	expl := NoAppealExplanation{
		MainReason:  mainReason,
		Factors:     []Factor{},
		Suggestions: []string{},
	}

	firedSet := make(map[string]bool, len(fired))
	for _, name := range fired {
		firedSet[name] = true
	}

	if firedSet[GateBothCasesWeak] {
		expl.Factors = append(expl.Factors, Factor{
			Description: "neither valuation theory produced a filable case",
			Impact:      ImpactHigh,
		})
	}
	if firedSet[GatePoorComparableQuality] {
		expl.Factors = append(expl.Factors, Factor{
			Description: fmt.Sprintf("comparable set quality is poor (score %.0f)", in.quality.Score),
			Impact:      ImpactHigh,
		})
	}
	if firedSet[GateBelowDollarFloor] {
		expl.Factors = append(expl.Factors, Factor{
			Description: fmt.Sprintf("the best available reduction is $%.0f, below the $%.0f filing floor",
				in.selected.reduction, in.opts.MinDollarFloor),
			Impact: ImpactHigh,
		})
	}

	shortOfComps := len(in.quality.Comparables) < th.MinUsableComps
	if shortOfComps {
		expl.Factors = append(expl.Factors, Factor{
			Description: fmt.Sprintf("only %d usable comparables were found", len(in.quality.Comparables)),
			Impact:      ImpactHigh,
		})
	}
	if in.mv.Sales.SaleCount == 0 {
		expl.Factors = append(expl.Factors, Factor{
			Description: "no recent arms-length sales among the comparables",
			Impact:      ImpactMedium,
		})
	}
	if in.quality.Breakdown.MissingDataPct > 30 {
		expl.Factors = append(expl.Factors, Factor{
			Description: fmt.Sprintf("%.0f%% of comparables are missing key attributes", in.quality.Breakdown.MissingDataPct),
			Impact:      ImpactMedium,
		})
	}
	highDispersion := in.uni.CoefficientOfDispersion > th.UNIMaxCODForModerate
	if highDispersion {
		expl.Factors = append(expl.Factors, Factor{
			Description: fmt.Sprintf("assessment dispersion of %.1f%% undermines uniformity evidence", in.uni.CoefficientOfDispersion),
			Impact:      ImpactMedium,
		})
	}

	if in.mv.Sales.SaleCount == 0 {
		expl.Suggestions = append(expl.Suggestions,
			"a recent arms-length sale among nearby properties would strengthen a market-value case")
	}
	if shortOfComps {
		expl.Suggestions = append(expl.Suggestions,
			"widen the search radius or relax filters to find more comparables")
	}
	if in.quality.Breakdown.MissingDataPct > 30 {
		expl.Suggestions = append(expl.Suggestions,
			"re-run the analysis when comparable records include square footage and year built")
	}
	if highDispersion {
		expl.Suggestions = append(expl.Suggestions,
			"wait for the next reassessment cycle if dispersion stays this high")
	}
	if len(expl.Suggestions) == 0 {
		expl.Suggestions = append(expl.Suggestions,
			"monitor next year's assessment notice and re-run the analysis")
	}

	return expl
}

// mergeFlags concatenates flag lists preserving first-seen order and
// dropping duplicates.
func mergeFlags(lists ...[]string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, list := range lists {
		for _, f := range list {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	return out
}
