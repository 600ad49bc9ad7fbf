// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package planner implements C4 (spec.md §4.4): transforms external
// phrases into runtime cards and builds the synthesis plan the cache
// populator consumes. Grounded on the teacher's factory-by-policy shape
// (api/assistant-api/internal/assembler/text/assembler.go's GetLLMTextAssembler
// switch), generalized here into a (role, language, interval-validity) →
// strategy-set policy table instead of a single named implementation.
package planner

import (
	"fmt"
	"strings"

	"github.com/rapidaai/langtrack/internal/model"
	"github.com/rapidaai/langtrack/internal/normalizers"
	"github.com/rapidaai/langtrack/pkg/commons"
)

// PolicyKey identifies one policy table entry.
type PolicyKey struct {
	Role           model.Role
	Language       string
	IntervalValid  bool
}

// PolicyCallback resolves the set of strategies a segment should request,
// keyed on (role, language, interval-validity) (spec.md §4.4).
type PolicyCallback func(role model.Role, language model.Language, intervalValid bool) []model.Strategy

// DefaultPolicy is the reference behavior's table: FileCut when the
// interval is valid, else BatchCloud with a SingleCloud fallback for
// Description subgroups (which are typically short and synthesized once).
func DefaultPolicy(role model.Role, language model.Language, intervalValid bool) []model.Strategy {
	if role == model.RoleOriginal && intervalValid {
		return []model.Strategy{model.StrategyFileCut}
	}
	if role == model.RoleDescription {
		return []model.Strategy{model.StrategySingleCloud}
	}
	return []model.Strategy{model.StrategyBatchCloud}
}

// Options configures a Planner (spec.md §6 fields relevant to planning).
type Options struct {
	DefaultLanguage  model.Language
	AllowTranslation bool
	RatePerLanguage  map[string]string
	Policy           PolicyCallback
}

// Plan maps (language, strategy) to the ordered segments requesting it
// (spec.md §3 "Plan").
type Plan map[PlanKey][]*model.Segment

// PlanKey is a (language, strategy) plan bucket.
type PlanKey struct {
	LanguageTag string
	Strategy    model.Strategy
}

// Planner turns phrases into cards and a synthesis plan.
type Planner struct {
	logger  commons.Logger
	opts    Options
	Warnings []string
}

func New(logger commons.Logger, opts Options) *Planner {
	if opts.Policy == nil {
		opts.Policy = DefaultPolicy
	}
	return &Planner{logger: logger, opts: opts}
}

// BuildCards converts a phrase list into cards and the accompanying plan.
func (p *Planner) BuildCards(phrases []model.Phrase) ([]*model.Card, Plan) {
	plan := make(Plan)
	cards := make([]*model.Card, 0, len(phrases))
	for _, phrase := range phrases {
		card := p.buildCard(phrase, plan)
		cards = append(cards, card)
	}
	return cards, plan
}

func (p *Planner) buildCard(phrase model.Phrase, plan Plan) *model.Card {
	card := &model.Card{IsDescription: phrase.Kind == model.PhraseDescription}

	if phrase.Kind == model.PhraseDescription {
		sg := p.buildTextSubgroup(model.RoleDescription, phrase.Description, plan, model.SubtitleInterval{})
		if sg != nil {
			card.Subgroups = append(card.Subgroups, sg)
		}
		return card
	}

	// Pair phrase: Original, then optional Translation.
	originalSg := p.buildTextSubgroup(model.RoleOriginal, phrase.Original, plan, phrase.Interval)
	if originalSg != nil {
		card.Subgroups = append(card.Subgroups, originalSg)
	}

	if !p.opts.AllowTranslation {
		return card
	}

	if !phrase.HasTranslation || strings.TrimSpace(phrase.Translation) == "" {
		p.warnf("phrase has no translation; inserting empty translation subgroup")
		card.Subgroups = append(card.Subgroups, &model.Subgroup{
			Role:  model.RoleTranslation,
			Pause: model.PausePolicy{Kind: model.PauseFixed, FixedSec: 0},
		})
		return card
	}

	translationSg := p.buildTextSubgroup(model.RoleTranslation, phrase.Translation, plan, model.SubtitleInterval{})
	if translationSg != nil {
		card.Subgroups = append(card.Subgroups, translationSg)
	}
	return card
}

// buildTextSubgroup splits text on the pipe separator into segments,
// resolves per-split language overrides, normalizes, and registers each
// segment's requested strategies in the plan.
func (p *Planner) buildTextSubgroup(role model.Role, text string, plan Plan, interval model.SubtitleInterval) *model.Subgroup {
	parts := splitPipeSeparated(text)
	if len(parts) == 0 {
		return nil
	}

	sg := &model.Subgroup{
		Role: role,
		Pause: model.PausePolicy{
			Kind:       model.PauseDynamic,
			IsOriginal: role == model.RoleOriginal,
		},
	}

	var captionParts []string
	for i, raw := range parts {
		lang, body := resolveLanguagePrefix(raw, p.opts.DefaultLanguage)
		if strings.TrimSpace(body) == "" {
			continue
		}
		normalized := normalizers.NewPipeline(p.logger, lang.Tag).Normalize(body)
		captionParts = append(captionParts, normalized)

		seg := &model.Segment{
			Text:     normalized,
			Language: lang,
			Silent:   normalizers.IsSilent(normalized),
		}

		// Only the first split of the Original subgroup can carry the
		// phrase's subtitle interval (the interval describes the whole
		// original utterance, not a per-split slice).
		segInterval := model.SubtitleInterval{}
		if role == model.RoleOriginal && i == 0 {
			segInterval = interval
		}

		if seg.Silent {
			addSegment(sg, seg)
			continue
		}

		strategies := p.opts.Policy(role, lang, segInterval.Valid())
		for _, strat := range strategies {
			v := &model.SegmentVariant{Strategy: strat, RatePercent: p.rateFor(lang)}
			if strat == model.StrategyFileCut {
				if !segInterval.Valid() {
					continue
				}
				v.FileKey = segInterval.FileKey
				v.StartTimeSec = segInterval.StartSec
				v.EndTimeSec = segInterval.EndSec
			}
			seg.AddVariant(v)
			key := PlanKey{LanguageTag: lang.Tag, Strategy: strat}
			plan[key] = append(plan[key], seg)
		}
		addSegment(sg, seg)
	}

	sg.CaptionText = strings.Join(captionParts, " ")
	return sg
}

func addSegment(sg *model.Subgroup, seg *model.Segment) {
	sg.Segments = append(sg.Segments, seg)
}

func (p *Planner) rateFor(lang model.Language) string {
	if p.opts.RatePerLanguage == nil {
		return "100%"
	}
	if r, ok := p.opts.RatePerLanguage[lang.Tag]; ok {
		return r
	}
	return "100%"
}

func (p *Planner) warnf(format string, args ...interface{}) {
	p.logger.Warnf(format, args...)
	p.Warnings = append(p.Warnings, sprintfWarning(format, args...))
}

func sprintfWarning(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
