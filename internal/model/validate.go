package model

import (
	"fmt"
	"math"
)

var (
	requiredTopLevel = []string{"version", "name", "description", "scoring_config", "pillars", "domains"}
	requiredScoring  = []string{"level_scores", "maturity_thresholds"}
	requiredPillar   = []string{"id", "name", "description", "weight"}
	requiredDomain   = []string{"id", "name", "description", "pillar"}
	requiredQuestion = []string{"id", "text", "question_type"}
)

// checkStructure validates the generic document shape: required keys,
// mapping/list kinds, pillar references and the exact level_1..level_5 set.
func checkStructure(doc map[string]any) Issues {
	var issues Issues
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	for _, key := range requiredTopLevel {
		if _, ok := doc[key]; !ok {
			add("missing required top-level key %q", key)
		}
	}

	if raw, ok := doc["scoring_config"]; ok {
		sc, ok := asMap(raw)
		if !ok {
			add("scoring_config should be a mapping")
		} else {
			for _, key := range requiredScoring {
				if _, ok := sc[key]; !ok {
					add("scoring_config missing %q", key)
				}
			}
		}
	}

	pillars := map[string]any{}
	if raw, ok := doc["pillars"]; ok {
		p, ok := asMap(raw)
		if !ok {
			add("pillars should be a mapping")
		} else {
			pillars = p
		}
	}
	for _, pid := range sortedKeys(pillars) {
		pdata, ok := asMap(pillars[pid])
		if !ok {
			add("pillars.%s should be a mapping", pid)
			continue
		}
		for _, field := range requiredPillar {
			if _, ok := pdata[field]; !ok {
				add("pillars.%s missing %q", pid, field)
			}
		}
	}

	domains := map[string]any{}
	if raw, ok := doc["domains"]; ok {
		d, ok := asMap(raw)
		if !ok {
			add("domains should be a mapping")
		} else {
			domains = d
		}
	}
	for _, did := range sortedKeys(domains) {
		prefix := "domains." + did
		ddata, ok := asMap(domains[did])
		if !ok {
			add("%s should be a mapping", prefix)
			continue
		}
		for _, field := range requiredDomain {
			if _, ok := ddata[field]; !ok {
				add("%s missing %q", prefix, field)
			}
		}
		if ref, ok := ddata["pillar"].(string); ok && ref != "" {
			if _, found := pillars[ref]; !found {
				add("%s.pillar %q not found in pillars", prefix, ref)
			}
		}

		levels, ok := asMap(ddata["levels"])
		if !ok {
			add("%s.levels should be a mapping of level_1..level_5", prefix)
		} else {
			for n := MinLevel; n <= MaxLevel; n++ {
				if _, found := levels[levelKey(n)]; !found {
					add("%s.levels missing %q", prefix, levelKey(n))
				}
			}
			for _, key := range sortedKeys(levels) {
				if !isLevelKey(key) {
					add("%s.levels has unexpected key %q", prefix, key)
				}
			}
		}

		if kc, ok := ddata["key_controls"]; ok && kc != nil {
			if _, isList := kc.([]any); !isList {
				add("%s.key_controls should be a list", prefix)
			}
		}
		if fa, ok := ddata["framework_alignment"]; ok && fa != nil {
			if _, isMap := asMap(fa); !isMap {
				add("%s.framework_alignment should be a mapping of framework to references", prefix)
			}
		}

		rawQuestions, ok := ddata["questions"]
		if !ok || rawQuestions == nil {
			continue
		}
		questions, ok := rawQuestions.([]any)
		if !ok {
			add("%s.questions should be a list", prefix)
			continue
		}
		for i, rq := range questions {
			qprefix := fmt.Sprintf("%s.questions[%d]", prefix, i+1)
			q, ok := asMap(rq)
			if !ok {
				add("%s should be a mapping", qprefix)
				continue
			}
			for _, field := range requiredQuestion {
				if _, ok := q[field]; !ok {
					add("%s missing %q", qprefix, field)
				}
			}
		}
	}
	return issues
}

// checkModel validates the typed model: ids, weights, level ordering,
// question types and thresholds.
func checkModel(m *Model) Issues {
	var issues Issues
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if len(m.Pillars) == 0 {
		add("model defines no pillars")
	}
	if len(m.Domains) == 0 {
		add("model defines no domains")
	}

	for _, key := range sortedKeys(m.Pillars) {
		p := m.Pillars[key]
		if p.ID != key {
			add("pillars.%s id %q does not match its key", key, p.ID)
		}
		if !validWeight(p.Weight) {
			add("pillars.%s weight must be positive, got %v", key, p.Weight)
		}
	}

	seenQuestions := map[string]string{}
	for _, key := range sortedKeys(m.Domains) {
		prefix := "domains." + key
		d := m.Domains[key]
		if d.ID != key {
			add("%s id %q does not match its key", prefix, d.ID)
		}
		if !validWeight(d.Weight) {
			add("%s weight must be positive, got %v", prefix, d.Weight)
		}
		if len(d.Levels) == MaxLevel {
			for i := 1; i < len(d.Levels); i++ {
				if d.Levels[i].ScoreValue < d.Levels[i-1].ScoreValue {
					add("%s level_%d score_value %v is lower than level_%d", prefix,
						d.Levels[i].Level, d.Levels[i].ScoreValue, d.Levels[i-1].Level)
				}
			}
		}

		for _, q := range d.Questions {
			qprefix := fmt.Sprintf("%s.questions[%s]", prefix, q.ID)
			if owner, dup := seenQuestions[q.ID]; dup {
				add("%s duplicates a question id already used in domains.%s", qprefix, owner)
			} else {
				seenQuestions[q.ID] = key
			}
			if !q.Type.Valid() {
				add("%s has unknown question_type %q", qprefix, q.Type)
				continue
			}
			if q.Type.HasOptions() && len(q.Options) == 0 {
				add("%s of type %s defines no options", qprefix, q.Type)
			}
			if !validWeight(q.Weight) {
				add("%s weight must be positive, got %v", qprefix, q.Weight)
			}
		}
	}

	if t := m.Scoring.MaturityThresholds; !t.IsZero() && !t.Descending() {
		add("scoring_config.maturity_thresholds must be strictly descending from optimizing to developing")
	}
	return issues
}

func validWeight(w float64) bool {
	return w > 0 && !math.IsInf(w, 0) && !math.IsNaN(w)
}

func isLevelKey(key string) bool {
	for n := MinLevel; n <= MaxLevel; n++ {
		if key == levelKey(n) {
			return true
		}
	}
	return false
}

// asMap accepts both decoded mapping shapes yaml.v3 can produce for an
// untyped target.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}
