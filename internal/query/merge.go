package query

import "go.mongodb.org/mongo-driver/bson"

// Merge combines a repository's base fragment with a caller-supplied
// override. Neither input is mutated.
//
// Rules:
//   - map-valued fields (match, group) deep-merge key by key, override
//     winning on conflicts;
//   - array-valued fields (unwindFirst, lookup, unwind, project, and any
//     array nested inside a map) are replaced wholesale, never
//     concatenated, so repeated queries cannot accumulate stale stages;
//   - an empty override sort keeps the base sort; a non-empty one
//     replaces it entirely (sort keys are never partially merged);
//   - zero skip/limit leave the base values in place.
//
// An empty override therefore can never drop a base filter such as the
// soft-delete exclusion.
func Merge(base, override Aggregation) Aggregation {
	merged := Aggregation{
		UnwindFirst: cloneStrings(base.UnwindFirst),
		Lookup:      cloneLookups(base.Lookup),
		Match:       mergeMaps(base.Match, override.Match),
		Unwind:      cloneStrings(base.Unwind),
		Group:       mergeMaps(base.Group, override.Group),
		Sort:        cloneSort(base.Sort),
		Skip:        base.Skip,
		Limit:       base.Limit,
		Project:     cloneProjects(base.Project),
	}

	if override.UnwindFirst != nil {
		merged.UnwindFirst = cloneStrings(override.UnwindFirst)
	}
	if override.Lookup != nil {
		merged.Lookup = cloneLookups(override.Lookup)
	}
	if override.Unwind != nil {
		merged.Unwind = cloneStrings(override.Unwind)
	}
	if override.Project != nil {
		merged.Project = cloneProjects(override.Project)
	}
	if len(override.Sort) > 0 {
		merged.Sort = cloneSort(override.Sort)
	}
	if override.Skip > 0 {
		merged.Skip = override.Skip
	}
	if override.Limit > 0 {
		merged.Limit = override.Limit
	}

	return merged
}

// mergeMaps deep-merges override into a copy of base. Nested maps
// recurse; nested arrays are replaced by a copy of the override value.
func mergeMaps(base, override bson.M) bson.M {
	if base == nil && override == nil {
		return nil
	}
	out := bson.M{}
	for k, v := range base {
		out[k] = cloneValue(v)
	}
	for k, v := range override {
		existing, ok := out[k]
		if ok {
			baseMap, baseIsMap := asMap(existing)
			overrideMap, overrideIsMap := asMap(v)
			if baseIsMap && overrideIsMap {
				out[k] = mergeMaps(baseMap, overrideMap)
				continue
			}
		}
		out[k] = cloneValue(v)
	}
	return out
}

func asMap(v any) (bson.M, bool) {
	switch m := v.(type) {
	case bson.M:
		return m, true
	case map[string]any:
		return bson.M(m), true
	default:
		return nil, false
	}
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case bson.M:
		return mergeMaps(t, nil)
	case map[string]any:
		return mergeMaps(bson.M(t), nil)
	case bson.A:
		out := make(bson.A, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneLookups(in []Lookup) []Lookup {
	if in == nil {
		return nil
	}
	out := make([]Lookup, len(in))
	copy(out, in)
	return out
}

func cloneSort(in bson.D) bson.D {
	if in == nil {
		return nil
	}
	out := make(bson.D, len(in))
	copy(out, in)
	return out
}

func cloneProjects(in []bson.M) []bson.M {
	if in == nil {
		return nil
	}
	out := make([]bson.M, len(in))
	for i, p := range in {
		out[i] = mergeMaps(p, nil)
	}
	return out
}
