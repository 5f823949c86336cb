package quill

import "strings"

// ActivityStreams 1.0 schema prefix. Legacy rows may carry either the full
// URI or the bare relative form, so every verb lookup has to match both.
const VerbSchemaBase = "http://activitystrea.ms/schema/1.0/"

const (
	VerbPost     = VerbSchemaBase + "post"
	VerbDelete   = VerbSchemaBase + "delete"
	VerbShare    = VerbSchemaBase + "share"
	VerbFavorite = VerbSchemaBase + "favorite"
	VerbJoin     = VerbSchemaBase + "join"
	VerbLeave    = VerbSchemaBase + "leave"
)

// RelativeVerb strips the schema prefix from an absolute verb URI.
// Verbs already in relative form pass through unchanged.
func RelativeVerb(verb string) string {
	return strings.TrimPrefix(verb, VerbSchemaBase)
}

// AbsoluteVerb expands a relative verb to its full schema URI.
func AbsoluteVerb(verb string) string {
	if strings.HasPrefix(verb, VerbSchemaBase) {
		return verb
	}
	return VerbSchemaBase + verb
}

// VerbFilter maps verbs to include (true) or exclude (false).
type VerbFilter map[string]bool

// DefaultVerbFilter includes plain posts and excludes deletion tombstones.
func DefaultVerbFilter() VerbFilter {
	return VerbFilter{
		VerbPost:   true,
		VerbDelete: false,
	}
}

// Expand returns the filter with every verb present in both absolute and
// relative form, so predicates built from it survive storage inconsistency.
func (f VerbFilter) Expand() VerbFilter {
	out := make(VerbFilter, len(f)*2)
	for verb, include := range f {
		out[AbsoluteVerb(verb)] = include
		out[RelativeVerb(verb)] = include
	}
	return out
}

// Partition splits an expanded filter into included and excluded verb lists.
// Both lists may be non-empty at the same time.
func (f VerbFilter) Partition() (included, excluded []string) {
	for verb, include := range f.Expand() {
		if include {
			included = append(included, verb)
		} else {
			excluded = append(excluded, verb)
		}
	}
	return included, excluded
}
