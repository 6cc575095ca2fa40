package entity

import (
	"strings"
	"unicode"
)

const (
	relationshipExtensionKey = "x-relationships"

	relationshipTypeAttr       = "type"
	relationshipTargetAttr     = "target"
	relationshipCardAttr       = "cardinality"
	relationshipSourceAttr     = "sourceField"
	relationshipLabelFieldAttr = "labelField"
)

var relationshipKeyLookup = map[string]string{
	"type":        relationshipTypeAttr,
	"kind":        relationshipTypeAttr,
	"target":      relationshipTargetAttr,
	"cardinality": relationshipCardAttr,
	"sourcefield": relationshipSourceAttr,
	"source":      relationshipSourceAttr,
	"labelfield":  relationshipLabelFieldAttr,
	"label":       relationshipLabelFieldAttr,
}

// relationshipFromExtensions builds a Relationship from the x-relationships
// extension of a schema property. It returns nil when the extension is
// absent, the kind is unknown, or no target collection is named.
func relationshipFromExtensions(ext map[string]any) *Relationship {
	raw, ok := ext[relationshipExtensionKey].(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}

	attrs := make(map[string]string, len(raw))
	for key, value := range raw {
		canonical, ok := relationshipKeyLookup[normaliseKey(key)]
		if !ok {
			continue
		}
		if str, ok := value.(string); ok && strings.TrimSpace(str) != "" {
			attrs[canonical] = strings.TrimSpace(str)
		}
	}

	kind, ok := normalizeRelationshipKind(attrs[relationshipTypeAttr])
	if !ok {
		return nil
	}
	target := attrs[relationshipTargetAttr]
	if target == "" {
		return nil
	}

	cardinality := strings.ToLower(attrs[relationshipCardAttr])
	if cardinality == "" {
		cardinality = deriveCardinality(kind)
	}

	return &Relationship{
		Kind:        kind,
		Target:      target,
		Cardinality: cardinality,
		SourceField: attrs[relationshipSourceAttr],
		LabelField:  attrs[relationshipLabelFieldAttr],
	}
}

func normalizeRelationshipKind(raw string) (RelationshipKind, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "belongsto":
		return RelationshipBelongsTo, true
	case "hasone":
		return RelationshipHasOne, true
	case "hasmany":
		return RelationshipHasMany, true
	default:
		return "", false
	}
}

func deriveCardinality(kind RelationshipKind) string {
	switch kind {
	case RelationshipHasMany:
		return "many"
	case RelationshipBelongsTo, RelationshipHasOne:
		return "one"
	default:
		return ""
	}
}

func normaliseKey(raw string) string {
	var builder strings.Builder
	builder.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			builder.WriteRune(unicode.ToLower(r))
		}
	}
	return builder.String()
}
