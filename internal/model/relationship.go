package model

// RelationshipType tags the kind of directed edge between two elements.
type RelationshipType string

const (
	RelDescribes       RelationshipType = "DESCRIBES"
	RelGeneratedFrom   RelationshipType = "GENERATED_FROM"
	RelHasPrerequisite RelationshipType = "HAS_PREREQUISITE"
	RelStaticLink      RelationshipType = "STATIC_LINK"
	RelDynamicLink     RelationshipType = "DYNAMIC_LINK"
	RelContains        RelationshipType = "CONTAINS"
	RelDependsOn       RelationshipType = "DEPENDS_ON"
	RelOther           RelationshipType = "OTHER"
)

// DependencyLike reports whether t maps onto a dependency-graph edge in
// CycloneDX output.
func (t RelationshipType) DependencyLike() bool {
	switch t {
	case RelDependsOn, RelHasPrerequisite, RelStaticLink, RelDynamicLink:
		return true
	}
	return false
}

// Relationship is a directed edge A --type--> B. Relationships are only
// created once both endpoints exist (the walker queues them and resolves in
// a final pass), so A and B are never nil.
type Relationship struct {
	Type RelationshipType
	A    Element
	B    Element

	// BDoc is set to B's document when it differs from A's; serializers
	// then emit an external-document reference instead of a local id.
	BDoc *Document
}

// AddRelationship attaches rel to its owning element (the A side) and, for
// cross-document edges, registers the external-document reference on A's
// document.
func AddRelationship(rel *Relationship) {
	aDoc := rel.A.DocumentOf()
	if bDoc := rel.B.DocumentOf(); bDoc != nil && aDoc != nil && bDoc != aDoc {
		rel.BDoc = bDoc
		aDoc.AddExternalRef(bDoc)
	}

	switch a := rel.A.(type) {
	case *Document:
		a.Relationships = append(a.Relationships, rel)
	case *Component:
		a.Relationships = append(a.Relationships, rel)
	case *File:
		a.Relationships = append(a.Relationships, rel)
	}
}
