// Package source decides the sourcing policy for a content query: whether
// open-ended internet lookup is allowed and which catalog references are
// cited. The decision is a pure function of the query; both the generation
// request and the human-readable rationale consume the same SourcePlan.
package source

import (
	"fmt"

	"github.com/drillbook/drillbook/internal/catalog"
)

// KnowledgeLevel is one of the six depth-of-understanding codes.
type KnowledgeLevel string

const (
	LevelRemember   KnowledgeLevel = "R"
	LevelUnderstand KnowledgeLevel = "U"
	LevelApply      KnowledgeLevel = "AP"
	LevelAnalyze    KnowledgeLevel = "AN"
	LevelEvaluate   KnowledgeLevel = "E"
	LevelCreate     KnowledgeLevel = "C"
)

// Valid reports whether k is one of the six known codes. The empty string is
// not valid; it means "not supplied".
func (k KnowledgeLevel) Valid() bool {
	switch k {
	case LevelRemember, LevelUnderstand, LevelApply, LevelAnalyze, LevelEvaluate, LevelCreate:
		return true
	}
	return false
}

// Label returns the long name for a knowledge level code.
func (k KnowledgeLevel) Label() string {
	switch k {
	case LevelRemember:
		return "Remember"
	case LevelUnderstand:
		return "Understand"
	case LevelApply:
		return "Apply"
	case LevelAnalyze:
		return "Analyze"
	case LevelEvaluate:
		return "Evaluate"
	case LevelCreate:
		return "Create"
	default:
		return "Unknown"
	}
}

// ContentQuery is a single assistant-style query. Immutable once built.
type ContentQuery struct {
	Topic            string
	KnowledgeLevel   KnowledgeLevel // empty when not supplied
	Subject          string         // subject code, empty when not supplied
	Reference        string         // reference title, empty when not supplied
	IncludeResources bool
	HasImage         bool
}

// ReferenceScope identifies which slice of the reference catalog is cited.
type ReferenceScope string

const (
	ScopeSpecificReference ReferenceScope = "specific-reference"
	ScopeSubjectReferences ReferenceScope = "all-references-in-subject"
	ScopeAllReferences     ReferenceScope = "all-references"
	ScopeInferredSubject   ReferenceScope = "topic-inferred-subject-references"
)

// SourcePlan is the resolved sourcing policy for one query. Never mutated
// after Decide returns it.
type SourcePlan struct {
	AllowInternet bool
	Scope         ReferenceScope
	Citations     []string
	Rationale     string
}

// GenericCitation is cited when no catalog reference is resolvable.
const GenericCitation = "Standard reference textbooks for the topic"

const resourcesOnlyClause = "; internet access is granted only to recommend supplementary resources, not to answer the core question"

// ReferenceResolver is the read-only slice of the catalog the engine needs.
type ReferenceResolver interface {
	References(code string) []catalog.Reference
	FindReference(code, name string) (catalog.Reference, bool)
	AllReferences() []catalog.Reference
}

// Engine maps content queries onto source plans against an injected
// reference catalog. It has no side effects and performs no I/O.
type Engine struct {
	refs     ReferenceResolver
	inferrer catalog.SubjectInferrer
}

// NewEngine creates a decision engine. The inferrer may be nil, in which case
// the topic-inferred scope always falls back to the generic citation.
func NewEngine(refs ReferenceResolver, inferrer catalog.SubjectInferrer) *Engine {
	return &Engine{refs: refs, inferrer: inferrer}
}

// Decide maps a query onto its sourcing policy. Total and deterministic over
// the presence combinations of (knowledge level, subject, reference), with
// IncludeResources as an independent override that can only widen internet
// access, never the citation list or scope.
func (e *Engine) Decide(q ContentQuery) SourcePlan {
	hasLevel := q.KnowledgeLevel.Valid()
	hasSubject := q.Subject != ""
	hasReference := q.Reference != ""

	var plan SourcePlan
	switch {
	case hasLevel && hasSubject && hasReference:
		plan = SourcePlan{
			AllowInternet: true,
			Scope:         ScopeSpecificReference,
			Rationale: fmt.Sprintf(
				"Answer at the %s level from %q within subject %s; the internet may fill gaps the reference leaves open",
				q.KnowledgeLevel.Label(), q.Reference, q.Subject),
		}
	case hasLevel && hasSubject:
		plan = SourcePlan{
			AllowInternet: true,
			Scope:         ScopeSubjectReferences,
			Rationale: fmt.Sprintf(
				"Answer at the %s level from the reference catalog of subject %s; the internet may fill gaps",
				q.KnowledgeLevel.Label(), q.Subject),
		}
	case hasLevel:
		plan = SourcePlan{
			AllowInternet: true,
			Scope:         ScopeAllReferences,
			Rationale: fmt.Sprintf(
				"Answer at the %s level; no subject was given, so the whole reference catalog and the internet are in scope",
				q.KnowledgeLevel.Label()),
		}
	case hasSubject && hasReference:
		plan = SourcePlan{
			AllowInternet: false,
			Scope:         ScopeSpecificReference,
			Rationale: fmt.Sprintf(
				"Answer strictly from %q within subject %s; no internet lookup", q.Reference, q.Subject),
		}
	case hasSubject:
		plan = SourcePlan{
			AllowInternet: false,
			Scope:         ScopeSubjectReferences,
			Rationale: fmt.Sprintf(
				"Answer strictly from the reference catalog of subject %s; no internet lookup", q.Subject),
		}
	case hasReference:
		plan = SourcePlan{
			AllowInternet: false,
			Scope:         ScopeSpecificReference,
			Rationale:     fmt.Sprintf("Answer strictly from %q; no internet lookup", q.Reference),
		}
	default:
		plan = SourcePlan{
			AllowInternet: false,
			Scope:         ScopeInferredSubject,
			Rationale:     "Answer from the references of the subject inferred from the topic; no internet lookup",
		}
	}

	plan.Citations = e.resolveCitations(q, plan.Scope)

	// IncludeResources widens internet access only; citations and scope are
	// untouched. When the table already allowed internet the rationale is
	// left as-is.
	if q.IncludeResources && !plan.AllowInternet {
		plan.AllowInternet = true
		plan.Rationale += resourcesOnlyClause
	}

	return plan
}

func (e *Engine) resolveCitations(q ContentQuery, scope ReferenceScope) []string {
	switch scope {
	case ScopeSpecificReference:
		if q.Subject != "" {
			if ref, ok := e.refs.FindReference(q.Subject, q.Reference); ok {
				return []string{ref.String()}
			}
		}

	case ScopeSubjectReferences:
		if list := e.refs.References(q.Subject); len(list) > 0 {
			return formatAll(list)
		}

	case ScopeAllReferences:
		if list := e.refs.AllReferences(); len(list) > 0 {
			return formatAll(list)
		}

	case ScopeInferredSubject:
		if e.inferrer != nil {
			if code, ok := e.inferrer.InferSubject(q.Topic); ok {
				if list := e.refs.References(code); len(list) > 0 {
					return formatAll(list)
				}
			}
		}
	}

	return []string{GenericCitation}
}

func formatAll(list []catalog.Reference) []string {
	out := make([]string, 0, len(list))
	for _, r := range list {
		out = append(out, r.String())
	}
	return out
}
