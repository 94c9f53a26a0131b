// Copyright 2025, the fabdeploy authors.  All rights reserved.

package resource

// Type identifies the kind of a workspace artifact.  The set is closed but extensible: unknown
// types still deploy, they just sort into the lowest priority class and are assumed mutable.
type Type string

const (
	TypeVariableLibrary    Type = "VariableLibrary"
	TypeEnvironment        Type = "Environment"
	TypeLakehouse          Type = "Lakehouse"
	TypeKQLDatabase        Type = "KQLDatabase"
	TypeShortcut           Type = "Shortcut"
	TypeSQLView            Type = "SqlView"
	TypeSemanticModel      Type = "SemanticModel"
	TypeNotebook           Type = "Notebook"
	TypeSparkJobDefinition Type = "SparkJobDefinition"
	TypeKQLQueryset        Type = "KQLQueryset"
	TypeReport             Type = "Report"
	TypePaginatedReport    Type = "PaginatedReport"
	TypeEventstream        Type = "Eventstream"
	TypeDataPipeline       Type = "DataPipeline"
)

// priorityClasses ranks artifact types by the order the platform requires them to be deployed in:
// variable libraries carry configuration consumed by everything else, storage comes before the
// views and models that read it, and pipelines come last because they orchestrate the rest.  This
// is static configuration data, not computed.
var priorityClasses = map[Type]int{
	TypeVariableLibrary:    1,
	TypeEnvironment:        2,
	TypeLakehouse:          3,
	TypeKQLDatabase:        4,
	TypeShortcut:           5,
	TypeSQLView:            6,
	TypeSemanticModel:      7,
	TypeNotebook:           8,
	TypeSparkJobDefinition: 9,
	TypeKQLQueryset:        10,
	TypeReport:             11,
	TypePaginatedReport:    12,
	TypeEventstream:        13,
	TypeDataPipeline:       14,
}

// unknownPriorityClass sorts unrecognized types after every known class.
const unknownPriorityClass = 999

// PriorityClass returns the deployment priority class for this type; lower classes deploy first.
func (t Type) PriorityClass() int {
	if p, has := priorityClasses[t]; has {
		return p
	}
	return unknownPriorityClass
}

// DefaultImmutableTypes returns the types that must not be redefined once created, because the
// platform cannot replace them without destructive side effects.  Callers may override this set;
// the platform grows new types faster than we ship releases, so it is policy, not mechanism.
func DefaultImmutableTypes() map[Type]bool {
	return map[Type]bool{
		TypeLakehouse:   true,
		TypeKQLDatabase: true,
	}
}
