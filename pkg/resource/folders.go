// Copyright 2025, the fabdeploy authors.  All rights reserved.

package resource

// artifactFolders maps each artifact type with an on-disk representation to its folder under the
// artifacts root.  Both discovery and change detection share this layout, so a path maps to the
// same artifact ID no matter which side computed it.
var artifactFolders = map[Type]string{
	TypeLakehouse:          "Lakehouses",
	TypeNotebook:           "Notebooks",
	TypeVariableLibrary:    "Variablelibraries",
	TypeDataPipeline:       "Datapipelines",
	TypeEnvironment:        "Environments",
	TypeSparkJobDefinition: "Sparkjobdefinitions",
	TypeSQLView:            "Views",
	TypeReport:             "Reports",
	TypePaginatedReport:    "Paginatedreports",
	TypeSemanticModel:      "Semanticmodels",
}

// FolderName returns the source folder for a type, or false if the type has no on-disk folder.
func FolderName(t Type) (string, bool) {
	name, has := artifactFolders[t]
	return name, has
}

// TypeForFolder is the inverse of FolderName.
func TypeForFolder(folder string) (Type, bool) {
	for t, name := range artifactFolders {
		if name == folder {
			return t, true
		}
	}
	return "", false
}
