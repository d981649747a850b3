package classify

import (
	"path/filepath"
	"strings"
)

// Kind identifies a boundary violation. Values double as message IDs.
type Kind string

const (
	KindIndexImport         Kind = "indexImport"
	KindParentModuleImport  Kind = "parentModuleImport"
	KindPrivateModuleImport Kind = "privateModuleImport"
)

// Kinds lists every violation kind in reporting order.
func Kinds() []Kind {
	return []Kind{KindIndexImport, KindParentModuleImport, KindPrivateModuleImport}
}

var messageTemplates = map[Kind]string{
	KindIndexImport:         "Cannot import virtual module index from within the virtual module itself.",
	KindParentModuleImport:  "Cannot import a parent virtual module. {{parentModule}} is a parent of {{currentModule}}.",
	KindPrivateModuleImport: "Cannot import a private path. {{privatePath}} belongs to {{targetModule}} virtual module.",
}

// MessageTemplate returns the unrendered message for kind.
func MessageTemplate(kind Kind) string {
	return messageTemplates[kind]
}

// Violation is the outcome of classifying one import edge. Path fields are
// rendered relative to their base with a leading slash.
type Violation struct {
	Kind Kind `json:"kind"`

	// ParentModuleImport
	CurrentModule string `json:"currentModule,omitempty"`
	ParentModule  string `json:"parentModule,omitempty"`

	// PrivateModuleImport
	PrivatePath  string `json:"privatePath,omitempty"`
	TargetModule string `json:"targetModule,omitempty"`
}

// Data returns the message template placeholders for v.
func (v Violation) Data() map[string]string {
	switch v.Kind {
	case KindParentModuleImport:
		return map[string]string{
			"currentModule": v.CurrentModule,
			"parentModule":  v.ParentModule,
		}
	case KindPrivateModuleImport:
		return map[string]string{
			"privatePath":  v.PrivatePath,
			"targetModule": v.TargetModule,
		}
	}
	return map[string]string{}
}

// Message renders the human readable diagnostic for v.
func (v Violation) Message() string {
	msg := messageTemplates[v.Kind]
	for key, value := range v.Data() {
		msg = strings.ReplaceAll(msg, "{{"+key+"}}", value)
	}
	return msg
}

// displayPath renders target relative to base as "/rel/path" with forward
// slashes. The base itself renders as "/".
func displayPath(base, target string) string {
	rel, err := filepath.Rel(base, target)
	if err != nil || rel == "." {
		rel = ""
	}
	return "/" + filepath.ToSlash(rel)
}
