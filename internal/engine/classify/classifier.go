// Package classify decides which virtual-module boundary rule, if any, an
// import edge breaks.
package classify

import (
	"log/slog"
	"path/filepath"
	"strings"
)

// RootResolver is the module-root lookup the classifier depends on.
type RootResolver interface {
	ModuleRoot(startDir, projectRoot string) (string, bool)
	IsBarrel(path string) bool
}

type Classifier struct {
	roots RootResolver
}

func NewClassifier(roots RootResolver) *Classifier {
	return &Classifier{roots: roots}
}

// Classify inspects an import from a file in currentFileDir to the resolved
// absolute target. It returns nil when the import is allowed.
//
// The checks run in a fixed order: same module, then descendant, then
// private path. Later checks assume earlier ones did not match.
func (c *Classifier) Classify(currentFileDir, target, projectRoot string) *Violation {
	currentFileDir = filepath.Clean(currentFileDir)
	target = filepath.Clean(target)
	projectRoot = filepath.Clean(projectRoot)

	targetModuleRoot, ok := c.roots.ModuleRoot(target, projectRoot)
	if !ok {
		return nil
	}

	currentModuleRoot, currentOK := c.roots.ModuleRoot(currentFileDir, projectRoot)

	if currentOK && currentModuleRoot == targetModuleRoot {
		if c.roots.IsBarrel(target) {
			return &Violation{Kind: KindIndexImport}
		}
		return nil
	}

	if strings.HasPrefix(currentFileDir, targetModuleRoot+string(filepath.Separator)) {
		return &Violation{
			Kind:          KindParentModuleImport,
			CurrentModule: displayPath(projectRoot, currentFileDir),
			ParentModule:  displayPath(projectRoot, targetModuleRoot),
		}
	}

	targetParentModuleRoot, ok := c.roots.ModuleRoot(filepath.Dir(targetModuleRoot), projectRoot)
	if ok {
		return &Violation{
			Kind:         KindPrivateModuleImport,
			PrivatePath:  displayPath(targetModuleRoot, target),
			TargetModule: displayPath(projectRoot, targetParentModuleRoot),
		}
	}

	slog.Debug("valid import",
		"currentDirectory", currentFileDir,
		"targetModuleRoot", targetModuleRoot,
		"targetParentModuleRoot", targetParentModuleRoot,
	)
	return nil
}
