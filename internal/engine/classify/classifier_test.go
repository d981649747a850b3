package classify

import (
	"path/filepath"
	"testing"

	"virtualmod/internal/engine/boundary"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, opts boundary.Options, files ...string) *Classifier {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, fs.MkdirAll(filepath.Dir(f), 0o755))
		require.NoError(t, afero.WriteFile(fs, f, nil, 0o644))
	}
	return NewClassifier(boundary.NewResolver(fs, opts))
}

var sharedTree = []string{
	"/p/package.json",
	"/p/shared/index.ts",
	"/p/shared/helpers.ts",
	"/p/shared/internal/index.ts",
	"/p/shared/internal/util.ts",
	"/p/feature/index.ts",
	"/p/feature/view.ts",
	"/p/feature/deep/nested/widget.ts",
	"/p/scripts/build.ts",
}

func TestClassify_SelfBarrelImportAnyDepth(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	for _, dir := range []string{"/p/feature", "/p/feature/deep", "/p/feature/deep/nested"} {
		v := c.Classify(dir, "/p/feature/index.ts", "/p")
		require.NotNil(t, v, dir)
		assert.Equal(t, KindIndexImport, v.Kind, dir)
	}
}

func TestClassify_SameModuleNonBarrelIsAllowed(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	assert.Nil(t, c.Classify("/p/feature/deep/nested", "/p/feature/view.ts", "/p"))
	assert.Nil(t, c.Classify("/p/feature", "/p/feature/deep/nested/widget.ts", "/p"))
}

func TestClassify_ParentModuleImport(t *testing.T) {
	c := fixture(t, boundary.Options{},
		"/p/package.json",
		"/p/a/index.ts",
		"/p/a/b/index.ts",
		"/p/a/b/x.ts",
	)

	v := c.Classify("/p/a/b", "/p/a/index.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindParentModuleImport, v.Kind)
	assert.Equal(t, "/a/b", v.CurrentModule)
	assert.Equal(t, "/a", v.ParentModule)
	assert.Equal(t, "Cannot import a parent virtual module. /a is a parent of /a/b.", v.Message())
}

func TestClassify_ParentModuleImportUsesCurrentDirectory(t *testing.T) {
	c := fixture(t, boundary.Options{},
		"/p/package.json",
		"/p/a/index.ts",
		"/p/a/b/index.ts",
		"/p/a/b/c/x.ts",
		"/p/a/y.ts",
	)

	v := c.Classify("/p/a/b/c", "/p/a/y.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindParentModuleImport, v.Kind)
	assert.Equal(t, "/a/b/c", v.CurrentModule)
	assert.Equal(t, "/a", v.ParentModule)
}

func TestClassify_PrivateModuleImport(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	v := c.Classify("/p/feature", "/p/shared/internal/util.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindPrivateModuleImport, v.Kind)
	assert.Equal(t, "/util.ts", v.PrivatePath)
	assert.Equal(t, "/shared", v.TargetModule)
	assert.Equal(t, "Cannot import a private path. /util.ts belongs to /shared virtual module.", v.Message())
}

func TestClassify_NestedBarrelIsPrivateToParent(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	v := c.Classify("/p/feature", "/p/shared/internal/index.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindPrivateModuleImport, v.Kind)
	assert.Equal(t, "/index.ts", v.PrivatePath)
}

func TestClassify_PublicBarrelImportIsAllowed(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	assert.Nil(t, c.Classify("/p/feature", "/p/shared/index.ts", "/p"))
	assert.Nil(t, c.Classify("/p/scripts", "/p/shared/index.ts", "/p"))
}

func TestClassify_TopLevelModuleInternalsAreNotPrivate(t *testing.T) {
	// Without an enclosing module there is no barrel to route through.
	c := fixture(t, boundary.Options{}, sharedTree...)

	assert.Nil(t, c.Classify("/p/feature", "/p/shared/helpers.ts", "/p"))
}

func TestClassify_TargetOutsideAnyModule(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	assert.Nil(t, c.Classify("/p/feature", "/p/scripts/build.ts", "/p"))
}

func TestClassify_AllowListChangesRoots(t *testing.T) {
	opts := boundary.Options{IncludeModules: []string{"/p/shared/index.ts", "/p/feature/index.ts"}}
	c := fixture(t, opts, sharedTree...)

	// /p/shared/internal is no longer a module, so util.ts is just part of /p/shared.
	assert.Nil(t, c.Classify("/p/feature", "/p/shared/internal/util.ts", "/p"))

	v := c.Classify("/p/shared/internal", "/p/shared/index.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindIndexImport, v.Kind)
}

func TestClassify_IndexCheckIsPathBased(t *testing.T) {
	// A nested barrel importing its parent's barrel is still judged by paths alone.
	c := fixture(t, boundary.Options{IncludeModules: []string{"/p/a/index.ts"}},
		"/p/package.json",
		"/p/a/index.ts",
		"/p/a/b/index.ts",
	)

	v := c.Classify("/p/a/b", "/p/a/index.ts", "/p")
	require.NotNil(t, v)
	assert.Equal(t, KindIndexImport, v.Kind)
}

func TestClassify_Idempotent(t *testing.T) {
	c := fixture(t, boundary.Options{}, sharedTree...)

	cases := [][2]string{
		{"/p/feature", "/p/shared/internal/util.ts"},
		{"/p/feature/deep", "/p/feature/index.ts"},
		{"/p/feature", "/p/shared/index.ts"},
	}
	for _, tc := range cases {
		first := c.Classify(tc[0], tc[1], "/p")
		second := c.Classify(tc[0], tc[1], "/p")
		assert.Equal(t, first, second, "%s -> %s", tc[0], tc[1])
	}
}

func TestViolation_Messages(t *testing.T) {
	assert.Equal(t,
		"Cannot import virtual module index from within the virtual module itself.",
		Violation{Kind: KindIndexImport}.Message(),
	)
	assert.Empty(t, Violation{Kind: KindIndexImport}.Data())
	assert.Len(t, Kinds(), 3)
}

func TestDisplayPath(t *testing.T) {
	assert.Equal(t, "/", displayPath("/p", "/p"))
	assert.Equal(t, "/a/b", displayPath("/p", "/p/a/b"))
}
