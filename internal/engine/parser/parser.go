// # internal/engine/parser/parser.go
package parser

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"virtualmod/internal/core/errors"
	"virtualmod/internal/shared/observability"
	"virtualmod/internal/shared/util"
)

// Parser turns JavaScript and TypeScript sources into import edges.
// It is safe for concurrent use.
type Parser struct {
	loader         *GrammarLoader
	pools          map[string]*ParserPool
	extractor      *ImportExtractor
	extensions     map[string]string
	testFileSuffix []string
}

func NewParser(loader *GrammarLoader) *Parser {
	p := &Parser{
		loader:     loader,
		pools:      make(map[string]*ParserPool),
		extractor:  NewImportExtractor(),
		extensions: make(map[string]string),
	}
	for lang, spec := range loader.LanguageRegistry() {
		if !spec.Enabled {
			continue
		}
		for _, ext := range spec.Extensions {
			p.extensions[strings.ToLower(ext)] = lang
		}
		p.testFileSuffix = append(p.testFileSuffix, spec.TestFileSuffixes...)
		if grammar := loader.Language(lang); grammar != nil {
			p.pools[lang] = NewParserPool(grammar)
		}
	}
	sort.Strings(p.testFileSuffix)
	return p
}

func (p *Parser) ParseFile(path string, content []byte) (*File, error) {
	lang := p.detectLanguage(path)
	if lang == "" {
		return nil, errors.AddContext(
			errors.New(errors.CodeNotSupported, "unsupported language"),
			errors.CtxPath, path,
		)
	}

	pool := p.pools[lang]
	if pool == nil {
		return nil, errors.New(errors.CodeInternal, fmt.Sprintf("grammar not loaded: %s", lang))
	}

	start := time.Now()
	defer func() {
		observability.ParsingDuration.WithLabelValues(lang).Observe(time.Since(start).Seconds())
	}()

	sp := pool.Get()
	defer pool.Put(sp)

	tree := sp.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(
			errors.New(errors.CodeInternal, "parse failed"),
			errors.CtxPath, path,
		)
	}
	defer tree.Close()

	file := &File{
		Path:     path,
		Language: lang,
		ParsedAt: time.Now(),
	}
	root := tree.RootNode()
	file.HasSyntaxErrors = root.HasError()
	p.extractor.Extract(root, content, file)
	return file, nil
}

func (p *Parser) detectLanguage(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	return p.extensions[ext]
}

func (p *Parser) IsSupportedPath(filePath string) bool {
	return p.GetLanguage(filePath) != ""
}

func (p *Parser) GetLanguage(path string) string {
	return p.detectLanguage(path)
}

func (p *Parser) IsTestFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	for _, suffix := range p.testFileSuffix {
		if strings.HasSuffix(base, strings.ToLower(suffix)) {
			return true
		}
	}
	return false
}

func (p *Parser) SupportedExtensions() []string {
	return util.SortedStringKeys(p.extensions)
}

// SupportedTestFileSuffixes lists the file-name suffixes IsTestFile matches.
func (p *Parser) SupportedTestFileSuffixes() []string {
	out := make([]string, len(p.testFileSuffix))
	copy(out, p.testFileSuffix)
	return out
}
