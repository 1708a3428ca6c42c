package tmpl2pdf

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/sunacchi/go-tmpl2pdf/internal/fileutil"
)

// bootScript is the client-side reactive runtime glue inlined into every
// assembled document, ahead of the boot invocation.
//
//go:embed bootscript.js
var bootScript string

// Logical names for the anonymous request kinds.
const (
	rawTemplateName      = "custom_template"
	externalTemplateName = "external_template"
)

// defaultRuntimeCDN is injected when no configured include looks like the
// reactive runtime library.
const defaultRuntimeCDN = "https://cdn.jsdelivr.net/npm/vue@3"

// extraParamsKey is the reserved key the merged data bag is published
// under; totalPages inside it is always force-set to 0 at assembly time.
const extraParamsKey = "extraParams"

// runtimeLibPattern recognizes a reactive-runtime include by file name.
var runtimeLibPattern = regexp.MustCompile(`(?i)vue(\.min)?(\.js)?`)

// bodyClosePattern locates the </body> boundary, optionally followed by
// </html>. Everything after the first match is discarded.
var bodyClosePattern = regexp.MustCompile(`(?m)</body>\s*(?:</html>)?`)

// renderedTemplate is the assembler's output: the final document text
// plus the metadata the orchestrator needs.
type renderedTemplate struct {
	text        string
	name        string
	fileName    string // {name}_{epoch-millis}, no extension
	externalURL string // set only for external requests
	orientation string
	preview     bool
	previewHTML bool
	customPages []string
}

// assembler materializes self-contained HTML documents from template
// requests. Template sources are cached with a short TTL to avoid
// re-reading hot templates on every request.
type assembler struct {
	cfg    *Config
	cache  *gocache.Cache
	logger *zap.Logger
}

// Template source cache tuning.
const (
	templateCacheTTL   = 5 * time.Minute
	templateCacheSweep = 10 * time.Minute
)

func newAssembler(cfg *Config, logger *zap.Logger) *assembler {
	return &assembler{
		cfg:    cfg,
		cache:  gocache.New(templateCacheTTL, templateCacheSweep),
		logger: logger,
	}
}

// prepare resolves a request into a renderedTemplate, persisting the
// generated document under the staging directory. External requests are
// not persisted: the browser loads the remote URL directly.
func (a *assembler) prepare(req *Request) (*renderedTemplate, error) {
	if req == nil {
		return nil, ErrRequestRequired
	}

	if err := fileutil.EnsureDirs(a.cfg.FileDir, a.cfg.PDFDir); err != nil {
		return nil, err
	}

	switch req.Kind {
	case KindRawHTML:
		tmpl := &renderedTemplate{
			text:     req.HTML,
			name:     rawTemplateName,
			fileName: stampedFileName(rawTemplateName),
		}
		return tmpl, a.persist(tmpl)

	case KindExternalURL:
		name := req.Name
		if name == "" {
			name = externalTemplateName
		}
		return &renderedTemplate{
			name:        name,
			fileName:    stampedFileName(name),
			externalURL: req.URL,
		}, nil

	case KindNamed:
		return a.prepareNamed(req)
	}

	return nil, fmt.Errorf("%w: unknown request kind %d", ErrRequestRequired, req.Kind)
}

// prepareNamed reads the named template, injects the merged data bag and
// script includes, and persists the result.
func (a *assembler) prepareNamed(req *Request) (*renderedTemplate, error) {
	if req.Name == "" {
		return nil, ErrTemplateNameRequired
	}

	text, err := a.templateSource(req.Name)
	if err != nil {
		return nil, err
	}

	tmpl := &renderedTemplate{
		name:        req.Name,
		fileName:    stampedFileName(req.Name),
		orientation: req.Extra.Orientation,
		preview:     req.Extra.Preview,
		previewHTML: req.Extra.PreviewHTML,
		customPages: req.Extra.CustomPages,
	}

	if req.ParamsOnly {
		tmpl.text = text
		return tmpl, nil
	}

	tmpl.text = a.injectData(text, req)
	return tmpl, a.persist(tmpl)
}

// templateParameters reads a named template and returns its discovered
// placeholder tree without assembling a renderable document.
func (a *assembler) templateParameters(name string) (ParamTree, error) {
	if name == "" {
		return nil, ErrTemplateNameRequired
	}
	text, err := a.templateSource(name)
	if err != nil {
		return nil, err
	}
	return extractParameters(text), nil
}

// templateSource returns the raw template text for name, serving from
// the TTL cache when possible.
func (a *assembler) templateSource(name string) (string, error) {
	if cached, ok := a.cache.Get(name); ok {
		return cached.(string), nil
	}

	path := filepath.Join(a.cfg.TemplateDir, name+".html")
	data, err := fileutil.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, path)
		}
		return "", err
	}

	text := string(data)
	a.cache.SetDefault(name, text)
	return text, nil
}

// injectData builds the final document: template body up to </body>,
// script includes (runtime first), the inlined boot helpers, and a boot
// script that serializes the merged data bag and mounts the reactive
// instance.
func (a *assembler) injectData(text string, req *Request) string {
	data := extractParameters(text)

	// totalPages is resolved at render time; an extracted top-level
	// placeholder of that name must not shadow the injected value.
	delete(data, "totalPages")
	data[extraParamsKey] = req.Extra.bag()

	// Caller values win on key collision.
	for k, v := range req.Parameters {
		data[k] = v
	}

	payload, err := json.Marshal(data)
	if err != nil {
		// Non-serializable caller values degrade to an empty data bag;
		// the template still renders with unresolved markers.
		a.logger.Warn("template data not serializable", zap.String("template", req.Name), zap.Error(err))
		payload = []byte("{}")
	}

	var b strings.Builder
	b.WriteString(documentBody(text))
	for _, inc := range a.scriptIncludes() {
		if inc.Source != "" {
			b.WriteString("<script>")
			b.WriteString(inc.Source)
			b.WriteString("</script>\n")
			continue
		}
		b.WriteString(`<script src="`)
		b.WriteString(inc.URL)
		b.WriteString("\"></script>\n")
	}
	fmt.Fprintf(&b, `<script>
window.onload = function () {
	const [App, elemId] = initVue(%s);
	reactiveInstance = elemId ? App.mount(elemId) : new Vue(App);
}
</script>`, payload)
	b.WriteString("</body></html>")
	return b.String()
}

// scriptIncludes orders the configured includes: the reactive runtime
// first (falling back to the default CDN when none is configured), then
// the boot helpers, then the remaining includes in caller order.
func (a *assembler) scriptIncludes() []ScriptInclude {
	runtime := ScriptInclude{URL: defaultRuntimeCDN}
	rest := make([]ScriptInclude, 0, len(a.cfg.Libs)+2)

	found := false
	for _, inc := range a.cfg.Libs {
		if !found && inc.URL != "" && runtimeLibPattern.MatchString(inc.URL) {
			runtime = inc
			found = true
			continue
		}
		rest = append(rest, inc)
	}

	includes := []ScriptInclude{runtime, {Source: bootScript}}
	return append(includes, rest...)
}

// persist writes the assembled document to the staging directory.
func (a *assembler) persist(tmpl *renderedTemplate) error {
	return fileutil.WriteFile(tmpl.stagingPath(a.cfg), []byte(tmpl.text))
}

// stagingPath is the on-disk location of the assembled document.
func (t *renderedTemplate) stagingPath(cfg *Config) string {
	return filepath.Join(cfg.FileDir, t.fileName+".html")
}

// bag flattens the extra params into the serialized data bag. The
// reserved totalPages key is always force-set to 0; any caller-supplied
// value is discarded.
func (e ExtraParams) bag() map[string]any {
	bag := make(map[string]any, len(e.Data)+5)
	for k, v := range e.Data {
		bag[k] = v
	}
	if e.Orientation != "" {
		bag["orientation"] = e.Orientation
	}
	if e.Preview {
		bag["preview"] = true
	}
	if e.PreviewHTML {
		bag["previewAsHtml"] = true
	}
	if len(e.CustomPages) > 0 {
		bag["customHeaderFooterPageIds"] = e.CustomPages
	}
	bag["totalPages"] = 0
	return bag
}

// documentBody returns the template text up to the </body> boundary,
// discarding everything after it. Text without a closing body tag is
// returned whole.
func documentBody(text string) string {
	loc := bodyClosePattern.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]]
}

// stampedFileName appends epoch milliseconds for practical uniqueness
// across concurrent requests.
func stampedFileName(name string) string {
	return fmt.Sprintf("%s_%d", name, time.Now().UnixMilli())
}
