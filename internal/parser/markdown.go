package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/harrison/uciharness/internal/models"
)

var caseHeading = regexp.MustCompile(`^Case:\s*(.+)$`)

// MarkdownParser parses suite files written as Markdown documents.
//
// Each "## Case: <name>" heading starts a case. The first paragraph under the
// heading is its description, a ```uci fenced block holds the command script
// and a ```yaml fenced block holds the remaining case fields using the same
// keys as YAML suites. Optional frontmatter carries the suite header.
type MarkdownParser struct {
	markdown goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		markdown: goldmark.New(),
	}
}

// markdownCase accumulates the pieces of one case section.
type markdownCase struct {
	meta     yamlCase
	commands []string
}

func (p *MarkdownParser) Parse(r io.Reader) (*models.Suite, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var header yamlHeader
	content, frontmatter := extractFrontmatter(content)
	if frontmatter != nil {
		if err := yaml.Unmarshal(frontmatter, &header); err != nil {
			return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
		}
	}

	doc := p.markdown.Parser().Parse(text.NewReader(content))

	suite := &models.Suite{
		Name:        header.Name,
		Description: header.Description,
	}
	cases, err := p.extractCases(doc, content, suite)
	if err != nil {
		return nil, fmt.Errorf("failed to extract cases: %w", err)
	}
	for _, mc := range cases {
		tc, err := mc.toTestCase()
		if err != nil {
			return nil, fmt.Errorf("case %q: %w", mc.meta.Name, err)
		}
		if err := applyDefaults(&tc, header); err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, tc)
	}
	return suite, nil
}

// extractCases walks the top-level blocks of the document. A level-1 heading
// names the suite when the frontmatter did not.
func (p *MarkdownParser) extractCases(doc ast.Node, source []byte, suite *models.Suite) ([]*markdownCase, error) {
	var cases []*markdownCase
	var current *markdownCase

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(extractText(node, source))
			switch {
			case node.Level == 1 && suite.Name == "":
				suite.Name = title
			case node.Level == 2:
				m := caseHeading.FindStringSubmatch(title)
				if m == nil {
					current = nil
					continue
				}
				current = &markdownCase{meta: yamlCase{Name: strings.TrimSpace(m[1])}}
				cases = append(cases, current)
			}

		case *ast.Paragraph:
			if current == nil {
				if len(cases) == 0 && suite.Description == "" {
					suite.Description = strings.TrimSpace(extractText(node, source))
				}
				continue
			}
			if current.meta.Description == "" {
				current.meta.Description = strings.TrimSpace(extractText(node, source))
			}

		case *ast.FencedCodeBlock:
			if current == nil {
				continue
			}
			body := blockLines(node, source)
			switch lang := string(node.Language(source)); lang {
			case "uci":
				for _, line := range body {
					if strings.TrimSpace(line) == "" {
						continue
					}
					current.commands = append(current.commands, line)
				}
			case "yaml", "yml":
				name, desc := current.meta.Name, current.meta.Description
				dec := yaml.NewDecoder(strings.NewReader(strings.Join(body, "\n")))
				dec.KnownFields(true)
				if err := dec.Decode(&current.meta); err != nil && err != io.EOF {
					return nil, fmt.Errorf("case %q: invalid yaml block: %w", name, err)
				}
				current.meta.Name = name
				if current.meta.Description == "" {
					current.meta.Description = desc
				}
			}
		}
	}
	return cases, nil
}

func (mc *markdownCase) toTestCase() (models.TestCase, error) {
	meta := mc.meta
	if len(mc.commands) > 0 {
		if len(meta.Commands) > 0 {
			return models.TestCase{}, fmt.Errorf("commands given both in a uci block and in yaml")
		}
		meta.Commands = mc.commands
	}
	return meta.toTestCase()
}

// blockLines returns the raw lines of a fenced code block without line endings.
func blockLines(n *ast.FencedCodeBlock, source []byte) []string {
	lines := n.Lines()
	out := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		out = append(out, strings.TrimRight(string(seg.Value(source)), "\r\n"))
	}
	return out
}

func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(source))
			if t.SoftLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.CodeSpan, *ast.Emphasis:
			buf.WriteString(extractText(c, source))
		}
	}
	return buf.String()
}

// extractFrontmatter splits a leading "---" delimited block from the body.
func extractFrontmatter(content []byte) ([]byte, []byte) {
	lines := bytes.Split(content, []byte("\n"))

	// Check if starts with ---
	if len(lines) < 3 || !bytes.Equal(bytes.TrimSpace(lines[0]), []byte("---")) {
		return content, nil
	}

	// Find closing ---
	for i := 1; i < len(lines); i++ {
		if bytes.Equal(bytes.TrimSpace(lines[i]), []byte("---")) {
			frontmatter := bytes.Join(lines[1:i], []byte("\n"))
			body := bytes.Join(lines[i+1:], []byte("\n"))
			return body, frontmatter
		}
	}

	// No closing delimiter found
	return content, nil
}
