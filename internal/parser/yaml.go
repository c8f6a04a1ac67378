package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/uciharness/internal/models"
)

// YAMLParser parses suite files written as YAML documents.
type YAMLParser struct{}

// NewYAMLParser creates a new YAML suite parser
func NewYAMLParser() *YAMLParser {
	return &YAMLParser{}
}

// yamlSuite is the top-level document of a YAML suite file.
type yamlSuite struct {
	Suite yamlHeader `yaml:"suite"`
	Cases []yamlCase `yaml:"cases"`
}

// yamlHeader carries suite metadata and defaults applied to every case.
type yamlHeader struct {
	Name        string                 `yaml:"name"`
	Description string                 `yaml:"description"`
	Timeout     *string                `yaml:"timeout"`
	Engine      *models.EngineOverride `yaml:"engine"`
}

// yamlCase mirrors models.TestCase with file-friendly types.
type yamlCase struct {
	Name           string                 `yaml:"name"`
	Description    string                 `yaml:"description"`
	Commands       []string               `yaml:"commands"`
	WhiteMoves     []string               `yaml:"white_moves"`
	FEN            string                 `yaml:"fen"`
	Depth          int                    `yaml:"depth"`
	MoveTime       string                 `yaml:"movetime"`
	Expect         []string               `yaml:"expect"`
	ExpectOrder    []string               `yaml:"expect_order"`
	ExpectCounts   map[string]int         `yaml:"expect_counts"`
	AllowedMoves   []string               `yaml:"allowed_moves"`
	ExpectBestMove bool                   `yaml:"expect_bestmove"`
	ExpectTurn     string                 `yaml:"expect_turn"`
	ExpectNoErrors bool                   `yaml:"expect_no_errors"`
	ExpectSearch   bool                   `yaml:"expect_search"`
	ExpectVerdict  string                 `yaml:"expect_verdict"`
	Timeout        *string                `yaml:"timeout"`
	Engine         *models.EngineOverride `yaml:"engine"`
}

// Parse reads a YAML suite document.
func (p *YAMLParser) Parse(r io.Reader) (*models.Suite, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	var doc yamlSuite
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty suite document")
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	suite := &models.Suite{
		Name:        doc.Suite.Name,
		Description: doc.Suite.Description,
	}
	for i, yc := range doc.Cases {
		tc, err := yc.toTestCase()
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}
		if err := applyDefaults(&tc, doc.Suite); err != nil {
			return nil, err
		}
		suite.Cases = append(suite.Cases, tc)
	}
	return suite, nil
}

// toTestCase converts the file representation into a model case.
func (yc yamlCase) toTestCase() (models.TestCase, error) {
	tc := models.TestCase{
		Name:           strings.TrimSpace(yc.Name),
		Description:    strings.TrimSpace(yc.Description),
		WhiteMoves:     yc.WhiteMoves,
		FEN:            strings.TrimSpace(yc.FEN),
		Depth:          yc.Depth,
		Expect:         yc.Expect,
		ExpectOrder:    yc.ExpectOrder,
		ExpectCounts:   yc.ExpectCounts,
		AllowedMoves:   yc.AllowedMoves,
		ExpectBestMove: yc.ExpectBestMove,
		ExpectTurn:     strings.ToLower(strings.TrimSpace(yc.ExpectTurn)),
		ExpectNoErrors: yc.ExpectNoErrors,
		ExpectSearch:   yc.ExpectSearch,
		ExpectVerdict:  models.Verdict(strings.TrimSpace(yc.ExpectVerdict)),
		Engine:         yc.Engine,
	}
	for _, c := range yc.Commands {
		tc.Commands = append(tc.Commands, models.Command(strings.TrimRight(c, "\r\n")))
	}

	if yc.MoveTime != "" {
		d, err := time.ParseDuration(yc.MoveTime)
		if err != nil {
			return tc, fmt.Errorf("invalid movetime %q: %w", yc.MoveTime, err)
		}
		tc.MoveTime = d
	}
	if yc.Timeout != nil {
		d, err := parseTimeout(*yc.Timeout)
		if err != nil {
			return tc, err
		}
		tc.Timeout = &d
	}
	return tc, nil
}

// applyDefaults fills case fields left unset from the suite header.
func applyDefaults(tc *models.TestCase, h yamlHeader) error {
	if tc.Timeout == nil && h.Timeout != nil {
		d, err := parseTimeout(*h.Timeout)
		if err != nil {
			return fmt.Errorf("suite: %w", err)
		}
		tc.Timeout = &d
	}
	if tc.Engine == nil && h.Engine != nil {
		e := *h.Engine
		tc.Engine = &e
	}
	return nil
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s, err)
	}
	return d, nil
}
