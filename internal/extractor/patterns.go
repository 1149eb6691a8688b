package extractor

import (
	"regexp"
	"strings"
)

// LineMatcher recognises a labelled line and splits it into label and remainder text.
type LineMatcher interface {
	Name() string
	Match(line string) (label, rest string, ok bool)
}

type regexMatcher struct {
	name string
	re   *regexp.Regexp
}

func (m regexMatcher) Name() string { return m.name }

func (m regexMatcher) Match(line string) (string, string, bool) {
	sm := m.re.FindStringSubmatch(line)
	if sm == nil {
		return "", "", false
	}
	return sm[1], strings.TrimSpace(sm[2]), true
}

func newMatcher(name, expr string) LineMatcher {
	return regexMatcher{name: name, re: regexp.MustCompile(expr)}
}

// QuestionStartPatterns is evaluated top to bottom and the first match wins.
// Explicit labels come before bare numbering so "Q1. text" is never read as "1.".
var QuestionStartPatterns = []LineMatcher{
	newMatcher("question-label", `(?i)^question\s*(\d+)\s*[.:)\-]?\s*(.*)$`),
	newMatcher("q-label", `(?i)^q\.?\s*(\d+)\s*[.:)]\s*(.*)$`),
	newMatcher("numeric", `^(\d+)\.(?:\s+|$)(.*)$`),
	newMatcher("lettered", `^\(([a-z])\)\s+(.*)$`),
	newMatcher("roman", `^((?:x{0,3})(?:ix|iv|v?i{0,3})|(?:X{0,3})(?:IX|IV|V?I{0,3}))\.\s+(.*)$`),
	newMatcher("bullet-numeric", `^[•●▪\-–*]\s*(\d+)[.)]\s+(.*)$`),
}

// OptionPatterns recognise multiple-choice option lines inside a span. Lines of the form "N."
// and "(a)" are claimed by QuestionStartPatterns first, so in practice options arrive as
// "a)", "ii)" or "N)".
var OptionPatterns = []LineMatcher{
	newMatcher("letter-option", `^\(?([a-hA-H])\)\s*(.*)$`),
	newMatcher("roman-option", `^\(?([ivx]{1,4})\)\s*(.*)$`),
	newMatcher("numeric-option", `^(\d{1,2})[.)]\s+(.*)$`),
}

var sectionHeaderRe = regexp.MustCompile(`(?i)^section\s+([A-Z])\s*[:\-–.]\s*(.+)$`)

// MatchQuestionStart returns the first question-start pattern matching line.
func MatchQuestionStart(line string) (label, rest string, ok bool) {
	for _, m := range QuestionStartPatterns {
		if label, rest, ok := m.Match(line); ok && label != "" {
			return label, rest, true
		}
	}
	return "", "", false
}

func MatchOption(line string) (key, text string, ok bool) {
	for _, m := range OptionPatterns {
		if key, text, ok := m.Match(line); ok {
			return key, text, true
		}
	}
	return "", "", false
}

// MatchSectionHeader returns the section name from lines like "Section B: Algebra".
func MatchSectionHeader(line string) (string, bool) {
	sm := sectionHeaderRe.FindStringSubmatch(line)
	if sm == nil {
		return "", false
	}
	return strings.TrimSpace(sm[2]), true
}

var (
	endPhraseRe    = regexp.MustCompile(`(?i)\b(end of (the )?(questions?|paper|section|exam(ination)?)|\*+\s*end\s*\*+)\b`)
	pageNumberRe   = regexp.MustCompile(`(?i)^(?:[-–]\s*)?(?:page\s*)?\d{1,4}(?:\s*(?:of|/)\s*\d{1,4})?(?:\s*[-–])?$`)
	ruleLineRe     = regexp.MustCompile(`^[\s_\-=*~.#•]*$`)
	continuedRe    = regexp.MustCompile(`(?i)(continued (on|to) (the )?next page|\(continued\)|\bcont(inue)?d\.?\s*$|\bp\.?\s*t\.?\s*o\.?$|turn over)`)
	letterRe       = regexp.MustCompile(`[A-Za-z]`)
	marksHintRe    = regexp.MustCompile(`(?i)\d+\s*(marks?|points?)`)
	maxHeaderChars = 60
	maxHeaderWords = 6
)

// EndHeuristic decides whether a line terminates the question being accumulated.
type EndHeuristic struct {
	Name  string
	Match func(line string) bool
}

// EndHeuristics covers the footer and header noise mixed into raw page text.
var EndHeuristics = []EndHeuristic{
	{Name: "end-phrase", Match: endPhraseRe.MatchString},
	{Name: "page-number", Match: pageNumberRe.MatchString},
	{Name: "rule-line", Match: isRuleLine},
	{Name: "continued-marker", Match: continuedRe.MatchString},
	{Name: "caps-header", Match: isCapsHeader},
}

// MatchQuestionEnd returns the name of the first end heuristic matching line.
func MatchQuestionEnd(line string) (string, bool) {
	for _, h := range EndHeuristics {
		if h.Match(line) {
			return h.Name, true
		}
	}
	return "", false
}

func isRuleLine(line string) bool {
	compact := strings.ReplaceAll(line, " ", "")
	if len([]rune(compact)) < 3 {
		return false
	}
	return ruleLineRe.MatchString(line)
}

func isCapsHeader(line string) bool {
	if len(line) > maxHeaderChars || marksHintRe.MatchString(line) {
		return false
	}
	if strings.HasSuffix(line, "?") {
		return false
	}
	// code and query lines are upper case too
	if strings.ContainsAny(line, ";=*(),<>") || len(strings.Fields(line)) > maxHeaderWords {
		return false
	}
	letters := 0
	for _, r := range line {
		if r >= 'a' && r <= 'z' {
			return false
		}
		if r >= 'A' && r <= 'Z' {
			letters++
		}
	}
	return letters >= 4 && letterRe.MatchString(line)
}

// marks annotations, tried in order
var marksPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\((\d+)\s*marks?\)`),
	regexp.MustCompile(`(?i)\[(\d+)\s*marks?\]`),
	regexp.MustCompile(`(?i)\((\d+)\s*points?\)`),
	regexp.MustCompile(`(?i)\[(\d+)\s*points?\]`),
}

var (
	mathSymbolRe   = regexp.MustCompile(`[∑∫∂∆∇√π∞≤≥≠≈±×÷∈∉⊂⊆∪∩∀∃θλμσφω→⇒⇔∝°]`)
	latexRe        = regexp.MustCompile(`\\[a-zA-Z]+|\$[^$]+\$|\\\(|\\\[`)
	mathFuncRe     = regexp.MustCompile(`(?i)\b(sin|cos|tan|cot|sec|cosec|log|ln|exp|sqrt|lim|integral|derivative|det)\b`)
	equationRe     = regexp.MustCompile(`\b[a-zA-Z]\s*=\s*[-+(]?\s*[\w(]`)
	exponentRe     = regexp.MustCompile(`[a-zA-Z0-9)]\s*\^\s*[-+]?[\w(]`)
	coefficientRe  = regexp.MustCompile(`(?i)\b\d+\s*[a-z]\b`)
	formulaWordsRe = regexp.MustCompile(`(?i)\b(equations?|formulae?|formulas|calculate|solve|derive|prove)\b`)

	diagramWordsRe = regexp.MustCompile(`(?i)\b(diagrams?|figures?|fig\.|draw|sketch|illustrat\w*|schematic)\b`)
	labelInstrRe   = regexp.MustCompile(`(?i)\b(label(l?ed)?|mark (the|on)|shade the|indicate on)\b`)
	coordinateRe   = regexp.MustCompile(`(?i)\b(axis|axes|origin|quadrants?|coordinates?|graph\s+paper)\b`)
	plotRe         = regexp.MustCompile(`(?i)\b(plot|draw|sketch)\s+(the\s+|a\s+)?(graphs?|curves?|points?)\b`)
	shapeRe        = regexp.MustCompile(`(?i)\b(triangles?|circles?|polygons?|rectangles?|squares?|parallelograms?|trapezi(um|a)|rhombus|hexagons?|pentagons?|ellipses?|cubes?|cylinders?|cones?|spheres?)\b`)
)

// ContainsFormulaStructure reports mathematical notation in text, ignoring formula keywords.
func ContainsFormulaStructure(text string) bool {
	return mathSymbolRe.MatchString(text) ||
		latexRe.MatchString(text) ||
		mathFuncRe.MatchString(text) ||
		equationRe.MatchString(text) ||
		exponentRe.MatchString(text) ||
		coefficientRe.MatchString(text)
}

// ContainsFormula is deliberately high recall; it only drives a badge.
func ContainsFormula(text string) bool {
	return ContainsFormulaStructure(text) || formulaWordsRe.MatchString(text)
}

func ContainsDiagram(text string) bool {
	return diagramWordsRe.MatchString(text) ||
		labelInstrRe.MatchString(text) ||
		coordinateRe.MatchString(text) ||
		plotRe.MatchString(text) ||
		shapeRe.MatchString(text)
}
