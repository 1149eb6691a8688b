package extractor

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	TypeMultipleChoice = "Multiple Choice"
	TypeTrueFalse      = "True/False"
	TypeMatching       = "Matching"
	TypeFillInBlank    = "Fill in the Blank"
	TypeDiagram        = "Diagram-based"
	TypeProblemSolving = "Problem Solving"
	TypeProof          = "Proof"
	TypeCaseStudy      = "Case Study"
	TypeEssay          = "Essay"
	TypeLongAnswer     = "Long Answer"
	TypeShortAnswer    = "Short Answer"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Options holds the tunable thresholds of the segmenter and classifier.
type Options struct {
	MinQuestionLength        int
	MinStemForOptions        int
	EssayWordThreshold       int
	ShortAnswerWordThreshold int
	EasyWordLimit            int
	MediumWordLimit          int
}

func DefaultOptions() Options {
	return Options{
		MinQuestionLength:        10,
		MinStemForOptions:        50,
		EssayWordThreshold:       50,
		ShortAnswerWordThreshold: 30,
		EasyWordLimit:            20,
		MediumWordLimit:          50,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MinQuestionLength <= 0 {
		o.MinQuestionLength = def.MinQuestionLength
	}
	if o.MinStemForOptions <= 0 {
		o.MinStemForOptions = def.MinStemForOptions
	}
	if o.EssayWordThreshold <= 0 {
		o.EssayWordThreshold = def.EssayWordThreshold
	}
	if o.ShortAnswerWordThreshold <= 0 {
		o.ShortAnswerWordThreshold = def.ShortAnswerWordThreshold
	}
	if o.EasyWordLimit <= 0 {
		o.EasyWordLimit = def.EasyWordLimit
	}
	if o.MediumWordLimit <= 0 {
		o.MediumWordLimit = def.MediumWordLimit
	}
	return o
}

// Classification is the classifier verdict for one question text.
type Classification struct {
	QuestionType string
	Difficulty   string
	Marks        int
	HasFormula   bool
	HasDiagram   bool
}

// Rule is one entry of the type table. Rules are evaluated in order and the first match wins.
type Rule struct {
	Name  string
	Type  string
	Match func(text string, words int) bool
}

var (
	optionMarkerRe  = regexp.MustCompile(`(?i)(^|\s)(\(?[a-e]\)|\((i{1,3}|iv|v)\)|(i{1,3}|iv|v)\))(\s|$)`)
	trueFalseRe     = regexp.MustCompile(`(?i)\b(true\s*(/|or)\s*false|t\s*/\s*f)\b`)
	tfTokenRe       = regexp.MustCompile(`\bT\s*/\s*F\b|\(T\)\s*/?\s*\(F\)|(?i:^\s*true\s*/\s*false\s*[:\-])`)
	trueOrFalseRe   = regexp.MustCompile(`(?i)\btrue\s+or\s+false\b`)
	selectionVerbRe = regexp.MustCompile(`(?i)\b(circle|select|choose|tick|mark)\b`)
	matchingRe      = regexp.MustCompile(`(?i)\bmatch(ing)?\s+(the\s+)?(columns?|following|items|pairs)\b|\bcolumn\s+a\b.*\bcolumn\s+b\b`)
	fillBlankRe     = regexp.MustCompile(`(?i)\b(fill\s+in|complete\s+the)\b|_{3,}|\b(write|state)\s+the\s+_+`)
	calcVerbRe      = regexp.MustCompile(`(?i)\b(calculate|compute|solve|find|determine|evaluate|simplify)\b`)
	proofRe         = regexp.MustCompile(`(?i)\b(prove|show\s+that|demonstrate|verify|derive)\b`)
	caseStudyRe     = regexp.MustCompile(`(?i)\b(case\s+study|scenario|given\s+that)\b`)
	essayVerbRe     = regexp.MustCompile(`(?i)\b(discuss|analy[sz]e|critically|elaborate|compare\s+and\s+contrast|justify|assess|examine)\b`)
	explanatoryRe   = regexp.MustCompile(`(?i)\b(explain|describe)\b`)
	whWordRe        = regexp.MustCompile(`(?i)\b(what|which|who|whom|whose|when|where|why|how|define|name|list)\b`)
)

// Classifier assigns a question type, difficulty, marks and badges to question text.
// It holds no mutable state and is safe for concurrent use.
type Classifier struct {
	opts  Options
	rules []Rule
}

func NewClassifier(opts Options) *Classifier {
	c := &Classifier{opts: opts.withDefaults()}
	c.rules = c.buildRules()
	return c
}

func (c *Classifier) buildRules() []Rule {
	return []Rule{
		{Name: "option-markers", Type: TypeMultipleChoice, Match: func(text string, words int) bool {
			return optionMarkerRe.MatchString(text) || isTrueFalseToken(text)
		}},
		{Name: "true-false-selection", Type: TypeTrueFalse, Match: func(text string, words int) bool {
			return trueFalseRe.MatchString(text) && selectionVerbRe.MatchString(text)
		}},
		{Name: "matching-phrase", Type: TypeMatching, Match: func(text string, words int) bool {
			return matchingRe.MatchString(text)
		}},
		{Name: "fill-in-blank", Type: TypeFillInBlank, Match: func(text string, words int) bool {
			return fillBlankRe.MatchString(text)
		}},
		{Name: "diagram-vocabulary", Type: TypeDiagram, Match: func(text string, words int) bool {
			return ContainsDiagram(text)
		}},
		{Name: "calculation", Type: TypeProblemSolving, Match: func(text string, words int) bool {
			return calcVerbRe.MatchString(text) || ContainsFormulaStructure(text)
		}},
		{Name: "proof-vocabulary", Type: TypeProof, Match: func(text string, words int) bool {
			return proofRe.MatchString(text)
		}},
		{Name: "case-study", Type: TypeCaseStudy, Match: func(text string, words int) bool {
			return caseStudyRe.MatchString(text)
		}},
		{Name: "essay", Type: TypeEssay, Match: func(text string, words int) bool {
			return essayVerbRe.MatchString(text) || words > c.opts.EssayWordThreshold
		}},
		{Name: "explanatory-verb", Type: TypeLongAnswer, Match: func(text string, words int) bool {
			return explanatoryRe.MatchString(text)
		}},
		{Name: "short-answer", Type: TypeShortAnswer, Match: func(text string, words int) bool {
			return whWordRe.MatchString(text) || strings.Contains(text, "?") || words < c.opts.ShortAnswerWordThreshold
		}},
	}
}

// isTrueFalseToken reports explicit true/false answer tokens. A spelled-out
// "true or false" counts only without a selection verb; with one it belongs to
// the true-false-selection rule.
func isTrueFalseToken(text string) bool {
	if tfTokenRe.MatchString(text) {
		return true
	}
	return trueOrFalseRe.MatchString(text) && !selectionVerbRe.MatchString(text)
}

// Rules exposes the ordered rule table.
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify is a pure function of text.
func (c *Classifier) Classify(text string) Classification {
	words := len(strings.Fields(text))
	return Classification{
		QuestionType: c.questionType(text, words),
		Difficulty:   c.difficulty(words),
		Marks:        ExtractMarks(text),
		HasFormula:   ContainsFormula(text),
		HasDiagram:   ContainsDiagram(text),
	}
}

func (c *Classifier) QuestionType(text string) string {
	return c.questionType(text, len(strings.Fields(text)))
}

func (c *Classifier) questionType(text string, words int) string {
	for _, r := range c.rules {
		if r.Match(text, words) {
			return r.Type
		}
	}
	return TypeLongAnswer
}

func (c *Classifier) difficulty(words int) string {
	switch {
	case words < c.opts.EasyWordLimit:
		return DifficultyEasy
	case words < c.opts.MediumWordLimit:
		return DifficultyMedium
	default:
		return DifficultyHard
	}
}

// ExtractMarks returns the first positive mark annotation in text, or 1.
func ExtractMarks(text string) int {
	for _, re := range marksPatterns {
		sm := re.FindStringSubmatch(text)
		if sm == nil {
			continue
		}
		if n, err := strconv.Atoi(sm[1]); err == nil && n > 0 {
			return n
		}
	}
	return 1
}
