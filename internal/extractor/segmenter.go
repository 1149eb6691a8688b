package extractor

import "strings"

// Span is one question candidate cut out of a page's text.
type Span struct {
	Label      string
	Text       string
	PageNumber int
	Section    string
	Options    map[string]string
}

// Segmenter splits page text into question spans. The current section carries over
// from one page to the next, so pages of a document must be fed in order through
// the same Segmenter. Open spans never cross a page boundary.
type Segmenter struct {
	minQuestionLength int
	minStemForOptions int

	section string
}

func NewSegmenter(opts Options) *Segmenter {
	opts = opts.withDefaults()
	return &Segmenter{
		minQuestionLength: opts.MinQuestionLength,
		minStemForOptions: opts.MinStemForOptions,
	}
}

// Section returns the most recent section header seen, or "".
func (s *Segmenter) Section() string {
	return s.section
}

type spanBuilder struct {
	label   string
	section string
	parts   []string
	options map[string]string
}

func (b *spanBuilder) text() string {
	return strings.TrimSpace(strings.Join(b.parts, " "))
}

func (b *spanBuilder) add(line string) {
	if line != "" {
		b.parts = append(b.parts, line)
	}
}

// SegmentPage walks the lines of one page and returns the spans found on it.
func (s *Segmenter) SegmentPage(pageNumber int, text string) []Span {
	var (
		spans   []Span
		current *spanBuilder
	)

	flush := func() {
		if current == nil {
			return
		}
		joined := current.text()
		if len([]rune(joined)) >= s.minQuestionLength {
			span := Span{
				Label:      current.label,
				Text:       joined,
				PageNumber: pageNumber,
				Section:    current.section,
			}
			if len(current.options) > 0 {
				span.Options = current.options
			}
			spans = append(spans, span)
		}
		current = nil
	}

	for _, line := range splitLines(text) {
		if label, rest, ok := MatchQuestionStart(line); ok {
			flush()
			current = &spanBuilder{label: label, section: s.section}
			current.add(rest)
			continue
		}

		if name, ok := MatchSectionHeader(line); ok {
			flush()
			s.section = name
			continue
		}

		if current == nil {
			continue
		}

		if key, optText, ok := MatchOption(line); ok {
			// options after a very short stem are part of the stem
			if len([]rune(current.text())) >= s.minStemForOptions {
				if current.options == nil {
					current.options = map[string]string{}
				}
				current.options[key] = optText
			}
			current.add(line)
			continue
		}

		if _, ok := MatchQuestionEnd(line); ok {
			flush()
			continue
		}

		current.add(line)
	}
	flush()

	return spans
}

func splitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
