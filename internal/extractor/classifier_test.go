package extractor

import (
	"strings"
	"sync"
	"testing"
)

const (
	longReflection = "Write a reflective account of your experience working in a team during the semester project, " +
		"covering the responsibilities you held, the challenges the group faced while meeting deadlines, the way " +
		"members communicated with each other, the lessons you learned about leadership and cooperation, and the " +
		"changes you would make if you were to repeat the same project again next year with new members."
	mediumReflection = "Write a reflective account of your experience working in a team during the semester project, " +
		"covering the responsibilities you held and the challenges the group faced while meeting every deadline set by the course staff."
)

func TestClassifier_QuestionType(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	tests := []struct {
		name string
		text string
		want string
	}{
		{"options", "Which planet is largest? a) Mars b) Jupiter c) Venus", TypeMultipleChoice},
		{"roman options", "Pick the odd one out (i) iron (ii) copper (iii) wood", TypeMultipleChoice},
		{"true false", "Circle True or False: the sun is a star.", TypeTrueFalse},
		{"true false marker", "True/False: a heap is a complete binary tree.", TypeMultipleChoice},
		{"true or false statement", "State True or False: every tree is a graph.", TypeMultipleChoice},
		{"t/f token", "A stack is FIFO. T/F", TypeMultipleChoice},
		{"bracketed t/f", "Every tree is a graph (T)/(F)", TypeMultipleChoice},
		{"select true or false", "Select true or false: a queue is FIFO.", TypeTrueFalse},
		{"matching", "Match the following terms with their definitions.", TypeMatching},
		{"fill in", "Fill in the blanks: The capital of France is ____.", TypeFillInBlank},
		{"diagram", "Draw a labelled sketch of the human eye.", TypeDiagram},
		{"calculation verb", "Calculate the speed of a car travelling 100 km in 2 hours.", TypeProblemSolving},
		{"formula structure", "If y = 3x + 2, what is y when x is 4?", TypeProblemSolving},
		{"proof", "Prove that every prime greater than two is odd.", TypeProof},
		{"case study", "Read the following case study about a retail company and recommend a strategy.", TypeCaseStudy},
		{"discussion verb", "Discuss the impact of globalisation on local economies.", TypeEssay},
		{"long text", longReflection, TypeEssay},
		{"explanatory verb", "Explain recursion. (3 marks)", TypeLongAnswer},
		{"wh word", "What is 2+2? (1 mark)", TypeShortAnswer},
		{"short text", "State Newton's first law.", TypeShortAnswer},
		{"default", mediumReflection, TypeLongAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.QuestionType(tt.text); got != tt.want {
				t.Errorf("QuestionType(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifier_RuleOrder(t *testing.T) {
	names := []string{}
	for _, r := range NewClassifier(DefaultOptions()).Rules() {
		names = append(names, r.Name)
	}
	want := "option-markers,true-false-selection,matching-phrase,fill-in-blank,diagram-vocabulary," +
		"calculation,proof-vocabulary,case-study,essay,explanatory-verb,short-answer"
	if got := strings.Join(names, ","); got != want {
		t.Fatalf("rule order\n got %s\nwant %s", got, want)
	}
}

func TestClassifier_EssayThresholdIsConfigurable(t *testing.T) {
	opts := DefaultOptions()
	opts.EssayWordThreshold = 30
	if got := NewClassifier(opts).QuestionType(mediumReflection); got != TypeEssay {
		t.Fatalf("got %q, want %q", got, TypeEssay)
	}
}

func TestClassify_ScenarioTuple(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	got := c.Classify("What is 2+2? (1 mark)")
	want := Classification{QuestionType: TypeShortAnswer, Difficulty: DifficultyEasy, Marks: 1}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}

	got = c.Classify("Explain recursion. (3 marks)")
	want = Classification{QuestionType: TypeLongAnswer, Difficulty: DifficultyEasy, Marks: 3}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestClassify_Difficulty(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	tests := []struct {
		text string
		want string
	}{
		{"Define a compiler.", DifficultyEasy},
		{mediumReflection, DifficultyMedium},
		{longReflection, DifficultyHard},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.text).Difficulty; got != tt.want {
			t.Errorf("difficulty of %d words = %s, want %s", len(strings.Fields(tt.text)), got, tt.want)
		}
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	texts := []string{
		"Solve x^2 - 4 = 0 and draw the graph. (6 marks)",
		longReflection,
		"Match the pairs [2 points]",
	}
	for _, text := range texts {
		first := c.Classify(text)

		var wg sync.WaitGroup
		results := make([]Classification, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = c.Classify(text)
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			if r != first {
				t.Fatalf("Classify(%q) not stable: %+v vs %+v", text, r, first)
			}
		}
	}
}

func TestExtractMarks(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Define a set. (5 marks)", 5},
		{"Define a set. (1 Mark)", 1},
		{"Define a set [10 MARKS]", 10},
		{"Define a set (2 points)", 2},
		{"Define a set [4 point]", 4},
		{"Define a set.", 1},
		{"Define a set (0 marks)", 1},
		{"Worth 5 marks overall", 1},
	}
	for _, tt := range tests {
		if got := ExtractMarks(tt.text); got != tt.want {
			t.Errorf("ExtractMarks(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestClassify_Flags(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	got := c.Classify("Solve x^2 - 4 = 0 and draw the graph. (6 marks)")
	if !got.HasFormula || !got.HasDiagram || got.Marks != 6 {
		t.Fatalf("got %+v", got)
	}

	got = c.Classify("Name the author of Hamlet.")
	if got.HasFormula || got.HasDiagram {
		t.Fatalf("got %+v", got)
	}
}
