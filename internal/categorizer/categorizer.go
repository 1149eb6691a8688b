// Package categorizer assigns questions to the unit and topic of a subject whose
// name and description are most similar to the question text.
//
// Similarity is TF-IDF cosine over the two-document corpus made of the question
// and the candidate, so scores are deterministic and directly inspectable.
package categorizer

import (
	"math"
	"sort"
)

const DefaultThreshold = 0.1

// Node is a unit or topic as seen by the categorizer.
type Node struct {
	ID          uint
	Name        string
	Description string
}

func (n Node) text() string {
	return n.Name + " " + n.Description
}

// Unit is a unit with its topics.
type Unit struct {
	Node
	Topics []Node
}

type Match struct {
	ID    uint
	Score float64
}

// Result holds the independent unit and topic assignments. A nil field means no
// candidate scored above the threshold.
type Result struct {
	Unit  *Match
	Topic *Match
}

type Categorizer struct {
	threshold float64
}

func New(threshold float64) *Categorizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Categorizer{threshold: threshold}
}

func (c *Categorizer) Threshold() float64 {
	return c.threshold
}

// Categorize scores text against every unit and, independently, against every
// topic of every unit. Ties keep the first candidate in tree order.
func (c *Categorizer) Categorize(text string, units []Unit) Result {
	var res Result
	query := Tokenize(text)
	if len(query) == 0 {
		return res
	}

	var bestUnit, bestTopic Match
	for _, u := range units {
		if s := similarity(query, Tokenize(u.text())); s > bestUnit.Score {
			bestUnit = Match{ID: u.ID, Score: s}
		}
		for _, t := range u.Topics {
			if s := similarity(query, Tokenize(t.text())); s > bestTopic.Score {
				bestTopic = Match{ID: t.ID, Score: s}
			}
		}
	}

	if bestUnit.Score > c.threshold {
		res.Unit = &bestUnit
	}
	if bestTopic.Score > c.threshold {
		res.Topic = &bestTopic
	}
	return res
}

// Similarity returns the TF-IDF cosine similarity of two texts in [0, 1].
func Similarity(a, b string) float64 {
	return similarity(Tokenize(a), Tokenize(b))
}

func similarity(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	tfA, tfB := termCounts(a), termCounts(b)

	// smoothed idf over the two-document corpus
	idf := func(term string) float64 {
		df := 0
		if _, ok := tfA[term]; ok {
			df++
		}
		if _, ok := tfB[term]; ok {
			df++
		}
		return math.Log(3.0/float64(1+df)) + 1
	}

	var dot, normA, normB float64
	for _, term := range sortedTerms(tfA) {
		w := float64(tfA[term]) * idf(term)
		normA += w * w
		if m, ok := tfB[term]; ok {
			dot += w * float64(m) * idf(term)
		}
	}
	for _, term := range sortedTerms(tfB) {
		w := float64(tfB[term]) * idf(term)
		normB += w * w
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return math.Min(1, dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}

// sortedTerms fixes the summation order so scores are bit-for-bit reproducible.
func sortedTerms(counts map[string]int) []string {
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func termCounts(tokens []string) map[string]int {
	counts := make(map[string]int, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}
