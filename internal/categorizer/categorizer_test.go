package categorizer

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func dataStructuresTree() []Unit {
	return []Unit{
		{
			Node: Node{ID: 1, Name: "Linear Data Structures", Description: "arrays linked lists stacks and queues"},
			Topics: []Node{
				{ID: 10, Name: "Stacks", Description: "push pop operations and last in first out order"},
				{ID: 11, Name: "Queues", Description: "enqueue dequeue and circular buffers"},
			},
		},
		{
			Node: Node{ID: 2, Name: "Non-linear Data Structures", Description: "trees and graph search traversal"},
			Topics: []Node{
				{ID: 20, Name: "Binary Trees", Description: "traversal inorder preorder postorder"},
				{ID: 21, Name: "Graph Search", Description: "breadth first and depth first traversal of graphs"},
			},
		},
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("What is the time-complexity of a B-tree's insert? (5 marks)")
	want := []string{"time", "complexity", "tree", "insert", "marks"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestSimilarity_IdenticalTextIsOne(t *testing.T) {
	text := "Stacks push pop operations and last in first out order"
	if got := Similarity(text, text); math.Abs(got-1) > 1e-9 {
		t.Fatalf("Similarity = %v, want 1", got)
	}
}

func TestSimilarity_Degenerate(t *testing.T) {
	tests := []struct{ a, b string }{
		{"", "stacks"},
		{"the of and", "stacks"},
		{"stacks", "   "},
		{"queues", "binary trees"},
	}
	for _, tt := range tests {
		if got := Similarity(tt.a, tt.b); got != 0 {
			t.Errorf("Similarity(%q, %q) = %v, want 0", tt.a, tt.b, got)
		}
	}
}

func TestCategorize_IdenticalTopicText(t *testing.T) {
	c := New(DefaultThreshold)
	res := c.Categorize("Graph Search breadth first and depth first traversal of graphs", dataStructuresTree())

	if res.Topic == nil || res.Topic.ID != 21 {
		t.Fatalf("topic = %+v, want 21", res.Topic)
	}
	if math.Abs(res.Topic.Score-1) > 1e-9 {
		t.Fatalf("topic score = %v, want 1", res.Topic.Score)
	}
	if res.Unit == nil || res.Unit.ID != 2 {
		t.Fatalf("unit = %+v, want 2", res.Unit)
	}
}

func TestCategorize_TopicsScoredAcrossAllUnits(t *testing.T) {
	units := []Unit{
		{
			Node:   Node{ID: 1, Name: "Sorting", Description: "quicksort and mergesort"},
			Topics: []Node{{ID: 10, Name: "Hashing", Description: "hash tables collisions"}},
		},
		{
			Node:   Node{ID: 2, Name: "Hashing", Description: "hash functions"},
			Topics: []Node{{ID: 20, Name: "Quicksort", Description: "pivot partition quicksort"}},
		},
	}
	res := New(DefaultThreshold).Categorize("Describe quicksort partition around a pivot", units)

	if res.Unit == nil || res.Unit.ID != 1 {
		t.Fatalf("unit = %+v, want 1", res.Unit)
	}
	if res.Topic == nil || res.Topic.ID != 20 {
		t.Fatalf("topic = %+v, want 20 from the other unit", res.Topic)
	}
}

func TestCategorize_NoOverlap(t *testing.T) {
	res := New(DefaultThreshold).Categorize("Who wrote Hamlet and Macbeth?", dataStructuresTree())
	if res.Unit != nil || res.Topic != nil {
		t.Fatalf("got %+v, want no assignment", res)
	}
}

func TestCategorize_EmptyText(t *testing.T) {
	res := New(DefaultThreshold).Categorize("  the a of  ", dataStructuresTree())
	if res.Unit != nil || res.Topic != nil {
		t.Fatalf("got %+v, want no assignment", res)
	}
}

func TestCategorize_ThresholdIsStrict(t *testing.T) {
	units := []Unit{{Node: Node{ID: 7, Name: "Stacks"}}}
	score := Similarity("stacks", "Stacks")

	if res := New(score).Categorize("stacks", units); res.Unit != nil {
		t.Fatalf("score equal to threshold must not assign, got %+v", res.Unit)
	}
	if res := New(score / 2).Categorize("stacks", units); res.Unit == nil {
		t.Fatal("score above threshold must assign")
	}
}

func TestCategorize_FirstMaximumWins(t *testing.T) {
	units := []Unit{
		{Node: Node{ID: 1, Name: "Recursion"}},
		{Node: Node{ID: 2, Name: "Recursion"}},
	}
	res := New(DefaultThreshold).Categorize("recursion", units)
	if res.Unit == nil || res.Unit.ID != 1 {
		t.Fatalf("unit = %+v, want 1", res.Unit)
	}
}
