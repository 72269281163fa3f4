// Package transform holds the text tool implementations used by the
// processing pipeline.
package transform

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"wordcraft/internal/domain"
)

// DefaultDelay mimics the latency of a remote model call.
const DefaultDelay = 1500 * time.Millisecond

// AIThreshold is the score above which text is reported as machine written.
const AIThreshold = 70

// SimulatedOptions tune a Simulated transformer.
type SimulatedOptions struct {
	Delay time.Duration
	// Source seeds the random scores. A zero value draws from the runtime.
	Source rand.Source
}

// Simulated produces deterministic-shape placeholder results locally.
type Simulated struct {
	delay time.Duration
	mu    sync.Mutex
	rng   *rand.Rand
}

// NewSimulated builds a local transformer.
func NewSimulated(opts SimulatedOptions) *Simulated {
	src := opts.Source
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Simulated{delay: opts.Delay, rng: rand.New(src)}
}

func (s *Simulated) Transform(ctx context.Context, text string, tool domain.ToolKind) (string, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	switch tool {
	case domain.ToolHumanizer:
		return Humanize(text), nil
	case domain.ToolPlagiarism:
		return PlagiarismReport(s.intN(15)), nil
	case domain.ToolAIDetector:
		return AIReport(s.intN(100)), nil
	}
	return "", fmt.Errorf("unsupported tool %q", tool)
}

func (s *Simulated) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

// Humanize rewrites ". " separated sentences with conversational fillers.
func Humanize(text string) string {
	sentences := strings.Split(text, ". ")
	for i, sentence := range sentences {
		switch {
		case i%2 == 0:
			sentences[i] = sentence + ", actually"
		case i%3 == 0:
			sentences[i] = "I mean, " + strings.ToLower(sentence)
		}
	}
	return strings.Join(sentences, ". ")
}

// PlagiarismReport formats a similarity percentage.
func PlagiarismReport(similarity int) string {
	return fmt.Sprintf("Plagiarism analysis complete. This text appears to be %d%% similar to existing content.", similarity)
}

// AIReport formats an AI probability score.
func AIReport(score int) string {
	verdict := "This text was likely written by a human."
	if score > AIThreshold {
		verdict = "This text was likely generated by AI."
	}
	return fmt.Sprintf("AI Probability Score: %d%%. %s", score, verdict)
}

var _ domain.Transformer = (*Simulated)(nil)
