// Package pipeline runs a text tool against the credit ledger and persists
// the result in the document store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"wordcraft/internal/domain"
)

// ErrNothingToSave is returned by Save when there is no tool output.
var ErrNothingToSave = fmt.Errorf("%w: output is empty, nothing to save", domain.ErrValidation)

// Charger debits the price of a tool run.
type Charger interface {
	Charge(ctx context.Context, tool domain.ToolKind) (domain.Profile, error)
}

// DocumentWriter is the document store capability the pipeline needs.
type DocumentWriter interface {
	Create(ctx context.Context, draft domain.DocumentDraft) (domain.Document, error)
	Update(ctx context.Context, id string, patch domain.DocumentPatch) (domain.Document, error)
	Current() (domain.Document, bool)
}

// Options tune a Pipeline.
type Options struct {
	Now    func() time.Time
	Locale language.Tag
}

// Pipeline orchestrates charge, transform and save.
type Pipeline struct {
	ledger    Charger
	docs      DocumentWriter
	transform domain.Transformer
	logger    zerolog.Logger
	now       func() time.Time
	locale    language.Tag
}

// New wires a pipeline.
func New(ledger Charger, docs DocumentWriter, transform domain.Transformer, logger zerolog.Logger, opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Locale == language.Und {
		opts.Locale = language.AmericanEnglish
	}
	return &Pipeline{
		ledger:    ledger,
		docs:      docs,
		transform: transform,
		logger:    logger.With().Str("component", "pipeline").Logger(),
		now:       opts.Now,
		locale:    opts.Locale,
	}
}

// Result is the outcome of Run. Skipped is set for blank input, in which case
// nothing was charged.
type Result struct {
	Tool    domain.ToolKind
	Input   string
	Output  string
	Balance int
	Skipped bool
}

// Run charges the tool's price and then transforms input. Credits are
// consumed per attempt: a transform failure after a successful charge is not
// refunded.
func (p *Pipeline) Run(ctx context.Context, tool domain.ToolKind, input string) (Result, error) {
	res := Result{Tool: tool, Input: input}
	if strings.TrimSpace(input) == "" {
		res.Skipped = true
		return res, nil
	}
	if !tool.Valid() {
		return res, domain.Validation("unknown tool %q", tool)
	}
	profile, err := p.ledger.Charge(ctx, tool)
	if err != nil {
		return res, err
	}
	res.Balance = profile.Credits

	start := p.now()
	out, err := p.transform.Transform(ctx, input, tool)
	if err != nil {
		p.logger.Error().Err(err).Str("tool", tool.String()).Msg("transform failed after charge")
		if errors.Is(err, domain.ErrTransform) {
			return res, err
		}
		return res, domain.Transform(tool, err)
	}
	res.Output = out
	p.logger.Info().Str("tool", tool.String()).Int("balance", res.Balance).Dur("took", p.now().Sub(start)).Msg("tool run complete")
	return res, nil
}

// SaveRequest describes a manual save. An empty ExistingID inserts a new
// document; an empty Title on insert gets the default title.
type SaveRequest struct {
	ExistingID string
	Title      string
	Input      string
	Output     string
	Tool       domain.ToolKind
}

// Save persists a tool result, updating ExistingID when set and inserting
// otherwise.
func (p *Pipeline) Save(ctx context.Context, req SaveRequest) (domain.Document, error) {
	if req.Output == "" {
		return domain.Document{}, ErrNothingToSave
	}
	if req.ExistingID != "" {
		patch := domain.DocumentPatch{
			Content:          &req.Input,
			ProcessedContent: &req.Output,
		}
		if req.Tool != "" {
			patch.Tool = &req.Tool
		}
		if title := strings.TrimSpace(req.Title); title != "" {
			patch.Title = &title
		}
		return p.docs.Update(ctx, req.ExistingID, patch)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle(req.Tool, p.now(), p.locale)
	}
	return p.docs.Create(ctx, domain.DocumentDraft{
		Title:            title,
		Content:          req.Input,
		ProcessedContent: req.Output,
		Tool:             req.Tool,
	})
}

// RunAndAutoSave runs the tool and always stores the result as a new
// document with the default title.
func (p *Pipeline) RunAndAutoSave(ctx context.Context, tool domain.ToolKind, input string) (Result, *domain.Document, error) {
	res, err := p.Run(ctx, tool, input)
	if err != nil || res.Skipped {
		return res, nil, err
	}
	doc, err := p.Save(ctx, SaveRequest{Input: input, Output: res.Output, Tool: tool})
	if err != nil {
		return res, nil, err
	}
	return res, &doc, nil
}

// Draft is a tool result waiting for an explicit save.
type Draft struct {
	Result
	p *Pipeline
}

// RunThenManualSave runs the tool and hands back a Draft. Nothing is
// persisted until Draft.Save is called.
func (p *Pipeline) RunThenManualSave(ctx context.Context, tool domain.ToolKind, input string) (*Draft, error) {
	res, err := p.Run(ctx, tool, input)
	if err != nil {
		return nil, err
	}
	return &Draft{Result: res, p: p}, nil
}

// Save persists the draft. When the document store has a current document
// the draft updates it, otherwise a new document is created and becomes
// current.
func (d *Draft) Save(ctx context.Context, title string) (domain.Document, error) {
	req := SaveRequest{Title: title, Input: d.Input, Output: d.Output, Tool: d.Tool}
	if cur, ok := d.p.docs.Current(); ok {
		req.ExistingID = cur.ID
	}
	return d.p.Save(ctx, req)
}
