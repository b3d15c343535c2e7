// Package pipeline runs the four-stage report generation sequence for one
// task: outline, bounded-parallel chapters, conclusion, and local assembly.
// The engine is the single producer of its task's events and owns all
// terminal state transitions.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/benjamin1108/reinvent-insight/internal/domain"
	"github.com/benjamin1108/reinvent-insight/internal/events"
	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/prompt"
	"github.com/benjamin1108/reinvent-insight/internal/source"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

// Progress weights per stage. Chapters fill the span between
// progressOutline and progressChapters proportionally to completed
// sub-calls.
const (
	progressOutline    = 10
	progressChapters   = 80
	progressConclusion = 90
)

// ErrCancelled marks a task that was stopped by cooperative cancellation.
var ErrCancelled = errors.New("task cancelled")

// Generator is the single-fallible-call view of the provider client; the
// retry and rate-limit machinery behind it is invisible here.
type Generator interface {
	Generate(ctx context.Context, route llm.Route, prompt string) (string, error)
	GenerateWithSource(
		ctx context.Context,
		route llm.Route,
		prompt string,
		src source.Content,
	) (string, error)
}

// Job describes one submitted analysis.
type Job struct {
	TaskType   string
	SourceKind source.Kind
	SourceRef  string
}

// Config holds engine tuning knobs.
type Config struct {
	// ChapterConcurrency caps parallel chapter sub-calls within one task.
	// The cap is per task; the provider rate limiter is the global,
	// cross-task throttle.
	ChapterConcurrency int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{ChapterConcurrency: 4}
}

// Engine executes analysis jobs.
type Engine struct {
	generator Generator
	registry  *llm.Registry
	prompts   *prompt.Builder
	resolver  source.Resolver
	logger    *slog.Logger
	config    Config
}

// NewEngine creates an Engine.
func NewEngine(
	generator Generator,
	registry *llm.Registry,
	prompts *prompt.Builder,
	resolver source.Resolver,
	config Config,
	logger *slog.Logger,
) (*Engine, error) {
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if registry == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if prompts == nil {
		return nil, errors.New("prompt builder cannot be nil")
	}
	if resolver == nil {
		return nil, errors.New("source resolver cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if config.ChapterConcurrency <= 0 {
		config.ChapterConcurrency = DefaultConfig().ChapterConcurrency
	}

	return &Engine{
		generator: generator,
		registry:  registry,
		prompts:   prompts,
		resolver:  resolver,
		logger:    logger.With("component", "pipeline_engine"),
		config:    config,
	}, nil
}

// Runner returns the task.RunFunc executing the given job.
func (e *Engine) Runner(job Job) task.RunFunc {
	return func(ctx context.Context, rec *task.Record, ch *task.Channel) {
		e.run(ctx, job, rec, ch)
	}
}

// run drives the stage sequence. It always leaves rec in a terminal state
// and closes ch exactly once.
func (e *Engine) run(ctx context.Context, job Job, rec *task.Record, ch *task.Channel) {
	logger := e.logger.With("task_id", rec.ID(), "task_type", job.TaskType)

	emit := newEmitter(rec, ch, logger)
	defer ch.Close()

	rec.SetRunning()
	emit.log("analysis started")

	route, err := e.registry.Resolve(job.TaskType)
	if err != nil {
		emit.fail(fmt.Sprintf("unknown task type %q", job.TaskType))
		return
	}

	src, err := e.resolver.Resolve(ctx, job.SourceKind, job.SourceRef)
	if err != nil {
		emit.fail(fmt.Sprintf("failed to resolve source: %v", err))
		return
	}

	outline, err := e.runOutline(ctx, route, src, emit)
	if err != nil {
		emit.failFromErr("outline generation failed", err)
		return
	}

	chapters, err := e.runChapters(ctx, route, src, outline, emit)
	if err != nil {
		emit.failFromErr("chapter generation failed", err)
		return
	}

	conclusion, err := e.runConclusion(ctx, route, outline, chapters, emit)
	if err != nil {
		emit.failFromErr("conclusion generation failed", err)
		return
	}

	// Assembly is pure and local: no provider call can fail the task here
	// short of a programming error.
	report, err := domain.NewReport(outline, chapters, conclusion)
	if err != nil {
		emit.fail(fmt.Sprintf("report assembly failed: %v", err))
		return
	}

	resultEvent, err := events.NewResult(report)
	if err != nil {
		emit.fail(fmt.Sprintf("failed to serialize result: %v", err))
		return
	}

	rec.Complete(report)
	emit.progress(100, "report assembled")
	emit.publish(resultEvent)
	logger.Info("analysis completed", "chapters", len(chapters))
}

// runOutline performs the outline stage. Failure here is fatal to the
// task; there is no partial-outline fallback.
func (e *Engine) runOutline(
	ctx context.Context,
	route llm.Route,
	src source.Content,
	emit *emitter,
) (domain.Outline, error) {
	if err := ctx.Err(); err != nil {
		return domain.Outline{}, ErrCancelled
	}

	promptText, err := e.prompts.Build(prompt.StageOutline, prompt.OutlineData{
		SourceText: src.Text,
	})
	if err != nil {
		return domain.Outline{}, err
	}

	text, err := e.callProvider(context.WithoutCancel(ctx), route, promptText, src)
	if err != nil {
		return domain.Outline{}, err
	}
	if ctx.Err() != nil {
		return domain.Outline{}, ErrCancelled
	}

	outline, err := parseOutline(text)
	if err != nil {
		return domain.Outline{}, err
	}

	emit.progress(progressOutline, "outline generated")
	emit.log(fmt.Sprintf("outline generated: %q, %d sections", outline.Title, len(outline.Sections)))
	return outline, nil
}

// runChapters fans out one sub-call per outline section, capped at the
// configured concurrency. Results are collected by outline index so the
// assembled sequence reproduces outline order regardless of completion
// order. Any sub-call failure fails the whole task; a partial report is
// never produced.
func (e *Engine) runChapters(
	ctx context.Context,
	route llm.Route,
	src source.Content,
	outline domain.Outline,
	emit *emitter,
) ([]domain.Chapter, error) {
	total := len(outline.Sections)
	bodies := make([]string, total)

	titles := make([]string, total)
	for i, s := range outline.Sections {
		titles[i] = s.Title
	}

	var (
		mu        sync.Mutex
		completed int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.ChapterConcurrency)

	for _, section := range outline.Sections {
		g.Go(func() error {
			// Cancellation (cooperative or sibling failure) prevents new
			// work; it does not abort calls already in flight.
			if gctx.Err() != nil {
				return nil
			}

			promptText, err := e.prompts.Build(prompt.StageChapter, prompt.ChapterData{
				ReportTitle:   outline.Title,
				SectionTitles: titles,
				Index:         section.Index,
				SectionTitle:  section.Title,
				SourceText:    src.Text,
			})
			if err != nil {
				return err
			}

			body, err := e.callProvider(context.WithoutCancel(gctx), route, promptText, src)
			if err != nil {
				return fmt.Errorf("chapter %d (%q): %w", section.Index, section.Title, err)
			}

			bodies[section.Index] = body

			// Publishing under the counter lock keeps the progress event
			// sequence monotone even when chapters finish back-to-back.
			mu.Lock()
			completed++
			percent := progressOutline +
				(progressChapters-progressOutline)*completed/total
			emit.progress(percent, fmt.Sprintf("%d/%d chapters completed", completed, total))
			emit.log(fmt.Sprintf("chapter %d/%d completed: %q", section.Index+1, total, section.Title))
			mu.Unlock()
			return nil
		})
	}

	err := g.Wait()
	if ctx.Err() != nil {
		// Results of calls that finished after cancellation are discarded.
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, err
	}

	chapters := make([]domain.Chapter, total)
	for i, s := range outline.Sections {
		chapters[i] = domain.Chapter{Index: i, Title: s.Title, Body: bodies[i]}
	}
	return chapters, nil
}

// runConclusion performs the conclusion stage over the full chapter set.
func (e *Engine) runConclusion(
	ctx context.Context,
	route llm.Route,
	outline domain.Outline,
	chapters []domain.Chapter,
	emit *emitter,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}

	bodies := make([]string, len(chapters))
	for i, ch := range chapters {
		bodies[i] = ch.Body
	}

	promptText, err := e.prompts.Build(prompt.StageConclusion, prompt.ConclusionData{
		ReportTitle: outline.Title,
		Chapters:    bodies,
	})
	if err != nil {
		return "", err
	}

	text, err := e.generator.Generate(context.WithoutCancel(ctx), route, promptText)
	if err != nil {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ErrCancelled
	}

	emit.progress(progressConclusion, "conclusion generated")
	emit.log("conclusion generated")
	return text, nil
}

// callProvider routes to the plain or source-augmented call depending on
// the source shape. Document sources travel as file references on every
// stage call; transcript text is already embedded in the prompt.
func (e *Engine) callProvider(
	ctx context.Context,
	route llm.Route,
	promptText string,
	src source.Content,
) (string, error) {
	if src.Kind == source.KindDocument {
		return e.generator.GenerateWithSource(ctx, route, promptText, src)
	}
	return e.generator.Generate(ctx, route, promptText)
}

// emitter couples record mutations with channel publications so every
// user-visible state change is also an event.
type emitter struct {
	rec    *task.Record
	ch     *task.Channel
	logger *slog.Logger
}

func newEmitter(rec *task.Record, ch *task.Channel, logger *slog.Logger) *emitter {
	return &emitter{rec: rec, ch: ch, logger: logger}
}

func (em *emitter) publish(e events.Event) {
	if err := em.ch.Publish(e); err != nil {
		em.logger.Error("failed to publish event", "kind", e.Kind, "error", err)
	}
}

func (em *emitter) log(message string) {
	em.rec.AppendLog(message)
	em.publish(events.NewLog(message))
	em.logger.Debug(message)
}

func (em *emitter) progress(percent int, message string) {
	em.rec.SetProgress(percent)
	em.publish(events.NewProgress(percent, message))
}

// fail records the terminal error state and its event. The channel is
// closed by the deferred Close in run.
func (em *emitter) fail(message string) {
	em.rec.Fail(message)
	em.publish(events.NewError(message))
	em.logger.Error("task failed", "reason", message)
}

// failFromErr keeps cancellation messages distinct from provider failures.
func (em *emitter) failFromErr(stage string, err error) {
	if errors.Is(err, ErrCancelled) {
		em.fail("task cancelled")
		return
	}
	em.fail(fmt.Sprintf("%s: %v", stage, err))
}
