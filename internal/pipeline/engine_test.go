package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamin1108/reinvent-insight/internal/domain"
	"github.com/benjamin1108/reinvent-insight/internal/events"
	"github.com/benjamin1108/reinvent-insight/internal/llm"
	"github.com/benjamin1108/reinvent-insight/internal/prompt"
	"github.com/benjamin1108/reinvent-insight/internal/source"
	"github.com/benjamin1108/reinvent-insight/internal/task"
)

var chapterIndexRe = regexp.MustCompile(`chapter (\d+):`)

// stageGenerator is a hand-written Generator that recognizes the stage
// from the prompt text and delegates to injectable functions.
type stageGenerator struct {
	mu sync.Mutex

	OutlineFn    func(call int) (string, error)
	ChapterFn    func(index int) (string, error)
	ConclusionFn func() (string, error)

	outlineCalls int
	chapterOrder []int
}

func newStageGenerator(sections []string) *stageGenerator {
	var outline strings.Builder
	outline.WriteString("TITLE: Generated Report\n")
	for i, s := range sections {
		fmt.Fprintf(&outline, "%d. %s\n", i+1, s)
	}

	g := &stageGenerator{}
	g.OutlineFn = func(int) (string, error) { return outline.String(), nil }
	g.ChapterFn = func(index int) (string, error) {
		return fmt.Sprintf("body of chapter %d", index), nil
	}
	g.ConclusionFn = func() (string, error) { return "closing insights", nil }
	return g
}

func (g *stageGenerator) Generate(
	ctx context.Context,
	route llm.Route,
	promptText string,
) (string, error) {
	switch {
	case strings.Contains(promptText, "produce an outline"):
		g.mu.Lock()
		g.outlineCalls++
		calls := g.outlineCalls
		g.mu.Unlock()
		return g.OutlineFn(calls)
	case strings.Contains(promptText, "Write the complete body"):
		m := chapterIndexRe.FindStringSubmatch(promptText)
		if m == nil {
			return "", errors.New("test generator: no chapter index in prompt")
		}
		index, _ := strconv.Atoi(m[1])
		body, err := g.ChapterFn(index)
		if err == nil {
			g.mu.Lock()
			g.chapterOrder = append(g.chapterOrder, index)
			g.mu.Unlock()
		}
		return body, err
	case strings.Contains(promptText, "concluding"):
		return g.ConclusionFn()
	default:
		return "", errors.New("test generator: unrecognized prompt")
	}
}

func (g *stageGenerator) GenerateWithSource(
	ctx context.Context,
	route llm.Route,
	promptText string,
	src source.Content,
) (string, error) {
	return g.Generate(ctx, route, promptText)
}

func (g *stageGenerator) completionOrder() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int, len(g.chapterOrder))
	copy(out, g.chapterOrder)
	return out
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

func testRegistry() *llm.Registry {
	return llm.NewRegistry(map[string]llm.Route{
		"deep-summary": {Provider: "test", Model: "test-model", MaxRetries: 0},
	})
}

func newTestEngine(t *testing.T, generator Generator, config Config) *Engine {
	t.Helper()

	prompts, err := prompt.NewBuilder()
	require.NoError(t, err)

	engine, err := NewEngine(
		generator,
		testRegistry(),
		prompts,
		source.NewInlineResolver(),
		config,
		testLogger(),
	)
	require.NoError(t, err)
	return engine
}

// runJob executes the job to completion and returns the record plus the
// full event history.
func runJob(t *testing.T, ctx context.Context, engine *Engine, job Job) (*task.Record, []events.Event) {
	t.Helper()

	rec := task.NewRecord(job.TaskType)
	ch := task.NewChannel(100)

	engine.Runner(job)(ctx, rec, ch)

	require.True(t, ch.Closed(), "engine must close the channel")

	var history []events.Event
	for e := range ch.Subscribe(context.Background()) {
		history = append(history, e)
	}
	return rec, history
}

func summaryJob() Job {
	return Job{
		TaskType:   "deep-summary",
		SourceKind: source.KindTranscript,
		SourceRef:  "the transcript of a long technical talk",
	}
}

func TestEngine_HappyPath(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"Intro", "Architecture", "Lessons"})
	engine := newTestEngine(t, gen, DefaultConfig())

	rec, history := runJob(t, context.Background(), engine, summaryJob())

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusCompleted, snap.Status)
	assert.Equal(t, 100, snap.Progress)
	require.NotNil(t, snap.Result)
	assert.Equal(t, "Generated Report", snap.Result.Title)

	require.Len(t, snap.Result.Chapters, 3)
	for i, ch := range snap.Result.Chapters {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, fmt.Sprintf("body of chapter %d", i), ch.Body)
	}
	assert.Equal(t, "closing insights", snap.Result.Conclusion)

	// The terminal event is last, exactly once.
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, events.KindResult, last.Kind)
	for _, e := range history[:len(history)-1] {
		assert.False(t, e.Terminal())
	}

	// Progress events never regress.
	lastPercent := -1
	for _, e := range history {
		if e.Kind != events.KindProgress {
			continue
		}
		require.NotNil(t, e.Progress)
		assert.GreaterOrEqual(t, e.Progress.Percent, lastPercent)
		lastPercent = e.Progress.Percent
	}
	assert.Equal(t, 100, lastPercent)

	// The result event round-trips to the same report.
	var report domain.Report
	require.NoError(t, json.Unmarshal(last.Result, &report))
	assert.Equal(t, "Generated Report", report.Title)
}

func TestEngine_ChaptersReorderedToOutlineOrder(t *testing.T) {
	t.Parallel()

	// Three sections whose sub-calls complete in order [2, 0, 1] via
	// artificial delays: the assembled chapters must still be [0, 1, 2].
	gen := newStageGenerator([]string{"One", "Two", "Three"})

	delays := map[int]time.Duration{
		0: 60 * time.Millisecond,
		1: 120 * time.Millisecond,
		2: 5 * time.Millisecond,
	}
	gen.ChapterFn = func(index int) (string, error) {
		time.Sleep(delays[index])
		return fmt.Sprintf("body of chapter %d", index), nil
	}

	engine := newTestEngine(t, gen, Config{ChapterConcurrency: 3})

	rec, _ := runJob(t, context.Background(), engine, summaryJob())

	snap := rec.Snapshot()
	require.Equal(t, task.StatusCompleted, snap.Status)

	assert.Equal(t, []int{2, 0, 1}, gen.completionOrder(), "test setup should force out-of-order completion")

	require.Len(t, snap.Result.Chapters, 3)
	for i, ch := range snap.Result.Chapters {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, fmt.Sprintf("body of chapter %d", i), ch.Body)
	}
}

func TestEngine_OutlineFailureIsFatal(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One"})
	gen.OutlineFn = func(int) (string, error) {
		return "", fmt.Errorf("%w: exhausted", llm.ErrRetriesExhausted)
	}

	engine := newTestEngine(t, gen, DefaultConfig())

	rec, history := runJob(t, context.Background(), engine, summaryJob())

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "outline generation failed")
	assert.Contains(t, snap.ErrorMessage, "retries exhausted")
	assert.Nil(t, snap.Result)

	last := history[len(history)-1]
	assert.Equal(t, events.KindError, last.Kind)
	assert.Empty(t, gen.completionOrder(), "no chapter work after outline failure")
}

func TestEngine_SingleChapterFailureFailsTask(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One", "Two", "Three", "Four"})
	gen.ChapterFn = func(index int) (string, error) {
		if index == 2 {
			return "", fmt.Errorf("%w: exhausted", llm.ErrRetriesExhausted)
		}
		return fmt.Sprintf("body of chapter %d", index), nil
	}

	engine := newTestEngine(t, gen, Config{ChapterConcurrency: 2})

	rec, history := runJob(t, context.Background(), engine, summaryJob())

	// All-or-nothing: no partial report.
	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Nil(t, snap.Result)
	assert.Contains(t, snap.ErrorMessage, "chapter generation failed")
	assert.Contains(t, snap.ErrorMessage, "chapter 2")

	last := history[len(history)-1]
	assert.Equal(t, events.KindError, last.Kind)
}

func TestEngine_MalformedOutlineFailsTask(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One"})
	gen.OutlineFn = func(int) (string, error) {
		return "I could not find any structure in this talk, sorry.", nil
	}

	engine := newTestEngine(t, gen, DefaultConfig())

	rec, _ := runJob(t, context.Background(), engine, summaryJob())

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "malformed outline")
}

func TestEngine_UnknownTaskType(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One"})
	engine := newTestEngine(t, gen, DefaultConfig())

	job := summaryJob()
	job.TaskType = "nonexistent"

	rec, _ := runJob(t, context.Background(), engine, job)

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "unknown task type")
}

func TestEngine_CancellationEndsInError(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One", "Two", "Three"})

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	gen.ChapterFn = func(index int) (string, error) {
		once.Do(func() { close(started) })
		time.Sleep(50 * time.Millisecond)
		return "body", nil
	}

	go func() {
		<-started
		cancel()
	}()

	engine := newTestEngine(t, gen, Config{ChapterConcurrency: 1})

	rec, history := runJob(t, ctx, engine, summaryJob())

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Equal(t, "task cancelled", snap.ErrorMessage)
	assert.Nil(t, snap.Result)

	last := history[len(history)-1]
	assert.Equal(t, events.KindError, last.Kind)
	assert.Equal(t, "task cancelled", last.Message)
}

func TestEngine_EmptySourceFailsBeforeProviderCalls(t *testing.T) {
	t.Parallel()

	gen := newStageGenerator([]string{"One"})
	engine := newTestEngine(t, gen, DefaultConfig())

	job := summaryJob()
	job.SourceRef = "   "

	rec, _ := runJob(t, context.Background(), engine, job)

	snap := rec.Snapshot()
	assert.Equal(t, task.StatusError, snap.Status)
	assert.Contains(t, snap.ErrorMessage, "failed to resolve source")
}
