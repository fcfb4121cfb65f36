// Package orchestrator drives one chat turn end to end: semantic cache
// check, concurrent input guard and context fetch, generation, output
// guard, opportunistic cache writes, and the durable turn record.
//
// Exactly one turn record is written per call, on every path: cache
// hit, input rejection, successful generation, output rejection, and
// generator failure mid-turn. The record write sits in a deferred
// block so panics and disconnects cannot skip it.
package orchestrator

import (
	"context"
	"strings"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/contextfetch"
	"github.com/ragline-ai/ragline/internal/services/generation"
	"github.com/ragline-ai/ragline/internal/services/guardrails"
	"github.com/ragline-ai/ragline/internal/services/recorder"
	"github.com/ragline-ai/ragline/internal/services/semanticcache"
)

// Fixed user-facing strings. Clients and stored records depend on the
// exact text, so these never change casually.
const (
	RefusalText          = "sorry but i can't answer this :("
	OutputSubstituteText = "I'm unable to provide this response due to safety concerns."

	markerInputRejected  = "Input Guardrails Triggered"
	markerOutputRejected = "Output Guardrail Triggered"
	markerCachedResponse = "Response Cache Hit"
)

const systemPrompt = "You are a helpful assistant. Answer the user's question using only the " +
	"provided context. If the context does not contain the answer, say you don't know."

// TurnCache is the slice of the semantic cache the pipeline needs
type TurnCache interface {
	Check(ctx context.Context, query string) (semanticcache.Hit, []float32, error)
	InsertDocuments(ctx context.Context, queryVector []float32, documents []string) error
	InsertResponse(ctx context.Context, queryVector []float32, response string) error
}

// ContextFetcher resolves grounding context for a prompt
type ContextFetcher interface {
	Fetch(ctx context.Context, prompt string, queryVector []float32) contextfetch.Content
}

// Orchestrator owns no request state; every turn's accumulators live on
// the stack of the handling call.
type Orchestrator struct {
	cache       TurnCache
	inputGuard  guardrails.Classifier
	outputGuard guardrails.Classifier
	fetcher     ContextFetcher
	generator   generation.Generator
	recorder    recorder.TurnRecorder
}

func New(
	cache TurnCache,
	inputGuard, outputGuard guardrails.Classifier,
	fetcher ContextFetcher,
	generator generation.Generator,
	turnRecorder recorder.TurnRecorder,
) *Orchestrator {
	return &Orchestrator{
		cache:       cache,
		inputGuard:  inputGuard,
		outputGuard: outputGuard,
		fetcher:     fetcher,
		generator:   generator,
		recorder:    turnRecorder,
	}
}

// turnState carries the per-turn accumulators destined for the record
type turnState struct {
	record   models.TurnRecord
	recorded bool
}

func newTurnState(conversationID uint, prompt string) *turnState {
	return &turnState{
		record: models.TurnRecord{
			ConversationID: conversationID,
			RequestContent: prompt,
		},
	}
}

// writeRecord persists the turn exactly once. It runs under a context
// detached from the request so a client disconnect cannot lose the
// record.
func (o *Orchestrator) writeRecord(ctx context.Context, state *turnState) {
	if state.recorded {
		return
	}
	state.recorded = true
	if _, err := o.recorder.Record(context.WithoutCancel(ctx), state.record); err != nil {
		fiberlog.Errorf("turn record write failed: %v", err)
	}
}

// HandleTurn runs the buffered pipeline and returns the final text for
// the caller.
func (o *Orchestrator) HandleTurn(ctx context.Context, conversationID uint, prompt string) (finalText string, err error) {
	state := newTurnState(conversationID, prompt)
	defer o.writeRecord(ctx, state)

	hit, queryVector, cacheErr := o.cache.Check(ctx, prompt)
	if cacheErr != nil {
		fiberlog.Warnf("cache check failed, treating as miss: %v", cacheErr)
	}

	if hit.Kind == semanticcache.KindResponse {
		fiberlog.Debug("response cache hit")
		state.record.ResponseContent = hit.Response
		state.record.ThinkingContent = markerCachedResponse
		return hit.Response, nil
	}

	content, allowed := o.guardAndFetch(ctx, prompt, hit, queryVector)
	if !allowed {
		state.record.ResponseContent = RefusalText
		state.record.ThinkingContent = markerInputRejected
		return RefusalText, nil
	}

	state.record.RAGContent = content.RAGContent
	state.record.URLContent = content.URLContent

	out, genErr := o.generator.Invoke(ctx, systemPrompt, userMessage(prompt, content))
	if genErr != nil {
		return "", genErr
	}

	state.record.ResponseContent = out.Content
	state.record.ThinkingContent = out.Thinking

	verdict := o.outputGuard.Classify(ctx, out.Content)
	if !verdict.Allowed {
		fiberlog.Warnf("output guardrail triggered, blocking response: %s", verdict.Reason)
		state.record.ThinkingContent = markerOutputRejected
		return OutputSubstituteText, nil
	}

	o.populateCache(ctx, queryVector, hit, content, out.Content)
	return out.Content, nil
}

// guardAndFetch runs the input guard inline while the context fetch
// proceeds in the background. On rejection the fetch is cancelled and
// its result, if any, is discarded unread.
func (o *Orchestrator) guardAndFetch(ctx context.Context, prompt string, hit semanticcache.Hit, queryVector []float32) (contextfetch.Content, bool) {
	servedFromCache := hit.Kind == semanticcache.KindDocuments

	fetchCtx, cancelFetch := context.WithCancel(ctx)
	defer cancelFetch()

	var fetchCh chan contextfetch.Content
	if !servedFromCache {
		fetchCh = make(chan contextfetch.Content, 1)
		go func() {
			fetchCh <- o.fetcher.Fetch(fetchCtx, prompt, queryVector)
		}()
	}

	verdict := o.inputGuard.Classify(ctx, prompt)
	if !verdict.Allowed {
		fiberlog.Warnf("topical guardrail triggered: %s", verdict.Reason)
		cancelFetch()
		return contextfetch.Content{}, false
	}

	if servedFromCache {
		return contextfetch.Content{
			Documents:  hit.Documents,
			RAGContent: strings.Join(hit.Documents, "\n"),
		}, true
	}
	return <-fetchCh, true
}

// populateCache writes back whichever cache entries were not already
// served from cache this turn. Failures only cost future hits.
func (o *Orchestrator) populateCache(ctx context.Context, queryVector []float32, hit semanticcache.Hit, content contextfetch.Content, response string) {
	if queryVector == nil {
		return
	}
	if hit.Kind != semanticcache.KindDocuments && len(content.Documents) > 0 {
		if err := o.cache.InsertDocuments(ctx, queryVector, content.Documents); err != nil {
			fiberlog.Warnf("doc cache insert failed: %v", err)
		}
	}
	if err := o.cache.InsertResponse(ctx, queryVector, response); err != nil {
		fiberlog.Warnf("response cache insert failed: %v", err)
	}
}

// userMessage assembles the user-role message from the prompt and the
// retrieved context. Missing context is stated rather than omitted so
// the model does not hallucinate grounding.
func userMessage(prompt string, content contextfetch.Content) string {
	urls := content.URLContent
	if urls == "" {
		urls = "urls content Couldn't be fetched"
	}
	rag := content.RAGContent
	if rag == "" {
		rag = "rag content Couldn't be fetched"
	}
	return strings.Join([]string{prompt, urls, rag}, "\n\n")
}
