package orchestrator

import (
	"context"
	"errors"
	"io"

	fiberlog "github.com/gofiber/fiber/v2/log"

	"github.com/ragline-ai/ragline/internal/models"
	"github.com/ragline-ai/ragline/internal/services/generation"
	"github.com/ragline-ai/ragline/internal/services/semanticcache"
	"github.com/ragline-ai/ragline/internal/utils"
)

// HandleTurnStream runs the streaming pipeline. The returned channel
// yields thinking and content fragments as the model produces them and
// is closed after the terminal event. Rejection, retraction, and
// generator failure each end the stream with their own event kind.
//
// Content reaches the caller before the output guard has ruled on it;
// a post-hoc rejection emits a retracted event carrying the substitute
// text, but the already-delivered fragments cannot be unsent. The turn
// record is written in all cases, with whatever content had been
// accumulated by the time the stream ended.
func (o *Orchestrator) HandleTurnStream(ctx context.Context, conversationID uint, prompt string) <-chan models.StreamEvent {
	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		o.runStream(ctx, conversationID, prompt, events)
	}()
	return events
}

func (o *Orchestrator) runStream(ctx context.Context, conversationID uint, prompt string, events chan<- models.StreamEvent) {
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
		emit(ctx, events, models.StreamEvent{Kind: models.StreamEventContent, Text: hit.Response})
		return
	}

	content, allowed := o.guardAndFetch(ctx, prompt, hit, queryVector)
	if !allowed {
		state.record.ResponseContent = RefusalText
		state.record.ThinkingContent = markerInputRejected
		emit(ctx, events, models.StreamEvent{Kind: models.StreamEventRejected, Text: RefusalText})
		return
	}

	state.record.RAGContent = content.RAGContent
	state.record.URLContent = content.URLContent

	stream, err := o.generator.Stream(ctx, systemPrompt, userMessage(prompt, content))
	if err != nil {
		emit(ctx, events, models.StreamEvent{Kind: models.StreamEventError, Err: err})
		return
	}
	defer stream.Close()

	contentBuf := utils.Get()
	thinkingBuf := utils.Get()
	defer utils.Put(contentBuf)
	defer utils.Put(thinkingBuf)

	// The record must capture whatever was accumulated, on every exit
	// from the drain loop below.
	defer func() {
		state.record.ResponseContent = contentBuf.String()
		state.record.ThinkingContent = thinkingBuf.String()
	}()

	for {
		chunk, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fiberlog.Errorf("generation stream failed: %v", err)
			emit(ctx, events, models.StreamEvent{Kind: models.StreamEventError, Err: err})
			return
		}

		switch chunk.Kind {
		case generation.ChunkThinking:
			_, _ = thinkingBuf.WriteString(chunk.Text)
			if !emit(ctx, events, models.StreamEvent{Kind: models.StreamEventThinking, Text: chunk.Text}) {
				return
			}
		case generation.ChunkContent:
			_, _ = contentBuf.WriteString(chunk.Text)
			if !emit(ctx, events, models.StreamEvent{Kind: models.StreamEventContent, Text: chunk.Text}) {
				return
			}
		}
	}

	finalContent := contentBuf.String()
	verdict := o.outputGuard.Classify(ctx, finalContent)
	if !verdict.Allowed {
		fiberlog.Warnf("output guardrail triggered, retracting response: %s", verdict.Reason)
		thinkingBuf.Reset()
		_, _ = thinkingBuf.WriteString(markerOutputRejected)
		emit(ctx, events, models.StreamEvent{Kind: models.StreamEventRetracted, Text: OutputSubstituteText})
		return
	}

	o.populateCache(ctx, queryVector, hit, content, finalContent)
}

// emit delivers one event unless the consumer is gone. A false return
// means the caller disconnected and the producer should stop.
func emit(ctx context.Context, events chan<- models.StreamEvent, event models.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}
