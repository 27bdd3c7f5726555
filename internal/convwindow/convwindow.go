// Package convwindow bounds the conversation message array that grows
// during a provider's tool-use loop.
package convwindow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Message is a format-neutral conversation entry. Content is opaque to the
// window; structured content blocks and tool-call identifiers are carried
// in the same value through trimming, never reconstructed.
type Message struct {
	Role       string
	Content    string
	ToolCallID string
	ToolUseID  string
}

// SummarizeFunc is injected by the provider that owns the window; the
// window itself never knows the concrete provider or model.
type SummarizeFunc func(ctx context.Context, prompt string) (string, error)

// Config mirrors config.ConversationHistoryConfig.
type Config struct {
	MaxMessages         int
	PreserveHead        int
	PreserveTail        int
	SummarizeOnTrim     bool
	SummarizerMaxTokens int
	SummarizeEveryN     int
}

// Metrics reports the outcome of a trim pass.
type Metrics struct {
	TotalMessages      int
	PreservedMessages  int
	EvictedMessages    int
	EstimatedTokens    int
}

const charsPerToken = 4

// Window bounds a conversation's message array in place.
type Window struct {
	cfg             Config
	summarize       SummarizeFunc
	evictedSinceSum int
}

// New constructs a Window. summarize may be nil, in which case
// SummarizeOnTrim is treated as false regardless of cfg.
func New(cfg Config, summarize SummarizeFunc) *Window {
	return &Window{cfg: cfg, summarize: summarize}
}

// EstimateTokens is the window's heuristic of content length / 4 plus 4 per
// message. It only feeds Metrics.EstimatedTokens; trimming is driven by
// message count, not by this estimate.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content)/charsPerToken + 4
	}
	return total
}

// Trim applies the head/tail-preservation algorithm of spec.md §4.3. If
// len(messages) <= MaxMessages it is a no-op. Otherwise the first
// PreserveHead and last PreserveTail messages are retained and the middle
// is dropped (optionally summarized first).
func (w *Window) Trim(ctx context.Context, messages []Message) ([]Message, Metrics) {
	total := len(messages)
	metrics := Metrics{TotalMessages: total, EstimatedTokens: EstimateTokens(messages)}

	if total <= w.cfg.MaxMessages {
		metrics.PreservedMessages = total
		return messages, metrics
	}

	head := w.cfg.PreserveHead
	tail := w.cfg.PreserveTail
	if head > total {
		head = total
	}
	if tail > total-head {
		tail = total - head
	}

	headMsgs := messages[:head]
	tailMsgs := messages[total-tail:]
	evicted := messages[head : total-tail]

	result := make([]Message, 0, head+tail+1)
	result = append(result, headMsgs...)

	if w.cfg.SummarizeOnTrim && w.summarize != nil && len(evicted) > 0 {
		w.evictedSinceSum += len(evicted)
		if w.evictedSinceSum >= max(w.cfg.SummarizeEveryN, 1) {
			if summary, ok := w.trySummarize(ctx, evicted); ok {
				result = append(result, Message{
					Role:    "assistant",
					Content: "[Conversation Summary] " + summary,
				})
				w.evictedSinceSum = 0
			}
		}
	}

	result = append(result, tailMsgs...)

	metrics.PreservedMessages = len(result)
	metrics.EvictedMessages = total - len(result)
	return result, metrics
}

func (w *Window) trySummarize(ctx context.Context, evicted []Message) (string, bool) {
	var sb strings.Builder
	for _, m := range evicted {
		fmt.Fprintf(&sb, "[%s]: %s\n", m.Role, m.Content)
	}
	if strings.TrimSpace(sb.String()) == "" {
		slog.Warn("conversation window: no meaningful text in evicted messages, falling back to plain eviction")
		return "", false
	}

	prompt := "Summarize the following conversation history concisely. Focus on: files read/written, decisions made, problems encountered, current state. Be factual and brief.\n\n" + sb.String()

	summary, err := w.summarize(ctx, prompt)
	if err != nil {
		slog.Warn("conversation window: summarizer failed, falling back to plain eviction", "error", err)
		return "", false
	}
	return summary, true
}
