package convwindow

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func makeMessages(n int) []Message {
	out := make([]Message, n)
	for i := range out {
		out[i] = Message{Role: "user", Content: "message body"}
	}
	return out
}

func TestTrim_NoOpUnderLimit(t *testing.T) {
	w := New(Config{MaxMessages: 100, PreserveHead: 5, PreserveTail: 20}, nil)
	msgs := makeMessages(50)

	out, metrics := w.Trim(context.Background(), msgs)

	if len(out) != 50 {
		t.Errorf("expected no-op, got %d messages", len(out))
	}
	if metrics.PreservedMessages != 50 {
		t.Errorf("PreservedMessages = %d, want 50", metrics.PreservedMessages)
	}
}

func TestTrim_EqualToMax_IsNoOp(t *testing.T) {
	w := New(Config{MaxMessages: 10, PreserveHead: 2, PreserveTail: 3}, nil)
	msgs := makeMessages(10)

	out, _ := w.Trim(context.Background(), msgs)
	if len(out) != 10 {
		t.Errorf("expected exactly-at-limit to no-op, got %d", len(out))
	}
}

func TestTrim_PreservesHeadAndTail(t *testing.T) {
	w := New(Config{MaxMessages: 10, PreserveHead: 2, PreserveTail: 3}, nil)
	msgs := make([]Message, 20)
	for i := range msgs {
		msgs[i] = Message{Role: "user", Content: "m"}
		msgs[i].Content = "m" + string(rune('0'+i%10))
	}

	out, metrics := w.Trim(context.Background(), msgs)

	if len(out) != 5 {
		t.Fatalf("expected 5 preserved messages (2 head + 3 tail), got %d", len(out))
	}
	for i := 0; i < 2; i++ {
		if out[i] != msgs[i] {
			t.Errorf("head message %d not preserved byte-equal", i)
		}
	}
	for i := 0; i < 3; i++ {
		if out[2+i] != msgs[len(msgs)-3+i] {
			t.Errorf("tail message %d not preserved byte-equal", i)
		}
	}
	if metrics.EvictedMessages != 15 {
		t.Errorf("EvictedMessages = %d, want 15", metrics.EvictedMessages)
	}
}

func TestTrim_SummarizeOnTrim_InsertsSyntheticMessage(t *testing.T) {
	calls := 0
	summarize := func(ctx context.Context, prompt string) (string, error) {
		calls++
		return "concise summary", nil
	}
	w := New(Config{
		MaxMessages: 5, PreserveHead: 1, PreserveTail: 1,
		SummarizeOnTrim: true, SummarizeEveryN: 1,
	}, summarize)

	msgs := makeMessages(10)
	out, _ := w.Trim(context.Background(), msgs)

	if calls != 1 {
		t.Fatalf("expected summarizer to be called once, got %d", calls)
	}
	found := false
	for _, m := range out {
		if strings.Contains(m.Content, "[Conversation Summary]") {
			found = true
		}
	}
	if !found {
		t.Error("expected a synthetic [Conversation Summary] message in the output")
	}
}

func TestTrim_SummarizerFailure_FallsBackSilently(t *testing.T) {
	summarize := func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("timeout")
	}
	w := New(Config{
		MaxMessages: 5, PreserveHead: 1, PreserveTail: 1,
		SummarizeOnTrim: true, SummarizeEveryN: 1,
	}, summarize)

	msgs := makeMessages(10)
	out, _ := w.Trim(context.Background(), msgs)

	for _, m := range out {
		if strings.Contains(m.Content, "Summary") {
			t.Error("did not expect a summary message when the summarizer fails")
		}
	}
	if len(out) != 2 {
		t.Errorf("expected plain head+tail eviction fallback (2 messages), got %d", len(out))
	}
}

func TestEstimateTokens(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "Hello world"},
		{Role: "assistant", Content: "Hi there mate"},
	}
	if got, want := EstimateTokens(msgs), 13; got != want {
		t.Errorf("EstimateTokens = %d, want %d", got, want)
	}
}
