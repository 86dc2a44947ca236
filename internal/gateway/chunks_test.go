package gateway

import (
	"context"
	"strings"
	"testing"
)

func TestSplitChunkSourceGroupsSentences(t *testing.T) {
	script := "The village sleeps. A bell rings out across the square. " +
		"Doors open one by one as the light climbs. The baker is already at work. " +
		"Smoke rises from the first chimney of the day."
	src := &SplitChunkSource{}

	chunks, err := src.Chunks(context.Background(), script)
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want the script split up", len(chunks))
	}
	for i, ch := range chunks {
		if strings.TrimSpace(ch.Text) == "" {
			t.Errorf("chunk %d has empty text", i)
		}
		if !strings.Contains(ch.VisualPrompt, ch.Text) {
			t.Errorf("chunk %d visual prompt does not derive from its text", i)
		}
	}

	// Every word of the script must survive, in order.
	joined := strings.Join(strings.Fields(script), " ")
	var rebuilt []string
	for _, ch := range chunks {
		rebuilt = append(rebuilt, ch.Text)
	}
	if got := strings.Join(rebuilt, " "); got != joined {
		t.Errorf("rebuilt script = %q, want %q", got, joined)
	}
}

func TestSplitChunkSourceEmptyScript(t *testing.T) {
	src := &SplitChunkSource{}
	chunks, err := src.Chunks(context.Background(), "   ")
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Errorf("got %d chunks for a blank script", len(chunks))
	}
}

func TestSplitChunkSourceSingleSentence(t *testing.T) {
	src := &SplitChunkSource{}
	chunks, err := src.Chunks(context.Background(), "A single short line")
	if err != nil {
		t.Fatalf("Chunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0].Text != "A single short line" {
		t.Errorf("text = %q", chunks[0].Text)
	}
}

func TestChunkSourceSelection(t *testing.T) {
	if _, ok := ChunkSource(nil, nil).(*SplitChunkSource); !ok {
		t.Error("nil client must select the deterministic splitter")
	}
	c := &Client{}
	if _, ok := ChunkSource(c, nil).(*SplitChunkSource); !ok {
		t.Error("client without a chat model must select the deterministic splitter")
	}
	c.ChatModel = "chat-1"
	if _, ok := ChunkSource(c, nil).(*chatChunkSource); !ok {
		t.Error("client with a chat model must select the chat chunker")
	}
}
