package gateway

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"storythingy/storyboard-api/internal/segmenter"
)

// targetChunkWords is roughly 5-7 seconds of narration at 140 wpm.
const targetChunkWords = 14

const chunkPrompt = `Split the following narration script into scenes of roughly 5-7 seconds
of spoken narration each. For every scene return the exact script substring it narrates and a
visual prompt describing a single image that depicts it. Reply with a JSON array only, each
element {"text": "...", "visual_prompt": "..."}.

Script:
%s`

// ChunkSource returns the configured script chunker: chat-model backed
// when a chat model is set, with the deterministic splitter as fallback
// when the model call fails or no model is configured.
func ChunkSource(c *Client, log *logrus.Logger) segmenter.ChunkSource {
	if c == nil || c.ChatModel == "" {
		return &SplitChunkSource{}
	}
	return &chatChunkSource{client: c, fallback: &SplitChunkSource{}, log: log}
}

type chatChunkSource struct {
	client   *Client
	fallback *SplitChunkSource
	log      *logrus.Logger
}

func (s *chatChunkSource) Chunks(ctx context.Context, script string) ([]segmenter.Chunk, error) {
	var chunks []segmenter.Chunk
	err := s.client.ChatJSON(ctx, fmt.Sprintf(chunkPrompt, script), &chunks)
	if err == nil && len(chunks) > 0 {
		return chunks, nil
	}
	if s.log != nil {
		s.log.WithError(err).Warn("Chat chunking failed, falling back to sentence splitter")
	}
	return s.fallback.Chunks(ctx, script)
}

// SplitChunkSource is the deterministic fallback: it splits the script on
// sentence boundaries and groups sentences into chunks near the target
// narration length, deriving a plain visual prompt from each chunk's text.
type SplitChunkSource struct{}

var sentenceEnd = regexp.MustCompile(`([.!?]+)\s+`)

func (s *SplitChunkSource) Chunks(_ context.Context, script string) ([]segmenter.Chunk, error) {
	sentences := splitSentences(script)
	if len(sentences) == 0 {
		return nil, nil
	}

	var chunks []segmenter.Chunk
	var current []string
	words := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		text := strings.Join(current, " ")
		chunks = append(chunks, segmenter.Chunk{
			Text:         text,
			VisualPrompt: visualPromptFor(text),
		})
		current = current[:0]
		words = 0
	}
	for _, sent := range sentences {
		n := len(strings.Fields(sent))
		if words > 0 && words+n > targetChunkWords*2 {
			flush()
		}
		current = append(current, sent)
		words += n
		if words >= targetChunkWords {
			flush()
		}
	}
	flush()
	return chunks, nil
}

func splitSentences(script string) []string {
	normalized := strings.Join(strings.Fields(script), " ")
	marked := sentenceEnd.ReplaceAllString(normalized, "$1\n")
	var out []string
	for _, part := range strings.Split(marked, "\n") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func visualPromptFor(text string) string {
	return "Cinematic illustration, detailed and atmospheric: " + text
}
