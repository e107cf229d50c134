package ingest

import (
	"strings"
	"unicode/utf8"
)

// Splitter defaults, matching the token splitter the corpus was first indexed with.
const (
	DefaultChunkSize             = 800
	DefaultMinChunkSizeChars     = 350
	DefaultMinChunkLengthToEmbed = 5
	DefaultMaxNumChunks          = 10000
)

type Page struct {
	Number int
	Text   string
}

type PageChunk struct {
	Page int
	Text string
}

// TokenTextSplitter cuts text into windows of at most ChunkSize tokens,
// shortening each window to its last sentence boundary when that boundary
// lies past MinChunkSizeChars. Windows do not overlap.
type TokenTextSplitter struct {
	Tokenizer             Tokenizer
	ChunkSize             int
	MinChunkSizeChars     int
	MinChunkLengthToEmbed int
	MaxNumChunks          int
	KeepSeparator         bool
}

func NewTokenTextSplitter(tok Tokenizer) *TokenTextSplitter {
	return &TokenTextSplitter{
		Tokenizer:             tok,
		ChunkSize:             DefaultChunkSize,
		MinChunkSizeChars:     DefaultMinChunkSizeChars,
		MinChunkLengthToEmbed: DefaultMinChunkLengthToEmbed,
		MaxNumChunks:          DefaultMaxNumChunks,
		KeepSeparator:         true,
	}
}

// SplitPages splits every page independently so each chunk keeps its page number.
func (s *TokenTextSplitter) SplitPages(pages []Page) []PageChunk {
	var out []PageChunk
	for _, p := range pages {
		for _, text := range s.Split(p.Text) {
			out = append(out, PageChunk{Page: p.Number, Text: text})
		}
	}
	return out
}

func (s *TokenTextSplitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	tokens := s.Tokenizer.Encode(text)
	var chunks []string
	numChunks := 0
	for len(tokens) > 0 && numChunks < s.MaxNumChunks {
		window, chunkText := s.decodeWindow(tokens[:min(s.ChunkSize, len(tokens))])

		if strings.TrimSpace(chunkText) == "" {
			tokens = tokens[len(window):]
			continue
		}

		consumed := len(window)
		if cut := strings.LastIndexAny(chunkText, ".?!\n"); cut != -1 && cut > s.MinChunkSizeChars {
			chunkText = chunkText[:cut+1]
			if n := len(s.Tokenizer.Encode(chunkText)); n > 0 && n < consumed {
				consumed = n
			}
		}

		if out := s.clean(chunkText); len(out) > s.MinChunkLengthToEmbed {
			chunks = append(chunks, out)
		}
		tokens = tokens[consumed:]
		numChunks++
	}

	if len(tokens) > 0 {
		rest := strings.ToValidUTF8(s.Tokenizer.Decode(tokens), "\uFFFD")
		rest = strings.TrimSpace(strings.ReplaceAll(rest, "\n", " "))
		if len(rest) > s.MinChunkLengthToEmbed {
			chunks = append(chunks, rest)
		}
	}
	return chunks
}

// decodeWindow drops up to utf8.UTFMax-1 trailing tokens so the window does
// not end inside a multi-byte rune. Byte-level BPE encodings split many
// non-ASCII characters across tokens. A window that cannot be trimmed to a
// rune boundary is decoded with replacement characters.
func (s *TokenTextSplitter) decodeWindow(window []int) ([]int, string) {
	text := s.Tokenizer.Decode(window)
	for trim := 1; !utf8.ValidString(text) && trim < utf8.UTFMax && trim < len(window); trim++ {
		if t := s.Tokenizer.Decode(window[:len(window)-trim]); utf8.ValidString(t) {
			return window[:len(window)-trim], t
		}
	}
	return window, strings.ToValidUTF8(text, "\uFFFD")
}

func (s *TokenTextSplitter) clean(text string) string {
	if s.KeepSeparator {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
}
