// Package translate translates caption entries in fixed-size batches.
package translate

import (
	"context"

	"autocut/internal/types"
	"autocut/log"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

const DefaultBatchSize = 10

// Batcher sends caption texts to a Translator in groups. A group that fails,
// or comes back with the wrong number of lines, keeps its original text.
type Batcher struct {
	Translator types.Translator
	BatchSize  int
}

// TranslateEntries returns a copy of entries with translated text. The result
// always has len(entries) items with unchanged timings.
func (b *Batcher) TranslateEntries(ctx context.Context, entries []types.CaptionEntry, targetLanguage string) []types.CaptionEntry {
	size := b.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := make([]types.CaptionEntry, len(entries))
	copy(out, entries)

	offset := 0
	for batchNo, batch := range lo.Chunk(entries, size) {
		texts := lo.Map(batch, func(e types.CaptionEntry, _ int) string { return e.Text })

		translated, err := b.Translator.Translate(ctx, texts, targetLanguage)
		switch {
		case err != nil:
			log.GetLogger().Warn("translate batch failed, keeping original text",
				zap.Int("batch", batchNo), zap.Int("size", len(texts)), zap.Error(err))
		case len(translated) != len(texts):
			log.GetLogger().Warn("translate batch returned wrong line count, keeping original text",
				zap.Int("batch", batchNo), zap.Int("want", len(texts)), zap.Int("got", len(translated)))
		default:
			for i, text := range translated {
				out[offset+i].Text = text
			}
		}
		offset += len(batch)
	}
	return out
}
