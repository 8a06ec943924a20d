package orchestrator

import (
	"context"
	"fmt"

	"github.com/msto63/dolmetscher/internal/audio"
	"github.com/msto63/dolmetscher/internal/store"
	"github.com/msto63/dolmetscher/internal/translate"
)

// SaveCurrent persists the last successful result as a new lineage root
func (o *Orchestrator) SaveCurrent(ctx context.Context) (*store.Transcript, error) {
	if o.transcripts == nil {
		return nil, ErrNoTranscripts
	}

	o.mu.RLock()
	snap := o.state.clone()
	rec := o.recording
	o.mu.RUnlock()

	if snap.InFlight || !snap.HasResult() || rec == nil {
		return nil, ErrNothingToSave
	}

	saved, err := o.transcripts.AddNew(ctx, fieldsFrom(snap, *rec), store.VariantOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to save transcript: %w", err)
	}
	o.logger.Info("Transcript saved", "id", saved.ID, "group", saved.VariantGroupID)
	return saved, nil
}

// RetranslateAndSave runs the pipeline again on a saved recording with the
// current targets and stores the result as a variant of that record.
func (o *Orchestrator) RetranslateAndSave(ctx context.Context, id int64) (*store.Transcript, error) {
	if o.transcripts == nil {
		return nil, ErrNoTranscripts
	}

	parent, err := o.transcripts.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("transcript %d: %w", id, store.ErrTranscriptNotFound)
	}

	rec := audio.Recording{Data: parent.Audio, MimeType: parent.AudioMimeType}
	result, err := o.TranscribeAndTranslate(ctx, rec)
	if err != nil {
		return nil, err
	}

	fields := store.NewTranscript{
		Audio:              rec.Data,
		AudioMimeType:      rec.MimeType,
		SourceText:         result.SourceText,
		SourceLanguageCode: result.SourceLanguageCode,
		TargetCodes:        result.TargetCodes,
		Translations:       result.Translations,
		Usage:              storeUsage(result.Usage),
	}
	parentID := parent.ID
	saved, err := o.transcripts.AddNew(ctx, fields, store.VariantOptions{
		VariantGroupID: parent.VariantGroupID,
		VariantOfID:    &parentID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save variant: %w", err)
	}
	o.logger.Info("Variant saved", "id", saved.ID, "parent", parentID, "group", saved.VariantGroupID)
	return saved, nil
}

func fieldsFrom(s State, rec audio.Recording) store.NewTranscript {
	return store.NewTranscript{
		Audio:              rec.Data,
		AudioMimeType:      rec.MimeType,
		SourceText:         s.SourceText,
		SourceLanguageCode: s.SourceLanguageCode,
		TargetCodes:        s.TargetCodes,
		Translations:       s.Translations,
		Usage:              storeUsage(s.Usage),
	}
}

func storeUsage(u *translate.Usage) *store.Usage {
	if u == nil {
		return nil
	}
	return &store.Usage{
		AudioSeconds:     u.AudioSeconds,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}
