// ============================================================================
// Dolmetscher - Sprach-Übersetzungsclient
// ============================================================================
//
// Package:     store
// Description: Saved transcripts with variant lineage
// Author:      Mike Stoffels
// Created:     2026-10-14
// License:     MIT
// ============================================================================

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrTranscriptNotFound is returned when a referenced transcript does not exist
var ErrTranscriptNotFound = errors.New("transcript not found")

// Transcript is a persisted recording with its transcription and
// translations. Records are never updated in place.
type Transcript struct {
	ID                 int64             `json:"id"`
	CreatedAt          time.Time         `json:"createdAt"`
	Audio              []byte            `json:"-"`
	AudioMimeType      string            `json:"audioMimeType"`
	SourceText         string            `json:"sourceText"`
	SourceLanguageCode string            `json:"sourceLanguageCode"`
	TargetCodes        []string          `json:"targetCodes"`
	Translations       map[string]string `json:"translations"`
	VariantGroupID     string            `json:"variantGroupId"`
	VariantOfID        *int64            `json:"variantOfId"`
	Usage              *Usage            `json:"usage,omitempty"`
}

// Usage is the API usage reported for the call that produced a transcript
type Usage struct {
	AudioSeconds     float64 `json:"audioSeconds"`
	PromptTokens     int     `json:"promptTokens"`
	CompletionTokens int     `json:"completionTokens"`
	TotalTokens      int     `json:"totalTokens"`
}

// IsRoot reports whether the transcript starts its lineage
func (t *Transcript) IsRoot() bool {
	return t.VariantOfID == nil
}

// NewTranscript holds the fields of a transcript to be saved
type NewTranscript struct {
	Audio              []byte
	AudioMimeType      string
	SourceText         string
	SourceLanguageCode string
	TargetCodes        []string
	Translations       map[string]string
	Usage              *Usage
}

// VariantOptions links a new transcript into an existing lineage
type VariantOptions struct {
	VariantGroupID string
	VariantOfID    *int64
}

// AddNew persists a transcript. Without a group id a new lineage is
// started. With a parent id the record joins the parent's lineage; with
// only a group id it is attached to the newest record of that group.
func (d *DB) AddNew(ctx context.Context, fields NewTranscript, opts VariantOptions) (*Transcript, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	groupID := opts.VariantGroupID
	parentID := opts.VariantOfID

	if parentID != nil {
		var parentGroup string
		err := d.db.QueryRowContext(ctx, `SELECT variant_group_id FROM transcripts WHERE id = ?`, *parentID).Scan(&parentGroup)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, fmt.Errorf("%w: parent %d", ErrTranscriptNotFound, *parentID)
			}
			return nil, fmt.Errorf("failed to look up parent transcript: %w", err)
		}
		if groupID == "" {
			groupID = parentGroup
		} else if groupID != parentGroup {
			return nil, fmt.Errorf("parent %d belongs to group %s, not %s", *parentID, parentGroup, groupID)
		}
	} else if groupID != "" {
		var latest int64
		err := d.db.QueryRowContext(ctx, `
			SELECT id FROM transcripts WHERE variant_group_id = ?
			ORDER BY created_at DESC, id DESC LIMIT 1
		`, groupID).Scan(&latest)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("failed to look up variant group: %w", err)
		}
		if err == nil {
			parentID = &latest
		}
	}

	if groupID == "" {
		groupID = uuid.New().String()
	}

	targets := fields.TargetCodes
	if targets == nil {
		targets = []string{}
	}
	translations := fields.Translations
	if translations == nil {
		translations = map[string]string{}
	}
	targetsJSON, err := json.Marshal(targets)
	if err != nil {
		return nil, fmt.Errorf("failed to encode target codes: %w", err)
	}
	translationsJSON, err := json.Marshal(translations)
	if err != nil {
		return nil, fmt.Errorf("failed to encode translations: %w", err)
	}

	var usageJSON sql.NullString
	if fields.Usage != nil {
		b, err := json.Marshal(fields.Usage)
		if err != nil {
			return nil, fmt.Errorf("failed to encode usage: %w", err)
		}
		usageJSON = sql.NullString{String: string(b), Valid: true}
	}

	audio, codec := d.blobs.encode(fields.Audio)
	now := d.now()

	var variantOf sql.NullInt64
	if parentID != nil {
		variantOf = sql.NullInt64{Int64: *parentID, Valid: true}
	}

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO transcripts (created_at, audio, audio_codec, audio_mime, source_text, source_language,
			target_codes, translations, variant_group_id, variant_of_id, usage_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, toMillis(now), audio, codec, fields.AudioMimeType, fields.SourceText, fields.SourceLanguageCode,
		string(targetsJSON), string(translationsJSON), groupID, variantOf, usageJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to save transcript: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript id: %w", err)
	}

	d.logger.Debug("transcript saved", "id", id, "group", groupID, "codec", codec)

	return &Transcript{
		ID:                 id,
		CreatedAt:          fromMillis(toMillis(now)),
		Audio:              fields.Audio,
		AudioMimeType:      fields.AudioMimeType,
		SourceText:         fields.SourceText,
		SourceLanguageCode: fields.SourceLanguageCode,
		TargetCodes:        append([]string(nil), targets...),
		Translations:       copyMap(translations),
		VariantGroupID:     groupID,
		VariantOfID:        parentID,
		Usage:              copyUsage(fields.Usage),
	}, nil
}

// Remove deletes one transcript. Variants pointing at it keep their
// variant_of_id.
func (d *DB) Remove(ctx context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	res, err := d.db.ExecContext(ctx, `DELETE FROM transcripts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return fmt.Errorf("%w: %d", ErrTranscriptNotFound, id)
	}
	return nil
}

const transcriptColumns = `id, created_at, audio, audio_codec, audio_mime, source_text, source_language,
	target_codes, translations, variant_group_id, variant_of_id, usage_json`

// Get returns a transcript by id, or nil if it does not exist
func (d *DB) Get(ctx context.Context, id int64) (*Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	row := d.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	t, err := d.scanTranscript(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transcript: %w", err)
	}
	return t, nil
}

// List returns transcripts, most recent first. limit <= 0 returns all.
func (d *DB) List(ctx context.Context, limit int) ([]*Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+transcriptColumns+` FROM transcripts
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts: %w", err)
	}
	defer rows.Close()

	return d.collect(rows)
}

// ByGroup returns all transcripts of one lineage in creation order
func (d *DB) ByGroup(ctx context.Context, groupID string) ([]*Transcript, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT `+transcriptColumns+` FROM transcripts
		WHERE variant_group_id = ?
		ORDER BY created_at ASC, id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query variant group: %w", err)
	}
	defer rows.Close()

	return d.collect(rows)
}

func (d *DB) collect(rows *sql.Rows) ([]*Transcript, error) {
	var out []*Transcript
	for rows.Next() {
		t, err := d.scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transcript: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transcripts: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (d *DB) scanTranscript(row rowScanner) (*Transcript, error) {
	var (
		t            Transcript
		createdAt    int64
		audio        []byte
		codec        string
		targets      string
		translations string
		variantOf    sql.NullInt64
		usage        sql.NullString
	)

	err := row.Scan(&t.ID, &createdAt, &audio, &codec, &t.AudioMimeType, &t.SourceText, &t.SourceLanguageCode,
		&targets, &translations, &t.VariantGroupID, &variantOf, &usage)
	if err != nil {
		return nil, err
	}

	t.CreatedAt = fromMillis(createdAt)
	if variantOf.Valid {
		id := variantOf.Int64
		t.VariantOfID = &id
	}
	if t.Audio, err = d.blobs.decode(audio, codec); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(targets), &t.TargetCodes); err != nil {
		return nil, fmt.Errorf("invalid target codes: %w", err)
	}
	if err := json.Unmarshal([]byte(translations), &t.Translations); err != nil {
		return nil, fmt.Errorf("invalid translations: %w", err)
	}
	if usage.Valid {
		t.Usage = &Usage{}
		if err := json.Unmarshal([]byte(usage.String), t.Usage); err != nil {
			return nil, fmt.Errorf("invalid usage: %w", err)
		}
	}
	return &t, nil
}

func copyUsage(u *Usage) *Usage {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
