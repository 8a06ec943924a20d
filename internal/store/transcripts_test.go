package store

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
)

func sample(text string) NewTranscript {
	return NewTranscript{
		Audio:              bytes.Repeat([]byte("audio-"+text), 64),
		AudioMimeType:      "audio/wav",
		SourceText:         text,
		SourceLanguageCode: "de",
		TargetCodes:        []string{"fr", "en"},
		Translations:       map[string]string{"fr": text + "-fr", "en": text + "-en"},
	}
}

func TestAddNew_StartsLineage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.AddNew(ctx, sample("hallo"), VariantOptions{})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}
	if rec.ID == 0 {
		t.Error("ID should be assigned")
	}
	if rec.VariantGroupID == "" {
		t.Error("VariantGroupID should be minted")
	}
	if !rec.IsRoot() {
		t.Error("first record should be a root")
	}

	other, _ := db.AddNew(ctx, sample("welt"), VariantOptions{})
	if other.VariantGroupID == rec.VariantGroupID {
		t.Error("independent saves must get distinct groups")
	}

	got, err := db.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(got.Audio, sample("hallo").Audio) {
		t.Error("audio did not round trip")
	}
	if !reflect.DeepEqual(got.Translations, rec.Translations) || !reflect.DeepEqual(got.TargetCodes, []string{"fr", "en"}) {
		t.Errorf("Get() = %+v", got)
	}
	if !got.CreatedAt.Equal(rec.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rec.CreatedAt)
	}
}

func TestAddNew_VariantLineageInvariant(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, err := db.AddNew(ctx, sample("v0"), VariantOptions{})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}

	const n = 5
	parent := root
	for i := 1; i < n; i++ {
		id := parent.ID
		child, err := db.AddNew(ctx, sample("v"), VariantOptions{VariantGroupID: root.VariantGroupID, VariantOfID: &id})
		if err != nil {
			t.Fatalf("AddNew(variant %d) error = %v", i, err)
		}
		parent = child
	}

	group, err := db.ByGroup(ctx, root.VariantGroupID)
	if err != nil {
		t.Fatalf("ByGroup() error = %v", err)
	}
	if len(group) != n {
		t.Fatalf("ByGroup() returned %d records, want %d", len(group), n)
	}

	ids := make(map[int64]bool)
	for _, r := range group {
		ids[r.ID] = true
	}
	roots := 0
	for _, r := range group {
		if r.VariantOfID == nil {
			roots++
			if r.ID != root.ID {
				t.Errorf("root is %d, want first created %d", r.ID, root.ID)
			}
			continue
		}
		if !ids[*r.VariantOfID] || *r.VariantOfID == r.ID {
			t.Errorf("record %d points at %d outside the group", r.ID, *r.VariantOfID)
		}
	}
	if roots != 1 {
		t.Errorf("roots = %d, want 1", roots)
	}
}

func TestAddNew_ParentImpliesGroup(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, _ := db.AddNew(ctx, sample("a"), VariantOptions{})
	id := root.ID
	child, err := db.AddNew(ctx, sample("b"), VariantOptions{VariantOfID: &id})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}
	if child.VariantGroupID != root.VariantGroupID {
		t.Errorf("child group = %s, want %s", child.VariantGroupID, root.VariantGroupID)
	}
}

func TestAddNew_GroupOnlyAttachesToNewest(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, _ := db.AddNew(ctx, sample("a"), VariantOptions{})
	rootID := root.ID
	second, _ := db.AddNew(ctx, sample("b"), VariantOptions{VariantOfID: &rootID})

	third, err := db.AddNew(ctx, sample("c"), VariantOptions{VariantGroupID: root.VariantGroupID})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}
	if third.VariantOfID == nil || *third.VariantOfID != second.ID {
		t.Errorf("VariantOfID = %v, want %d", third.VariantOfID, second.ID)
	}

	fresh, _ := db.AddNew(ctx, sample("d"), VariantOptions{VariantGroupID: "imported-group"})
	if fresh.VariantGroupID != "imported-group" || !fresh.IsRoot() {
		t.Errorf("unknown group should start a lineage with that id, got %+v", fresh)
	}
}

func TestAddNew_InvalidParent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	missing := int64(999)
	if _, err := db.AddNew(ctx, sample("x"), VariantOptions{VariantOfID: &missing}); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("AddNew() error = %v, want ErrTranscriptNotFound", err)
	}

	root, _ := db.AddNew(ctx, sample("a"), VariantOptions{})
	id := root.ID
	if _, err := db.AddNew(ctx, sample("b"), VariantOptions{VariantOfID: &id, VariantGroupID: "other"}); err == nil {
		t.Error("AddNew() expected error for mismatching group")
	}
}

func TestRemove_LeavesDanglingVariants(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	root, _ := db.AddNew(ctx, sample("a"), VariantOptions{})
	id := root.ID
	child, _ := db.AddNew(ctx, sample("b"), VariantOptions{VariantOfID: &id})

	if err := db.Remove(ctx, root.ID); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if got, _ := db.Get(ctx, root.ID); got != nil {
		t.Error("removed transcript still returned")
	}

	survivor, err := db.Get(ctx, child.ID)
	if err != nil || survivor == nil {
		t.Fatalf("sibling variant should survive: %v", err)
	}
	if survivor.VariantOfID == nil || *survivor.VariantOfID != root.ID {
		t.Errorf("VariantOfID = %v, want dangling %d", survivor.VariantOfID, root.ID)
	}

	if err := db.Remove(ctx, root.ID); !errors.Is(err, ErrTranscriptNotFound) {
		t.Errorf("second Remove() error = %v, want ErrTranscriptNotFound", err)
	}
}

func TestList_NewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var ids []int64
	for _, s := range []string{"one", "two", "three"} {
		rec, _ := db.AddNew(ctx, sample(s), VariantOptions{})
		ids = append(ids, rec.ID)
	}

	list, err := db.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("List() returned %d, want 3", len(list))
	}
	for i, want := range []int64{ids[2], ids[1], ids[0]} {
		if list[i].ID != want {
			t.Errorf("list[%d] = %d, want %d", i, list[i].ID, want)
		}
	}

	limited, _ := db.List(ctx, 2)
	if len(limited) != 2 || limited[0].ID != ids[2] {
		t.Errorf("List(2) = %d records", len(limited))
	}
}

func TestGet_Missing(t *testing.T) {
	db := newTestDB(t)
	got, err := db.Get(context.Background(), 42)
	if err != nil || got != nil {
		t.Errorf("Get() = %v, %v; want nil, nil", got, err)
	}
}

func TestAddNew_EmptyFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec, err := db.AddNew(ctx, NewTranscript{}, VariantOptions{})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}
	got, _ := db.Get(ctx, rec.ID)
	if got.Audio != nil && len(got.Audio) != 0 {
		t.Errorf("Audio = %v, want empty", got.Audio)
	}
	if got.TargetCodes == nil || got.Translations == nil {
		t.Error("empty collections should decode as empty, not nil")
	}
}

func TestAddNew_Usage(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	fields := sample("mit")
	fields.Usage = &Usage{AudioSeconds: 2.5, PromptTokens: 40, CompletionTokens: 2, TotalTokens: 42}
	with, err := db.AddNew(ctx, fields, VariantOptions{})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}
	without, err := db.AddNew(ctx, sample("ohne"), VariantOptions{})
	if err != nil {
		t.Fatalf("AddNew() error = %v", err)
	}

	got, err := db.Get(ctx, with.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Usage == nil || *got.Usage != *fields.Usage {
		t.Errorf("Usage = %+v, want %+v", got.Usage, fields.Usage)
	}

	got, err = db.Get(ctx, without.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Usage != nil {
		t.Errorf("Usage = %+v, want nil", got.Usage)
	}
}
