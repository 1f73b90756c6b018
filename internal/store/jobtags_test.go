package store

import (
	"context"
	"testing"
)

func TestFindJobTags(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	inserted := map[JobTagPair]int64{}
	for _, p := range []JobTagPair{{1, 1}, {1, 2}, {2, 1}} {
		id, err := db.InsertJobTagContext(ctx, p)
		if err != nil {
			t.Fatalf("InsertJobTagContext(%v) failed: %v", p, err)
		}
		inserted[p] = id
	}

	found, err := db.FindJobTagsContext(ctx, []JobTagPair{{1, 2}, {2, 1}, {3, 3}})
	if err != nil {
		t.Fatalf("FindJobTagsContext() failed: %v", err)
	}
	if len(found) != 2 {
		t.Fatalf("FindJobTagsContext() returned %d rows, want 2", len(found))
	}
	for _, jt := range found {
		if inserted[jt.JobTagPair] != jt.ID {
			t.Errorf("row %+v does not match inserted id %d", jt, inserted[jt.JobTagPair])
		}
	}
}

func TestFindJobTags_Empty(t *testing.T) {
	db := openTestDB(t)

	found, err := db.FindJobTagsContext(context.Background(), nil)
	if err != nil {
		t.Fatalf("FindJobTagsContext() failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("FindJobTagsContext(nil) = %v, want empty", found)
	}
}

func TestFindJobTags_SpansChunks(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	total := pairChunkSize*2 + 7
	pairs := make([]JobTagPair, 0, total)
	for i := 1; i <= total; i++ {
		p := JobTagPair{JobID: int64(i), TagID: int64(i%5 + 1)}
		if _, err := db.InsertJobTagContext(ctx, p); err != nil {
			t.Fatalf("InsertJobTagContext() failed: %v", err)
		}
		pairs = append(pairs, p)
	}

	found, err := db.FindJobTagsContext(ctx, pairs)
	if err != nil {
		t.Fatalf("FindJobTagsContext() failed: %v", err)
	}
	if len(found) != total {
		t.Errorf("FindJobTagsContext() returned %d rows, want %d", len(found), total)
	}
}

func TestDeleteJobTags(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var ids []int64
	for i := int64(1); i <= 5; i++ {
		id, err := db.InsertJobTagContext(ctx, JobTagPair{JobID: i, TagID: 1})
		if err != nil {
			t.Fatalf("InsertJobTagContext() failed: %v", err)
		}
		ids = append(ids, id)
	}

	n, err := db.DeleteJobTagsContext(ctx, nil)
	if err != nil {
		t.Fatalf("DeleteJobTagsContext(nil) failed: %v", err)
	}
	if n != 0 {
		t.Errorf("DeleteJobTagsContext(nil) deleted %d rows", n)
	}

	n, err = db.DeleteJobTagsContext(ctx, ids[:3])
	if err != nil {
		t.Fatalf("DeleteJobTagsContext() failed: %v", err)
	}
	if n != 3 {
		t.Errorf("deleted %d rows, want 3", n)
	}

	rest, err := db.ListJobTagsContext(ctx)
	if err != nil {
		t.Fatalf("ListJobTagsContext() failed: %v", err)
	}
	if len(rest) != 2 || rest[0].ID != ids[3] || rest[1].ID != ids[4] {
		t.Errorf("remaining rows = %+v", rest)
	}
}
