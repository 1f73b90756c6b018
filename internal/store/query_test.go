package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// seedListing creates two companies, four jobs and two tags:
//
//	job 1 "Go Engineer"      Acme    tags: go, remote
//	job 2 "Python Engineer"  Acme    tags: remote
//	job 3 "Go Intern"        Globex  tags: go
//	job 4 "Designer"         (none)
func seedListing(t *testing.T, db *DB) {
	t.Helper()
	ctx := context.Background()

	acme := &Company{ExternalKey: "recCompany0000001", Name: strPtr("Acme")}
	globex := &Company{ExternalKey: "recCompany0000002", Name: strPtr("Globex")}
	for _, c := range []*Company{acme, globex} {
		if err := db.InsertCompanyContext(ctx, c); err != nil {
			t.Fatalf("InsertCompanyContext() failed: %v", err)
		}
	}

	jobs := []*Job{
		{Title: "Go Engineer", CompanyID: &acme.ID},
		{Title: "Python Engineer", CompanyID: &acme.ID},
		{Title: "Go Intern", CompanyID: &globex.ID},
		{Title: "Designer"},
	}
	for i, j := range jobs {
		j.ExternalKey = fmt.Sprintf("recJob%011d", i+1)
		j.Description = strPtr("About " + j.Title)
		if err := db.InsertJobContext(ctx, j); err != nil {
			t.Fatalf("InsertJobContext() failed: %v", err)
		}
	}

	goTag := &Tag{ExternalKey: "recTag00000000001", Name: strPtr("go")}
	remote := &Tag{ExternalKey: "recTag00000000002", Name: strPtr("remote")}
	for _, tag := range []*Tag{goTag, remote} {
		if err := db.InsertTagContext(ctx, tag); err != nil {
			t.Fatalf("InsertTagContext() failed: %v", err)
		}
	}

	for _, p := range []JobTagPair{
		{jobs[0].ID, goTag.ID}, {jobs[0].ID, remote.ID},
		{jobs[1].ID, remote.ID}, {jobs[2].ID, goTag.ID},
	} {
		if _, err := db.InsertJobTagContext(ctx, p); err != nil {
			t.Fatalf("InsertJobTagContext() failed: %v", err)
		}
	}
}

func TestListJobs_Filters(t *testing.T) {
	db := openTestDB(t)
	seedListing(t, db)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter JobFilter
		want   []string
	}{
		{"all", JobFilter{}, []string{"Go Engineer", "Python Engineer", "Go Intern", "Designer"}},
		{"title substring", JobFilter{Query: "Engineer"}, []string{"Go Engineer", "Python Engineer"}},
		{"tag", JobFilter{Tag: "go"}, []string{"Go Engineer", "Go Intern"}},
		{"title and tag", JobFilter{Query: "Engineer", Tag: "remote"}, []string{"Go Engineer", "Python Engineer"}},
		{"unknown tag", JobFilter{Tag: "rust"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := db.CountJobsContext(ctx, tt.filter)
			if err != nil {
				t.Fatalf("CountJobsContext() failed: %v", err)
			}
			if n != len(tt.want) {
				t.Errorf("CountJobsContext() = %d, want %d", n, len(tt.want))
			}

			got, err := db.ListJobsContext(ctx, tt.filter, 0, 20)
			if err != nil {
				t.Fatalf("ListJobsContext() failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListJobsContext() returned %d jobs, want %d", len(got), len(tt.want))
			}
			for i, l := range got {
				if l.Title != tt.want[i] {
					t.Errorf("job[%d] = %q, want %q", i, l.Title, tt.want[i])
				}
			}
		})
	}
}

func TestListJobs_OffsetAndCompany(t *testing.T) {
	db := openTestDB(t)
	seedListing(t, db)

	got, err := db.ListJobsContext(context.Background(), JobFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("ListJobsContext() failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListJobsContext() returned %d jobs, want 2", len(got))
	}
	if got[0].Title != "Go Intern" || got[0].CompanyName != "Globex" {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].Title != "Designer" || got[1].CompanyName != "" {
		t.Errorf("got[1] = %+v, want no company", got[1])
	}
}

func TestGetJob(t *testing.T) {
	db := openTestDB(t)
	seedListing(t, db)
	ctx := context.Background()

	l, err := db.GetJobContext(ctx, 1)
	if err != nil {
		t.Fatalf("GetJobContext() failed: %v", err)
	}
	if l.Title != "Go Engineer" || l.CompanyName != "Acme" || l.Description != "About Go Engineer" {
		t.Errorf("GetJobContext(1) = %+v", l)
	}

	if _, err := db.GetJobContext(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJobContext(999) err = %v, want ErrNotFound", err)
	}
}

func TestTagsForJobs(t *testing.T) {
	db := openTestDB(t)
	seedListing(t, db)
	ctx := context.Background()

	tags, err := db.TagsForJobsContext(ctx, []int64{1, 2, 4})
	if err != nil {
		t.Fatalf("TagsForJobsContext() failed: %v", err)
	}
	if got := tags[1]; len(got) != 2 || got[0] != "go" || got[1] != "remote" {
		t.Errorf("tags[1] = %v, want [go remote]", got)
	}
	if got := tags[2]; len(got) != 1 || got[0] != "remote" {
		t.Errorf("tags[2] = %v, want [remote]", got)
	}
	if _, ok := tags[4]; ok {
		t.Errorf("tags[4] = %v, want absent", tags[4])
	}
	if _, ok := tags[3]; ok {
		t.Error("tags for job 3 returned although not requested")
	}

	empty, err := db.TagsForJobsContext(ctx, nil)
	if err != nil {
		t.Fatalf("TagsForJobsContext(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("TagsForJobsContext(nil) = %v, want empty", empty)
	}
}
