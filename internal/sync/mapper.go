package sync

import (
	"context"
	"fmt"

	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/store"
)

// Upstream field names.
const (
	fieldName             = "Name"
	fieldLocation         = "Location"
	fieldWebURL           = "Web Url"
	fieldLinkedinURL      = "Linkedin Url"
	fieldTitle            = "Title"
	fieldDescription      = "Description"
	fieldRequirements     = "Requirements"
	fieldResponsibilities = "Responsibilities"
	fieldSalaryRange      = "Salary Range"
	fieldHiringProcess    = "Hiring Process"
	fieldCompany          = "Company"
	fieldTags             = "Tags"
)

// KeyResolver maps an external key to a local id. *store.DB implements it.
type KeyResolver interface {
	LocalIDContext(ctx context.Context, table store.Table, externalKey string) (int64, bool, error)
}

// MapCompany converts a Companies record into a company row.
func MapCompany(rec source.Record) store.Company {
	return store.Company{
		ExternalKey: rec.ID,
		Name:        rec.String(fieldName),
		Location:    rec.String(fieldLocation),
		WebURL:      rec.String(fieldWebURL),
		LinkedinURL: rec.String(fieldLinkedinURL),
	}
}

// MapTag converts a Tags record into a tag row.
func MapTag(rec source.Record) store.Tag {
	return store.Tag{
		ExternalKey: rec.ID,
		Name:        rec.String(fieldName),
	}
}

// HasTitle reports whether a Jobs record carries a non-null title.
func HasTitle(rec source.Record) bool {
	return rec.String(fieldTitle) != nil
}

// MapJob converts a Jobs record into a job row.
//
// The company reference is the first entry of the "Company" list, resolved
// through ids. A record without the field maps to no company. A reference
// that does not resolve also maps to no company, but sets PreserveCompany so
// an update keeps whatever company_id the row already had.
func MapJob(ctx context.Context, ids KeyResolver, rec source.Record) (store.Job, error) {
	job := store.Job{
		ExternalKey:      rec.ID,
		Description:      rec.String(fieldDescription),
		Location:         rec.String(fieldLocation),
		Requirements:     rec.String(fieldRequirements),
		Responsibilities: rec.String(fieldResponsibilities),
		SalaryRange:      rec.String(fieldSalaryRange),
		HiringProcess:    rec.String(fieldHiringProcess),
	}
	if title := rec.String(fieldTitle); title != nil {
		job.Title = *title
	}

	companies := rec.Strings(fieldCompany)
	if len(companies) == 0 {
		return job, nil
	}

	id, ok, err := ids.LocalIDContext(ctx, store.Companies, companies[0])
	if err != nil {
		return job, fmt.Errorf("failed to resolve company of job %s: %w", rec.ID, err)
	}
	if ok {
		job.CompanyID = &id
	} else {
		job.PreserveCompany = true
	}
	return job, nil
}

// JobTagLinks lists the (job, tag) links of a Jobs record, one per entry of
// its "Tags" field.
func JobTagLinks(rec source.Record) []TagLink {
	tags := rec.Strings(fieldTags)
	links := make([]TagLink, 0, len(tags))
	for _, tag := range tags {
		links = append(links, TagLink{JobKey: rec.ID, TagKey: tag})
	}
	return links
}

// MapJobTag resolves both ends of a link to local ids. The boolean is false
// when either key has no local row.
func MapJobTag(ctx context.Context, ids KeyResolver, link TagLink) (store.JobTagPair, bool, error) {
	jobID, ok, err := ids.LocalIDContext(ctx, store.Jobs, link.JobKey)
	if err != nil || !ok {
		return store.JobTagPair{}, false, err
	}
	tagID, ok, err := ids.LocalIDContext(ctx, store.Tags, link.TagKey)
	if err != nil || !ok {
		return store.JobTagPair{}, false, err
	}
	return store.JobTagPair{JobID: jobID, TagID: tagID}, true, nil
}
