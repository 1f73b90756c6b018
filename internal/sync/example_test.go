package sync_test

import (
	"context"
	"fmt"
	"log"

	"github.com/jobboard/jobboard/internal/source"
	"github.com/jobboard/jobboard/internal/source/airtable"
	"github.com/jobboard/jobboard/internal/store"
	"github.com/jobboard/jobboard/internal/sync"
)

// This example demonstrates a full sync from Airtable.
// Note: This is for documentation only and won't run as a test.
func ExampleNew() {
	database, err := store.Open("db.sqlite3")
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	client, err := airtable.NewClient("appXXXXXXXXXXXXXX", "patXXXXXXXXXXXXXX")
	if err != nil {
		log.Fatal(err)
	}

	syncer := sync.New(database, nil)
	report, err := syncer.Synchronize(context.Background(), client)
	if err != nil {
		log.Fatal(err)
	}

	for _, r := range report.Results {
		fmt.Printf("%s: +%d ~%d -%d\n", r.Kind, r.Created, r.Updated, r.Deleted)
	}
}

// This example reconciles the join table directly from local id pairs.
func ExampleSyncer_ReconcileJobTags() {
	database, err := store.Open("db.sqlite3")
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	syncer := sync.New(database, nil)
	res, err := syncer.ReconcileJobTags(context.Background(), []store.JobTagPair{
		{JobID: 1, TagID: 2},
		{JobID: 1, TagID: 3},
	})
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("job tags created:", res.Created)
}

// This example syncs from an in-memory source and reports progress events.
func ExampleWithObserver() {
	database, err := store.Open("db.sqlite3")
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	src := source.Static{
		source.Companies: {{ID: "c1", Fields: map[string]any{"Name": "Acme"}}},
	}

	syncer := sync.New(database, nil, sync.WithObserver(sync.ObserverFunc(func(e sync.Event) {
		fmt.Println(e.Type)
	})))
	if _, err := syncer.Synchronize(context.Background(), src); err != nil {
		log.Fatal(err)
	}
}
