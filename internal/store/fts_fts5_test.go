//go:build sqlite_fts5

package store

import (
	"testing"

	"github.com/starford/trihash/internal/models"
)

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM records_fts`).Scan(&count); err != nil {
		t.Fatalf("records_fts table missing: %v", err)
	}
}

func TestFTS5_SearchWithSnippet(t *testing.T) {
	db := testDB(t)
	rec := models.Record{ID: "fts", Fields: map[string]string{"description": "powerful reconnaissance phase"}}
	if err := db.PutRecord(rec); err != nil {
		t.Fatalf("PutRecord: %v", err)
	}
	results, err := db.SearchRecords("powerful", 10)
	if err != nil {
		t.Fatalf("SearchRecords: %v", err)
	}
	if len(results) != 1 || results[0].ID != "fts" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].Snippet == "" {
		t.Error("expected non-empty snippet")
	}
}

func TestFTS5_PutReplacesContent(t *testing.T) {
	db := testDB(t)
	_ = db.PutRecord(models.Record{ID: "evo", Fields: map[string]string{"body": "original text"}})
	_ = db.PutRecord(models.Record{ID: "evo", Fields: map[string]string{"body": "replacement text"}})

	results, _ := db.SearchRecords("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.SearchRecords("replacement", 10)
	if len(results) != 1 {
		t.Errorf("FTS not updated: %+v", results)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.PutRecord(models.Record{ID: "gone", Fields: map[string]string{"body": "vanishing content"}})
	_ = db.DeleteRecord("gone")

	results, _ := db.SearchRecords("vanishing", 10)
	if len(results) != 0 {
		t.Error("deleted record still in FTS index")
	}
}
