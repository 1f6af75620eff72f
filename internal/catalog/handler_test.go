package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dentaflow/clinic-platform/pkg/logging"
)

func newTestServer(repo Repository, kind Kind) *httptest.Server {
	return httptest.NewServer(NewHandler(repo, kind, logging.Default()).Routes())
}

func TestCreateService_Success(t *testing.T) {
	srv := newTestServer(NewInMemoryRepository(), KindService)
	defer srv.Close()

	body, _ := json.Marshal(UpsertItemRequest{
		Name:              "Root Canal",
		Description:       "single canal",
		DefaultPriceCents: 150_00,
	})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, resp.StatusCode)
	}

	var item Item
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !item.Active {
		t.Error("expected new item to default to active")
	}
	if item.DefaultPriceCents != 150_00 {
		t.Errorf("expected price 15000, got %d", item.DefaultPriceCents)
	}
}

func TestCreateService_DuplicateName(t *testing.T) {
	repo := NewInMemoryRepository()
	srv := newTestServer(repo, KindService)
	defer srv.Close()

	if _, err := repo.Create(context.Background(), KindService, &UpsertItemRequest{Name: "Filling", DefaultPriceCents: 40_00}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	body, _ := json.Marshal(UpsertItemRequest{Name: "filling", DefaultPriceCents: 45_00})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}

func TestCreateItem_NegativePrice(t *testing.T) {
	srv := newTestServer(NewInMemoryRepository(), KindMedication)
	defer srv.Close()

	body, _ := json.Marshal(UpsertItemRequest{Name: "Amoxicillin", DefaultPriceCents: -1})
	resp, err := http.Post(srv.URL+"/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, resp.StatusCode)
	}
}

func TestListHidesInactiveByDefault(t *testing.T) {
	repo := NewInMemoryRepository()
	srv := newTestServer(repo, KindMedication)
	defer srv.Close()

	active := true
	inactive := false
	ctx := context.Background()
	if _, err := repo.Create(ctx, KindMedication, &UpsertItemRequest{Name: "Ibuprofen", Active: &active}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := repo.Create(ctx, KindMedication, &UpsertItemRequest{Name: "Discontinued Syrup", Active: &inactive}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var list ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 1 {
		t.Fatalf("expected only active item, got %d", list.Count)
	}
	if list.Items[0].Name != "Ibuprofen" {
		t.Errorf("unexpected item %s", list.Items[0].Name)
	}

	resp2, err := http.Get(srv.URL + "/?include_inactive=true")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp2.Body.Close()

	if err := json.NewDecoder(resp2.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if list.Count != 2 {
		t.Errorf("expected both items with include_inactive, got %d", list.Count)
	}
}

func TestDeleteItem_InUse(t *testing.T) {
	repo := NewInMemoryRepository()
	srv := newTestServer(repo, KindService)
	defer srv.Close()

	item, err := repo.Create(context.Background(), KindService, &UpsertItemRequest{Name: "Extraction"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	repo.InUse[item.ID] = true

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, resp.StatusCode)
	}
}
