package prescriptions

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/careconnect/backend/internal/app/domain/prescription"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/app/storage/memory"
	"github.com/careconnect/backend/internal/assets"
)

// failingStore rejects every metadata write.
type failingStore struct {
	storage.PrescriptionStore
}

func (failingStore) CreatePrescription(context.Context, prescription.Prescription) (prescription.Prescription, error) {
	return prescription.Prescription{}, stderrors.New("database unavailable")
}

func upload() (string, string, *strings.Reader) {
	return "scan.png", "image/png", strings.NewReader("fake image bytes")
}

func TestCreate(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(memory.New(), assetStore, nil)
	ctx := context.Background()

	name, ct, body := upload()
	p, err := svc.Create(ctx, "user-1", body, name, ct, "  Dr. Smith visit ", "quarterly checkup")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if p.Title != "Dr. Smith visit" {
		t.Errorf("title = %q", p.Title)
	}
	if !strings.HasPrefix(p.ImageURL, "/uploads/") || !strings.HasSuffix(p.ImageURL, ".png") {
		t.Errorf("imageURL = %q", p.ImageURL)
	}
	if !assetStore.Has(p.ImagePath) {
		t.Error("asset not stored")
	}
	if p.UploadedAt.IsZero() {
		t.Error("uploadedAt not set")
	}
}

func TestCreateDefaultTitle(t *testing.T) {
	svc := New(memory.New(), assets.NewMemory(), nil)

	name, ct, body := upload()
	p, err := svc.Create(context.Background(), "user-1", body, name, ct, "   ", "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if p.Title != prescription.DefaultTitle {
		t.Errorf("title = %q, want %q", p.Title, prescription.DefaultTitle)
	}
}

func TestCreateRejectsNonImage(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(memory.New(), assetStore, nil)

	if _, err := svc.Create(context.Background(), "user-1", strings.NewReader("%PDF-"), "doc.pdf", "application/pdf", "", ""); err == nil {
		t.Error("non-image upload should be rejected")
	}
}

func TestCreateMetadataFailureRemovesAsset(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(failingStore{}, assetStore, nil)

	name, ct, body := upload()
	if _, err := svc.Create(context.Background(), "user-1", body, name, ct, "", ""); err == nil {
		t.Fatal("Create() should have failed")
	}

	if n := assetStore.Len(); n != 0 {
		t.Errorf("asset store holds %d files after failed metadata write, want 0", n)
	}
}

func TestDeleteRemovesAssetAndRecord(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(memory.New(), assetStore, nil)
	ctx := context.Background()

	name, ct, body := upload()
	p, err := svc.Create(ctx, "user-1", body, name, ct, "", "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := svc.Delete(ctx, "user-1", p.ID); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}

	if assetStore.Has(p.ImagePath) {
		t.Error("asset not removed")
	}
	if _, err := svc.Get(ctx, "user-1", p.ID); err == nil {
		t.Error("record should be gone")
	}
}

func TestDeleteMissingAssetDoesNotBlock(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(memory.New(), assetStore, nil)
	ctx := context.Background()

	name, ct, body := upload()
	p, err := svc.Create(ctx, "user-1", body, name, ct, "", "")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// The asset vanishes out of band.
	if err := assetStore.Remove(p.ImagePath); err != nil {
		t.Fatalf("remove asset: %v", err)
	}

	if err := svc.Delete(ctx, "user-1", p.ID); err != nil {
		t.Errorf("Delete() with missing asset: %v", err)
	}
}

func TestListNewestFirstAndOwnerScoped(t *testing.T) {
	assetStore := assets.NewMemory()
	svc := New(memory.New(), assetStore, nil)
	ctx := context.Background()

	for _, title := range []string{"First", "Second"} {
		name, ct, body := upload()
		if _, err := svc.Create(ctx, "user-a", body, name, ct, title, ""); err != nil {
			t.Fatalf("Create(%s) error: %v", title, err)
		}
	}

	list, err := svc.List(ctx, "user-a")
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(list) != 2 || list[0].Title != "Second" {
		t.Errorf("list = %+v, want newest first", list)
	}

	other, err := svc.List(ctx, "user-b")
	if err != nil {
		t.Fatalf("List() other owner error: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other owner sees %d records", len(other))
	}

	if _, err := svc.Get(ctx, "user-b", list[0].ID); err == nil {
		t.Error("Get() across owners should fail")
	}
}
