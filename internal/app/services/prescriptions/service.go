// Package prescriptions manages uploaded prescription images and their
// metadata records. Asset and metadata writes are not transactional; the
// service compensates by removing the asset when the metadata write fails.
package prescriptions

import (
	"context"
	stderrors "errors"
	"io"
	"strings"

	"github.com/careconnect/backend/internal/app/domain/prescription"
	"github.com/careconnect/backend/internal/app/storage"
	"github.com/careconnect/backend/internal/assets"
	"github.com/careconnect/backend/internal/errors"
	"github.com/careconnect/backend/internal/logging"
)

// Service manages prescription records and their backing assets.
type Service struct {
	store  storage.PrescriptionStore
	assets assets.Store
	log    *logging.Logger
}

// New constructs a prescriptions service.
func New(store storage.PrescriptionStore, assetStore assets.Store, log *logging.Logger) *Service {
	if log == nil {
		log = logging.NewDefault("prescriptions")
	}
	return &Service{store: store, assets: assetStore, log: log}
}

// Create stores the image first, then the metadata record. When the metadata
// write fails the stored asset is removed best-effort; a failed cleanup is
// logged so the orphan is observable.
func (s *Service) Create(ctx context.Context, userID string, image io.Reader, filename, contentType, title, description string) (prescription.Prescription, error) {
	stored, err := s.assets.Save(ctx, image, filename, contentType)
	if err != nil {
		if errors.GetServiceError(err) != nil {
			return prescription.Prescription{}, err
		}
		return prescription.Prescription{}, errors.Internal("Server error", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		title = prescription.DefaultTitle
	}

	p := prescription.Prescription{
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(description),
		ImageURL:    stored.PublicURL,
		ImagePath:   stored.Path,
	}
	p, err = s.store.CreatePrescription(ctx, p)
	if err != nil {
		if cleanupErr := s.assets.Remove(stored.Path); cleanupErr != nil {
			s.log.WithError(cleanupErr).
				WithField("path", stored.Path).
				Warn("orphaned asset: cleanup after failed metadata write did not succeed")
		}
		return prescription.Prescription{}, errors.Internal("Server error", err)
	}

	s.log.WithField("prescription_id", p.ID).WithField("user_id", userID).Info("prescription stored")
	return p, nil
}

// List returns the caller's prescriptions, newest-uploaded first.
func (s *Service) List(ctx context.Context, userID string) ([]prescription.Prescription, error) {
	recs, err := s.store.ListPrescriptions(ctx, userID)
	if err != nil {
		return nil, errors.Internal("Server error", err)
	}
	return recs, nil
}

// Get resolves one prescription scoped to the caller.
func (s *Service) Get(ctx context.Context, userID, id string) (prescription.Prescription, error) {
	p, err := s.store.GetPrescription(ctx, id, userID)
	if err != nil {
		return prescription.Prescription{}, mapStoreErr(err)
	}
	return p, nil
}

// Delete removes the asset before the metadata record. A missing asset does
// not block metadata deletion.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	p, err := s.store.GetPrescription(ctx, id, userID)
	if err != nil {
		return mapStoreErr(err)
	}

	if err := s.assets.Remove(p.ImagePath); err != nil {
		s.log.WithError(err).WithField("path", p.ImagePath).Warn("failed to remove prescription asset")
	}

	if err := s.store.DeletePrescription(ctx, id, userID); err != nil {
		return mapStoreErr(err)
	}
	s.log.WithField("prescription_id", id).WithField("user_id", userID).Info("prescription deleted")
	return nil
}

func mapStoreErr(err error) error {
	if stderrors.Is(err, storage.ErrNotFound) {
		return errors.NotFound("Prescription")
	}
	return errors.Internal("Server error", err)
}
