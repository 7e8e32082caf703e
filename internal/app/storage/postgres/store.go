// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/careconnect/backend/internal/app/domain/medicine"
	"github.com/careconnect/backend/internal/app/domain/prescription"
	"github.com/careconnect/backend/internal/app/domain/user"
	"github.com/careconnect/backend/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.UserStore = (*Store)(nil)
var _ storage.MedicineStore = (*Store)(nil)
var _ storage.PrescriptionStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

const pqUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// --- UserStore --------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.CreatedAt = time.Now().UTC()

	subJSON, err := marshalNullable(u.Subscription)
	if err != nil {
		return user.User{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, name, subscription, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, u.ID, u.Email, u.PasswordHash, u.Name, subJSON, u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return user.User{}, storage.ErrDuplicateEmail
		}
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	existing, err := s.GetUser(ctx, u.ID)
	if err != nil {
		return user.User{}, err
	}
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt

	subJSON, err := marshalNullable(u.Subscription)
	if err != nil {
		return user.User{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET password_hash = $2, name = $3, subscription = $4
		WHERE id = $1
	`, u.ID, u.PasswordHash, u.Name, subJSON)
	if err != nil {
		return user.User{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return user.User{}, storage.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, subscription, created_at
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, name, subscription, created_at
		FROM users
		WHERE email = $1
	`, strings.ToLower(strings.TrimSpace(email)))
	return scanUser(row)
}

func scanUser(row *sql.Row) (user.User, error) {
	var (
		u      user.User
		subRaw []byte
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &subRaw, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return user.User{}, storage.ErrNotFound
		}
		return user.User{}, err
	}
	if len(subRaw) > 0 {
		var sub user.Subscription
		if err := json.Unmarshal(subRaw, &sub); err == nil {
			u.Subscription = &sub
		}
	}
	return u, nil
}

// --- MedicineStore ----------------------------------------------------------

func (s *Store) CreateMedicine(ctx context.Context, med medicine.Medicine) (medicine.Medicine, error) {
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	med.CreatedAt = time.Now().UTC()

	timesJSON, err := json.Marshal(med.Times)
	if err != nil {
		return medicine.Medicine{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO medicines (id, user_id, name, dosage, frequency, times, start_date, end_date, notes, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, med.ID, med.UserID, med.Name, med.Dosage, string(med.Frequency), timesJSON,
		med.StartDate, med.EndDate, med.Notes, med.Active, med.CreatedAt)
	if err != nil {
		return medicine.Medicine{}, err
	}
	return med, nil
}

func (s *Store) UpdateMedicine(ctx context.Context, med medicine.Medicine) (medicine.Medicine, error) {
	existing, err := s.GetMedicine(ctx, med.ID, med.UserID)
	if err != nil {
		return medicine.Medicine{}, err
	}
	med.CreatedAt = existing.CreatedAt

	timesJSON, err := json.Marshal(med.Times)
	if err != nil {
		return medicine.Medicine{}, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE medicines
		SET name = $3, dosage = $4, frequency = $5, times = $6, start_date = $7, end_date = $8, notes = $9, active = $10
		WHERE id = $1 AND user_id = $2
	`, med.ID, med.UserID, med.Name, med.Dosage, string(med.Frequency), timesJSON,
		med.StartDate, med.EndDate, med.Notes, med.Active)
	if err != nil {
		return medicine.Medicine{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return medicine.Medicine{}, storage.ErrNotFound
	}
	return med, nil
}

func (s *Store) GetMedicine(ctx context.Context, id, userID string) (medicine.Medicine, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, dosage, frequency, times, start_date, end_date, notes, active, created_at
		FROM medicines
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	med, err := scanMedicine(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medicine.Medicine{}, storage.ErrNotFound
		}
		return medicine.Medicine{}, err
	}
	return med, nil
}

func (s *Store) ListMedicines(ctx context.Context, userID string, activeOnly bool) ([]medicine.Medicine, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, dosage, frequency, times, start_date, end_date, notes, active, created_at
		FROM medicines
		WHERE user_id = $1 AND ($2 = false OR active = true)
		ORDER BY created_at DESC
	`, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]medicine.Medicine, 0)
	for rows.Next() {
		med, err := scanMedicine(rows.Scan)
		if err != nil {
			return nil, err
		}
		result = append(result, med)
	}
	return result, rows.Err()
}

func (s *Store) DeleteMedicine(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM medicines WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanMedicine(scan func(...interface{}) error) (medicine.Medicine, error) {
	var (
		med      medicine.Medicine
		freq     string
		timesRaw []byte
		endDate  sql.NullTime
	)
	if err := scan(&med.ID, &med.UserID, &med.Name, &med.Dosage, &freq, &timesRaw,
		&med.StartDate, &endDate, &med.Notes, &med.Active, &med.CreatedAt); err != nil {
		return medicine.Medicine{}, err
	}
	med.Frequency = medicine.Frequency(freq)
	if endDate.Valid {
		end := endDate.Time
		med.EndDate = &end
	}
	if len(timesRaw) > 0 {
		if err := json.Unmarshal(timesRaw, &med.Times); err != nil {
			return medicine.Medicine{}, err
		}
	}
	return med, nil
}

// --- PrescriptionStore ------------------------------------------------------

func (s *Store) CreatePrescription(ctx context.Context, p prescription.Prescription) (prescription.Prescription, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.UploadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prescriptions (id, user_id, title, description, image_url, image_path, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.UserID, p.Title, p.Description, p.ImageURL, p.ImagePath, p.UploadedAt)
	if err != nil {
		return prescription.Prescription{}, err
	}
	return p, nil
}

func (s *Store) GetPrescription(ctx context.Context, id, userID string) (prescription.Prescription, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, description, image_url, image_path, uploaded_at
		FROM prescriptions
		WHERE id = $1 AND user_id = $2
	`, id, userID)

	var p prescription.Prescription
	if err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.ImageURL, &p.ImagePath, &p.UploadedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return prescription.Prescription{}, storage.ErrNotFound
		}
		return prescription.Prescription{}, err
	}
	return p, nil
}

func (s *Store) ListPrescriptions(ctx context.Context, userID string) ([]prescription.Prescription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, description, image_url, image_path, uploaded_at
		FROM prescriptions
		WHERE user_id = $1
		ORDER BY uploaded_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]prescription.Prescription, 0)
	for rows.Next() {
		var p prescription.Prescription
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Description, &p.ImageURL, &p.ImagePath, &p.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) DeletePrescription(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM prescriptions WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// marshalNullable keeps an absent subscription as SQL NULL rather than the
// JSON literal "null".
func marshalNullable(sub *user.Subscription) ([]byte, error) {
	if sub == nil {
		return nil, nil
	}
	return json.Marshal(sub)
}
