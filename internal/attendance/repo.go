package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"gymdesk/internal/metrics"
)

// PGRepository persists attendance data in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const recordColumns = `id, member_id, fingerprint_id, nama, tipe, status_membership, waktu_check_in, tanggal, sumber, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var rec Record
	var memberID, fingerprintID sql.NullString
	var tipe, sumber string
	if err := row.Scan(&rec.ID, &memberID, &fingerprintID, &rec.Nama, &tipe, &rec.StatusMembership,
		&rec.WaktuCheckIn, &rec.Tanggal, &sumber, &rec.CreatedAt); err != nil {
		return Record{}, err
	}
	if memberID.Valid {
		rec.MemberID = &memberID.String
	}
	if fingerprintID.Valid {
		rec.FingerprintID = &fingerprintID.String
	}
	rec.Tipe = Tipe(tipe)
	rec.Sumber = Sumber(sumber)
	return rec, nil
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertRecord(ctx context.Context, q rowQuerier, rec Record) (Record, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO presensi (id, member_id, fingerprint_id, nama, tipe, status_membership, waktu_check_in, tanggal, sumber)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, rec.ID, rec.MemberID, rec.FingerprintID, rec.Nama, string(rec.Tipe), rec.StatusMembership,
		rec.WaktuCheckIn, rec.Tanggal, string(rec.Sumber))
	if err := row.Scan(&rec.CreatedAt); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// InsertRecord writes a new check-in.
func (r *PGRepository) InsertRecord(ctx context.Context, rec Record) (Record, error) {
	defer metrics.Time("insert_record")()
	return insertRecord(ctx, r.db, rec)
}

// InsertGuest writes the Tamu record and the guest row in one transaction.
func (r *PGRepository) InsertGuest(ctx context.Context, g Guest, rec Record) (Guest, Record, error) {
	defer metrics.Time("insert_guest")()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Guest{}, Record{}, err
	}
	defer func() { _ = tx.Rollback() }()

	rec, err = insertRecord(ctx, tx, rec)
	if err != nil {
		return Guest{}, Record{}, err
	}

	g.ID = uuid.NewString()
	g.PresensiID = rec.ID
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO tamu (id, nama, nomor_hp, tanggal_kunjungan, waktu_kunjungan, presensi_id)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at
	`, g.ID, g.Nama, g.NomorHP, g.TanggalKunjungan, g.WaktuKunjungan, g.PresensiID).Scan(&g.CreatedAt); err != nil {
		return Guest{}, Record{}, err
	}

	if err := tx.Commit(); err != nil {
		return Guest{}, Record{}, err
	}
	return g, rec, nil
}

func (r *PGRepository) list(ctx context.Context, query string, args ...any) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

// ByDate returns a day's records, newest first.
func (r *PGRepository) ByDate(ctx context.Context, tanggal string) ([]Record, error) {
	defer metrics.Time("records_by_date")()
	return r.list(ctx, `SELECT `+recordColumns+` FROM presensi WHERE tanggal = $1 ORDER BY waktu_check_in DESC`, tanggal)
}

// ByDateUnordered returns a day's records in storage order.
func (r *PGRepository) ByDateUnordered(ctx context.Context, tanggal string) ([]Record, error) {
	defer metrics.Time("records_by_date_unordered")()
	return r.list(ctx, `SELECT `+recordColumns+` FROM presensi WHERE tanggal = $1`, tanggal)
}

// ByRange returns records with from <= tanggal <= to, newest first.
func (r *PGRepository) ByRange(ctx context.Context, from, to string) ([]Record, error) {
	defer metrics.Time("records_by_range")()
	return r.list(ctx, `
		SELECT `+recordColumns+` FROM presensi
		WHERE tanggal >= $1 AND tanggal <= $2
		ORDER BY waktu_check_in DESC
	`, from, to)
}

// RecentForMember returns the member's latest record at or after since.
func (r *PGRepository) RecentForMember(ctx context.Context, memberID string, since time.Time) (*Record, error) {
	defer metrics.Time("recent_record")()
	rec, err := scanRecord(r.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+` FROM presensi
		WHERE member_id = $1 AND waktu_check_in >= $2
		ORDER BY waktu_check_in DESC
		LIMIT 1
	`, memberID, since))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
