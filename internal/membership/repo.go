package membership

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"gymdesk/internal/metrics"
	"gymdesk/internal/store"
)

// PGRepository persists membership data in Postgres.
type PGRepository struct {
	db *sql.DB
}

// NewPGRepository creates a repo.
func NewPGRepository(db *sql.DB) *PGRepository {
	return &PGRepository{db: db}
}

const memberColumns = `id, member_id, nama, nomor_hp, COALESCE(fingerprint_id, ''), paket_membership, status_membership,
	tanggal_daftar, tanggal_mulai, tanggal_expired, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner) (Member, error) {
	var m Member
	var expired sql.NullTime
	var status string
	if err := row.Scan(&m.ID, &m.MemberID, &m.Nama, &m.NomorHP, &m.FingerprintID, &m.PaketMembership, &status,
		&m.TanggalDaftar, &m.TanggalMulai, &expired, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return Member{}, err
	}
	m.StatusMembership = Status(status)
	m.TanggalExpired = store.TimePtr(expired)
	return m, nil
}

// ListPackages returns the catalog.
func (r *PGRepository) ListPackages(ctx context.Context) ([]Package, error) {
	defer metrics.Time("list_packages")()
	rows, err := r.db.QueryContext(ctx, `
		SELECT nama_paket, durasi_hari, harga, aktif
		FROM membership_packages
		ORDER BY durasi_hari
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pkgs []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.NamaPaket, &p.DurasiHari, &p.Harga, &p.Aktif); err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}
	return pkgs, rows.Err()
}

// UpsertPackage creates or updates a catalog entry.
func (r *PGRepository) UpsertPackage(ctx context.Context, p Package) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO membership_packages (nama_paket, durasi_hari, harga, aktif)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (nama_paket) DO UPDATE SET
			durasi_hari = EXCLUDED.durasi_hari,
			harga = EXCLUDED.harga,
			aktif = EXCLUDED.aktif
	`, p.NamaPaket, p.DurasiHari, p.Harga, p.Aktif)
	return err
}

// CreateMember takes the next number from member_sequence and inserts the
// member in the same transaction. The sequence row lock serializes
// concurrent registrations.
func (r *PGRepository) CreateMember(ctx context.Context, m Member) (Member, error) {
	defer metrics.Time("insert_member")()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Member{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var n int
	if err := tx.QueryRowContext(ctx, `
		UPDATE member_sequence SET value = value + 1 WHERE id = 1 RETURNING value
	`).Scan(&n); err != nil {
		return Member{}, err
	}

	m.ID = uuid.NewString()
	m.MemberID = NextMemberID(n - 1)
	var createdAt any
	if !m.CreatedAt.IsZero() {
		createdAt = m.CreatedAt
	}
	row := tx.QueryRowContext(ctx, `
		INSERT INTO members (id, member_id, nama, nomor_hp, fingerprint_id, paket_membership, status_membership,
			tanggal_daftar, tanggal_mulai, tanggal_expired, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10, COALESCE($11, NOW()))
		RETURNING created_at, updated_at
	`, m.ID, m.MemberID, m.Nama, m.NomorHP, store.NullString(m.FingerprintID), m.PaketMembership, string(m.StatusMembership),
		m.TanggalDaftar, m.TanggalMulai, store.NullTime(m.TanggalExpired), createdAt)
	if err := row.Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		if store.IsUniqueViolation(err) {
			return Member{}, ErrDuplicate
		}
		return Member{}, err
	}
	if err := tx.Commit(); err != nil {
		return Member{}, err
	}
	return m, nil
}

func (r *PGRepository) getOne(ctx context.Context, where string, arg any) (*Member, error) {
	defer metrics.Time("get_member")()
	m, err := scanMember(r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetMember returns a member by row id.
func (r *PGRepository) GetMember(ctx context.Context, id string) (*Member, error) {
	return r.getOne(ctx, "id = $1", id)
}

// FindByMemberID returns a member by MBR identifier.
func (r *PGRepository) FindByMemberID(ctx context.Context, memberID string) (*Member, error) {
	return r.getOne(ctx, "member_id = $1", memberID)
}

// FindByFingerprint returns the member bound to a reader slot.
func (r *PGRepository) FindByFingerprint(ctx context.Context, fingerprintID string) (*Member, error) {
	if fingerprintID == "" {
		return nil, nil
	}
	return r.getOne(ctx, "fingerprint_id = $1", fingerprintID)
}

// ListMembers returns all members, newest first.
func (r *PGRepository) ListMembers(ctx context.Context) ([]Member, error) {
	defer metrics.Time("list_members")()
	rows, err := r.db.QueryContext(ctx, `SELECT `+memberColumns+` FROM members ORDER BY created_at DESC, member_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, m)
	}
	return res, rows.Err()
}

// CountMembers returns the number of member rows.
func (r *PGRepository) CountMembers(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM members`).Scan(&n)
	return n, err
}

// Renew locks the member row, lets apply compute the new term, then appends
// the transaction and updates the member before committing.
func (r *PGRepository) Renew(ctx context.Context, id string, apply RenewFunc) (Transaction, error) {
	defer metrics.Time("renew_member")()
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	cur, err := scanMember(tx.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Transaction{}, ErrMemberNotFound
		}
		return Transaction{}, err
	}

	txn, updated, err := apply(cur)
	if err != nil {
		return Transaction{}, err
	}

	txn.ID = uuid.NewString()
	if err := tx.QueryRowContext(ctx, `
		INSERT INTO membership_transactions (id, member_id, nama_member, paket_membership, nominal_pembayaran,
			metode_pembayaran, tanggal_transaksi, tanggal_mulai, tanggal_expired)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING created_at
	`, txn.ID, txn.MemberID, txn.NamaMember, txn.PaketMembership, txn.NominalPembayaran,
		string(txn.MetodePembayaran), txn.TanggalTransaksi, txn.TanggalMulai, txn.TanggalExpired).Scan(&txn.CreatedAt); err != nil {
		return Transaction{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE members
		SET paket_membership = $2, status_membership = $3, tanggal_mulai = $4, tanggal_expired = $5, updated_at = NOW()
		WHERE id = $1
	`, id, updated.PaketMembership, string(updated.StatusMembership), updated.TanggalMulai,
		store.NullTime(updated.TanggalExpired)); err != nil {
		return Transaction{}, err
	}

	if err := tx.Commit(); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

// ListTransactions returns a member's renewals, newest first.
func (r *PGRepository) ListTransactions(ctx context.Context, memberID string) ([]Transaction, error) {
	defer metrics.Time("list_transactions")()
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, member_id, nama_member, paket_membership, nominal_pembayaran, metode_pembayaran,
			tanggal_transaksi, tanggal_mulai, tanggal_expired, created_at
		FROM membership_transactions
		WHERE member_id = $1
		ORDER BY tanggal_transaksi DESC
	`, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Transaction
	for rows.Next() {
		var t Transaction
		var metode string
		if err := rows.Scan(&t.ID, &t.MemberID, &t.NamaMember, &t.PaketMembership, &t.NominalPembayaran, &metode,
			&t.TanggalTransaksi, &t.TanggalMulai, &t.TanggalExpired, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.MetodePembayaran = PaymentMethod(metode)
		res = append(res, t)
	}
	return res, rows.Err()
}
