package membership

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemRepository keeps members in process memory for dev mode and tests.
// Multi-step writes are validated first and applied together under the
// lock, so a failing step leaves no partial state.
type MemRepository struct {
	mu       sync.Mutex
	seq      int
	packages []Package
	members  map[string]Member
	txns     []Transaction

	// FailWrite, when set, is consulted before each write step ("insert_member",
	// "insert_transaction", "update_member"); an error aborts the operation.
	FailWrite func(op string) error
}

// NewMemRepository creates an empty repository holding the default catalog.
func NewMemRepository() *MemRepository {
	return &MemRepository{
		packages: append([]Package(nil), DefaultPackages...),
		members:  make(map[string]Member),
	}
}

func (r *MemRepository) check(ops ...string) error {
	if r.FailWrite == nil {
		return nil
	}
	for _, op := range ops {
		if err := r.FailWrite(op); err != nil {
			return err
		}
	}
	return nil
}

func (r *MemRepository) ListPackages(ctx context.Context) ([]Package, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Package(nil), r.packages...), nil
}

// UpsertPackage creates or replaces a catalog entry by name.
func (r *MemRepository) UpsertPackage(ctx context.Context, p Package) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.packages {
		if r.packages[i].NamaPaket == p.NamaPaket {
			r.packages[i] = p
			return nil
		}
	}
	r.packages = append(r.packages, p)
	return nil
}

func (r *MemRepository) CreateMember(ctx context.Context, m Member) (Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.FingerprintID != "" {
		for _, existing := range r.members {
			if existing.FingerprintID == m.FingerprintID {
				return Member{}, ErrDuplicate
			}
		}
	}
	if err := r.check("insert_member"); err != nil {
		return Member{}, err
	}

	m.ID = uuid.NewString()
	m.MemberID = NextMemberID(r.seq)
	now := time.Now()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
	r.seq++
	r.members[m.ID] = m
	return m, nil
}

func (r *MemRepository) GetMember(ctx context.Context, id string) (*Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.members[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (r *MemRepository) find(match func(Member) bool) *Member {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members {
		if match(m) {
			return &m
		}
	}
	return nil
}

func (r *MemRepository) FindByMemberID(ctx context.Context, memberID string) (*Member, error) {
	return r.find(func(m Member) bool { return m.MemberID == memberID }), nil
}

func (r *MemRepository) FindByFingerprint(ctx context.Context, fingerprintID string) (*Member, error) {
	if fingerprintID == "" {
		return nil, nil
	}
	return r.find(func(m Member) bool { return m.FingerprintID == fingerprintID }), nil
}

func (r *MemRepository) ListMembers(ctx context.Context) ([]Member, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].MemberID > out[j].MemberID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemRepository) CountMembers(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), nil
}

func (r *MemRepository) Renew(ctx context.Context, id string, apply RenewFunc) (Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.members[id]
	if !ok {
		return Transaction{}, ErrMemberNotFound
	}
	txn, updated, err := apply(cur)
	if err != nil {
		return Transaction{}, err
	}
	if err := r.check("insert_transaction", "update_member"); err != nil {
		return Transaction{}, err
	}

	txn.ID = uuid.NewString()
	txn.CreatedAt = time.Now()
	updated.ID = cur.ID
	r.txns = append(r.txns, txn)
	r.members[id] = updated
	return txn, nil
}

func (r *MemRepository) ListTransactions(ctx context.Context, memberID string) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Transaction
	for i := len(r.txns) - 1; i >= 0; i-- {
		if r.txns[i].MemberID == memberID {
			out = append(out, r.txns[i])
		}
	}
	return out, nil
}
