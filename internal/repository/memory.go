package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ruralpay/backoffice/internal/models"
)

// MemoryGateway keeps everything in process. Units of work stage their writes and
// apply them at Commit after checking the versions they read.
type MemoryGateway struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	numbers  map[string]string
	users    map[string]models.User
	loans    map[string]models.Loan
	txs      []models.Transaction
	loanTxs  []models.LoanTransaction
	now      func() time.Time
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		accounts: make(map[string]models.Account),
		numbers:  make(map[string]string),
		users:    make(map[string]models.User),
		loans:    make(map[string]models.Loan),
		now:      time.Now,
	}
}

// SeedAccount stores an account directly, bypassing the ledger.
func (g *MemoryGateway) SeedAccount(a models.Account) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.accounts[a.ID] = a
	g.numbers[a.Number] = a.ID
}

func (g *MemoryGateway) SeedUser(u models.User) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[u.ID] = u
}

func (g *MemoryGateway) SeedLoan(l models.Loan) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.loans[l.ID] = l
}

// Transactions returns a copy of every committed ledger row, oldest first.
func (g *MemoryGateway) Transactions() []models.Transaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.Transaction(nil), g.txs...)
}

// LoanTransactions returns a copy of every committed loan row, oldest first.
func (g *MemoryGateway) LoanTransactions() []models.LoanTransaction {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]models.LoanTransaction(nil), g.loanTxs...)
}

func (g *MemoryGateway) Begin(ctx context.Context) (UnitOfWork, error) {
	return &memoryUnit{
		g:           g,
		accounts:    make(map[string]models.Account),
		accountBase: make(map[string]int),
		users:       make(map[string]models.User),
		loans:       make(map[string]models.Loan),
		loanBase:    make(map[string]int),
		newLoans:    make(map[string]bool),
	}, nil
}

type memoryUnit struct {
	g           *MemoryGateway
	accounts    map[string]models.Account
	accountBase map[string]int
	users       map[string]models.User
	loans       map[string]models.Loan
	loanBase    map[string]int
	newLoans    map[string]bool
	txs         []models.Transaction
	loanTxs     []models.LoanTransaction
	closed      bool
}

func (u *memoryUnit) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	if u.closed {
		return nil, ErrUnitClosed
	}
	if a, ok := u.accounts[id]; ok {
		return &a, nil
	}
	u.g.mu.RLock()
	defer u.g.mu.RUnlock()
	a, ok := u.g.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return &a, nil
}

func (u *memoryUnit) GetAccountByNumber(ctx context.Context, number string) (*models.Account, error) {
	u.g.mu.RLock()
	id, ok := u.g.numbers[number]
	u.g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("account number %s: %w", number, ErrNotFound)
	}
	return u.GetAccount(ctx, id)
}

func (u *memoryUnit) SaveAccount(ctx context.Context, account *models.Account) error {
	if u.closed {
		return ErrUnitClosed
	}
	if staged, ok := u.accounts[account.ID]; ok && staged.Version != account.Version {
		return fmt.Errorf("account %s: %w", account.ID, ErrConcurrentUpdate)
	}
	if _, ok := u.accountBase[account.ID]; !ok {
		u.accountBase[account.ID] = account.Version
	}
	account.Version++
	account.UpdatedAt = u.g.now()
	u.accounts[account.ID] = *account
	return nil
}

func (u *memoryUnit) GetUser(ctx context.Context, id string) (*models.User, error) {
	if u.closed {
		return nil, ErrUnitClosed
	}
	if usr, ok := u.users[id]; ok {
		return &usr, nil
	}
	u.g.mu.RLock()
	defer u.g.mu.RUnlock()
	usr, ok := u.g.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return &usr, nil
}

func (u *memoryUnit) SaveUser(ctx context.Context, user *models.User) error {
	if u.closed {
		return ErrUnitClosed
	}
	user.UpdatedAt = u.g.now()
	u.users[user.ID] = *user
	return nil
}

func (u *memoryUnit) GetLoan(ctx context.Context, id string) (*models.Loan, error) {
	if u.closed {
		return nil, ErrUnitClosed
	}
	if l, ok := u.loans[id]; ok {
		return &l, nil
	}
	u.g.mu.RLock()
	defer u.g.mu.RUnlock()
	l, ok := u.g.loans[id]
	if !ok {
		return nil, fmt.Errorf("loan %s: %w", id, ErrNotFound)
	}
	return &l, nil
}

func (u *memoryUnit) AddLoan(ctx context.Context, loan *models.Loan) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.loans[loan.ID] = *loan
	u.newLoans[loan.ID] = true
	return nil
}

func (u *memoryUnit) SaveLoan(ctx context.Context, loan *models.Loan) error {
	if u.closed {
		return ErrUnitClosed
	}
	if staged, ok := u.loans[loan.ID]; ok && staged.Version != loan.Version {
		return fmt.Errorf("loan %s: %w", loan.ID, ErrConcurrentUpdate)
	}
	if _, ok := u.loanBase[loan.ID]; !ok && !u.newLoans[loan.ID] {
		u.loanBase[loan.ID] = loan.Version
	}
	loan.Version++
	u.loans[loan.ID] = *loan
	return nil
}

func (u *memoryUnit) AddTransaction(ctx context.Context, tx *models.Transaction) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.txs = append(u.txs, *tx)
	return nil
}

func (u *memoryUnit) AddLoanTransaction(ctx context.Context, tx *models.LoanTransaction) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.loanTxs = append(u.loanTxs, *tx)
	return nil
}

func (u *memoryUnit) Commit() error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true

	g := u.g
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, base := range u.accountBase {
		if g.accounts[id].Version != base {
			return fmt.Errorf("account %s: %w", id, ErrConcurrentUpdate)
		}
	}
	for id, base := range u.loanBase {
		if g.loans[id].Version != base {
			return fmt.Errorf("loan %s: %w", id, ErrConcurrentUpdate)
		}
	}
	for id := range u.newLoans {
		if _, exists := g.loans[id]; exists {
			return fmt.Errorf("loan %s already exists", id)
		}
	}

	for id, a := range u.accounts {
		g.accounts[id] = a
		g.numbers[a.Number] = id
	}
	for id, usr := range u.users {
		g.users[id] = usr
	}
	for id, l := range u.loans {
		g.loans[id] = l
	}
	g.txs = append(g.txs, u.txs...)
	g.loanTxs = append(g.loanTxs, u.loanTxs...)
	return nil
}

func (u *memoryUnit) Rollback() error {
	u.closed = true
	return nil
}

func (g *MemoryGateway) ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.Transaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Transaction
	for i := len(g.txs) - 1; i >= 0; i-- {
		tx := g.txs[i]
		if filter.AccountID != "" && tx.AccountID != filter.AccountID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		if filter.From != nil && tx.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && tx.Date.After(*filter.To) {
			continue
		}
		out = append(out, tx)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if limit := limitOrDefault(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) ListLoans(ctx context.Context, filter LoanFilter) ([]models.Loan, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.Loan
	for _, l := range g.loans {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && l.UserID != filter.UserID {
			continue
		}
		if filter.AccountID != "" && l.AccountID != filter.AccountID {
			continue
		}
		if filter.DueBefore != nil && (l.DueDate == nil || !l.DueDate.Before(*filter.DueBefore)) {
			continue
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ApplicationDate.Equal(out[j].ApplicationDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].ApplicationDate.After(out[j].ApplicationDate)
	})
	if limit := limitOrDefault(filter.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (g *MemoryGateway) ListLoanTransactions(ctx context.Context, loanID string) ([]models.LoanTransaction, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []models.LoanTransaction
	for _, tx := range g.loanTxs {
		if tx.LoanID == loanID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (g *MemoryGateway) PortfolioSummary(ctx context.Context) (*models.PortfolioSummary, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	summary := &models.PortfolioSummary{
		AccountCount:       len(g.accounts),
		TotalDeposits:      decimal.Zero,
		LoansByStatus:      make(map[models.LoanStatus]int),
		OutstandingBalance: decimal.Zero,
		DelinquentBalance:  decimal.Zero,
		GeneratedAt:        g.now(),
	}
	for _, a := range g.accounts {
		if a.Type != models.AccountLoan {
			summary.TotalDeposits = summary.TotalDeposits.Add(a.Balance)
		}
	}
	for _, l := range g.loans {
		summary.LoansByStatus[l.Status]++
		switch l.Status {
		case models.LoanActive, models.LoanRestructured, models.LoanDisbursed:
			summary.OutstandingBalance = summary.OutstandingBalance.Add(l.RemainingLoanBalance)
		case models.LoanDelinquent:
			summary.OutstandingBalance = summary.OutstandingBalance.Add(l.RemainingLoanBalance)
			summary.DelinquentBalance = summary.DelinquentBalance.Add(l.RemainingLoanBalance)
		}
	}
	return summary, nil
}
