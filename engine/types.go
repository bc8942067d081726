package engine

import (
	"context"
	"time"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// Sort is the ordering direction of a listing.
type Sort string

const (
	SortAsc  Sort = "ASC"
	SortDesc Sort = "DESC"
)

// Ordination is an explicit ordering specification passed by value into
// listing calls. The zero value is normalized to updated_at DESC.
type Ordination struct {
	OrderBy string
	Sort    Sort
}

// Order keys accepted by listings. Date keys compare numerically on the
// timestamp, everything else lexicographically.
const (
	OrderByCreatedAt = "createdAt"
	OrderByUpdatedAt = "updatedAt"
	OrderBySendTime  = "sendTime"
	OrderByName      = "name"
	OrderByStatus    = "status"
	OrderByHash      = "hash"
)

// WithDefaults fills unset ordination fields.
func (o Ordination) WithDefaults() Ordination {
	if o.OrderBy == "" {
		o.OrderBy = OrderByUpdatedAt
	}
	if o.Sort != SortAsc && o.Sort != SortDesc {
		o.Sort = SortDesc
	}
	return o
}

// Pagination is page-number based pagination for single-source listings.
type Pagination struct {
	Page    int
	PerPage int
}

// MergePagination carries the per-source cursors of a dual-source listing.
// OffsetDB and OffsetNetwork advance independently; a follow-up request must
// pass back the cursors returned by the previous page.
type MergePagination struct {
	PerPage       int
	OffsetDB      int
	OffsetNetwork int
}

// TransactionFilter narrows a transaction listing.
type TransactionFilter struct {
	ID        string
	VaultIDs  []string
	Status    []models.TransactionStatus
	Kind      models.TransactionType
	Hash      string
	Signer    string
	To        string
	Name      string
	CreatedBy string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// TransactionQuery is the full query specification the persistence
// collaborator executes: filter, ordering and either page/perPage or
// offset/limit window.
type TransactionQuery struct {
	Filter     TransactionFilter
	Ordination Ordination
	Page       int // 1-based; 0 means offset mode
	PerPage    int
	Offset     int
}

// Page is one page of a single-source listing.
type Page struct {
	Data        []models.Transaction `json:"data"`
	Total       int64                `json:"total"`
	CurrentPage int                  `json:"current_page"`
	TotalPages  int                  `json:"total_pages"`
	PerPage     int                  `json:"per_page"`
}

// Source tags where a listed transaction was fetched from. Items are tagged
// at fetch time; nothing downstream infers the source from identifier shape.
type Source string

const (
	SourceLocal   Source = "db"
	SourceNetwork Source = "network"
)

// SourcedTransaction is a transaction plus its fetch origin.
type SourcedTransaction struct {
	models.Transaction
	Source Source `json:"source"`
}

// MergedPage is one page of the dual-source listing, with the advanced
// per-source cursors for the next request.
type MergedPage struct {
	Data          []SourcedTransaction `json:"data"`
	PerPage       int                  `json:"per_page"`
	OffsetDB      int                  `json:"offset_db"`
	OffsetNetwork int                  `json:"offset_network"`
}

// Store is the persistence collaborator. Implementations must make
// ResolveWitness and TransitionStatus single conditional updates so that
// concurrent signer responses never act on a stale tally.
type Store interface {
	Vault(ctx context.Context, id string) (*models.Vault, error)
	VaultByAddress(ctx context.Context, address string) (*models.Vault, error)

	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	Transaction(ctx context.Context, id string) (*models.Transaction, error)
	TransactionByHash(ctx context.Context, hash string) (*models.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, id string) error
	ListTransactions(ctx context.Context, q TransactionQuery) ([]models.Transaction, int64, error)

	// ResolveWitness moves the (transaction, account) slot out of PENDING.
	// A missing slot yields KindNotFound, an already resolved one KindInvalidState.
	ResolveWitness(ctx context.Context, transactionID, account string, signature *string, approve bool) error
	WitnessTally(ctx context.Context, transactionID string) (Tally, error)

	// TransitionStatus updates status and resume only if the row still holds
	// the from status. It reports whether the update was applied.
	TransitionStatus(ctx context.Context, id string, from, to models.TransactionStatus, resume models.Resume) (bool, error)
	// MarkSubmitted moves the row from PENDING_SENDER to PROCESS_ON_CHAIN and
	// records the hash the network assigned to the signed payload. Finality
	// is later queried by that hash. It reports whether the update was applied.
	MarkSubmitted(ctx context.Context, id, networkHash string, resume models.Resume) (bool, error)
	// SettleTransaction records the final on-chain outcome.
	SettleTransaction(ctx context.Context, id string, status models.TransactionStatus, resume models.Resume, gasUsed string, sendTime time.Time) error
}

// SettlementState is the finality state the network reports for a hash.
type SettlementState string

const (
	SettlementSubmitted SettlementState = "submitted"
	SettlementSuccess   SettlementState = "success"
	SettlementFailed    SettlementState = "failed"
)

// SettlementStatus is the network's answer to a finality query.
type SettlementStatus struct {
	State SettlementState
	Fee   string
}

// Cost is the network's resource estimate for a payload.
type Cost struct {
	GasWanted int64
	Fee       string
}

// SettlementClient talks to the settlement network. Submit returns
// ErrAlreadyKnown when the network already holds the transaction, so retries
// stay idempotent without message matching.
type SettlementClient interface {
	EstimateCost(ctx context.Context, payload []byte) (Cost, error)
	Submit(ctx context.Context, payload []byte) (string, error)
	FetchStatus(ctx context.Context, hash string) (SettlementStatus, error)
	// ScanVault lists transactions the network itself knows for the vault's
	// predicate address, shaped as deposit records.
	ScanVault(ctx context.Context, vault *models.Vault, limit int) ([]models.Transaction, error)
}

// Notifier delivers in-app notifications to vault members.
type Notifier interface {
	Notify(ctx context.Context, userID, title string, summary models.NotificationSummary) error
}

// Mail template types dispatched by the engine.
const MailTransactionCompleted = "transaction-completed"

// Mailer dispatches templated email to a member.
type Mailer interface {
	Send(ctx context.Context, template, to string, data map[string]string) error
}
