package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Bako-Labs/bako-safe-api/engine"
	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// orderColumns whitelists the order keys a listing may sort by. Anything
// outside the map falls back to updated_at.
var orderColumns = map[string]string{
	engine.OrderByCreatedAt: "created_at",
	engine.OrderByUpdatedAt: "updated_at",
	engine.OrderBySendTime:  "send_time",
	engine.OrderByName:      "name",
	engine.OrderByStatus:    "status",
	engine.OrderByHash:      "hash",
}

// Repository is the gorm-backed persistence layer. It implements engine.Store.
type Repository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRepository(logger *logrus.Logger) *Repository {
	return &Repository{logger: logger}
}

// ConnectDB opens the Postgres connection, retrying while the database
// container comes up.
func (r *Repository) ConnectDB(dsn string) error {
	var lastErr error
	for i := 0; i < 10; i++ {
		r.logger.WithField("attempt", i+1).Info("Connecting to Postgres")
		db, err := gorm.Open(postgres.Open(dsn))
		if err == nil {
			r.db = db
			r.logger.Info("Connected to Postgres")
			return nil
		}
		lastErr = err
		r.logger.WithError(err).Warn("Connection attempt failed")
		time.Sleep(2 * time.Second)
	}
	return engine.Internalf("Database unreachable", "giving up after 10 attempts: %v", lastErr)
}

func (r *Repository) Migrate() error {
	err := r.db.AutoMigrate(
		&models.User{},
		&models.Vault{},
		&models.Transaction{},
		&models.Witness{},
		&models.Asset{},
		&models.Notification{},
	)
	if err != nil {
		return dbError(err, "Migration failed")
	}
	r.logger.Info("Database migration completed")
	return nil
}

// Users

func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return dbError(err, "Failed to create user")
	}
	return nil
}

func (r *Repository) UserByAddress(ctx context.Context, address string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&user).Error
	if err != nil {
		return nil, lookupError(err, "User", address)
	}
	return &user, nil
}

// Vaults

func (r *Repository) CreateVault(ctx context.Context, vault *models.Vault) error {
	dbTx := r.db.WithContext(ctx).Begin()
	if err := dbTx.Create(vault).Error; err != nil {
		dbTx.Rollback()
		return dbError(err, "Failed to create vault")
	}
	if err := dbTx.Commit().Error; err != nil {
		return dbError(err, "Failed to commit vault")
	}
	return nil
}

func (r *Repository) Vault(ctx context.Context, id string) (*models.Vault, error) {
	var vault models.Vault
	err := r.db.WithContext(ctx).Preload("Members").Preload("Owner").Where("id = ?", id).First(&vault).Error
	if err != nil {
		return nil, lookupError(err, "Vault", id)
	}
	return &vault, nil
}

func (r *Repository) VaultByAddress(ctx context.Context, address string) (*models.Vault, error) {
	var vault models.Vault
	err := r.db.WithContext(ctx).Preload("Members").Preload("Owner").Where("predicate_address = ?", address).First(&vault).Error
	if err != nil {
		return nil, lookupError(err, "Vault", address)
	}
	return &vault, nil
}

// Transactions

func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	dbTx := r.db.WithContext(ctx).Begin()
	if err := dbTx.Create(tx).Error; err != nil {
		dbTx.Rollback()
		return dbError(err, "Failed to create transaction")
	}
	if err := dbTx.Commit().Error; err != nil {
		return dbError(err, "Failed to commit transaction")
	}
	return nil
}

func (r *Repository) Transaction(ctx context.Context, id string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.txQuery(ctx).Where("id = ?", id).First(&tx).Error
	if err != nil {
		return nil, lookupError(err, "Transaction", id)
	}
	return &tx, nil
}

func (r *Repository) TransactionByHash(ctx context.Context, hash string) (*models.Transaction, error) {
	var tx models.Transaction
	err := r.txQuery(ctx).Where("hash = ?", hash).First(&tx).Error
	if err != nil {
		return nil, lookupError(err, "Transaction", hash)
	}
	return &tx, nil
}

func (r *Repository) SoftDeleteTransaction(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Transaction{})
	if res.Error != nil {
		return dbError(res.Error, "Failed to delete transaction")
	}
	if res.RowsAffected == 0 {
		return engine.NotFoundf("Transaction not found", "Transaction with id %s does not exist", id)
	}
	return nil
}

// ListTransactions executes a query specification: filter, ordering and either
// a page window or an offset window. It returns the page and the total count
// of matching rows before windowing.
func (r *Repository) ListTransactions(ctx context.Context, q engine.TransactionQuery) ([]models.Transaction, int64, error) {
	base := r.db.WithContext(ctx).Model(&models.Transaction{})
	base = applyFilter(base, q.Filter)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, dbError(err, "Failed to count transactions")
	}

	ord := q.Ordination.WithDefaults()
	column, ok := orderColumns[ord.OrderBy]
	if !ok {
		column = "updated_at"
	}

	query := r.txQuery(ctx)
	query = applyFilter(query, q.Filter).Order(column + " " + string(ord.Sort))

	switch {
	case q.Page > 0:
		query = query.Offset((q.Page - 1) * q.PerPage).Limit(q.PerPage)
	case q.PerPage > 0:
		query = query.Offset(q.Offset).Limit(q.PerPage)
	case q.Filter.Limit > 0:
		query = query.Limit(q.Filter.Limit)
	}

	var txs []models.Transaction
	if err := query.Find(&txs).Error; err != nil {
		return nil, 0, dbError(err, "Failed to list transactions")
	}
	return txs, total, nil
}

func (r *Repository) txQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Vault").
		Preload("Vault.Members").
		Preload("Witnesses", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Assets")
}

func applyFilter(db *gorm.DB, f engine.TransactionFilter) *gorm.DB {
	if f.ID != "" {
		db = db.Where("transactions.id = ?", f.ID)
	}
	if len(f.VaultIDs) > 0 {
		db = db.Where("transactions.vault_id IN ?", f.VaultIDs)
	}
	if len(f.Status) > 0 {
		db = db.Where("transactions.status IN ?", f.Status)
	}
	if f.Kind != "" {
		db = db.Where("transactions.kind = ?", f.Kind)
	}
	if f.Hash != "" {
		db = db.Where("transactions.hash = ?", f.Hash)
	}
	if f.Name != "" {
		db = db.Where("transactions.name ILIKE ?", "%"+f.Name+"%")
	}
	if f.CreatedBy != "" {
		db = db.Where("transactions.created_by = ?", f.CreatedBy)
	}
	if f.StartDate != nil {
		db = db.Where("transactions.created_at >= ?", *f.StartDate)
	}
	if f.EndDate != nil {
		db = db.Where("transactions.created_at <= ?", *f.EndDate)
	}
	if f.Signer != "" {
		db = db.Where("transactions.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Witness{}).
				Select("transaction_id").
				Where("account = ?", f.Signer))
	}
	if f.To != "" {
		db = db.Where("transactions.id IN (?)",
			db.Session(&gorm.Session{NewDB: true}).
				Model(&models.Asset{}).
				Select("transaction_id").
				Where("\"to\" = ?", f.To))
	}
	return db
}

// Witnesses

// ResolveWitness moves the signer's slot out of PENDING in one conditional
// update. Losing a race against another writer, or hitting an already
// resolved slot, surfaces as invalid state; a slot that never existed as not
// found. The signature is written only on approval.
func (r *Repository) ResolveWitness(ctx context.Context, transactionID, account string, signature *string, approve bool) error {
	updates := map[string]interface{}{"status": models.WitnessRejected}
	if approve {
		updates["status"] = models.WitnessDone
		updates["signature"] = signature
	}

	res := r.db.WithContext(ctx).Model(&models.Witness{}).
		Where("transaction_id = ? AND account = ? AND status = ?", transactionID, account, models.WitnessPending).
		Updates(updates)
	if res.Error != nil {
		return dbError(res.Error, "Failed to resolve witness")
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var slot models.Witness
	err := r.db.WithContext(ctx).
		Where("transaction_id = ? AND account = ?", transactionID, account).
		First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return engine.NotFoundf("Witness slot not found",
				"account %s is not a required signer of transaction %s", account, transactionID)
		}
		return dbError(err, "Failed to resolve witness")
	}
	return engine.InvalidStatef("Witness already resolved",
		"slot for account %s is %s, responses are final", account, slot.Status)
}

func (r *Repository) WitnessTally(ctx context.Context, transactionID string) (engine.Tally, error) {
	var rows []struct {
		Status models.WitnessStatus
		N      int
	}
	err := r.db.WithContext(ctx).Model(&models.Witness{}).
		Select("status, count(*) as n").
		Where("transaction_id = ?", transactionID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return engine.Tally{}, dbError(err, "Failed to tally witnesses")
	}

	var tally engine.Tally
	for _, row := range rows {
		switch row.Status {
		case models.WitnessDone:
			tally.Done = row.N
		case models.WitnessRejected:
			tally.Rejected = row.N
		case models.WitnessPending:
			tally.Pending = row.N
		}
	}
	return tally, nil
}

// Status transitions

// TransitionStatus writes the new status and resume only if the row still
// holds the status the caller observed. It reports whether the write applied,
// so concurrent recomputations resolve without acting on stale tallies.
func (r *Repository) TransitionStatus(ctx context.Context, id string, from, to models.TransactionStatus, resume models.Resume) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "resume": resume})
	if res.Error != nil {
		return false, dbError(res.Error, "Failed to transition status")
	}
	return res.RowsAffected > 0, nil
}

// MarkSubmitted moves the row out of PENDING_SENDER and records the hash the
// network assigned to the signed payload, in one conditional update. Finality
// queries run against that hash, not the proposal-time one.
func (r *Repository) MarkSubmitted(ctx context.Context, id, networkHash string, resume models.Resume) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.StatusPendingSender).
		Updates(map[string]interface{}{
			"status": models.StatusProcessOnChain,
			"hash":   networkHash,
			"resume": resume,
		})
	if res.Error != nil {
		return false, dbError(res.Error, "Failed to mark transaction submitted")
	}
	return res.RowsAffected > 0, nil
}

// SettleTransaction records the final on-chain outcome unconditionally: by
// the time a finality answer arrives the row can only be in
// PROCESS_ON_CHAIN, and terminal statuses are never recomputed afterwards.
func (r *Repository) SettleTransaction(ctx context.Context, id string, status models.TransactionStatus, resume models.Resume, gasUsed string, sendTime time.Time) error {
	dbTx := r.db.WithContext(ctx).Begin()
	res := dbTx.Model(&models.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":    status,
			"resume":    resume,
			"gas_used":  gasUsed,
			"send_time": sendTime,
		})
	if res.Error != nil {
		dbTx.Rollback()
		return dbError(res.Error, "Failed to settle transaction")
	}
	if res.RowsAffected == 0 {
		dbTx.Rollback()
		return engine.NotFoundf("Transaction not found", "Transaction with id %s does not exist", id)
	}
	if err := dbTx.Commit().Error; err != nil {
		return dbError(err, "Failed to commit settlement")
	}
	return nil
}

// Notifications

func (r *Repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return dbError(err, "Failed to create notification")
	}
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	var out []models.Notification
	if err := query.Find(&out).Error; err != nil {
		return nil, dbError(err, "Failed to list notifications")
	}
	return out, nil
}

func (r *Repository) MarkNotificationsRead(ctx context.Context, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, dbError(res.Error, "Failed to mark notifications read")
	}
	return res.RowsAffected, nil
}
