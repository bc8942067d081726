package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Bako-Labs/bako-safe-api/engine"
	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

func (ws *WebServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		JSONError(w, "Not found", http.StatusNotFound)
		return
	}
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "bako-safe-api",
		"uptime":  time.Since(ws.startTime).String(),
	})
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(ws.startTime).String(),
	})
}

// Transactions

type proposeRequest struct {
	VaultID   string          `json:"vault_id"`
	Name      string          `json:"name"`
	Hash      string          `json:"hash"`
	Kind      string          `json:"kind"`
	TxData    json.RawMessage `json:"tx_data"`
	Assets    []models.Asset  `json:"assets"`
	CreatedBy string          `json:"created_by"`
}

type signRequest struct {
	Account   string  `json:"account"`
	Confirm   bool    `json:"confirm"`
	Signature *string `json:"signature,omitempty"`
}

// handleTransactionCollection serves /transaction: proposals on POST and
// listings on GET.
func (ws *WebServer) handleTransactionCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		ws.proposeTransaction(w, r)
	case http.MethodGet:
		ws.listTransactions(w, r)
	default:
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTransactionAPI routes /transaction/{id}[/action] and
// /transaction/by-hash/{hash}.
func (ws *WebServer) handleTransactionAPI(w http.ResponseWriter, r *http.Request) {
	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	if len(pathParts) < 3 {
		JSONError(w, "Invalid transaction path", http.StatusBadRequest)
		return
	}

	if pathParts[2] == "by-hash" {
		if len(pathParts) != 4 || r.Method != http.MethodGet {
			JSONError(w, "Invalid transaction path", http.StatusBadRequest)
			return
		}
		tx, err := ws.engine.FindByHash(r.Context(), pathParts[3])
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
		return
	}

	txID := pathParts[2]
	action := ""
	if len(pathParts) == 4 {
		action = pathParts[3]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		tx, err := ws.engine.FindByID(r.Context(), txID)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)

	case action == "" && r.Method == http.MethodDelete:
		if err := ws.engine.Delete(r.Context(), txID); err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})

	case action == "sign" && r.Method == http.MethodPut:
		ws.signTransaction(w, r, txID)

	case action == "send" && r.Method == http.MethodPost:
		if err := ws.engine.SubmitToNetwork(r.Context(), txID); err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"submitted": true})

	case action == "verify" && r.Method == http.MethodGet:
		resume, err := ws.engine.ConfirmOnNetwork(r.Context(), txID)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resume)

	default:
		JSONError(w, "Invalid transaction path", http.StatusBadRequest)
	}
}

func (ws *WebServer) proposeTransaction(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.VaultID == "" || req.Hash == "" {
		JSONError(w, "vault_id and hash are required", http.StatusBadRequest)
		return
	}

	kind := models.TransactionType(req.Kind)
	if kind == "" {
		kind = models.TypeTransfer
	}

	tx, err := ws.engine.Propose(r.Context(), engine.ProposeParams{
		VaultID:   req.VaultID,
		Name:      req.Name,
		Hash:      req.Hash,
		Kind:      kind,
		TxData:    req.TxData,
		Assets:    req.Assets,
		CreatedBy: req.CreatedBy,
	})
	if err != nil {
		ws.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (ws *WebServer) signTransaction(w http.ResponseWriter, r *http.Request, txID string) {
	var req signRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Account == "" {
		JSONError(w, "account is required", http.StatusBadRequest)
		return
	}
	if req.Confirm && req.Signature == nil {
		JSONError(w, "signature is required to confirm", http.StatusBadRequest)
		return
	}

	ok, err := ws.engine.RespondToWitness(r.Context(), txID, req.Account, req.Confirm, req.Signature)
	if err != nil {
		ws.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"recorded": ok})
}

// listTransactions serves both listing modes. With incoming=true the page
// merges network deposits and carries offset_db / offset_network cursors,
// otherwise it is a plain page over local records.
func (ws *WebServer) listTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter, err := filterFromQuery(query)
	if err != nil {
		JSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	ord := engine.Ordination{
		OrderBy: query.Get("orderBy"),
		Sort:    engine.Sort(strings.ToUpper(query.Get("sort"))),
	}

	if query.Get("incoming") == "true" {
		if len(filter.VaultIDs) == 0 {
			JSONError(w, "vaultId is required for incoming listings", http.StatusBadRequest)
			return
		}
		var pag *engine.MergePagination
		if perPage := intParam(query.Get("perPage"), 0); perPage > 0 {
			pag = &engine.MergePagination{
				PerPage:       perPage,
				OffsetDB:      intParam(query.Get("offsetDb"), 0),
				OffsetNetwork: intParam(query.Get("offsetNetwork"), 0),
			}
		}
		page, err := ws.engine.ListWithIncoming(r.Context(), filter, ord, pag)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	q := engine.TransactionQuery{
		Filter:     filter,
		Ordination: ord,
		Page:       intParam(query.Get("page"), 0),
		PerPage:    intParam(query.Get("perPage"), 0),
	}
	page, err := ws.engine.ListTransactions(r.Context(), q)
	if err != nil {
		ws.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func filterFromQuery(query map[string][]string) (engine.TransactionFilter, error) {
	get := func(key string) string {
		if vals := query[key]; len(vals) > 0 {
			return vals[0]
		}
		return ""
	}

	filter := engine.TransactionFilter{
		ID:        get("id"),
		Hash:      get("hash"),
		Kind:      models.TransactionType(get("type")),
		Signer:    get("signer"),
		To:        get("to"),
		Name:      get("name"),
		CreatedBy: get("createdBy"),
	}
	if v := get("vaultId"); v != "" {
		filter.VaultIDs = strings.Split(v, ",")
	}
	if v := get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Status = append(filter.Status, models.TransactionStatus(s))
		}
	}
	if v := get("startDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.StartDate = &t
	}
	if v := get("endDate"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, err
		}
		filter.EndDate = &t
	}
	filter.Limit = intParam(get("limit"), 0)
	return filter, nil
}

func intParam(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

// Vaults

type createVaultRequest struct {
	Name             string   `json:"name"`
	PredicateAddress string   `json:"predicate_address"`
	Description      string   `json:"description"`
	MinSigners       int      `json:"min_signers"`
	Bytes            string   `json:"bytes"`
	ABI              string   `json:"abi"`
	Configurable     string   `json:"configurable"`
	Provider         string   `json:"provider"`
	ChainID          *int     `json:"chain_id,omitempty"`
	OwnerID          string   `json:"owner_id"`
	MemberAddresses  []string `json:"member_addresses"`
}

func (ws *WebServer) handleVaultCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createVaultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.PredicateAddress == "" || req.MinSigners < 1 || len(req.MemberAddresses) == 0 {
		JSONError(w, "predicate_address, min_signers and member_addresses are required", http.StatusBadRequest)
		return
	}
	if req.MinSigners > len(req.MemberAddresses) {
		JSONError(w, "min_signers cannot exceed the number of members", http.StatusBadRequest)
		return
	}

	members := make([]models.User, 0, len(req.MemberAddresses))
	for _, address := range req.MemberAddresses {
		user, err := ws.repository.UserByAddress(r.Context(), address)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		members = append(members, *user)
	}

	vault := &models.Vault{
		Name:             req.Name,
		PredicateAddress: req.PredicateAddress,
		Description:      req.Description,
		MinSigners:       req.MinSigners,
		Bytes:            req.Bytes,
		ABI:              req.ABI,
		Configurable:     req.Configurable,
		Provider:         req.Provider,
		ChainID:          req.ChainID,
		OwnerID:          req.OwnerID,
		Members:          members,
	}
	if err := ws.repository.CreateVault(r.Context(), vault); err != nil {
		ws.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vault)
}

func (ws *WebServer) handleVaultAPI(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pathParts := strings.Split(strings.TrimSuffix(r.URL.Path, "/"), "/")
	switch {
	case len(pathParts) == 3:
		vault, err := ws.repository.Vault(r.Context(), pathParts[2])
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vault)

	case len(pathParts) == 4 && pathParts[2] == "by-address":
		vault, err := ws.repository.VaultByAddress(r.Context(), pathParts[3])
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, vault)

	default:
		JSONError(w, "Invalid vault path", http.StatusBadRequest)
	}
}

// Users

type createUserRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Avatar  string `json:"avatar"`
	Notify  bool   `json:"notify"`
}

func (ws *WebServer) handleUserCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		JSONError(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Address == "" {
		JSONError(w, "address is required", http.StatusBadRequest)
		return
	}

	user := &models.User{
		Address: req.Address,
		Name:    req.Name,
		Email:   req.Email,
		Avatar:  req.Avatar,
		Notify:  req.Notify,
	}
	if err := ws.repository.CreateUser(r.Context(), user); err != nil {
		ws.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Notifications

func (ws *WebServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		JSONError(w, "userId is required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		unreadOnly := r.URL.Query().Get("unread") == "true"
		items, err := ws.notifications.List(r.Context(), userID, unreadOnly)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, items)

	case http.MethodPut:
		n, err := ws.notifications.MarkRead(r.Context(), userID)
		if err != nil {
			ws.engineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"updated": n})

	default:
		JSONError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
