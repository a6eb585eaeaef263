package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/rifat-sarwar/IntelliTrust/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type anchorRequest struct {
	Fingerprint string `json:"fingerprint"`
	OwnerDID    string `json:"owner_did"`
	Metadata    string `json:"metadata"`
	Fee         int64  `json:"fee"`
}

type anchorResponse struct {
	SequenceID  int64  `json:"sequence_id"`
	CallID      string `json:"call_id"`
	Height      int64  `json:"height"`
	CommittedAt string `json:"committed_at"`
}

type recordResponse struct {
	Fingerprint string `json:"fingerprint"`
	OwnerDID    string `json:"owner_did"`
	AnchorerDID string `json:"anchorer_did"`
	Metadata    string `json:"metadata"`
	Version     int    `json:"version"`
	CreatedAt   string `json:"created_at"`
	SequenceID  int64  `json:"sequence_id"`

	Revoked             bool   `json:"revoked"`
	RevocationReason    string `json:"revocation_reason,omitempty"`
	RevocationTimestamp string `json:"revocation_timestamp,omitempty"`
	RevokerDID          string `json:"revoker_did,omitempty"`
}

type verifyResponse struct {
	Exists bool            `json:"exists"`
	Record *recordResponse `json:"record,omitempty"`
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

type metadataRequest struct {
	Metadata string `json:"metadata"`
}

type mutationResponse struct {
	CallID string `json:"call_id"`
	Height int64  `json:"height"`
}

type historyEntryResponse struct {
	SequenceID int64  `json:"sequence_id"`
	Timestamp  string `json:"timestamp"`
	Action     string `json:"action"`
	Payload    string `json:"payload"`
	Actor      string `json:"actor"`
}

type historyResponse struct {
	Fingerprint string                 `json:"fingerprint"`
	Entries     []historyEntryResponse `json:"entries"`
}

type statisticsResponse struct {
	TotalRecords     int64 `json:"total_records"`
	TotalRevoked     int64 `json:"total_revoked"`
	MaxMetadataBytes int   `json:"max_metadata_bytes"`
	MaxPerIdentity   int   `json:"max_per_identity"`
	MinFee           int64 `json:"min_fee"`
	FeeBalance       int64 `json:"fee_balance"`
	Paused           bool  `json:"paused"`
	ChainHeight      int64 `json:"chain_height"`
	CommittedCalls   int64 `json:"committed_calls"`
}

type limitsRequest struct {
	MaxMetadataBytes int   `json:"max_metadata_bytes"`
	MaxPerIdentity   int   `json:"max_per_identity"`
	MinFee           int64 `json:"min_fee"`
}

type withdrawResponse struct {
	CallID string `json:"call_id"`
	Height int64  `json:"height"`
	Amount int64  `json:"amount"`
}

type grantRequest struct {
	Identity   string `json:"identity"`
	Capability string `json:"capability"`
}

type grantResponse struct {
	Identity   string `json:"identity"`
	Capability string `json:"capability"`
}

func (s *Server) handleAnchor(c *gin.Context) {
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	if !s.checkRateLimit(c, actor) {
		return
	}
	var req anchorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.ledger.Anchor(c.Request.Context(), actor, req.Fingerprint, req.OwnerDID, req.Metadata, req.Fee)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, anchorResponse{
		SequenceID:  result.SequenceID,
		CallID:      result.CallID,
		Height:      result.Height,
		CommittedAt: result.CommittedAt,
	})
}

func (s *Server) handleVerify(c *gin.Context) {
	result, err := s.ledger.Verify(c.Request.Context(), c.Param("fingerprint"))
	if err != nil {
		writeError(c, err)
		return
	}
	out := verifyResponse{Exists: result.Exists}
	if result.Exists {
		record := buildRecordResponse(result.Record)
		out.Record = &record
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRevoke(c *gin.Context) {
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	if !s.checkRateLimit(c, actor) {
		return
	}
	var req revokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.ledger.Revoke(c.Request.Context(), actor, c.Param("fingerprint"), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleUpdateMetadata(c *gin.Context) {
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	if !s.checkRateLimit(c, actor) {
		return
	}
	var req metadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.ledger.UpdateMetadata(c.Request.Context(), actor, c.Param("fingerprint"), req.Metadata)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleHistory(c *gin.Context) {
	fingerprint := c.Param("fingerprint")
	entries, err := s.ledger.History(c.Request.Context(), fingerprint)
	if err != nil {
		writeError(c, err)
		return
	}
	out := historyResponse{Fingerprint: fingerprint, Entries: make([]historyEntryResponse, 0, len(entries))}
	for _, entry := range entries {
		out.Entries = append(out.Entries, historyEntryResponse{
			SequenceID: entry.SequenceID,
			Timestamp:  entry.Timestamp.UTC().Format(time.RFC3339Nano),
			Action:     string(entry.Action),
			Payload:    entry.Payload,
			Actor:      entry.Actor,
		})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleStatistics(c *gin.Context) {
	stats, err := s.ledger.Statistics(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, statisticsResponse{
		TotalRecords:     stats.Registry.TotalRecords,
		TotalRevoked:     stats.Registry.TotalRevoked,
		MaxMetadataBytes: stats.Registry.MaxMetadataBytes,
		MaxPerIdentity:   stats.Registry.MaxPerIdentity,
		MinFee:           stats.Registry.MinFee,
		FeeBalance:       stats.Registry.FeeBalance,
		Paused:           stats.Registry.Paused,
		ChainHeight:      stats.Medium.Height,
		CommittedCalls:   stats.Medium.CommittedCalls,
	})
}

func (s *Server) handleAdminSetLimits(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	var req limitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	result, err := s.ledger.SetLimits(c.Request.Context(), actor, domain.Limits{
		MaxMetadataBytes: req.MaxMetadataBytes,
		MaxPerIdentity:   req.MaxPerIdentity,
		MinFee:           req.MinFee,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleAdminPause(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	result, err := s.ledger.Pause(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleAdminUnpause(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	result, err := s.ledger.Unpause(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleAdminWithdraw(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	result, err := s.ledger.WithdrawFees(c.Request.Context(), actor)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, withdrawResponse{CallID: result.CallID, Height: result.Height, Amount: result.Amount})
}

func (s *Server) handleAdminListCapabilities(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	grants := s.ledger.Capabilities()
	out := make([]grantResponse, 0, len(grants))
	for _, grant := range grants {
		out = append(out, grantResponse{Identity: grant.Identity, Capability: string(grant.Capability)})
	}
	c.JSON(http.StatusOK, gin.H{"grants": out})
}

func (s *Server) handleAdminGrant(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	grant, ok := bindGrant(c)
	if !ok {
		return
	}
	result, err := s.ledger.GrantCapability(c.Request.Context(), actor, grant)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func (s *Server) handleAdminRevokeGrant(c *gin.Context) {
	if !s.requireAdmin(c) {
		return
	}
	actor, ok := s.requireActor(c)
	if !ok {
		return
	}
	grant, ok := bindGrant(c)
	if !ok {
		return
	}
	result, err := s.ledger.RevokeCapability(c.Request.Context(), actor, grant)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, mutationResponse{CallID: result.CallID, Height: result.Height})
}

func bindGrant(c *gin.Context) (domain.CapabilityGrant, bool) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return domain.CapabilityGrant{}, false
	}
	capability := domain.Capability(req.Capability)
	if req.Identity == "" || !capability.Valid() {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_GRANT", "identity and a valid capability are required")
		return domain.CapabilityGrant{}, false
	}
	return domain.CapabilityGrant{Identity: req.Identity, Capability: capability}, true
}

func (s *Server) handleNoRoute(c *gin.Context) {
	writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
}

func buildRecordResponse(record domain.AnchorRecord) recordResponse {
	out := recordResponse{
		Fingerprint: record.Fingerprint,
		OwnerDID:    record.OwnerIdentity,
		AnchorerDID: record.AnchorerIdentity,
		Metadata:    record.Metadata,
		Version:     record.Version,
		CreatedAt:   record.CreatedAt.UTC().Format(time.RFC3339Nano),
		SequenceID:  record.SequenceID,
		Revoked:     record.Revoked,
	}
	if record.Revoked {
		out.RevocationReason = record.RevocationReason
		out.RevocationTimestamp = record.RevocationTimestamp.UTC().Format(time.RFC3339Nano)
		out.RevokerDID = record.RevokerIdentity
	}
	return out
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidFingerprint):
		status, code = http.StatusBadRequest, "INVALID_FINGERPRINT"
	case errors.Is(err, domain.ErrInvalidOwnerIdentity):
		status, code = http.StatusBadRequest, "INVALID_OWNER_IDENTITY"
	case errors.Is(err, domain.ErrMetadataTooLarge):
		status, code = http.StatusBadRequest, "METADATA_TOO_LARGE"
	case errors.Is(err, domain.ErrInsufficientFee):
		status, code = http.StatusBadRequest, "INSUFFICIENT_FEE"
	case errors.Is(err, domain.ErrEmptyReason):
		status, code = http.StatusBadRequest, "EMPTY_REASON"
	case errors.Is(err, domain.ErrReasonTooLong):
		status, code = http.StatusBadRequest, "REASON_TOO_LONG"
	case errors.Is(err, domain.ErrDuplicateFingerprint):
		status, code = http.StatusConflict, "ALREADY_ANCHORED"
	case errors.Is(err, domain.ErrAlreadyRevoked):
		status, code = http.StatusConflict, "ALREADY_REVOKED"
	case errors.Is(err, domain.ErrQuotaExceeded):
		status, code = http.StatusConflict, "QUOTA_EXCEEDED"
	case errors.Is(err, domain.ErrLastAdmin):
		status, code = http.StatusConflict, "LAST_ADMIN"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrPaused):
		status, code = http.StatusServiceUnavailable, "PAUSED"
	case errors.Is(err, domain.ErrSubmitTimeout):
		status, code = http.StatusGatewayTimeout, "SUBMIT_TIMEOUT"
	case errors.Is(err, domain.ErrSubmitExhausted):
		status, code = http.StatusBadGateway, "SUBMIT_EXHAUSTED"
	case errors.Is(err, domain.ErrNonceConflict),
		errors.Is(err, domain.ErrEstimateFailed),
		errors.Is(err, domain.ErrMediumUnavailable):
		status, code = http.StatusBadGateway, "MEDIUM_UNAVAILABLE"
	}
	writeErrorCode(c, status, code, err.Error())
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{
		Code:    code,
		Message: message,
	})
}
