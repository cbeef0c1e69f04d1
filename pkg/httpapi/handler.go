package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/custodia-labs/solana-wallet-middleware/pkg/app/errors"
	apphttp "github.com/custodia-labs/solana-wallet-middleware/pkg/app/http"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet"
	"github.com/custodia-labs/solana-wallet-middleware/pkg/wallet/service"
)

// maxBodySize caps request bodies at 1MB.
const maxBodySize = 1 << 20

const (
	statusCreated = "Ok"
	statusExists  = "Exists"
)

// Handler handles wallet API requests
type Handler struct {
	svc      service.Service
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates the wallet API handler.
func NewHandler(svc service.Service, logger *zap.Logger) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
		logger:   logger,
	}
}

// Create provisions a wallet for a phone number. Repeating the request for a
// number that already holds a wallet is not an error: it answers with status
// "Exists" and the original registration, without the user share.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) error {
	var req wallet.CreateRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	res, err := h.svc.CreateWallet(r.Context(), req.Number)
	if err != nil {
		return err
	}

	resp := &wallet.CreateResponse{
		Status:   statusCreated,
		Code:     res.Code,
		WalletID: res.WalletID,
		Pubkey:   res.Address,
	}
	if res.Existing {
		resp.Status = statusExists
	} else {
		resp.UserShare = res.UserShare
	}

	apphttp.WriteJSON(w, http.StatusOK, resp)
	return nil
}

// Sign submits a transfer signed with a caller-supplied user share. The
// number must have a wallet provisioned upstream; the registry is not
// consulted on this path.
func (h *Handler) Sign(w http.ResponseWriter, r *http.Request) error {
	var req wallet.SignRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount.String())
	if err != nil {
		return apperrors.BadRequestError(err, "invalid amount")
	}

	held, err := h.svc.HasProvisionedWallet(r.Context(), req.Number)
	if err != nil {
		return err
	}
	if !held {
		return apperrors.BadRequestError(
			errors.New("number has no provisioned wallet"),
			"no pre-generated wallet found for this number")
	}

	res, err := h.svc.SendWithShare(r.Context(), req.UserShare, req.Receiver, amount)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, &wallet.SignResponse{
		Success: true,
		Message: fmt.Sprintf("Tx successful, sent %s to %s", res.Amount.String(), res.To),
		Sig:     res.Signature,
	})
	return nil
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

// decode reads, parses, and validates a JSON request body.
func (h *Handler) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}

	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "missing required fields")
	}
	return nil
}
