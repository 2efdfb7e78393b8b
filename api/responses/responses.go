package responses

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	pkgerrors "github.com/angelmondragon/sweetshop-backend/pkg/errors"
	"github.com/angelmondragon/sweetshop-backend/pkg/logger"
	"github.com/angelmondragon/sweetshop-backend/pkg/types"
)

// WriteSuccess renders {error:false, message, payload}. A nil payload is
// omitted.
func WriteSuccess(w http.ResponseWriter, status int, message string, payload any) {
	writeJSON(w, status, types.Envelope{Error: false, Message: message, Payload: payload})
}

// WriteOK is WriteSuccess with 200.
func WriteOK(w http.ResponseWriter, message string, payload any) {
	WriteSuccess(w, http.StatusOK, message, payload)
}

func WriteError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	if err == nil {
		err = errors.New("unknown error")
	}

	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}

	policy := typed.Code().Policy()
	msg := policy.Fallback
	if policy.ShowMessage && typed.Message() != "" {
		msg = typed.Message()
	}

	payload := types.Envelope{
		Error:   true,
		Message: msg,
		Code:    string(typed.Code()),
	}
	if policy.ShowDetails {
		if details := typed.Details(); details != nil {
			payload.Details = details
		}
	}

	if logg != nil {
		fields := pkgerrors.Diagnose(err).Fields()
		fields["http_status"] = policy.Status
		ctx = logg.WithFields(ctx, fields)
		if policy.Status >= http.StatusInternalServerError {
			logg.Error(ctx, "request.error", err)
		} else {
			logg.Warn(ctx, "request.rejected")
		}
	}

	writeJSON(w, policy.Status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode response","err":"%v"}`, err)
	}
}
