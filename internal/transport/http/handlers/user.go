package http_handlers

import (
	"net/http"

	"github.com/baechuer/otp-auth/internal/application/auth"
	"github.com/baechuer/otp-auth/internal/domain"
	"github.com/baechuer/otp-auth/internal/transport/http/dto"
	"github.com/baechuer/otp-auth/internal/transport/http/middleware"
	"github.com/baechuer/otp-auth/internal/transport/http/response"
)

type UserHandler struct {
	svc *auth.Service
}

func NewUserHandler(svc *auth.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Data handles GET /api/user/data for the session user.
func (h *UserHandler) Data(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrUnauthenticated())
		return
	}

	data, err := h.svc.GetUserData(r.Context(), userID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.WriteJSON(w, http.StatusOK, dto.UserDataResponse{
		Success: true,
		UserData: dto.UserDataView{
			Name:              data.Name,
			IsAccountVerified: data.IsAccountVerified,
		},
	})
}
