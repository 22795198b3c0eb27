package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/service"
)

// StateHandlers contains HTTP handlers for the application state
type StateHandlers struct {
	state *service.AppState
}

// NewStateHandlers creates new state handlers
func NewStateHandlers(state *service.AppState) *StateHandlers {
	return &StateHandlers{state: state}
}

// Health reports liveness
func (h *StateHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// State returns the live generation and everything cached under it
func (h *StateHandlers) State(c *gin.Context) {
	cache := h.state.Cache()
	c.JSON(http.StatusOK, gin.H{
		"generation": h.state.Generation(),
		"balances":   cache.Balances(),
		"prices":     cache.Prices(),
	})
}

// Navigate handles a screen change
func (h *StateHandlers) Navigate(c *gin.Context) {
	var req struct {
		Screen string `json:"screen" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	gen := h.state.Navigate(c.Request.Context(), req.Screen)
	c.JSON(http.StatusOK, gin.H{"generation": gen})
}

// Reset clears cached state and invalidates in-flight operations
func (h *StateHandlers) Reset(c *gin.Context) {
	gen := h.state.Reset(c.Request.Context(), "operator")
	c.JSON(http.StatusOK, gin.H{"generation": gen})
}

// RefreshBalances runs the balance operation and reports how it settled
func (h *StateHandlers) RefreshBalances(c *gin.Context) {
	completion, err := h.state.RefreshBalances(c.Request.Context())
	h.completion(c, completion, err)
}

// RefreshTicker runs the ticker operation and reports how it settled
func (h *StateHandlers) RefreshTicker(c *gin.Context) {
	completion, err := h.state.RefreshTicker(c.Request.Context())
	h.completion(c, completion, err)
}

func (h *StateHandlers) completion(c *gin.Context, completion service.Completion, err error) {
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        completion.ID,
		"operation": completion.Operation,
		"snapshot":  completion.Snapshot,
		"outcome":   completion.Outcome,
	})
}

// Login exchanges user credentials for an API key pair
func (h *StateHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
		TFA      string `json:"tfa"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if err := h.state.Login(c.Request.Context(), req.Email, req.Password, req.TFA); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged in"})
}

// Logout drops the credentials and resets the state
func (h *StateHandlers) Logout(c *gin.Context) {
	if err := h.state.Logout(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Logged out", "generation": h.state.Generation()})
}

// writeError maps the error taxonomy to a status and the {"error": ...} body
func writeError(c *gin.Context, err error) {
	var (
		apiErr     *core.APIError
		timeoutErr *core.TimeoutError
		netErr     *core.NetworkError
	)

	switch {
	case errors.Is(err, core.ErrTFARequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error(), "tfa_required": true})
	case errors.Is(err, core.ErrNoCredentials), errors.Is(err, core.ErrInvalidLogin):
		c.JSON(http.StatusUnauthorized, core.ErrorPayload(err))
	case errors.As(err, &timeoutErr):
		c.JSON(http.StatusGatewayTimeout, core.ErrorPayload(err))
	case errors.As(err, &apiErr), errors.As(err, &netErr):
		c.JSON(http.StatusBadGateway, core.ErrorPayload(err))
	default:
		c.JSON(http.StatusInternalServerError, core.ErrorPayload(err))
	}
}
