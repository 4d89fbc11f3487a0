package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/companionkit/agentic/config"
	"github.com/companionkit/agentic/domain"
	"github.com/companionkit/agentic/usecase"
	"github.com/companionkit/agentic/utils/log"
)

// ConversationHandler exposes the pipeline over HTTP. Authentication is a JWT
// minted by the token endpoint; the handler resolves the caller identity from
// claims and hands it to the service already verified.
type ConversationHandler struct {
	svc       *usecase.ChatService
	jwtSecret []byte
	jwtExpiry time.Duration
	apiKey    string
	apiSecret string
}

type conversationRequest struct {
	Prompt string `json:"prompt"`
}

type messageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

type JWTClaims struct {
	UserID   string `json:"user_id"`
	UserName string `json:"user_name"`
	jwt.RegisteredClaims
}

func NewConversationHandler(svc *usecase.ChatService, cfg config.Auth) *ConversationHandler {
	return &ConversationHandler{
		svc:       svc,
		jwtSecret: []byte(cfg.JWTSecret),
		jwtExpiry: cfg.JWTExpiry,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

// GenerateJWT mints a token for a caller that presents the static API
// credentials. Stands in for the external identity provider in deployments
// that don't front this service with one.
func (h *ConversationHandler) GenerateJWT(c echo.Context) error {
	key := c.Request().Header.Get("X-API-Key")
	secret := c.Request().Header.Get("X-API-Secret")

	if h.apiKey == "" || key != h.apiKey || secret != h.apiSecret {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	userID := c.QueryParam("user_id")
	userName := c.QueryParam("user_name")
	if userID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}

	claims := &JWTClaims{
		UserID:   userID,
		UserName: userName,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.jwtExpiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    "companionkit-agentic",
			Subject:   "conversation",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		log.WithCtx(c.Request().Context()).Error("failed to sign JWT", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token": tokenString,
		"type":  "Bearer",
	})
}

// JWTMiddleware validates the bearer token and puts the caller identity into
// the echo context.
func (h *ConversationHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		})
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok || !token.Valid || claims.UserID == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
		}

		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.UserName)
		return next(c)
	}
}

// Converse runs the pipeline for one prompt and returns the raw reply text.
func (h *ConversationHandler) Converse(c echo.Context) error {
	personaID := c.Param("personaId")
	if personaID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Persona ID required")
	}

	var req conversationRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body")
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}

	reply, err := h.svc.Converse(c.Request().Context(), usecase.ConverseInput{
		PersonaID: personaID,
		Caller:    callerFromContext(c),
		Prompt:    req.Prompt,
	})
	if err != nil {
		return h.mapError(c, err)
	}

	return c.String(http.StatusOK, reply)
}

// History returns the persisted conversation in insertion order.
func (h *ConversationHandler) History(c echo.Context) error {
	personaID := c.Param("personaId")
	if personaID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Persona ID required")
	}

	messages, err := h.svc.History(c.Request().Context(), personaID)
	if err != nil {
		return h.mapError(c, err)
	}

	out := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		out = append(out, messageResponse{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   msg.Content,
			UserID:    msg.UserID,
			CreatedAt: msg.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Reset deletes the caller's messages for the persona, leaving the persona
// untouched.
func (h *ConversationHandler) Reset(c echo.Context) error {
	personaID := c.Param("personaId")
	if personaID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Persona ID required")
	}

	if err := h.svc.Reset(c.Request().Context(), personaID, callerFromContext(c)); err != nil {
		return h.mapError(c, err)
	}
	return c.String(http.StatusOK, "Successfully deleted messages.")
}

func (h *ConversationHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"service":   "conversation",
	})
}

func (h *ConversationHandler) mapError(c echo.Context, err error) error {
	var quotaErr *domain.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		retryAfter := int(quotaErr.RetryAfter.Seconds() + 0.5)
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, domain.ErrQuotaExceeded):
		return echo.NewHTTPError(http.StatusTooManyRequests, "Rate limit exceeded")
	case errors.Is(err, domain.ErrPersonaNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Persona not found")
	default:
		log.WithCtx(c.Request().Context()).Error("pipeline failure", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func callerFromContext(c echo.Context) domain.CallerIdentity {
	identity := domain.CallerIdentity{}
	if v, ok := c.Get("user_id").(string); ok {
		identity.UserID = v
	}
	if v, ok := c.Get("user_name").(string); ok {
		identity.UserName = v
	}
	return identity
}
