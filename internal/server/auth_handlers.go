package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"shopagg/internal/middleware"
	"shopagg/internal/models"
	"shopagg/internal/session"
	"shopagg/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "shopagg-api"
	tokenAudience = "shopagg-client"
	tokenTTL      = 7 * 24 * time.Hour
)

var errTokenRevoked = errors.New("token has been revoked")

// Signup handles POST /api/auth/signup
// @Summary User signup
// @Description Register a new account. Likes collected anonymously are kept.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{username=string,email=string,password=string} true "Signup request"
// @Success 201 {object} object{token=string,user=models.User,merged_likes=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /auth/signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Username = strings.TrimSpace(req.Username)

	if req.Username == "" || req.Email == "" || req.Password == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Username, email, and password are required"))
	}
	for _, err := range []error{
		validation.ValidateUsername(req.Username),
		validation.ValidateEmail(req.Email),
		validation.ValidatePassword(req.Password),
	} {
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError(err.Error()))
		}
	}

	ctx := c.UserContext()
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return models.Respond(c, err)
	}
	if existing == nil {
		existing, err = s.userRepo.GetByUsername(ctx, req.Username)
		if err != nil {
			return models.Respond(c, err)
		}
	}
	if existing != nil {
		return models.Respond(c, models.NewConflictError("User already exists"))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return models.Respond(c, models.NewInternalError(err))
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return models.Respond(c, err)
	}

	token, merged, err := s.startUserSession(c, user)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":        token,
		"user":         user,
		"merged_likes": merged,
	})
}

// Login handles POST /api/auth/login
// @Summary User login
// @Description Authenticate and return a JWT. Anonymous session likes are merged into the account.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body object{email=string,password=string} true "Login credentials"
// @Success 200 {object} object{token=string,user=models.User,merged_likes=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /auth/login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userRepo.GetByEmail(c.UserContext(), strings.TrimSpace(strings.ToLower(req.Email)))
	if err != nil {
		return models.Respond(c, err)
	}
	if user == nil {
		return models.Respond(c, models.NewUnauthorizedError("Invalid credentials"))
	}
	if cmpErr := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); cmpErr != nil {
		return models.Respond(c, models.NewUnauthorizedError("Invalid credentials"))
	}

	token, merged, err := s.startUserSession(c, user)
	if err != nil {
		return models.Respond(c, err)
	}

	return c.JSON(fiber.Map{
		"token":        token,
		"user":         user,
		"merged_likes": merged,
	})
}

// startUserSession merges the anonymous likes of the current session into
// user, rotates the session ID and issues a token.
func (s *Server) startUserSession(c *fiber.Ctx, user *models.User) (string, int, error) {
	ctx := c.UserContext()
	sess := session.FromContext(c)

	var merged int
	if s.likeService != nil {
		var err error
		merged, err = s.likeService.MergeOnLogin(ctx, sess, user.ID)
		if err != nil {
			// The login still succeeds; the likes stay in the session for the next attempt.
			middleware.Logger.WarnContext(ctx, "Failed to merge session likes",
				slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
		}
	}
	if s.sessions != nil {
		if err := session.Rotate(ctx, s.sessions, sess); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to rotate session", slog.String("error", err.Error()))
		}
	}

	token, err := s.generateToken(user.ID, user.Username)
	if err != nil {
		return "", 0, models.NewInternalError(err)
	}
	return token, merged, nil
}

// Logout handles POST /api/auth/logout
// @Summary Logout
// @Description Revoke the bearer token and reset the browser session.
// @Tags auth
// @Produce json
// @Success 200 {object} object{message=string}
// @Router /auth/logout [post]
func (s *Server) Logout(c *fiber.Ctx) error {
	ctx := c.UserContext()

	if raw := bearerToken(c); raw != "" {
		if claims, err := s.parseToken(ctx, raw); err == nil {
			s.revoke(ctx, claims)
		}
	}

	if s.sessions != nil {
		sess := session.FromContext(c)
		sess.Clear()
		if err := session.Rotate(ctx, s.sessions, sess); err != nil {
			middleware.Logger.WarnContext(ctx, "Failed to rotate session", slog.String("error", err.Error()))
		}
	}

	return c.JSON(fiber.Map{"message": "Logged out"})
}

func (s *Server) revoke(ctx context.Context, claims jwt.MapClaims) {
	jti, _ := claims["jti"].(string)
	if jti == "" || s.redis == nil {
		return
	}
	ttl := tokenTTL
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		ttl = time.Until(exp.Time)
	}
	if ttl <= 0 {
		return
	}
	if err := s.redis.Set(ctx, "blacklist:"+jti, "1", ttl).Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "Failed to revoke token", slog.String("error", err.Error()))
	}
}

// generateToken creates a JWT token for the given user ID and username
func (s *Server) generateToken(userID uint, username string) (string, error) {
	if s.config.JWTSecret == "" {
		return "", fmt.Errorf("JWT secret not configured")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      strconv.FormatUint(uint64(userID), 10),
		"username": username,
		"iss":      tokenIssuer,
		"aud":      tokenAudience,
		"exp":      now.Add(tokenTTL).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// parseToken validates signature, issuer, audience, expiry and revocation.
func (s *Server) parseToken(ctx context.Context, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	if jti, _ := claims["jti"].(string); jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
		if err == nil && revoked > 0 {
			return nil, errTokenRevoked
		}
	}
	return claims, nil
}

func bearerToken(c *fiber.Ctx) string {
	scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " ")
	if !ok || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

// Identify resolves an optional bearer token into locals "userID". Requests
// without a valid token continue anonymously.
func (s *Server) Identify() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return c.Next()
		}
		claims, err := s.parseToken(c.UserContext(), raw)
		if err != nil {
			middleware.Logger.DebugContext(c.UserContext(), "Ignoring invalid bearer token", slog.String("error", err.Error()))
			return c.Next()
		}
		sub, _ := claims.GetSubject()
		userID, err := strconv.ParseUint(sub, 10, 32)
		if err != nil || userID == 0 {
			return c.Next()
		}
		c.Locals("userID", uint(userID))
		return c.Next()
	}
}

// AuthRequired rejects requests that Identify did not authenticate.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals("userID").(uint); !ok {
			return models.Respond(c, models.NewUnauthorizedError("Authorization required"))
		}
		return c.Next()
	}
}
