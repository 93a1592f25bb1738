package handlers

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthHandler handles administrator authentication
type AdminAuthHandler struct {
	jwtSecret    []byte
	totpSecret   string
	passwordHash string
}

// AdminLoginRequest is the administrator login payload
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTPCode string `json:"totp_code" binding:"required"`
}

// AdminLoginResponse is the administrator login response
type AdminLoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token,omitempty"`
	Message string `json:"message"`
}

// AdminJWTClaims carries the administrator JWT claims
type AdminJWTClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// NewAdminAuthHandler creates a new AdminAuthHandler instance. All
// secrets come from the environment: ADMIN_TOTP_SECRET,
// ADMIN_PASSWORD_HASH (bcrypt) and ADMIN_JWT_SECRET.
func NewAdminAuthHandler() *AdminAuthHandler {
	totpSecret := os.Getenv("ADMIN_TOTP_SECRET")
	passwordHash := os.Getenv("ADMIN_PASSWORD_HASH")
	if totpSecret == "" || passwordHash == "" {
		logrus.Warn("ADMIN_TOTP_SECRET or ADMIN_PASSWORD_HASH not set, admin login will reject all requests")
	}

	jwtSecret := os.Getenv("ADMIN_JWT_SECRET")
	if jwtSecret == "" {
		logrus.Warn("ADMIN_JWT_SECRET not set, admin login disabled")
	}

	return &AdminAuthHandler{
		jwtSecret:    []byte(jwtSecret),
		totpSecret:   totpSecret,
		passwordHash: passwordHash,
	}
}

// JWTSecret exposes the signing key for the auth middleware.
func (h *AdminAuthHandler) JWTSecret() []byte {
	return h.jwtSecret
}

// AdminLoginHandler handles POST /api/admin/login
// Verifies password and TOTP code, then issues a short-lived JWT.
func (h *AdminAuthHandler) AdminLoginHandler(c *gin.Context) {
	if h.totpSecret == "" || h.passwordHash == "" || len(h.jwtSecret) == 0 {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Server misconfiguration: admin credentials not set",
		})
		return
	}

	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, AdminLoginResponse{
			Success: false,
			Message: "Invalid request body",
		})
		return
	}

	expectedUsername := os.Getenv("ADMIN_USERNAME")
	if expectedUsername == "" {
		expectedUsername = "admin"
	}

	// Deliberately generic error message on every rejection path.
	if req.Username != expectedUsername ||
		bcrypt.CompareHashAndPassword([]byte(h.passwordHash), []byte(req.Password)) != nil ||
		!totp.Validate(req.TOTPCode, h.totpSecret) {
		logrus.WithFields(logrus.Fields{
			"username":  req.Username,
			"client_ip": c.ClientIP(),
		}).Warn("Admin login rejected")
		c.JSON(http.StatusUnauthorized, AdminLoginResponse{
			Success: false,
			Message: "Invalid credentials",
		})
		return
	}

	claims := AdminJWTClaims{
		Username: req.Username,
		Role:     "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(2 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "go-solver",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, AdminLoginResponse{
			Success: false,
			Message: "Failed to issue token",
		})
		return
	}

	logrus.WithField("username", req.Username).Info("Admin login succeeded")
	c.JSON(http.StatusOK, AdminLoginResponse{
		Success: true,
		Token:   token,
		Message: "Login successful",
	})
}
