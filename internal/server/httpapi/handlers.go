package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/walletd/internal/common"
	"github.com/dmitrijs2005/walletd/internal/server/models"
	"github.com/dmitrijs2005/walletd/internal/server/services"
)

type profileFields struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	PhoneLoginEnabled bool   `json:"phone_login_enabled"`
	PhoneUniqueID     string `json:"phone_unique_id"`
}

func (p profileFields) toProfile() services.Profile {
	return services.Profile{
		FirstName:         p.FirstName,
		LastName:          p.LastName,
		Email:             p.Email,
		PhoneLoginEnabled: p.PhoneLoginEnabled,
		PhoneUniqueID:     p.PhoneUniqueID,
	}
}

type signupRequest struct {
	SignupMethod   string `json:"signup_method"`
	SocialPlatform string `json:"social_platform"`
	SocialID       string `json:"social_id"`
	Mnemonic       string `json:"mnemonic"`
	PrivateKey     string `json:"private_key"`
	WalletName     string `json:"wallet_name"`
	profileFields
}

// toVariant maps the wire discriminant onto the signup union. Unknown
// methods fail before the reconciler sees the request.
func (r *signupRequest) toVariant() (services.SignupRequest, error) {
	profile := r.toProfile()
	switch models.SignupMethod(r.SignupMethod) {
	case models.SignupMethodSocial:
		return &services.SocialSignup{Platform: r.SocialPlatform, SocialID: r.SocialID, Profile: profile}, nil
	case models.SignupMethodWallet:
		return &services.FreshWalletSignup{WalletName: r.WalletName, Profile: profile}, nil
	case models.SignupMethodSeedImport:
		return &services.SeedImportSignup{Mnemonic: r.Mnemonic, WalletName: r.WalletName, Profile: profile}, nil
	case models.SignupMethodPrivateKeyImport:
		return &services.PrivateKeyImportSignup{PrivateKey: r.PrivateKey, WalletName: r.WalletName, Profile: profile}, nil
	default:
		return nil, common.ErrorValidation
	}
}

type userResponse struct {
	ID                string    `json:"id"`
	SignupMethod      string    `json:"signup_method"`
	UserType          string    `json:"user_type"`
	FirstName         string    `json:"first_name,omitempty"`
	LastName          string    `json:"last_name,omitempty"`
	Email             string    `json:"email,omitempty"`
	SocialPlatform    string    `json:"social_platform,omitempty"`
	SocialID          string    `json:"social_id,omitempty"`
	PhoneLoginEnabled bool      `json:"phone_login_enabled"`
	PhoneUniqueID     string    `json:"phone_unique_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:                u.ID,
		SignupMethod:      string(u.SignupMethod),
		UserType:          string(u.UserType),
		FirstName:         u.FirstName,
		LastName:          u.LastName,
		Email:             u.Email,
		SocialPlatform:    u.SocialPlatform,
		SocialID:          u.SocialID,
		PhoneLoginEnabled: u.PhoneLoginEnabled,
		PhoneUniqueID:     u.PhoneUniqueID,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// walletResponse never carries the sealed private key; only the sealed
// mnemonic leaves the server, and only in its sealed form.
type walletResponse struct {
	Address        string    `json:"address"`
	Network        string    `json:"network"`
	Name           string    `json:"name,omitempty"`
	SealedMnemonic string    `json:"sealed_mnemonic,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func toWalletResponse(w *models.Wallet) walletResponse {
	return walletResponse{
		Address:        w.Address,
		Network:        string(w.Network),
		Name:           w.Name,
		SealedMnemonic: w.SealedMnemonic,
		CreatedAt:      w.CreatedAt,
		UpdatedAt:      w.UpdatedAt,
	}
}

func toWalletResponses(ws []*models.Wallet) []walletResponse {
	result := make([]walletResponse, 0, len(ws))
	for _, w := range ws {
		result = append(result, toWalletResponse(w))
	}
	return result
}

func (s *Server) handleSignup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	variant, err := req.toVariant()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown signup method"})
		return
	}

	res, err := s.signup.SignUp(c.Request.Context(), variant)
	if err != nil {
		s.writeError(c, err)
		return
	}

	status := http.StatusOK
	if res.IsNewUser {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{
		"token":       res.Token,
		"token_type":  res.TokenType,
		"is_new_user": res.IsNewUser,
		"user":        toUserResponse(res.User),
		"wallets":     toWalletResponses(res.Wallets),
	})
}

func (s *Server) handleGetMe(c *gin.Context) {
	user, err := s.users.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserResponse(user))
}

func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req profileFields
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, token, err := s.users.UpdateProfile(c.Request.Context(), currentUserID(c), req.toProfile())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"token_type": common.TokenTypeBearer,
		"user":       toUserResponse(user),
	})
}

func (s *Server) handleListWallets(c *gin.Context) {
	limit := intQuery(c, "limit", 0)
	offset := intQuery(c, "offset", 0)

	wallets, total, err := s.wallets.List(c.Request.Context(), currentUserID(c), limit, offset)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_count": total,
		"wallets":     toWalletResponses(wallets),
	})
}

func (s *Server) handleCreateWallet(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	wallet, err := s.wallets.Create(c.Request.Context(), currentUserID(c), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWalletResponse(wallet))
}

func (s *Server) handleImportWallet(c *gin.Context) {
	var req struct {
		Mnemonic   string `json:"mnemonic"`
		PrivateKey string `json:"private_key"`
		Name       string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	wallet, err := s.wallets.Import(c.Request.Context(), currentUserID(c), &services.WalletImport{
		Mnemonic:   req.Mnemonic,
		PrivateKey: req.PrivateKey,
		Name:       req.Name,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toWalletResponse(wallet))
}

func (s *Server) handleRenameWallet(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	wallet, err := s.wallets.Rename(c.Request.Context(), currentUserID(c), c.Param("address"), req.Name)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWalletResponse(wallet))
}

func (s *Server) handleDeleteWallet(c *gin.Context) {
	wallet, err := s.wallets.SoftDelete(c.Request.Context(), currentUserID(c), c.Param("address"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toWalletResponse(wallet))
}

// writeError maps service errors to status codes. Anything unexpected is
// logged server-side and redacted to a generic message; secrets never
// travel in error responses.
func (s *Server) writeError(c *gin.Context, err error) {
	status, msg := statusFromError(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err.Error())
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFromError(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrInvalidMnemonic),
		errors.Is(err, common.ErrInvalidPrivateKey):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound, common.ErrorNotFound.Error()
	case errors.Is(err, common.ErrorConflict):
		return http.StatusConflict, common.ErrorConflict.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func intQuery(c *gin.Context, name string, def int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
