// Package httpapi exposes the signup, user, and wallet operations over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/walletd/internal/logging"
	"github.com/dmitrijs2005/walletd/internal/server/services"
)

type Server struct {
	address   string
	logger    logging.Logger
	signup    *services.SignupService
	users     *services.UserService
	wallets   *services.WalletService
	jwtSecret []byte
}

func NewServer(a string, l logging.Logger, signup *services.SignupService, users *services.UserService, wallets *services.WalletService, secretKey string) (*Server, error) {
	return &Server{
		address:   a,
		logger:    l.With("module", "http_server"),
		signup:    signup,
		users:     users,
		wallets:   wallets,
		jwtSecret: []byte(secretKey),
	}, nil
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger)

	r.PUT("/users/signup", s.handleSignup)

	authed := r.Group("/", s.requireToken)
	authed.GET("/users/me", s.handleGetMe)
	authed.PATCH("/users", s.handleUpdateProfile)
	authed.GET("/wallets", s.handleListWallets)
	authed.POST("/wallets", s.handleCreateWallet)
	authed.POST("/wallets/import", s.handleImportWallet)
	authed.PATCH("/wallets/:address", s.handleRenameWallet)
	authed.DELETE("/wallets/:address", s.handleDeleteWallet)

	return r
}

func (s *Server) Run(ctx context.Context) error {

	srv := &http.Server{Addr: s.address, Handler: s.router()}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "shutdown error", "error", err.Error())
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
