package portalfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/carebook-portal/portal"
	"github.com/jrsteele09/carebook-portal/token"
	"github.com/jrsteele09/carebook-portal/users"
)

const (
	apiPrefix   = "/api/v1"
	tokenPrefix = "/api/token"

	Secret = "portalfake-secret"

	roleClaim = "http://schemas.microsoft.com/ws/2008/06/identity/claims/role"
)

// Account is a user known to the fake portal
type Account struct {
	ID        string
	Email     string
	Password  string
	Name      string
	Role      users.RoleType
	Confirmed bool
}

// RefreshRequest is a refresh call as the fake received it
type RefreshRequest struct {
	RefreshToken       string `json:"refreshToken"`
	ExpireRefreshToken string `json:"expireRefreshToken"`
}

// Server is an in-process stand-in for the portal API. It issues HMAC
// signed access tokens and opaque, rotating refresh tokens.
type Server struct {
	*httptest.Server

	lock            sync.Mutex
	signer          *token.HMACSigner
	accounts        map[string]*Account // email to account
	refreshTokens   map[string]string   // refresh token to email
	statuses        map[string]int      // forced status per operation
	calls           map[string]int
	refreshRequests []RefreshRequest
	bearers         []string
	requestIDs      []string
	tokenLifetime   time.Duration
	omitRefresh     bool
	refreshGate     chan struct{}
	nowFunc         func() time.Time
}

// New starts a fake portal. Close it when done.
func New() *Server {
	s := &Server{
		signer:        token.NewHMACSigner(Secret),
		accounts:      make(map[string]*Account),
		refreshTokens: make(map[string]string),
		statuses:      make(map[string]int),
		calls:         make(map[string]int),
		tokenLifetime: time.Hour,
		nowFunc:       time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+portal.PathLogin, chainMiddleware(s.handleLogin, s.requestIDMiddleware))
	mux.HandleFunc("POST "+apiPrefix+portal.PathRegister, chainMiddleware(s.handleRegister, s.requestIDMiddleware))
	mux.HandleFunc("POST "+apiPrefix+portal.PathLogout, chainMiddleware(s.handleLogout, s.requestIDMiddleware, s.requireBearerMiddleware))
	mux.HandleFunc("POST "+tokenPrefix+portal.PathRefresh, chainMiddleware(s.handleRefresh, s.requestIDMiddleware))
	s.Server = httptest.NewServer(mux)
	return s
}

func (s *Server) APIBaseURL() string {
	return s.URL + apiPrefix
}

func (s *Server) TokenBaseURL() string {
	return s.URL + tokenPrefix
}

// AddAccount registers an account. Missing IDs are generated.
func (s *Server) AddAccount(account Account) *Account {
	s.lock.Lock()
	defer s.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	s.accounts[strings.ToLower(account.Email)] = &account
	return &account
}

// SetStatus forces every call to op to answer with status. Zero restores normal behaviour.
func (s *Server) SetStatus(op string, status int) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.statuses[op] = status
}

// SetTokenLifetime sets the lifetime of access tokens issued from now on
func (s *Server) SetTokenLifetime(lifetime time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.tokenLifetime = lifetime
}

// SetOmitRefreshToken makes login answers leave out the refresh token
func (s *Server) SetOmitRefreshToken(omit bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.omitRefresh = omit
}

// HoldRefresh blocks refresh handlers until the returned release func is called
func (s *Server) HoldRefresh() (release func()) {
	gate := make(chan struct{})
	s.lock.Lock()
	s.refreshGate = gate
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			s.refreshGate = nil
			s.lock.Unlock()
			close(gate)
		})
	}
}

// Calls returns how many times op was requested
func (s *Server) Calls(op string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[op]
}

// RefreshRequests returns every refresh body received, oldest first
func (s *Server) RefreshRequests() []RefreshRequest {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]RefreshRequest(nil), s.refreshRequests...)
}

// Bearers returns the bearer tokens presented to logout
func (s *Server) Bearers() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.bearers...)
}

// RequestIDs returns the X-Request-ID header of every call, oldest first
func (s *Server) RequestIDs() []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.requestIDs...)
}

// IssueAccessToken signs an access token for account expiring after lifetime
func (s *Server) IssueAccessToken(account *Account, lifetime time.Duration) string {
	return s.signer.MustSign(jwt.MapClaims{
		"id":      account.ID,
		roleClaim: string(account.Role),
		"email":   account.Email,
		"name":    account.Name,
		"exp":     s.nowFunc().Add(lifetime).Unix(),
	})
}

// IssueRefreshToken creates a refresh token the fake will accept for account
func (s *Server) IssueRefreshToken(account *Account) string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.issueRefreshLocked(account)
}

func (s *Server) issueRefreshLocked(account *Account) string {
	refreshToken := uuid.New().String()
	s.refreshTokens[refreshToken] = strings.ToLower(account.Email)
	return refreshToken
}

func (s *Server) begin(op string) (status int, lifetime time.Duration) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls[op]++
	return s.statuses[op], s.tokenLifetime
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	forced, lifetime := s.begin(portal.OpLogin)
	if forced != 0 {
		writeJSON(w, forced, map[string]string{"message": http.StatusText(forced)})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid form"})
		return
	}

	s.lock.Lock()
	account, ok := s.accounts[strings.ToLower(r.PostFormValue("email"))]
	s.lock.Unlock()

	switch {
	case !ok || account.Password != r.PostFormValue("password"):
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid email or password"})
		return
	case !account.Confirmed:
		writeJSON(w, http.StatusForbidden, map[string]string{"message": "Email is not confirmed"})
		return
	}

	response := map[string]any{
		"accessToken": s.IssueAccessToken(account, lifetime),
		"user": map[string]any{
			"id":          account.ID,
			"displayName": account.Name,
		},
	}
	s.lock.Lock()
	if !s.omitRefresh {
		response["refreshToken"] = s.issueRefreshLocked(account)
	}
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	forced, lifetime := s.begin(portal.OpRegister)
	if forced != 0 {
		writeJSON(w, forced, map[string]string{"message": http.StatusText(forced)})
		return
	}

	var request portal.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil || request.Email == "" || request.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"title":  "One or more validation errors occurred.",
			"errors": map[string][]string{"Email": {"The Email field is required."}},
		})
		return
	}

	s.lock.Lock()
	if _, exists := s.accounts[strings.ToLower(request.Email)]; exists {
		s.lock.Unlock()
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email already registered"})
		return
	}
	account := &Account{
		ID:        uuid.New().String(),
		Email:     request.Email,
		Password:  request.Password,
		Role:      users.ParseRole(string(request.Role)),
		Confirmed: true,
	}
	s.accounts[strings.ToLower(account.Email)] = account
	refreshToken := s.issueRefreshLocked(account)
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"token":        s.IssueAccessToken(account, lifetime),
		"refreshToken": refreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	forced, _ := s.begin(portal.OpLogout)

	s.lock.Lock()
	s.bearers = append(s.bearers, strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	s.lock.Unlock()

	if forced != 0 {
		writeJSON(w, forced, map[string]string{"message": http.StatusText(forced)})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	forced, lifetime := s.begin(portal.OpRefresh)

	var request RefreshRequest
	_ = json.NewDecoder(r.Body).Decode(&request)

	s.lock.Lock()
	s.refreshRequests = append(s.refreshRequests, request)
	gate := s.refreshGate
	s.lock.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}
	if forced != 0 {
		writeJSON(w, forced, map[string]string{"message": http.StatusText(forced)})
		return
	}

	s.lock.Lock()
	email, ok := s.refreshTokens[request.RefreshToken]
	account := s.accounts[email]
	if !ok || account == nil {
		s.lock.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Invalid refresh token"})
		return
	}
	delete(s.refreshTokens, request.RefreshToken)
	refreshToken := s.issueRefreshLocked(account)
	s.lock.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  s.IssueAccessToken(account, lifetime),
		"refreshToken": refreshToken,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
