// Package devbackend is an in-memory league backend speaking the REST
// contract the console consumes. It backs local development and the
// console's HTTP tests.
package devbackend

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"league-console/internal/model"
	"league-console/pkg/apierror"
)

const DefaultPassword = "password123"

type Config struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

type account struct {
	user         model.User
	passwordHash []byte
}

type Backend struct {
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration

	mu            sync.RWMutex
	accounts      map[string]*account
	refreshTokens map[string]string
	data          *fixtures

	generation  atomic.Int64
	failRefresh atomic.Bool
	hits        sync.Map
}

func New(cfg Config) (*Backend, error) {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-backend-secret"
	}
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	b := &Backend{
		jwtSecret:     []byte(cfg.JWTSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		accounts:      map[string]*account{},
		refreshTokens: map[string]string{},
		data:          seedFixtures(),
	}

	if err := b.seedAccounts(cfg.BcryptCost); err != nil {
		return nil, err
	}

	return b, nil
}

// FailRefresh makes every refresh answer 400 until switched off.
func (b *Backend) FailRefresh(fail bool) {
	b.failRefresh.Store(fail)
}

// RevokeAccessTokens invalidates every access token issued so far. Refresh
// tokens keep working.
func (b *Backend) RevokeAccessTokens() {
	b.generation.Add(1)
}

// Hits counts requests per route pattern, e.g. "POST /auth/refresh".
func (b *Backend) Hits(route string) int64 {
	v, ok := b.hits.Load(route)
	if !ok {
		return 0
	}
	return v.(*atomic.Int64).Load()
}

func (b *Backend) countHit(route string) {
	v, _ := b.hits.LoadOrStore(route, &atomic.Int64{})
	v.(*atomic.Int64).Add(1)
}

func (b *Backend) seedAccounts(cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), cost)
	if err != nil {
		return err
	}

	users := []model.User{
		{ID: "u-root", Username: "root", Email: "root@league.test", Roles: []model.Role{model.RoleSystemAdmin}},
		{ID: "u-tenant", Username: "tenant.admin", Email: "tenant@league.test", Roles: []model.Role{model.RoleTenantAdmin}, TenantID: "T1"},
		{ID: "u-league", Username: "league.admin", Email: "league@league.test", Roles: []model.Role{model.RoleLeagueAdmin}, TenantID: "T1", ManagingLeagueID: "L1"},
		{ID: "u-team", Username: "team.admin", Email: "team@league.test", Roles: []model.Role{model.RoleTeamAdmin}, TenantID: "T1", ManagingLeagueID: "L1", ManagingTeamID: "TM1"},
		{ID: "u-fan", Username: "fan", Email: "fan@league.test", Roles: []model.Role{model.RoleUser}, TenantID: "T1"},
	}

	for _, user := range users {
		b.accounts[user.ID] = &account{user: user, passwordHash: hash}
	}

	return nil
}

func (b *Backend) login(req model.LoginRequest) (*model.LoginResponse, error) {
	identifier := strings.ToLower(strings.TrimSpace(req.UsernameOrEmail))

	b.mu.RLock()
	var found *account
	for _, acc := range b.accounts {
		if strings.ToLower(acc.user.Username) == identifier || strings.ToLower(acc.user.Email) == identifier {
			found = acc
			break
		}
	}
	b.mu.RUnlock()

	if found == nil {
		return nil, apierror.New("UNAUTHORIZED", "invalid credentials", "", http.StatusUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword(found.passwordHash, []byte(req.Password)); err != nil {
		return nil, apierror.New("UNAUTHORIZED", "invalid credentials", "", http.StatusUnauthorized)
	}

	if code := strings.TrimSpace(req.LeagueCode); code != "" && !b.data.hasLeagueCode(code) {
		return nil, apierror.New("BAD_REQUEST", "unknown league code", code, http.StatusBadRequest)
	}

	pair, err := b.issueTokenPair(found.user)
	if err != nil {
		return nil, err
	}

	user := found.user
	return &model.LoginResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken, User: &user}, nil
}

func (b *Backend) refresh(refreshToken string) (*model.TokenPair, error) {
	if b.failRefresh.Load() {
		return nil, apierror.New("BAD_REQUEST", "refresh token rejected", "", http.StatusBadRequest)
	}

	claims, err := b.validate(refreshToken, "refresh")
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	ownerID, exists := b.refreshTokens[refreshToken]
	if !exists || ownerID != claims.subject {
		b.mu.Unlock()
		return nil, apierror.New("BAD_REQUEST", "refresh token is invalid", "", http.StatusBadRequest)
	}
	delete(b.refreshTokens, refreshToken)
	acc, ok := b.accounts[claims.subject]
	b.mu.Unlock()

	if !ok {
		return nil, apierror.New("BAD_REQUEST", "user not found", "", http.StatusBadRequest)
	}

	return b.issueTokenPair(acc.user)
}

func (b *Backend) logout(refreshToken string) {
	b.mu.Lock()
	delete(b.refreshTokens, refreshToken)
	b.mu.Unlock()
}

func (b *Backend) userByID(id string) (model.User, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	acc, ok := b.accounts[id]
	if !ok {
		return model.User{}, false
	}
	return acc.user, true
}

type tokenClaims struct {
	subject    string
	generation int64
}

func (b *Backend) validate(tokenString string, expectedType string) (*tokenClaims, error) {
	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return b.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.New("UNAUTHORIZED", "invalid token claims", "", http.StatusUnauthorized)
	}

	if typ, _ := claimsMap["typ"].(string); typ != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}

	claims := &tokenClaims{}
	claims.subject, _ = claimsMap["sub"].(string)
	if gen, ok := claimsMap["gen"].(float64); ok {
		claims.generation = int64(gen)
	}

	if claims.subject == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}

	if expectedType == "access" && claims.generation < b.generation.Load() {
		return nil, apierror.New("UNAUTHORIZED", "token revoked", "", http.StatusUnauthorized)
	}

	return claims, nil
}

func (b *Backend) issueTokenPair(user model.User) (*model.TokenPair, error) {
	now := time.Now().UTC()
	generation := b.generation.Load()

	accessToken, err := b.signToken(jwt.MapClaims{
		"sub":   user.ID,
		"roles": user.Roles,
		"typ":   "access",
		"gen":   generation,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   now.Add(b.accessTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := b.signToken(jwt.MapClaims{
		"sub": user.ID,
		"typ": "refresh",
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(b.refreshTTL).Unix(),
	})
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.refreshTokens[refreshToken] = user.ID
	b.mu.Unlock()

	return &model.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (b *Backend) signToken(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(b.jwtSecret)
}
