package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	tokenExpiry    = 12 * time.Hour
	maxNameLen     = 16
	loginPerMinute = 10
)

var (
	ErrBadPassword  = errors.New("invalid password")
	ErrRateLimited  = errors.New("too many attempts, try again later")
	ErrInvalidToken = errors.New("invalid token")
)

// Auth issues and checks play tokens. With no secret configured every
// connection is allowed; with no password hash anyone may get a token.
type Auth struct {
	secret   []byte
	passHash []byte

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewAuth creates an Auth from a signing secret and a bcrypt password hash
func NewAuth(secret, passwordHash string) *Auth {
	return &Auth{
		secret:   []byte(secret),
		passHash: []byte(passwordHash),
		limiters: make(map[string]*rate.Limiter),
	}
}

// Enabled reports whether websocket clients must present a token
func (a *Auth) Enabled() bool {
	return len(a.secret) > 0
}

// CheckPassword compares password to the configured hash
func (a *Auth) CheckPassword(password string) bool {
	if len(a.passHash) == 0 {
		return true
	}
	return bcrypt.CompareHashAndPassword(a.passHash, []byte(password)) == nil
}

// Login checks the password for a caller at ip and returns a signed token
func (a *Auth) Login(name, password, ip string) (string, error) {
	if !a.allow(ip) {
		return "", ErrRateLimited
	}
	if !a.CheckPassword(password) {
		return "", ErrBadPassword
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "pilot"
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
	}
	return a.generateToken(name)
}

// ValidateToken returns the player name a token was issued for
func (a *Auth) ValidateToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	name, _ := claims["sub"].(string)
	return name, nil
}

func (a *Auth) generateToken(name string) (string, error) {
	if !a.Enabled() {
		return "", errors.New("auth secret not configured")
	}
	claims := jwt.MapClaims{
		"sub": name,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenExpiry).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// allow applies the per-IP login rate limit
func (a *Auth) allow(ip string) bool {
	a.limMu.Lock()
	defer a.limMu.Unlock()
	lim, ok := a.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/loginPerMinute), loginPerMinute)
		a.limiters[ip] = lim
	}
	return lim.Allow()
}

// HashPassword returns a bcrypt hash suitable for the passwordHash setting
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
