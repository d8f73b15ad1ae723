package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/time/rate"
)

const (
	jwtExpiry        = 30 * 24 * time.Hour
	bcryptCost       = 12
	minPasswordLen   = 4
	minUsernameLen   = 2
	maxUsernameLen   = 16
	loginRateWindow  = 60 * time.Second
	maxLoginAttempts = 10
)

// Auth handles accounts and profile tokens
type Auth struct {
	db        *DB
	jwtSecret []byte

	// Per-IP login throttle
	rateMu  sync.Mutex
	limiter map[string]*rate.Limiter
}

// Identity is who a token belongs to.
type Identity struct {
	PlayerID int64  `json:"playerId"`
	Username string `json:"username"`
	Guest    bool   `json:"guest"`
}

// NewAuth creates a new Auth handler. An empty secret loads or generates
// one in the settings table.
func NewAuth(db *DB, secret string) *Auth {
	key := []byte(secret)
	if secret == "" {
		key = loadOrCreateSecret(db)
	}
	return &Auth{
		db:        db,
		jwtSecret: key,
		limiter:   make(map[string]*rate.Limiter),
	}
}

func loadOrCreateSecret(db *DB) []byte {
	if h := db.GetSetting("jwt_secret"); h != "" {
		if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
			return b
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
		log.Printf("warning: could not persist JWT secret: %v", err)
	}
	return secret
}

// Register creates a new account
func (a *Auth) Register(username, password string) (Identity, string, error) {
	username = strings.TrimSpace(username)

	if len(username) < minUsernameLen || len(username) > maxUsernameLen {
		return Identity{}, "", fmt.Errorf("username must be %d-%d characters", minUsernameLen, maxUsernameLen)
	}
	if len(password) < minPasswordLen {
		return Identity{}, "", fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := a.db.UsernameExists(username)
	if err != nil {
		return Identity{}, "", fmt.Errorf("database error")
	}
	if exists {
		return Identity{}, "", fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}

	id, err := a.db.CreatePlayer(username, string(hash))
	if err != nil {
		return Identity{}, "", fmt.Errorf("failed to create account")
	}
	return a.issue(Identity{PlayerID: id, Username: username})
}

// Guest creates a password-less account so progress survives reconnects.
func (a *Auth) Guest() (Identity, string, error) {
	name := GenerateGuestName()
	id, err := a.db.CreateGuest(name)
	if err != nil {
		return Identity{}, "", fmt.Errorf("failed to create guest")
	}
	return a.issue(Identity{PlayerID: id, Username: name, Guest: true})
}

// Login authenticates a user and returns a JWT
func (a *Auth) Login(username, password, ip string) (Identity, string, error) {
	if !a.allow(ip) {
		return Identity{}, "", fmt.Errorf("too many login attempts, try again later")
	}

	player, err := a.db.GetPlayerByUsername(username)
	if err != nil {
		return Identity{}, "", fmt.Errorf("database error")
	}
	if player == nil || player.PassHash == "" {
		return Identity{}, "", fmt.Errorf("invalid username or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PassHash), []byte(password)); err != nil {
		return Identity{}, "", fmt.Errorf("invalid username or password")
	}
	return a.issue(Identity{PlayerID: player.ID, Username: player.Username})
}

// ValidateToken checks a JWT and returns its identity
func (a *Auth) ValidateToken(tokenStr string) (Identity, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, fmt.Errorf("invalid token")
	}

	pidFloat, ok := claims["pid"].(float64)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	username, ok := claims["usr"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("invalid token claims")
	}
	guest, _ := claims["gst"].(bool)
	return Identity{PlayerID: int64(pidFloat), Username: username, Guest: guest}, nil
}

func (a *Auth) issue(id Identity) (Identity, string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"pid": id.PlayerID,
		"usr": id.Username,
		"gst": id.Guest,
		"exp": now.Add(jwtExpiry).Unix(),
		"iat": now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
	if err != nil {
		return Identity{}, "", fmt.Errorf("internal error")
	}
	return id, token, nil
}

func (a *Auth) allow(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()
	l, ok := a.limiter[ip]
	if !ok {
		l = rate.NewLimiter(rate.Every(loginRateWindow/maxLoginAttempts), maxLoginAttempts)
		a.limiter[ip] = l
	}
	return l.Allow()
}

// GenerateGuestName creates a guest name like "Guest_a3f2c1"
func GenerateGuestName() string {
	b := make([]byte, 3)
	rand.Read(b)
	return "Guest_" + hex.EncodeToString(b)
}
