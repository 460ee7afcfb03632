package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/arnavshah/oncall-rota-go/pkg/database"
)

const (
	bcryptCost = 14
	tokenTTL   = 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMalformedKey = errors.New("malformed api key")
	ErrBadSignature = errors.New("invalid key signature")
)

// Claims is the JWT payload issued to a logged-in admin
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

func keySecret() []byte {
	return []byte(os.Getenv("API_MASTER_SECRET"))
}

// HashPassword hashes an admin password with bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPasswordHash reports whether the password matches its stored hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateToken issues a signed admin session token
func CreateToken(username string) (string, error) {
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret())
}

// VerifyToken parses and validates an admin session token
func VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateHMACKey issues an API key of the form "<name>.<hex signature>".
// Keys verify against API_MASTER_SECRET alone, so issuing one needs no
// database write.
func GenerateHMACKey(name string) string {
	return name + "." + signName(name)
}

// VerifyHMACKey checks a key's signature and returns the embedded name
func VerifyHMACKey(key string) (string, error) {
	name, signature, found := strings.Cut(key, ".")
	if !found {
		return "", ErrMalformedKey
	}
	if !hmac.Equal([]byte(signature), []byte(signName(name))) {
		return "", ErrBadSignature
	}
	return name, nil
}

func signName(name string) string {
	h := hmac.New(sha256.New, keySecret())
	h.Write([]byte(name))
	return hex.EncodeToString(h.Sum(nil))
}

// EnsureAdminExists bootstraps the first admin account from ADMIN_USERNAME
// and ADMIN_PASSWORD when the master_users table is empty
func EnsureAdminExists(db *gorm.DB) error {
	var count int64
	db.Model(&database.MasterUser{}).Count(&count)
	if count > 0 {
		return nil
	}

	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "admin123"
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := db.Create(&database.MasterUser{Username: username, PasswordHash: hash}).Error; err != nil {
		return err
	}
	logrus.WithField("username", username).Info("Default admin user created")
	return nil
}
