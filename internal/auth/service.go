package auth

import (
	"crypto/subtle"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// Service checks admin credentials against a configured bcrypt hash.
type Service struct {
	Username     string
	PasswordHash string
	Tokens       *Tokens
}

// Login returns a token when username and password match.
func (s *Service) Login(username, password string) (string, error) {
	log := logrus.WithField("username", username)

	if s.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(username), []byte(s.Username)) != 1 {
		log.Warn("service: login attempt with unknown username")
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(password)); err != nil {
		log.Warn("service: login attempt with wrong password")
		return "", ErrInvalidCredentials
	}

	token, err := s.Tokens.Generate(username)
	if err != nil {
		return "", err
	}
	log.Info("service: admin logged in")
	return token, nil
}
