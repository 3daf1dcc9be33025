package accounts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrUserExists is returned by Register for a taken username
	ErrUserExists = errors.New("username already taken")
	// ErrUnknownUser is returned when the username is not registered
	ErrUnknownUser = errors.New("unknown user")
	// ErrBadCredentials is returned when the password does not match
	ErrBadCredentials = errors.New("invalid credentials")
	// ErrInvalidInput is returned for empty usernames or passwords
	ErrInvalidInput = errors.New("username and password must be non-empty")
	// ErrSamePassword is returned when the new password equals the old one
	ErrSamePassword = errors.New("new password must differ from the old one")
)

// Service manages user accounts
type Service interface {
	// Register creates a new account
	Register(username, password string) error

	// Validate checks a username/password pair
	Validate(username, password string) error

	// UpdatePassword replaces the password after validating the old one
	UpdatePassword(username, oldPassword, newPassword string) error
}

// userRecord is the on-disk shape of one account
type userRecord struct {
	Username     string `json:"username"`
	PasswordHash string `json:"passwordHash"`
}

// fileService is a file-backed account store. Passwords are stored as
// bcrypt hashes in a single JSON document; the whole document is
// rewritten on every mutation, same approach as the trade log.
type fileService struct {
	path  string
	mutex sync.RWMutex
	users map[string]string // username -> bcrypt hash
}

// NewFileService opens the user store at path, creating an empty one
// when the file is absent.
func NewFileService(path string) (Service, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create user store directory: %w", err)
	}

	s := &fileService{
		path:  path,
		users: make(map[string]string),
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user store: %w", err)
	}

	var records []userRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse user store: %w", err)
	}
	for _, r := range records {
		s.users[r.Username] = r.PasswordHash
	}
	return s, nil
}

func (s *fileService) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.users[username]; exists {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.users[username] = string(hash)
	if err := s.flush(); err != nil {
		delete(s.users, username)
		return err
	}
	return nil
}

func (s *fileService) Validate(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidInput
	}

	s.mutex.RLock()
	hash, exists := s.users[username]
	s.mutex.RUnlock()

	if !exists {
		return ErrUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrBadCredentials
	}
	return nil
}

func (s *fileService) UpdatePassword(username, oldPassword, newPassword string) error {
	if username == "" || oldPassword == "" || newPassword == "" {
		return ErrInvalidInput
	}
	if oldPassword == newPassword {
		return ErrSamePassword
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	hash, exists := s.users[username]
	if !exists {
		return ErrUnknownUser
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(oldPassword)); err != nil {
		return ErrBadCredentials
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.users[username] = string(newHash)
	if err := s.flush(); err != nil {
		s.users[username] = hash
		return err
	}
	return nil
}

// flush rewrites the user document atomically. Caller holds the lock.
func (s *fileService) flush() error {
	records := make([]userRecord, 0, len(s.users))
	for username, hash := range s.users {
		records = append(records, userRecord{Username: username, PasswordHash: hash})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write user store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace user store: %w", err)
	}
	return nil
}
