package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reading-speed defaults applied to every new account. The ratchet step is
// the fixed increment applied to MaxWPM on a qualifying first-attempt
// perfect score.
const (
	StartingWPM        = 200
	StartingMaxWPM     = 225
	ProgressionWPMStep = 25
)

// Account-specific validation errors
var (
	ErrEmptyAccountID      = errors.New("account ID cannot be empty")
	ErrEmptyEmail          = errors.New("email cannot be empty")
	ErrPasswordTooShort    = errors.New("password must be at least 12 characters long")
	ErrPasswordTooLong     = errors.New("password must be at most 72 characters long")
	ErrEmptyPassword       = errors.New("password cannot be empty")
	ErrNegativeAccumulated = errors.New("accumulated XP cannot be negative")
	ErrNegativeSpendable   = errors.New("spendable XP cannot be negative")
	ErrSpendableExceedsAcc = errors.New("spendable XP cannot exceed accumulated XP")
	ErrInvalidReadingSpeed = errors.New("reading speed must be at least 1 wpm")
	ErrSpeedAboveMax       = errors.New("current wpm cannot exceed max wpm")
)

// Account represents a registered user of the ReadQuest platform together
// with the two XP balances the ledger maintains for them.
//
// AccumulatedXP is the permanent lifetime record of earned experience and
// never decreases. SpendableXP is the currency balance consumed by purchases
// and social interactions and is never negative. Both are mutated only by
// the transaction manager; every other component treats them as read-only.
type Account struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Password       string    `json:"-"` // Plaintext password, used temporarily during registration
	HashedPassword string    `json:"-"` // Never expose password hash in JSON
	AccumulatedXP  int64     `json:"accumulated_xp"`
	SpendableXP    int64     `json:"spendable_xp"`
	CurrentWPM     int       `json:"current_wpm"`
	MaxWPM         int       `json:"max_wpm"`
	SpendingFrozen bool      `json:"spending_frozen"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Balance is the pair of XP balances reported for an account.
type Balance struct {
	AccumulatedXP int64 `json:"accumulated_xp"`
	SpendableXP   int64 `json:"spendable_xp"`
}

// NewAccount creates a new Account with the given email and password,
// zero balances, and the starting reading speeds (200 wpm current,
// 225 wpm max). It generates a new UUID for the account ID and sets the
// creation/update timestamps. Returns an error if validation fails.
//
// NOTE: This function only sets up the account structure with the plaintext
// password. The caller is responsible for hashing the password before
// storing the account.
func NewAccount(email, password string) (*Account, error) {
	account := &Account{
		ID:         uuid.New(),
		Email:      email,
		Password:   password, // Plaintext password - must be hashed before storage
		CurrentWPM: StartingWPM,
		MaxWPM:     StartingMaxWPM,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	if err := account.Validate(); err != nil {
		return nil, err
	}

	return account, nil
}

// Validate checks if the Account has valid data.
// Returns an error if any field fails validation.
func (a *Account) Validate() error {
	if a.ID == uuid.Nil {
		return ErrEmptyAccountID
	}

	if a.Email == "" {
		return ErrEmptyEmail
	}

	if !validateEmailFormat(a.Email) {
		return ErrInvalidEmail
	}

	// During registration the plaintext password is validated; existing
	// accounts loaded from the database carry only the hash.
	if a.Password != "" {
		if !validatePasswordLength(a.Password) {
			if len(a.Password) < 12 {
				return ErrPasswordTooShort
			}
			return ErrPasswordTooLong
		}
	} else {
		if a.HashedPassword == "" {
			return ErrEmptyPassword
		}
	}

	if a.AccumulatedXP < 0 {
		return ErrNegativeAccumulated
	}

	if a.SpendableXP < 0 {
		return ErrNegativeSpendable
	}

	if a.SpendableXP > a.AccumulatedXP {
		return ErrSpendableExceedsAcc
	}

	if a.CurrentWPM < 1 {
		return ErrInvalidReadingSpeed
	}

	if a.CurrentWPM > a.MaxWPM {
		return ErrSpeedAboveMax
	}

	return nil
}

// Balance returns the account's current pair of XP balances.
func (a *Account) Balance() Balance {
	return Balance{
		AccumulatedXP: a.AccumulatedXP,
		SpendableXP:   a.SpendableXP,
	}
}

// CanAfford reports whether the spendable balance covers the given cost.
func (a *Account) CanAfford(cost int64) bool {
	return a.SpendableXP >= cost
}

// TODO: Replace this basic email validation with a dedicated RFC 5322
// validation library.
//
// validateEmailFormat performs basic validation of email format.
// Returns true if the email appears to be in a valid format.
func validateEmailFormat(email string) bool {
	// Simple check: must have @ and at least one . after @
	atIndex := -1
	for i, char := range email {
		if char == '@' {
			atIndex = i
			break
		}
	}

	if atIndex == -1 || atIndex == 0 || atIndex == len(email)-1 {
		return false
	}

	domainPart := email[atIndex+1:]
	if len(domainPart) < 3 { // minimum would be "a.b"
		return false
	}

	dotIndex := -1
	for i, char := range domainPart {
		if char == '.' {
			dotIndex = i
			break
		}
	}

	if dotIndex == -1 || dotIndex == 0 || dotIndex == len(domainPart)-1 {
		return false
	}

	return true
}

// validatePasswordLength checks if a password is between 12 and 72
// characters (bcrypt's practical limit). Length is preferred over character
// complexity rules: longer passwords provide better security than shorter
// ones with special character requirements.
func validatePasswordLength(password string) bool {
	passLen := len(password)
	return passLen >= 12 && passLen <= 72
}
