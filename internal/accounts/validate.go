package accounts

import (
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/wanderlate/internal/users"
	"github.com/MrEthical07/wanderlate/password"
)

const defaultCurrency = "EUR"

// RegisterInput is the sign-up form.
type RegisterInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	BirthDay        string `json:"birthDay"`
	BirthMonth      string `json:"birthMonth"`
	BirthYear       string `json:"birthYear"`
	Country         string `json:"country"`
	Language        string `json:"language"`
	Currency        string `json:"currency"`
	AccountType     string `json:"accountType"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	AcceptTerms     bool   `json:"acceptTerms"`
	AcceptMarketing bool   `json:"acceptMarketing"`
}

// LoginInput is the sign-in form.
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s[strings.LastIndex(s, "@"):], ".")
}

// validate checks in and returns the parsed birth date.
func (in *RegisterInput) validate() (time.Time, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Currency = strings.TrimSpace(in.Currency)
	if in.Currency == "" {
		in.Currency = defaultCurrency
	}

	verr := &ValidationError{}
	if len([]rune(in.FirstName)) < 2 {
		verr.add("firstName", "First name must be at least 2 characters")
	}
	if len([]rune(in.LastName)) < 2 {
		verr.add("lastName", "Last name must be at least 2 characters")
	}
	if !validEmail(in.Email) {
		verr.add("email", "Invalid email address")
	}
	if len(in.Phone) < 10 {
		verr.add("phone", "Phone number must be at least 10 digits")
	}
	if in.BirthDay == "" {
		verr.add("birthDay", "Day is required")
	}
	if in.BirthMonth == "" {
		verr.add("birthMonth", "Month is required")
	}
	if len(in.BirthYear) < 4 {
		verr.add("birthYear", "Year is required")
	}
	if in.AccountType != users.AccountTraveler && in.AccountType != users.AccountHost {
		verr.add("accountType", "Account type must be traveler or host")
	}
	if err := password.CheckPolicy(in.Password); err != nil {
		verr.add("password", password.PolicyMessage(err))
	}
	if in.Password != in.ConfirmPassword {
		verr.add("confirmPassword", "Passwords don't match")
	}
	if !in.AcceptTerms {
		verr.add("acceptTerms", "You must accept the terms and conditions")
	}
	if err := verr.orNil(); err != nil {
		return time.Time{}, err
	}

	birth, ok := birthDate(in.BirthYear, in.BirthMonth, in.BirthDay)
	if !ok {
		verr.add("birthDate", "Invalid birth date")
		return time.Time{}, verr
	}
	return birth, nil
}

// birthDate builds a calendar date and rejects days that do not exist in the
// given month.
func birthDate(year, month, day string) (time.Time, bool) {
	y, errY := strconv.Atoi(strings.TrimSpace(year))
	m, errM := strconv.Atoi(strings.TrimSpace(month))
	d, errD := strconv.Atoi(strings.TrimSpace(day))
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, false
	}
	if m < 1 || m > 12 || d < 1 || d > 31 || y < 1900 {
		return time.Time{}, false
	}

	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.After(time.Now()) {
		return time.Time{}, false
	}
	return t, true
}

func (in *LoginInput) validate() error {
	in.Email = strings.TrimSpace(in.Email)

	verr := &ValidationError{}
	if !validEmail(in.Email) {
		verr.add("email", "Invalid email address")
	}
	if in.Password == "" {
		verr.add("password", "Password is required")
	}
	return verr.orNil()
}
