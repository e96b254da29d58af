package auth

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	FieldEmail    = "email"
	FieldPassword = "password"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit; longer passwords cannot be hashed.
	MaxPasswordBytes = 72

	specialChars = `!@#$%^&*(),.?":{}|<>`
)

const (
	msgEmailRequired    = "Email is required"
	msgEmailInvalid     = "Please enter a valid email address"
	msgPasswordRequired = "Password is required"
	msgPasswordWeak     = "Password does not meet requirements"

	RuleMinLength = "Password must be at least 8 characters long"
	RuleUppercase = "Password must contain at least one uppercase letter"
	RuleLowercase = "Password must contain at least one lowercase letter"
	RuleDigit     = "Password must contain at least one number"
	RuleSpecial   = "Password must contain at least one special character"
	RuleMaxBytes  = "Password must be at most 72 bytes long"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// isEmailSpace covers the whitespace RE2's \s leaves out (\v, no-break and
// other Unicode spaces, BOM).
func isEmailSpace(r rune) bool {
	return unicode.IsSpace(r) || r == '\ufeff'
}

// ValidationError reports which input field was rejected. Details lists every
// violated password rule in a fixed order.
type ValidationError struct {
	Field   string
	Message string
	Details []string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

// Validate checks an email/password pair. The password is whichever
// plaintext the caller's use case supplies (password or new password).
func Validate(email, password string) error {
	if err := ValidateEmail(email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: FieldEmail, Message: msgEmailRequired}
	}
	if strings.IndexFunc(email, isEmailSpace) >= 0 || !emailPattern.MatchString(email) {
		return &ValidationError{Field: FieldEmail, Message: msgEmailInvalid}
	}
	return nil
}

func ValidatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: FieldPassword, Message: msgPasswordRequired}
	}
	if details := PasswordViolations(password); len(details) > 0 {
		return &ValidationError{Field: FieldPassword, Message: msgPasswordWeak, Details: details}
	}
	return nil
}

// RequirePresent only checks that both values were supplied.
func RequirePresent(email, password string) error {
	if email == "" {
		return &ValidationError{Field: FieldEmail, Message: msgEmailRequired}
	}
	if password == "" {
		return &ValidationError{Field: FieldPassword, Message: msgPasswordRequired}
	}
	return nil
}

// PasswordViolations returns all failed strength rules, nil if none.
func PasswordViolations(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	var out []string
	if utf8.RuneCountInString(password) < MinPasswordLength {
		out = append(out, RuleMinLength)
	}
	if !upper {
		out = append(out, RuleUppercase)
	}
	if !lower {
		out = append(out, RuleLowercase)
	}
	if !digit {
		out = append(out, RuleDigit)
	}
	if !special {
		out = append(out, RuleSpecial)
	}
	if len(password) > MaxPasswordBytes {
		out = append(out, RuleMaxBytes)
	}
	return out
}
