package auth

import (
	"errors"
	"fmt"
	"strings"
)

// weakSecrets are rejected outright, and as prefixes of short secrets.
var weakSecrets = []string{
	"admin",
	"password",
	"123456",
	"secret",
	"changeme",
	"admin123",
	"password123",
	"qwerty",
	"letmein",
	"welcome",
	"default",
	"youtube",
	"channels",
	"test",
}

var keyboardRuns = []string{"qwertyuiop", "asdfghjkl", "zxcvbnm", "qwerty", "asdfgh"}

const (
	minWebUISecretLength = 12
	minJWTSecretLength   = 32
)

// ValidateSecrets checks WEB_UI_SECRET and JWT_SECRET before the API starts.
// The returned error names the offending variable but never its value.
func ValidateSecrets(webUISecret, jwtSecret string) error {
	if err := checkSecret("WEB_UI_SECRET", webUISecret, minWebUISecretLength); err != nil {
		return err
	}
	if err := checkSecret("JWT_SECRET", jwtSecret, minJWTSecretLength); err != nil {
		return err
	}
	if webUISecret == jwtSecret {
		return errors.New("secret validation failed: WEB_UI_SECRET and JWT_SECRET must differ")
	}
	return nil
}

func checkSecret(name, value string, minLen int) error {
	switch {
	case value == "":
		return fmt.Errorf("secret validation failed: %s must not be empty", name)
	case len(value) < minLen:
		return fmt.Errorf("secret validation failed: %s must be at least %d characters (current length: %d)", name, minLen, len(value))
	case isRepeatedChar(value) || isDigitSequence(value):
		return fmt.Errorf("secret validation failed: %s must not be a simple pattern", name)
	case isKeyboardPattern(value):
		return fmt.Errorf("secret validation failed: %s must not be a keyboard pattern", name)
	}

	lower := strings.ToLower(value)
	for _, weak := range weakSecrets {
		if lower == weak {
			return fmt.Errorf("secret validation failed: %s must not be a weak password", name)
		}
		// "admin1234567" and friends
		if strings.HasPrefix(lower, weak) && len(value) < minLen+5 {
			return fmt.Errorf("secret validation failed: %s must not be based on a common weak password", name)
		}
	}
	return nil
}

func isRepeatedChar(s string) bool {
	if s == "" {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// isDigitSequence reports whether s is all digits stepping by +1 or -1,
// wrapping between 9 and 0.
func isDigitSequence(s string) bool {
	if len(s) < 2 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	up, down := true, true
	for i := 1; i < len(s); i++ {
		d := int(s[i]) - int(s[i-1])
		if d != 1 && d != -9 {
			up = false
		}
		if d != -1 && d != 9 {
			down = false
		}
	}
	return up || down
}

func isKeyboardPattern(s string) bool {
	lower := strings.ToLower(s)
	for _, run := range keyboardRuns {
		if strings.Contains(lower, run) || strings.Contains(lower, reverse(run)) {
			return true
		}
	}
	return false
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
