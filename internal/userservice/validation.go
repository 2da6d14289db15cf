package userservice

import (
	"regexp"
	"strings"

	"github.com/sushihentaime/blogshelf/internal/common"
)

var (
	EmailRX     = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	UppercaseRX = regexp.MustCompile("[A-Z]")
	NumberRX    = regexp.MustCompile("[0-9]")
)

const (
	maxInterests     = 20
	maxInterestChars = 50
)

func validateName(v *common.Validator, name string) {
	v.Check(name != "", "name", "must be provided")
	v.Check(common.MaxRunes(name, 50), "name", "must not be more than 50 characters long")
}

func validateEmail(v *common.Validator, email string) {
	v.Check(email != "", "email", "must be provided")
	v.Check(common.Matches(email, EmailRX), "email", "must be a valid email address")
}

// validatePassword caps the length at 72 bytes, the most bcrypt reads.
func validatePassword(v *common.Validator, password string) {
	v.Check(password != "", "password", "must be provided")

	value := v.CheckStringLength(password, 8, 72) && common.Matches(password, UppercaseRX) && common.Matches(password, NumberRX)
	v.Check(value, "password", "must be between 8 and 72 characters long and contain at least one uppercase letter and one number")
}

func validateInterests(v *common.Validator, interests []string) {
	v.Check(len(interests) <= maxInterests, "interests", "must not contain more than 20 entries")
	for _, i := range interests {
		if !common.MaxRunes(i, maxInterestChars) {
			v.AddError("interests", "each entry must not be more than 50 characters long")
			return
		}
	}
}

func validateID(v *common.Validator, id, field string) {
	v.Check(id != "", field, "must be provided")
	v.Check(id == "" || common.ValidID(id), field, "must be a valid id")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizeInterests trims entries and drops blanks and repeats, keeping the first occurrence.
func normalizeInterests(interests []string) []string {
	if interests == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(interests))
	out := make([]string, 0, len(interests))
	for _, i := range interests {
		i = strings.TrimSpace(i)
		if i == "" {
			continue
		}
		key := strings.ToLower(i)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, i)
	}

	return out
}
