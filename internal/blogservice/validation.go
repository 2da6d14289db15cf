package blogservice

import (
	"math"
	"strings"

	"github.com/sushihentaime/blogshelf/internal/common"
)

const wordsPerMinute = 200

func validateTitle(v *common.Validator, title string) {
	v.Check(title != "", "title", "must be provided")
	v.Check(common.MaxRunes(title, 150), "title", "must not be more than 150 characters long")
}

func validateBrief(v *common.Validator, brief string) {
	v.Check(common.MaxRunes(brief, 300), "brief", "must not be more than 300 characters long")
}

func validateDescription(v *common.Validator, description string) {
	v.Check(strings.TrimSpace(description) != "", "description", "must be provided")
}

func validateCategory(v *common.Validator, category string) {
	v.Check(common.MaxRunes(category, 50), "category", "must not be more than 50 characters long")
}

func validateEstimated(v *common.Validator, estimated int) {
	v.Check(estimated >= 0, "estimated", "must not be negative")
	v.Check(estimated <= 600, "estimated", "must not be more than 600 minutes")
}

func validateID(v *common.Validator, id, field string) {
	v.Check(id != "", field, "must be provided")
	v.Check(id == "" || common.ValidID(id), field, "must be a valid id")
}

// readingTime estimates minutes to read text, never less than one.
func readingTime(text string) int {
	words := len(strings.Fields(text))
	return max(1, int(math.Ceil(float64(words)/wordsPerMinute)))
}
