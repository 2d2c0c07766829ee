package domain

// Badge is a tier label derived purely from a user's review count.
type Badge string

const (
	BadgeNone              Badge = "none"
	BadgeReviewer          Badge = "Reviewer"
	BadgeExpertReviewer    Badge = "Expert reviewer"
	BadgeContributor       Badge = "Contributor"
	BadgeExpertContributor Badge = "Expert contributor"
	BadgeSuperContributor  Badge = "Super contributor"
)

// User is a registered account. Password holds the one-way digest, never the
// plaintext. ReviewCount is mutated only by the store when a review from this
// user is accepted.
type User struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	ReviewCount int    `json:"review_count"`
}

// Badge returns the tier for the user's current review count.
func (u User) Badge() Badge {
	switch {
	case u.ReviewCount <= 0:
		return BadgeNone
	case u.ReviewCount < 10:
		return BadgeReviewer
	case u.ReviewCount < 20:
		return BadgeExpertReviewer
	case u.ReviewCount < 50:
		return BadgeContributor
	case u.ReviewCount < 100:
		return BadgeExpertContributor
	default:
		return BadgeSuperContributor
	}
}
