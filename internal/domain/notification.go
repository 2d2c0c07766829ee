package domain

// LeaderChange is one entry of a ranking notification: the named city has a
// new rank-1 hotel. A broadcast message is a JSON array of these, ordered by
// city.
type LeaderChange struct {
	City  string `json:"city"`
	Hotel string `json:"hotel"`
}
