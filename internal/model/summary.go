package model

import "time"

// Summary aggregates the stored analyses of one URL.
type Summary struct {
	URL              string    `json:"url"`
	Total            int       `json:"total"`
	OK               int       `json:"ok"`
	Malformed        int       `json:"malformed"`
	ConnectionErrors int       `json:"connection_errors"`
	FirstAnalyzed    time.Time `json:"first_analyzed"`
	LastAnalyzed     time.Time `json:"last_analyzed"`
}

// Add counts n analyses with the given status.
func (s *Summary) Add(status Status, n int) {
	s.Total += n
	switch status {
	case StatusOK:
		s.OK += n
	case StatusMalformed:
		s.Malformed += n
	case StatusConnectionError:
		s.ConnectionErrors += n
	}
}
