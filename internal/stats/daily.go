package stats

// Daily-top accessors. The record itself is maintained by RecordCalc;
// this file only reads it.

// TopDamage is the highest expected-damage calculation seen on a date.
type TopDamage struct {
	Date     string  `json:"date"`
	Username string  `json:"username,omitempty"`
	Weapon   string  `json:"weapon,omitempty"`
	Defender string  `json:"defender,omitempty"`
	Damage   float64 `json:"damage"`
	Kills    float64 `json:"kills"`
	Time     int64   `json:"time"`
}

// TopToday returns the day's top calculation, false when the date has
// rolled over or nothing was recorded yet.
func (s *Store) TopToday() (TopDamage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	day := s.now().UTC().Format("2006-01-02")
	if s.top == nil || s.day != day {
		return TopDamage{}, false
	}
	return *s.top, true
}

// ResetDaily clears the daily record regardless of date.
func (s *Store) ResetDaily() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.day = ""
	s.top = nil
}
