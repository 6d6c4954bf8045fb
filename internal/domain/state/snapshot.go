package state

import (
	"encoding/json"
	"fmt"
)

// Encode serializes the aggregate in the persisted layout
func Encode(s AppState) ([]byte, error) {
	s = s.Clone()
	normalize(&s)
	return json.Marshal(s)
}

// Decode parses a persisted aggregate and checks its enums and amounts
func Decode(data []byte) (AppState, error) {
	var s AppState
	if err := json.Unmarshal(data, &s); err != nil {
		return AppState{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	normalize(&s)
	if err := check(s); err != nil {
		return AppState{}, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return s, nil
}

// normalize replaces nil slices so every array field serializes as [] and drops
// duplicate completed task ids.
func normalize(s *AppState) {
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	if s.Tasks == nil {
		s.Tasks = []Task{}
	}
	if s.AvailableAds == nil {
		s.AvailableAds = []Task{}
	}
	if s.User == nil {
		return
	}
	seen := make(map[string]struct{}, len(s.User.CompletedTaskIDs))
	ids := make([]string, 0, len(s.User.CompletedTaskIDs))
	for _, id := range s.User.CompletedTaskIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	s.User.CompletedTaskIDs = ids
}

func check(s AppState) error {
	for _, tx := range s.Transactions {
		if tx.ID == "" {
			return fmt.Errorf("transaction without id")
		}
		if !tx.Type.Valid() {
			return fmt.Errorf("transaction %s: unknown type %q", tx.ID, tx.Type)
		}
		if !tx.Status.Valid() {
			return fmt.Errorf("transaction %s: unknown status %q", tx.ID, tx.Status)
		}
		if tx.Amount <= 0 {
			return fmt.Errorf("transaction %s: non-positive amount %d", tx.ID, tx.Amount)
		}
	}
	for _, catalog := range [][]Task{s.Tasks, s.AvailableAds} {
		for _, t := range catalog {
			if err := checkTask(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkTask(t Task) error {
	if t.ID == "" {
		return fmt.Errorf("task %q without id", t.Title)
	}
	if !t.Type.Valid() {
		return fmt.Errorf("task %s: unknown type %q", t.ID, t.Type)
	}
	if t.Reward <= 0 {
		return fmt.Errorf("task %s: non-positive reward %d", t.ID, t.Reward)
	}
	return nil
}

// Clone returns a deep copy of the aggregate
func (s AppState) Clone() AppState {
	out := AppState{
		Transactions: append([]Transaction{}, s.Transactions...),
		Tasks:        append([]Task{}, s.Tasks...),
		AvailableAds: append([]Task{}, s.AvailableAds...),
	}
	if s.User != nil {
		u := s.User.clone()
		out.User = &u
	}
	return out
}

func (u *User) clone() User {
	c := *u
	c.CompletedTaskIDs = append([]string{}, u.CompletedTaskIDs...)
	return c
}
