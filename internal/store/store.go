// Copyright 2010-2024 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store keeps solutions in memory, scoped by session.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown session or solution id.
var ErrNotFound = errors.New("solution not found")

// Summary describes a stored solution without its values.
type Summary struct {
	SolutionID       string    `json:"solution_id"`
	Kind             string    `json:"kind"`
	Status           string    `json:"status"`
	ObjectiveValue   float64   `json:"objective_value"`
	SolveTimeSeconds float64   `json:"solve_time_seconds"`
	CreatedAt        time.Time `json:"created_at"`
}

// Solution is a stored solution.
type Solution struct {
	Summary
	// Variables maps variable names to values.
	Variables map[string]float64 `json:"variables"`
	// Result is the problem-specific solution, e.g. the routes of a vrp.Solution.
	Result any `json:"result,omitempty"`
}

// NonZero returns a copy of `s` without the variables whose value is 0.
func (s Solution) NonZero() Solution {
	vars := make(map[string]float64, len(s.Variables))
	for k, v := range s.Variables {
		if v != 0 {
			vars[k] = v
		}
	}
	s.Variables = vars
	return s
}

type session struct {
	ids       []string
	solutions map[string]*Solution
}

// Store is a session-keyed solution store. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	now      func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{sessions: map[string]*session{}, now: time.Now}
}

// Put stores `sol` under `sessionID` with a fresh id and creation time, and returns the stored
// summary.
func (s *Store) Put(sessionID string, sol Solution) Summary {
	sol.SolutionID = uuid.NewString()
	sol.CreatedAt = s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		ss = &session{solutions: map[string]*Solution{}}
		s.sessions[sessionID] = ss
	}
	ss.ids = append(ss.ids, sol.SolutionID)
	ss.solutions[sol.SolutionID] = &sol
	return sol.Summary
}

// Get returns the solution `id` of `sessionID`.
func (s *Store) Get(sessionID, id string) (Solution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ss, ok := s.sessions[sessionID]; ok {
		if sol, ok := ss.solutions[id]; ok {
			return *sol, nil
		}
	}
	return Solution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns the summaries of `sessionID` in insertion order.
func (s *Store) List(sessionID string) []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		return []Summary{}
	}
	out := make([]Summary, len(ss.ids))
	for i, id := range ss.ids {
		out[i] = ss.solutions[id].Summary
	}
	return out
}

// ClearSession drops every solution of `sessionID` and returns how many there were.
func (s *Store) ClearSession(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		return 0
	}
	delete(s.sessions, sessionID)
	return len(ss.ids)
}
