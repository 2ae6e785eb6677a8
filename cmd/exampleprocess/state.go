// Command exampleprocess is a worked example wiring every core
// component together: it implements the ping (S1) and create/list users
// (S2) scenarios of §8 end to end over the reference HTTP binder.
package main

import (
	"context"
	"sync"
)

// User is the §8 S2 example's sole domain type.
type User struct {
	Name string `json:"name"`
}

// State is this process's single application-state struct, the unit
// persist.Engine's Snapshot serializes and host.Runtime's durable slot
// stores (§3/§4.4).
type State struct {
	mu    sync.Mutex
	Users []User `json:"users"`
}

// NewState returns an empty State, the default value before Load
// populates it from a prior snapshot (if any).
func NewState() *State {
	return &State{}
}

//hyperprocess:init
func (s *State) Init(ctx context.Context) {}

//hyperprocess:local
//hyperprocess:remote
func (s *State) Ping(ctx context.Context) string {
	return "pong"
}

//hyperprocess:http method=GET path=/ping
func (s *State) PingHTTP(ctx context.Context) string {
	return "pong"
}

//hyperprocess:http method=POST path=/users
func (s *State) CreateUser(ctx context.Context, u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Users = append(s.Users, u)
	return u
}

//hyperprocess:http method=GET path=/users
func (s *State) ListUsers(ctx context.Context) []User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]User, len(s.Users))
	copy(out, s.Users)
	return out
}
