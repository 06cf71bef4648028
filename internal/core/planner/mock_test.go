package planner

import (
	"context"
	"sync"

	"promo-meal-planner/internal/core/ai/service"
)

// scriptedCompleter 依 Operation 返回預設內容
type scriptedCompleter struct {
	mu       sync.Mutex
	content  map[string]string
	errs     map[string]error
	requests []service.Request
}

func newScripted() *scriptedCompleter {
	return &scriptedCompleter{content: map[string]string{}, errs: map[string]error{}}
}

func (s *scriptedCompleter) ProcessRequest(ctx context.Context, req service.Request) (*service.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if err := s.errs[req.Operation]; err != nil {
		return nil, err
	}
	return &service.Response{Content: s.content[req.Operation]}, nil
}

func (s *scriptedCompleter) count(operation string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Operation == operation {
			n++
		}
	}
	return n
}

func (s *scriptedCompleter) last(operation string) service.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Operation == operation {
			return s.requests[i]
		}
	}
	return service.Request{}
}
