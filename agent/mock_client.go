package agent

import (
	"context"
	"encoding/json"
)

// MockClient is a canned implementation of API for local runs and tests; it
// never touches the network.
type MockClient struct{}

func (MockClient) Research(_ context.Context, _ ResearchRequest) (*ResearchResponse, error) {
	content, _ := json.Marshal(map[string]any{
		"letter_grade":         "B",
		"one_sentence_verdict": "Mostly accurate with minor missing context.",
		"red_flags":            []string{"Headline overstates the study's sample size."},
		"verified_facts":       []string{"The study was published in a peer-reviewed journal."},
		"sources_used":         []string{"example.org"},
	})
	return &ResearchResponse{Status: &StatusResponse{
		Status:  StatusCompleted,
		Content: content,
	}}, nil
}

func (MockClient) Status(_ context.Context, requestID string) (*StatusResponse, error) {
	return &StatusResponse{Status: StatusCompleted, RequestID: requestID}, nil
}
