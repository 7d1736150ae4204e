// Package external implements the out-of-process classifier contract: a fast
// specialized scoring service and a general LLM, both invoked only when the
// cheaper in-process layers are not confident. An unreachable endpoint is a
// normal runtime condition here, not an exceptional one; callers treat any
// error as "not confident" and move on.
package external

import "context"

// Request is the wire request shared by both external classifiers.
type Request struct {
	NormalizedText string   `json:"normalizedText"`
	Amount         *float64 `json:"amount,omitempty"`
	UserID         string   `json:"userId,omitempty"`
}

// Response is the wire response: the chosen category plus the raw score
// vector the calibrator rescales.
type Response struct {
	CategoryID string             `json:"categoryId"`
	RawScores  map[string]float64 `json:"rawScoreVector"`
	ElapsedMs  int64              `json:"elapsedMs"`
}

// Client is one external classifier endpoint. Classify must honor the
// caller's context deadline; implementations hold no locks across the call.
type Client interface {
	Classify(ctx context.Context, req Request) (Response, error)
	Close() error
}
