package openai

import "github.com/petal-labs/instructor/providers/internal/normalize"

func (p *OpenAI) httpError(status int, body []byte, requestID string) error {
	return normalize.HTTPError(p.id, status, body, requestID)
}

func (p *OpenAI) networkError(err error) error {
	return normalize.NetworkError(p.id, err)
}

func (p *OpenAI) decodeError(err error) error {
	return normalize.DecodeError(p.id, err)
}
